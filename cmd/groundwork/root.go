package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/groundworkd/groundwork/internal/app"
	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
)

// Exit codes. Manifest problems mean nothing was attempted; run problems
// mean the host may have been partially converged.
const (
	exitOK       = 0
	exitRunError = 1
	exitManifest = 2
)

var (
	// Global flags
	ledgerPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "groundwork",
	Short: "A declarative host provisioning engine",
	Long: `Groundwork converges a host onto a declared manifest of resources.

A manifest lists desired facts about the host (interfaces, sysctls,
firewall rules, services, schema objects, files); groundwork compiles
them into an ordered plan, applies only what drifted, and records
convergence in a ledger so unchanged resources are never touched again:
  Manifest -> Compile -> Plan -> Apply -> Verify -> Ledger`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", app.DefaultLedgerPath, "ledger file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

// stepFailureError marks a run that halted on a step, distinct from
// manifest problems so the exit code can tell the two apart.
type stepFailureError struct {
	stepID string
	reason string
}

func (e *stepFailureError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("run halted at step %q: %s", e.stepID, e.reason)
	}
	return fmt.Sprintf("run halted at step %q", e.stepID)
}

// exitCodeFor maps an error to the process exit code. Compile-phase errors
// (bad manifest, unknown kind, cycle, missing dependency) exit 2; everything
// that happens once a run could start (step failures, lock contention,
// ledger corruption) exits 1.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var manifestErr *manifest.Error
	if errors.As(err, &manifestErr) {
		return exitManifest
	}
	var stepErr *compiler.StepError
	if errors.As(err, &stepErr) && stepErr.IsCompileError() {
		return exitManifest
	}
	return exitRunError
}

// formatError returns a user-friendly error message. Verbose mode adds the
// underlying technical error.
func formatError(err error) string {
	var manifestErr *manifest.Error
	if errors.As(err, &manifestErr) {
		return formatRich(manifestErr.Message, manifestErr.Context, manifestErr.Suggestion, manifestErr.Underlying)
	}
	var stepErr *compiler.StepError
	if errors.As(err, &stepErr) {
		return formatRich(stepErr.Message, stepErr.StepID, stepErr.Suggestion, stepErr.Underlying)
	}
	return err.Error()
}

func formatRich(message, context, suggestion string, underlying error) string {
	msg := message
	if context != "" {
		msg += fmt.Sprintf(" (at %s)", context)
	}
	if suggestion != "" {
		msg += fmt.Sprintf("\n\nSuggestion: %s", suggestion)
	}
	if verbose && underlying != nil {
		msg += fmt.Sprintf("\n\nTechnical details: %v", underlying)
	}
	return msg
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
