package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/groundworkd/groundwork/internal/adapters/logging"
	"github.com/groundworkd/groundwork/internal/app"
	"github.com/groundworkd/groundwork/internal/domain/execution"
	"github.com/groundworkd/groundwork/internal/ports"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Converge the host onto the manifest",
	Long: `Apply plans and executes the manifest against this host.

Steps run strictly in dependency order. Resources unchanged since their
last successful apply are skipped without touching the host; everything
else is checked live, applied if drifted, verified, and recorded in the
ledger. The run halts at the first failure.

A second concurrent apply against the same ledger fails immediately.
Interrupting a run (Ctrl-C) stops it between steps; the in-flight step
always finishes its verification and ledger write first.`,
	RunE: runApply,
}

var (
	applyManifestPath string
	applyDryRun       bool
)

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyManifestPath, "manifest", "m", "groundwork.yaml", "Path to the manifest")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Plan and report without applying")
}

func runApply(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := ports.LevelWarn
	if verbose {
		level = ports.LevelDebug
	}
	log := logging.NewConsoleLogger(logging.WithOutput(os.Stderr), logging.WithLevel(level))

	gw := app.New(os.Stdout, ledgerPath).WithLogger(log)

	record, err := gw.Apply(ctx, applyManifestPath, applyDryRun)
	if err != nil {
		return err
	}

	gw.PrintResults(record)

	if record.Failed() {
		return &stepFailureError{stepID: record.FirstFailure, reason: record.FailureReason}
	}
	if record.Status == execution.RunCancelled {
		return errors.New("run cancelled before completion")
	}
	return nil
}
