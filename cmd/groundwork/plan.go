package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/groundworkd/groundwork/internal/app"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what changes groundwork would make",
	Long: `Plan loads the manifest and shows what changes would be made.

This command:
1. Parses and validates the manifest
2. Compiles resources into an ordered step plan
3. Checks current host state (ledger first, then live probes)
4. Shows what would be applied, without touching anything

Plan takes no lock and performs zero mutations.`,
	RunE: runPlan,
}

var planManifestPath string

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planManifestPath, "manifest", "m", "groundwork.yaml", "Path to the manifest")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	gw := app.New(os.Stdout, ledgerPath)

	plan, err := gw.Plan(context.Background(), planManifestPath)
	if err != nil {
		return err
	}

	gw.PrintPlan(plan)
	return nil
}
