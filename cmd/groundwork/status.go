package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/groundworkd/groundwork/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the convergence ledger and the last run",
	Long: `Status dumps the ledger (what has been applied, when, with what
outcome) and the most recent run record. It reads only local state and
never probes the host.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	gw := app.New(os.Stdout, ledgerPath)

	led, record, err := gw.Status()
	if err != nil {
		return err
	}

	gw.PrintStatus(led, record)
	return nil
}
