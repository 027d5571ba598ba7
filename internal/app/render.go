package app

import (
	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/execution"
	"github.com/groundworkd/groundwork/internal/domain/ledger"
)

// PrintPlan outputs a human-readable plan summary.
func (g *Groundwork) PrintPlan(plan *execution.Plan) {
	summary := plan.Summary()

	g.printf("\n%s\n\n", g.styles.Title.Render("Groundwork Plan"))

	if !plan.HasChanges() {
		g.printf("%s\n", g.styles.Success.Render("No changes needed. The host is converged."))
		return
	}

	g.printf("Steps: %d total, %d to apply, %d satisfied, %d unchanged\n\n",
		summary.Total, summary.NeedsApply+summary.Unknown, summary.Satisfied, summary.LedgerSkip)

	for _, entry := range plan.Entries() {
		id := entry.Step().ID().String()
		switch entry.Status() {
		case compiler.StatusLedgerSkip:
			g.printf("  %s\n", g.styles.Muted.Render("= "+id+" (unchanged)"))
		case compiler.StatusSatisfied:
			g.printf("  %s\n", g.styles.Success.Render("✓ "+id))
		case compiler.StatusNeedsApply:
			g.printf("  %s\n", g.styles.DiffAdd.Render("+ "+id))
			if diff := entry.Diff(); !diff.IsEmpty() {
				g.printf("      %s\n", g.styles.Muted.Render(diff.Summary()))
			}
		case compiler.StatusUnknown:
			g.printf("  %s\n", g.styles.Warning.Render("? "+id))
		case compiler.StatusFailed, compiler.StatusSkipped:
			// Plans never carry terminal statuses.
		}
	}

	g.printf("\nRun 'groundwork apply' to execute this plan.\n")
}

// PrintResults outputs per-step run results and the run summary.
func (g *Groundwork) PrintResults(record *execution.RunRecord) {
	g.printf("\n%s\n\n", g.styles.Title.Render("Run "+record.PlanID))

	for _, result := range record.Results() {
		id := result.StepID().String()
		switch result.Status() {
		case compiler.StatusLedgerSkip:
			g.printf("  %s\n", g.styles.Muted.Render("= "+id+" (unchanged)"))
		case compiler.StatusSatisfied:
			line := "✓ " + id
			if result.Retried() {
				line += " (retried once)"
			}
			g.printf("  %s\n", g.styles.Success.Render(line))
		case compiler.StatusFailed:
			g.printf("  %s\n", g.styles.Error.Render("✗ "+id+": "+result.Error().Error()))
		case compiler.StatusSkipped:
			g.printf("  %s\n", g.styles.Muted.Render("- "+id+" (not attempted)"))
		case compiler.StatusNeedsApply:
			g.printf("  %s\n", g.styles.DiffAdd.Render("+ "+id+" (would apply)"))
		case compiler.StatusUnknown:
			g.printf("  %s\n", g.styles.Warning.Render("? "+id+" (would apply)"))
		}
	}

	g.printf("\nSummary: %d attempted, %d succeeded, %d skipped",
		record.StepsAttempted, record.StepsSucceeded, record.StepsSkipped)
	switch record.Status {
	case execution.RunSucceeded:
		g.printf(" - %s\n", g.styles.Success.Render("converged"))
	case execution.RunFailed:
		g.printf(" - %s\n", g.styles.Error.Render("failed at "+record.FirstFailure))
	case execution.RunCancelled:
		g.printf(" - %s\n", g.styles.Warning.Render("cancelled"))
	case execution.RunInProgress:
		g.printf("\n")
	}
}

// PrintStatus dumps the ledger and the last run record.
func (g *Groundwork) PrintStatus(led *ledger.Ledger, record *execution.RunRecord) {
	g.printf("\n%s\n\n", g.styles.Title.Render("Groundwork Status"))

	entries := led.Entries()
	if len(entries) == 0 {
		g.printf("Ledger is empty: nothing has been applied yet.\n")
	} else {
		g.printf("Ledger (%d entries):\n", len(entries))
		for _, entry := range entries {
			line := "  " + entry.Key + "  " + string(entry.Outcome) + "  " + entry.AppliedAt.Format("2006-01-02 15:04:05")
			if entry.Outcome == ledger.OutcomeSuccess {
				g.printf("%s\n", g.styles.Success.Render(line))
			} else {
				g.printf("%s\n", g.styles.Error.Render(line))
				if entry.Reason != "" {
					g.printf("      %s\n", g.styles.Muted.Render(entry.Reason))
				}
			}
		}
	}

	if record == nil {
		g.printf("\nNo runs recorded.\n")
		return
	}

	g.printf("\nLast run %s: %s (started %s, %d/%d steps succeeded)\n",
		record.PlanID, record.Status,
		record.StartedAt.Format("2006-01-02 15:04:05"),
		record.StepsSucceeded, record.StepsTotal)
	if record.FirstFailure != "" {
		g.printf("  %s\n", g.styles.Error.Render("first failure: "+record.FirstFailure))
		if record.FailureReason != "" {
			g.printf("  %s\n", g.styles.Muted.Render(record.FailureReason))
		}
	}
}
