package execution

import (
	"github.com/groundworkd/groundwork/internal/domain/compiler"
)

// PlanEntry represents a single step's planned execution.
type PlanEntry struct {
	step   compiler.Step
	status compiler.StepStatus
	diff   compiler.Diff
	hash   string
}

// NewPlanEntry creates a new PlanEntry.
func NewPlanEntry(step compiler.Step, status compiler.StepStatus, diff compiler.Diff, hash string) PlanEntry {
	return PlanEntry{
		step:   step,
		status: status,
		diff:   diff,
		hash:   hash,
	}
}

// Step returns the step to be executed.
func (e PlanEntry) Step() compiler.Step {
	return e.step
}

// Status returns the planned status of the step.
func (e PlanEntry) Status() compiler.StepStatus {
	return e.status
}

// Diff returns the planned changes.
func (e PlanEntry) Diff() compiler.Diff {
	return e.diff
}

// Hash returns the content hash of the step's desired attributes. The same
// hash is written to the ledger on success, so an unchanged manifest skips
// the step on the next run.
func (e PlanEntry) Hash() string {
	return e.hash
}

// PlanSummary provides aggregate statistics about the execution plan.
type PlanSummary struct {
	Total      int
	NeedsApply int
	Satisfied  int
	LedgerSkip int
	Unknown    int
}

// Plan is the ordered, dependency-respecting sequence of steps for one run.
// It is built once per run and immutable once execution starts.
type Plan struct {
	id      string
	entries []PlanEntry
}

// NewPlan creates an empty Plan with the given ID.
func NewPlan(id string) *Plan {
	return &Plan{
		id:      id,
		entries: make([]PlanEntry, 0),
	}
}

// ID returns the plan identifier.
func (p *Plan) ID() string {
	return p.id
}

// Add appends a plan entry.
func (p *Plan) Add(entry PlanEntry) {
	p.entries = append(p.entries, entry)
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.entries)
}

// IsEmpty returns true if there are no entries.
func (p *Plan) IsEmpty() bool {
	return len(p.entries) == 0
}

// Entries returns all plan entries in execution order.
func (p *Plan) Entries() []PlanEntry {
	return p.entries
}

// HasChanges returns true if any steps need to be applied.
func (p *Plan) HasChanges() bool {
	for _, e := range p.entries {
		if e.status == compiler.StatusNeedsApply || e.status == compiler.StatusUnknown {
			return true
		}
	}
	return false
}

// Summary returns aggregate statistics.
func (p *Plan) Summary() PlanSummary {
	summary := PlanSummary{Total: len(p.entries)}
	for _, e := range p.entries {
		switch e.status {
		case compiler.StatusNeedsApply:
			summary.NeedsApply++
		case compiler.StatusSatisfied:
			summary.Satisfied++
		case compiler.StatusLedgerSkip:
			summary.LedgerSkip++
		case compiler.StatusUnknown:
			summary.Unknown++
		case compiler.StatusFailed, compiler.StatusSkipped:
			// Plans never contain terminal execution statuses.
		}
	}
	return summary
}
