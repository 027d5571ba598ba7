package execution

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/ledger"
)

// Planner generates a Plan from a StepGraph and the current ledger.
// Steps whose content hash matches a successful ledger entry are marked as
// ledger skips up front; everything else gets a live status check.
type Planner struct{}

// NewPlanner creates a new Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan orders the graph topologically and decides, per step, whether it
// would be skipped (ledger hash match), is already satisfied on the live
// host, or needs apply. Planning never mutates the host.
func (p *Planner) Plan(ctx context.Context, graph *compiler.StepGraph, led *ledger.Ledger) (*Plan, error) {
	steps, err := graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to sort steps: %w", err)
	}

	plan := NewPlan(uuid.New().String())
	runCtx := compiler.NewRunContext(ctx)

	for _, step := range steps {
		entry, err := p.planStep(step, runCtx, led)
		if err != nil {
			return nil, fmt.Errorf("failed to plan step %q: %w", step.ID().String(), err)
		}
		plan.Add(entry)
	}

	return plan, nil
}

// planStep checks a single step and generates a PlanEntry.
func (p *Planner) planStep(step compiler.Step, ctx compiler.RunContext, led *ledger.Ledger) (PlanEntry, error) {
	key := step.ID().String()
	hash := ledger.ContentHash(step.Resource())

	if led != nil {
		if entry, ok := led.Get(key); ok && entry.Matches(hash) {
			return NewPlanEntry(step, compiler.StatusLedgerSkip, compiler.Diff{}, hash), nil
		}
	}

	status, err := step.Check(ctx)
	if err != nil {
		return PlanEntry{}, compiler.NewCheckFailedError(key, err)
	}

	var diff compiler.Diff
	if status == compiler.StatusNeedsApply {
		diff, err = step.Plan(ctx)
		if err != nil {
			return PlanEntry{}, fmt.Errorf("plan failed: %w", err)
		}
	}

	return NewPlanEntry(step, status, diff, hash), nil
}
