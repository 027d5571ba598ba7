package compiler

import (
	"github.com/groundworkd/groundwork/internal/domain/manifest"
)

// Step is the idempotent unit of work that converges one resource. Steps are
// derived 1:1 from resources: the step ID is the resource's identity key.
//
// Check inspects live system state only. It must never consult the ledger;
// the ledger records that intent was applied, Check confirms reality matches.
// Apply must tolerate a system already partially in the desired state.
type Step interface {
	// ID returns the unique identifier for this step (the identity key).
	ID() StepID

	// Resource returns the resource this step converges.
	Resource() manifest.Resource

	// DependsOn returns the IDs of steps that must complete before this one.
	DependsOn() []StepID

	// Check determines the current status by inspecting live system state.
	// Returns StatusSatisfied if no action is needed, StatusNeedsApply if
	// changes are required.
	Check(ctx RunContext) (StepStatus, error)

	// Plan returns the diff describing what changes this step will make.
	Plan(ctx RunContext) (Diff, error)

	// Apply executes the step's changes. Running it against a host already
	// matching some desired attributes must converge the rest.
	Apply(ctx RunContext) error
}
