package service

import (
	"fmt"
	"strings"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// UnitStep converges one systemd unit's enablement state.
type UnitStep struct {
	res    manifest.Resource
	unit   Unit
	id     compiler.StepID
	deps   []compiler.StepID
	runner ports.CommandRunner
}

// NewUnitStep creates a new UnitStep.
func NewUnitStep(res manifest.Resource, unit Unit, deps []compiler.StepID, runner ports.CommandRunner) *UnitStep {
	return &UnitStep{
		res:    res,
		unit:   unit,
		id:     compiler.ResourceStepID(res),
		deps:   deps,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *UnitStep) ID() compiler.StepID {
	return s.id
}

// Resource returns the resource this step converges.
func (s *UnitStep) Resource() manifest.Resource {
	return s.res
}

// DependsOn returns the step dependencies.
func (s *UnitStep) DependsOn() []compiler.StepID {
	return s.deps
}

// Check probes unit state with systemctl is-enabled and is-active. Both
// commands exit non-zero for disabled or inactive units, so only their
// stdout is consulted.
func (s *UnitStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	enabled, err := s.probe(ctx, "is-enabled", "enabled")
	if err != nil {
		return compiler.StatusUnknown, err
	}
	active, err := s.probe(ctx, "is-active", "active")
	if err != nil {
		return compiler.StatusUnknown, err
	}

	if s.unit.Absent {
		if enabled || active {
			return compiler.StatusNeedsApply, nil
		}
		return compiler.StatusSatisfied, nil
	}
	if enabled && active {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *UnitStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	if s.unit.Absent {
		return compiler.NewDiff(compiler.DiffTypeRemove, "service", s.unit.Name, "enabled, active", ""), nil
	}
	return compiler.NewDiff(compiler.DiffTypeAdd, "service", s.unit.Name, "", "enabled, active"), nil
}

// Apply enables and starts the unit, reloading the daemon first when a
// managed unit file is in play. Absent units are disabled and stopped.
func (s *UnitStep) Apply(ctx compiler.RunContext) error {
	if s.unit.Absent {
		return s.systemctl(ctx, "disable", "--now", s.unit.Name)
	}
	if s.unit.UnitFile != "" {
		if err := s.systemctl(ctx, "daemon-reload"); err != nil {
			return err
		}
	}
	return s.systemctl(ctx, "enable", "--now", s.unit.Name)
}

func (s *UnitStep) probe(ctx compiler.RunContext, verb, want string) (bool, error) {
	result, err := s.runner.Run(ctx.Context(), "systemctl", verb, s.unit.Name)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(result.Stdout) == want, nil
}

func (s *UnitStep) systemctl(ctx compiler.RunContext, args ...string) error {
	result, err := s.runner.Run(ctx.Context(), "systemctl", args...)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("systemctl %s failed: %s", strings.Join(args, " "), strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Ensure UnitStep implements compiler.Step.
var _ compiler.Step = (*UnitStep)(nil)
