package sysctl

import (
	"fmt"
	"strings"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// SettingStep converges one kernel parameter: the live value via sysctl and,
// when persist is set, a drop-in under /etc/sysctl.d.
type SettingStep struct {
	res     manifest.Resource
	setting Setting
	id      compiler.StepID
	deps    []compiler.StepID
	runner  ports.CommandRunner
	fs      ports.FileSystem
}

// NewSettingStep creates a new SettingStep.
func NewSettingStep(res manifest.Resource, setting Setting, deps []compiler.StepID, runner ports.CommandRunner, fs ports.FileSystem) *SettingStep {
	return &SettingStep{
		res:     res,
		setting: setting,
		id:      compiler.ResourceStepID(res),
		deps:    deps,
		runner:  runner,
		fs:      fs,
	}
}

// ID returns the step identifier.
func (s *SettingStep) ID() compiler.StepID {
	return s.id
}

// Resource returns the resource this step converges.
func (s *SettingStep) Resource() manifest.Resource {
	return s.res
}

// DependsOn returns the step dependencies.
func (s *SettingStep) DependsOn() []compiler.StepID {
	return s.deps
}

// Check inspects the live kernel value and the managed drop-in.
func (s *SettingStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	if s.setting.Absent {
		if s.fs.Exists(s.setting.DropInPath()) {
			return compiler.StatusNeedsApply, nil
		}
		return compiler.StatusSatisfied, nil
	}

	result, err := s.runner.Run(ctx.Context(), "sysctl", "-n", s.setting.Key)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if !result.Success() {
		return compiler.StatusUnknown, fmt.Errorf("sysctl -n %s: %s", s.setting.Key, result.Stderr)
	}
	if normalize(result.Stdout) != normalize(s.setting.Value) {
		return compiler.StatusNeedsApply, nil
	}

	if s.setting.Persist {
		data, err := s.fs.ReadFile(s.setting.DropInPath())
		if err != nil || string(data) != s.setting.Line() {
			return compiler.StatusNeedsApply, nil
		}
	}

	return compiler.StatusSatisfied, nil
}

// Plan returns the diff for this step.
func (s *SettingStep) Plan(ctx compiler.RunContext) (compiler.Diff, error) {
	if s.setting.Absent {
		return compiler.NewDiff(compiler.DiffTypeRemove, "sysctl", s.setting.Key, "managed", ""), nil
	}

	oldValue := ""
	if result, err := s.runner.Run(ctx.Context(), "sysctl", "-n", s.setting.Key); err == nil && result.Success() {
		oldValue = normalize(result.Stdout)
	}
	if oldValue == "" {
		return compiler.NewDiff(compiler.DiffTypeAdd, "sysctl", s.setting.Key, "", s.setting.Value), nil
	}
	return compiler.NewDiff(compiler.DiffTypeModify, "sysctl", s.setting.Key, oldValue, s.setting.Value), nil
}

// Apply writes the drop-in and sets the live value. Both operations are
// convergent: rewriting an identical file or resetting an identical value
// leaves the host unchanged.
func (s *SettingStep) Apply(ctx compiler.RunContext) error {
	if s.setting.Absent {
		if s.fs.Exists(s.setting.DropInPath()) {
			return s.fs.Remove(s.setting.DropInPath())
		}
		return nil
	}

	if s.setting.Persist {
		if err := s.fs.MkdirAll(DropInDir, 0o755); err != nil {
			return err
		}
		if err := s.fs.WriteFile(s.setting.DropInPath(), []byte(s.setting.Line()), 0o644); err != nil {
			return err
		}
	}

	result, err := s.runner.Run(ctx.Context(), "sysctl", "-w", s.setting.Key+"="+s.setting.Value)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("sysctl -w %s=%s failed: %s", s.setting.Key, s.setting.Value, result.Stderr)
	}
	return nil
}

func normalize(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Ensure SettingStep implements compiler.Step.
var _ compiler.Step = (*SettingStep)(nil)
