package netif

import (
	"fmt"
	"strings"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// InterfaceStep converges one interface's netplan fragment and live address.
type InterfaceStep struct {
	res    manifest.Resource
	iface  Interface
	id     compiler.StepID
	deps   []compiler.StepID
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewInterfaceStep creates a new InterfaceStep.
func NewInterfaceStep(res manifest.Resource, iface Interface, deps []compiler.StepID, runner ports.CommandRunner, fs ports.FileSystem) *InterfaceStep {
	return &InterfaceStep{
		res:    res,
		iface:  iface,
		id:     compiler.ResourceStepID(res),
		deps:   deps,
		runner: runner,
		fs:     fs,
	}
}

// ID returns the step identifier.
func (s *InterfaceStep) ID() compiler.StepID {
	return s.id
}

// Resource returns the resource this step converges.
func (s *InterfaceStep) Resource() manifest.Resource {
	return s.res
}

// DependsOn returns the step dependencies.
func (s *InterfaceStep) DependsOn() []compiler.StepID {
	return s.deps
}

// Check compares the rendered fragment with what is on disk and the desired
// address with the live interface state.
func (s *InterfaceStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	path := s.iface.FragmentPath()

	if s.iface.Absent {
		if s.fs.Exists(path) {
			return compiler.StatusNeedsApply, nil
		}
		return compiler.StatusSatisfied, nil
	}

	desired, err := s.iface.Render()
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if !s.fs.Exists(path) {
		return compiler.StatusNeedsApply, nil
	}
	current, err := s.fs.ReadFile(path)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if string(current) != string(desired) {
		return compiler.StatusNeedsApply, nil
	}

	live, err := s.liveAddresses(ctx)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if !containsAddress(live, s.iface.Address) {
		return compiler.StatusNeedsApply, nil
	}
	return compiler.StatusSatisfied, nil
}

// Plan returns the diff for this step.
func (s *InterfaceStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	if s.iface.Absent {
		return compiler.NewDiff(compiler.DiffTypeRemove, "netif", s.iface.Name, s.iface.FragmentPath(), ""), nil
	}
	return compiler.NewDiff(compiler.DiffTypeAdd, "netif", s.iface.Name, "", s.iface.Address), nil
}

// Apply writes (or removes) the fragment and runs netplan apply.
func (s *InterfaceStep) Apply(ctx compiler.RunContext) error {
	path := s.iface.FragmentPath()

	if s.iface.Absent {
		if s.fs.Exists(path) {
			if err := s.fs.Remove(path); err != nil {
				return err
			}
		}
		return s.netplanApply(ctx)
	}

	content, err := s.iface.Render()
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(NetplanDir, 0o755); err != nil {
		return err
	}
	if err := s.fs.WriteFile(path, content, 0o600); err != nil {
		return err
	}
	return s.netplanApply(ctx)
}

func (s *InterfaceStep) netplanApply(ctx compiler.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "netplan", "apply")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("netplan apply failed: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// liveAddresses lists the interface's current addresses via ip -br, e.g.
// "eth1 UP 10.0.0.1/24 fe80::1/64".
func (s *InterfaceStep) liveAddresses(ctx compiler.RunContext) ([]string, error) {
	result, err := s.runner.Run(ctx.Context(), "ip", "-br", "addr", "show", "dev", s.iface.Name)
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return nil, fmt.Errorf("ip addr show %s failed: %s", s.iface.Name, strings.TrimSpace(result.Stderr))
	}
	fields := strings.Fields(result.Stdout)
	if len(fields) <= 2 {
		return nil, nil
	}
	return fields[2:], nil
}

func containsAddress(addrs []string, want string) bool {
	for _, addr := range addrs {
		if addr == want {
			return true
		}
	}
	return false
}

// Ensure InterfaceStep implements compiler.Step.
var _ compiler.Step = (*InterfaceStep)(nil)
