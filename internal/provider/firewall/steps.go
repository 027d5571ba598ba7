package firewall

import (
	"fmt"
	"strings"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/execution"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// xtablesLockExitCode is returned by iptables when another process holds the
// xtables lock. That contention is momentary, so it retries once.
const xtablesLockExitCode = 4

// RuleStep converges one firewall rule (or rule pair, for port mappings).
type RuleStep struct {
	res    manifest.Resource
	rule   Rule
	id     compiler.StepID
	deps   []compiler.StepID
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewRuleStep creates a new RuleStep.
func NewRuleStep(res manifest.Resource, rule Rule, deps []compiler.StepID, runner ports.CommandRunner, fs ports.FileSystem) *RuleStep {
	return &RuleStep{
		res:    res,
		rule:   rule,
		id:     compiler.ResourceStepID(res),
		deps:   deps,
		runner: runner,
		fs:     fs,
	}
}

// ID returns the step identifier.
func (s *RuleStep) ID() compiler.StepID {
	return s.id
}

// Resource returns the resource this step converges.
func (s *RuleStep) Resource() manifest.Resource {
	return s.res
}

// DependsOn returns the step dependencies.
func (s *RuleStep) DependsOn() []compiler.StepID {
	return s.deps
}

// Check lists the live chains and looks for the desired rules.
func (s *RuleStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	present, err := s.livePresence(ctx)
	if err != nil {
		return compiler.StatusUnknown, err
	}

	if s.rule.Absent {
		if present.any() {
			return compiler.StatusNeedsApply, nil
		}
		return compiler.StatusSatisfied, nil
	}
	if present.all(s.rule.Type == TypePortMap) {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *RuleStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	desc := fmt.Sprintf("%s %s", s.rule.Type, s.rule.Protocol)
	switch s.rule.Type {
	case TypeAccept:
		desc = fmt.Sprintf("accept %s dport %d", s.rule.Protocol, s.rule.Port)
	case TypePortMap:
		desc = fmt.Sprintf("map %s :%d -> %s:%d", s.rule.Protocol, s.rule.ConnPort, s.rule.TargetAddr, s.rule.TargetPort)
	}
	if s.rule.Absent {
		return compiler.NewDiff(compiler.DiffTypeRemove, "firewall", s.rule.Name, desc, ""), nil
	}
	return compiler.NewDiff(compiler.DiffTypeAdd, "firewall", s.rule.Name, "", desc), nil
}

// Apply appends the missing rules (or deletes present ones for absent
// resources) and persists the converged rule set for boot. Appending only
// what is missing keeps the step safe against partial prior application.
func (s *RuleStep) Apply(ctx compiler.RunContext) error {
	present, err := s.livePresence(ctx)
	if err != nil {
		return err
	}

	if s.rule.Absent {
		if present.filter {
			if err := s.iptables(ctx, append([]string{"-D", s.rule.filterChain()}, s.rule.filterSpec()...)...); err != nil {
				return err
			}
		}
		if s.rule.Type == TypePortMap && present.nat {
			if err := s.iptables(ctx, append([]string{"-t", "nat", "-D", "PREROUTING"}, s.rule.natSpec()...)...); err != nil {
				return err
			}
		}
		return s.persistRules(ctx)
	}

	if !present.filter {
		if err := s.iptables(ctx, append([]string{"-A", s.rule.filterChain()}, s.rule.filterSpec()...)...); err != nil {
			return err
		}
	}
	if s.rule.Type == TypePortMap && !present.nat {
		if err := s.iptables(ctx, append([]string{"-t", "nat", "-A", "PREROUTING"}, s.rule.natSpec()...)...); err != nil {
			return err
		}
	}
	return s.persistRules(ctx)
}

// presence tracks which half of a rule pair exists on the live host.
type presence struct {
	filter bool
	nat    bool
}

func (p presence) any() bool { return p.filter || p.nat }

func (p presence) all(pair bool) bool {
	if pair {
		return p.filter && p.nat
	}
	return p.filter
}

func (s *RuleStep) livePresence(ctx compiler.RunContext) (presence, error) {
	var present presence

	result, err := s.runCommand(ctx, "iptables", "-S", s.rule.filterChain())
	if err != nil {
		return present, err
	}
	present.filter = chainContains(result.Stdout, s.rule.filterChain(), s.rule.filterSpec())

	if s.rule.Type == TypePortMap {
		result, err = s.runCommand(ctx, "iptables", "-t", "nat", "-S", "PREROUTING")
		if err != nil {
			return present, err
		}
		present.nat = chainContains(result.Stdout, "PREROUTING", s.rule.natSpec())
	}
	return present, nil
}

func (s *RuleStep) iptables(ctx compiler.RunContext, args ...string) error {
	_, err := s.runCommand(ctx, "iptables", args...)
	return err
}

func (s *RuleStep) runCommand(ctx compiler.RunContext, command string, args ...string) (ports.CommandResult, error) {
	result, err := s.runner.Run(ctx.Context(), command, args...)
	if err != nil {
		return result, err
	}
	if !result.Success() {
		err = fmt.Errorf("%s %s failed: %s", command, strings.Join(args, " "), strings.TrimSpace(result.Stderr))
		if result.ExitCode == xtablesLockExitCode {
			return result, execution.Transient(err)
		}
		return result, err
	}
	return result, nil
}

// persistRules snapshots the converged tables so they survive reboot.
func (s *RuleStep) persistRules(ctx compiler.RunContext) error {
	result, err := s.runCommand(ctx, "iptables-save")
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll("/etc/iptables", 0o755); err != nil {
		return err
	}
	return s.fs.WriteFile(RulesFile, []byte(result.Stdout), 0o644)
}

// chainContains reports whether any rule line in the chain listing carries
// every token pair of the desired spec. iptables -S interleaves match
// modules (-m tcp) into saved rules, so exact line equality is too strict.
func chainContains(listing, chain string, spec []string) bool {
	pairs := make([]string, 0, len(spec)/2)
	for i := 0; i+1 < len(spec); i += 2 {
		pairs = append(pairs, spec[i]+" "+spec[i+1])
	}

	for _, line := range strings.Split(listing, "\n") {
		if !strings.HasPrefix(line, "-A "+chain+" ") {
			continue
		}
		padded := " " + strings.Join(strings.Fields(line), " ") + " "
		matched := true
		for _, pair := range pairs {
			if !strings.Contains(padded, " "+pair+" ") {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// Ensure RuleStep implements compiler.Step.
var _ compiler.Step = (*RuleStep)(nil)
