package firewall

import (
	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// Provider compiles firewall resources into executable steps.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new firewall Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "firewall"
}

// Kind returns the resource kind this provider owns.
func (p *Provider) Kind() manifest.Kind {
	return manifest.KindFirewall
}

// Compile transforms firewall resources into executable steps.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	resources := ctx.ResourcesOfKind(manifest.KindFirewall)
	steps := make([]compiler.Step, 0, len(resources))

	for _, res := range resources {
		if err := compiler.ValidateResourceID(res); err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		rule, err := ParseRule(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		deps, err := compiler.ResourceDeps(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		steps = append(steps, NewRuleStep(res, rule, deps, p.runner, p.fs))
	}

	return steps, nil
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
