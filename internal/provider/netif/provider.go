package netif

import (
	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// Provider compiles netif resources into executable steps.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new netif Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "netif"
}

// Kind returns the resource kind this provider owns.
func (p *Provider) Kind() manifest.Kind {
	return manifest.KindNetIf
}

// Compile transforms netif resources into executable steps.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	resources := ctx.ResourcesOfKind(manifest.KindNetIf)
	steps := make([]compiler.Step, 0, len(resources))

	for _, res := range resources {
		if err := compiler.ValidateResourceID(res); err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		iface, err := ParseInterface(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		deps, err := compiler.ResourceDeps(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		steps = append(steps, NewInterfaceStep(res, iface, deps, p.runner, p.fs))
	}

	return steps, nil
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
