package database

import (
	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// Provider compiles database resources into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new database Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "database"
}

// Kind returns the resource kind this provider owns.
func (p *Provider) Kind() manifest.Kind {
	return manifest.KindDatabase
}

// Compile transforms database resources into executable steps.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	resources := ctx.ResourcesOfKind(manifest.KindDatabase)
	steps := make([]compiler.Step, 0, len(resources))

	for _, res := range resources {
		if err := compiler.ValidateResourceID(res); err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		obj, err := ParseObject(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		deps, err := compiler.ResourceDeps(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		steps = append(steps, NewObjectStep(res, obj, deps, p.runner))
	}

	return steps, nil
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
