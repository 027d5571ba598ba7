package service

import (
	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// Provider compiles service resources into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new service Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "service"
}

// Kind returns the resource kind this provider owns.
func (p *Provider) Kind() manifest.Kind {
	return manifest.KindService
}

// Compile transforms service resources into executable steps. Beyond the
// declared depends_on list, a service step gains an implicit dependency on
// every file artifact and database object it references that is declared in
// the same manifest, so those converge before the unit starts.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	resources := ctx.ResourcesOfKind(manifest.KindService)
	steps := make([]compiler.Step, 0, len(resources))

	for _, res := range resources {
		if err := compiler.ValidateResourceID(res); err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		unit, err := ParseUnit(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		deps, err := compiler.ResourceDeps(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		for _, key := range unit.ReferencedKeys() {
			if !ctx.HasResource(key) {
				continue
			}
			id, err := compiler.NewStepID(key)
			if err != nil {
				return nil, compiler.NewValidationError(res.IdentityKey(), err)
			}
			deps = appendUniqueDep(deps, id)
		}
		steps = append(steps, NewUnitStep(res, unit, deps, p.runner))
	}

	return steps, nil
}

func appendUniqueDep(deps []compiler.StepID, id compiler.StepID) []compiler.StepID {
	for _, existing := range deps {
		if existing.Equals(id) {
			return deps
		}
	}
	return append(deps, id)
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
