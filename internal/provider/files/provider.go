package files

import (
	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// Provider compiles file resources into executable steps.
type Provider struct {
	fs ports.FileSystem
}

// NewProvider creates a new files Provider.
func NewProvider(fs ports.FileSystem) *Provider {
	return &Provider{fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "file"
}

// Kind returns the resource kind this provider owns.
func (p *Provider) Kind() manifest.Kind {
	return manifest.KindFile
}

// Compile transforms file resources into executable steps.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	resources := ctx.ResourcesOfKind(manifest.KindFile)
	steps := make([]compiler.Step, 0, len(resources))

	for _, res := range resources {
		if err := compiler.ValidateResourceID(res); err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		artifact, err := ParseArtifact(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		deps, err := compiler.ResourceDeps(res)
		if err != nil {
			return nil, compiler.NewValidationError(res.IdentityKey(), err)
		}
		steps = append(steps, NewArtifactStep(res, artifact, deps, p.fs))
	}

	return steps, nil
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
