package compiler

import (
	"context"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
)

// RunContext provides context for step execution (Check, Plan, Apply).
type RunContext struct {
	ctx    context.Context
	dryRun bool
}

// NewRunContext creates a new RunContext with the given context.
func NewRunContext(ctx context.Context) RunContext {
	return RunContext{ctx: ctx}
}

// Context returns the underlying context.Context.
func (r RunContext) Context() context.Context {
	return r.ctx
}

// DryRun returns whether this is a dry-run execution.
func (r RunContext) DryRun() bool {
	return r.dryRun
}

// WithDryRun returns a new RunContext with the dry-run flag set.
func (r RunContext) WithDryRun(dryRun bool) RunContext {
	return RunContext{
		ctx:    r.ctx,
		dryRun: dryRun,
	}
}

// CompileContext carries the parsed resource set to providers during
// compilation. Providers read their own kind's resources and may consult
// other kinds to wire implicit ordering (a service step depends on the file
// artifacts and schema objects it references when those are declared in the
// same manifest).
type CompileContext struct {
	resources *manifest.Set
}

// NewCompileContext creates a new CompileContext.
func NewCompileContext(resources *manifest.Set) CompileContext {
	return CompileContext{resources: resources}
}

// Resources returns the full resource set for this compilation.
func (c CompileContext) Resources() *manifest.Set {
	return c.resources
}

// ResourcesOfKind returns the resources a provider owns, in declaration order.
func (c CompileContext) ResourcesOfKind(kind manifest.Kind) []manifest.Resource {
	if c.resources == nil {
		return nil
	}
	return c.resources.ByKind(kind)
}

// HasResource reports whether an identity key is declared in this manifest.
func (c CompileContext) HasResource(key string) bool {
	if c.resources == nil {
		return false
	}
	_, ok := c.resources.Get(key)
	return ok
}
