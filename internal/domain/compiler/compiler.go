// Package compiler transforms a parsed resource set into executable steps.
// It provides the core pipeline: Resources -> Providers -> StepGraph.
package compiler

import (
	"errors"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
)

// Provider compiles the resources of one kind into executable steps.
type Provider interface {
	// Name returns the provider's identifier. It matches the resource kind
	// it owns ("sysctl", "firewall", ...).
	Name() string

	// Kind returns the resource kind this provider compiles.
	Kind() manifest.Kind

	// Compile transforms the provider's resources into steps. Attribute
	// validation happens here so a bad manifest fails before anything runs.
	Compile(ctx CompileContext) ([]Step, error)
}

// Compiler orchestrates providers to build a StepGraph from a resource set.
type Compiler struct {
	providers []Provider
}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{
		providers: make([]Provider, 0),
	}
}

// RegisterProvider adds a provider to the compiler.
// Providers are called in registration order during compilation.
func (c *Compiler) RegisterProvider(provider Provider) {
	c.providers = append(c.providers, provider)
}

// Providers returns all registered providers.
func (c *Compiler) Providers() []Provider {
	return c.providers
}

// Compile transforms a resource set into a validated StepGraph.
// Returns an error if:
//   - Any provider fails to compile (invalid attributes included)
//   - Duplicate step IDs are detected
//   - Dependencies are missing
//   - Cyclic dependencies are detected
//
// All of these fire before a single step executes.
func (c *Compiler) Compile(resources *manifest.Set) (*StepGraph, error) {
	ctx := NewCompileContext(resources)
	graph := NewStepGraph()

	for _, provider := range c.providers {
		steps, err := provider.Compile(ctx)
		if err != nil {
			var stepErr *StepError
			if errors.As(err, &stepErr) {
				return nil, err
			}
			return nil, NewProviderFailedError(provider.Name(), err)
		}

		for _, step := range steps {
			if err := graph.Add(step); err != nil {
				return nil, NewStepDuplicateError(step.ID().String())
			}
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, missingDepError(err)
	}

	// Cycle detection up front; execution never sees a cyclic graph.
	if _, err := graph.TopologicalSort(); err != nil {
		return nil, NewCyclicDependencyError(err)
	}

	return graph, nil
}

func missingDepError(err error) error {
	if errors.Is(err, ErrMissingDep) {
		return &StepError{
			Code:       ErrCodeDependencyMissing,
			Message:    err.Error(),
			Suggestion: "Declare the missing resource or remove the depends_on entry.",
			Underlying: err,
		}
	}
	return err
}
