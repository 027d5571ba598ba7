package compiler

import (
	"errors"
	"fmt"
	"sort"
)

// Errors for StepGraph operations.
var (
	ErrDuplicateStep    = errors.New("step with this ID already exists")
	ErrCyclicDependency = errors.New("cyclic dependency detected")
	ErrMissingDep       = errors.New("step depends on nonexistent step")
)

// StepGraph is a directed acyclic graph of steps. It tracks dependencies and
// provides a deterministic topological order for execution.
type StepGraph struct {
	steps      map[string]Step
	dependsOn  map[string][]string // step ID -> list of dependency IDs
	dependedBy map[string][]string // step ID -> list of steps that depend on it
}

// NewStepGraph creates an empty StepGraph.
func NewStepGraph() *StepGraph {
	return &StepGraph{
		steps:      make(map[string]Step),
		dependsOn:  make(map[string][]string),
		dependedBy: make(map[string][]string),
	}
}

// Len returns the number of steps in the graph.
func (g *StepGraph) Len() int {
	return len(g.steps)
}

// Add adds a step to the graph.
// Returns ErrDuplicateStep if a step with the same ID already exists.
func (g *StepGraph) Add(step Step) error {
	id := step.ID().String()

	if _, exists := g.steps[id]; exists {
		return ErrDuplicateStep
	}

	g.steps[id] = step

	deps := step.DependsOn()
	depIDs := make([]string, len(deps))
	for i, dep := range deps {
		depID := dep.String()
		depIDs[i] = depID
		g.dependedBy[depID] = append(g.dependedBy[depID], id)
	}
	g.dependsOn[id] = depIDs

	return nil
}

// Get retrieves a step by ID.
func (g *StepGraph) Get(id StepID) (Step, bool) {
	step, ok := g.steps[id.String()]
	return step, ok
}

// Steps returns all steps in the graph (in no particular order).
func (g *StepGraph) Steps() []Step {
	steps := make([]Step, 0, len(g.steps))
	for _, step := range g.steps {
		steps = append(steps, step)
	}
	return steps
}

// Validate checks that all dependencies exist.
func (g *StepGraph) Validate() error {
	for id, deps := range g.dependsOn {
		for _, depID := range deps {
			if _, exists := g.steps[depID]; !exists {
				return fmt.Errorf("%w: step %q depends on %q", ErrMissingDep, id, depID)
			}
		}
	}
	return nil
}

// Roots returns steps that have no dependencies.
func (g *StepGraph) Roots() []Step {
	roots := make([]Step, 0)
	for id, step := range g.steps {
		if len(g.dependsOn[id]) == 0 {
			roots = append(roots, step)
		}
	}
	return roots
}

// TopologicalSort returns steps in dependency order using Kahn's algorithm.
// The ready set is kept sorted by step ID, so independent steps always come
// out in the same lexicographic (kind, then name) order: two builds of the
// same manifest yield byte-identical plans, which makes dry-runs diffable.
// Returns ErrCyclicDependency if the graph contains a cycle.
func (g *StepGraph) TopologicalSort() ([]Step, error) {
	inDegree := make(map[string]int, len(g.steps))
	for id := range g.steps {
		inDegree[id] = 0
	}
	for id := range g.steps {
		for _, depID := range g.dependsOn[id] {
			if _, exists := g.steps[depID]; exists {
				inDegree[id]++
			}
		}
	}

	ready := make([]string, 0, len(g.steps))
	for id, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	sorted := make([]Step, 0, len(g.steps))

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]

		sorted = append(sorted, g.steps[id])

		released := make([]string, 0)
		for _, dependentID := range g.dependedBy[id] {
			if _, exists := g.steps[dependentID]; !exists {
				continue
			}
			inDegree[dependentID]--
			if inDegree[dependentID] == 0 {
				released = append(released, dependentID)
			}
		}
		if len(released) > 0 {
			ready = append(ready, released...)
			sort.Strings(ready)
		}
	}

	if len(sorted) != len(g.steps) {
		return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, g.cycleMembers(inDegree))
	}

	return sorted, nil
}

// cycleMembers lists the step IDs left with unmet dependencies after Kahn's
// algorithm stalls. They are the cycle participants (or their dependents).
func (g *StepGraph) cycleMembers(inDegree map[string]int) []string {
	members := make([]string, 0)
	for id, degree := range inDegree {
		if degree > 0 {
			members = append(members, id)
		}
	}
	sort.Strings(members)
	return members
}
