package database

import (
	"fmt"
	"strings"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/execution"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// transientMarkers are psql stderr fragments that indicate the server is
// unreachable or still starting, both of which clear on their own.
var transientMarkers = []string{
	"could not connect",
	"the database system is starting up",
	"connection refused",
}

// ObjectStep converges one schema object.
type ObjectStep struct {
	res    manifest.Resource
	obj    Object
	id     compiler.StepID
	deps   []compiler.StepID
	runner ports.CommandRunner
}

// NewObjectStep creates a new ObjectStep.
func NewObjectStep(res manifest.Resource, obj Object, deps []compiler.StepID, runner ports.CommandRunner) *ObjectStep {
	return &ObjectStep{
		res:    res,
		obj:    obj,
		id:     compiler.ResourceStepID(res),
		deps:   deps,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *ObjectStep) ID() compiler.StepID {
	return s.id
}

// Resource returns the resource this step converges.
func (s *ObjectStep) Resource() manifest.Resource {
	return s.res
}

// DependsOn returns the step dependencies.
func (s *ObjectStep) DependsOn() []compiler.StepID {
	return s.deps
}

// Check probes for the relation with to_regclass, which returns the
// qualified name when the object exists and an empty row when it does not.
func (s *ObjectStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	query := fmt.Sprintf("SELECT to_regclass('%s')", s.obj.QualifiedName())
	out, err := s.psql(ctx, query)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	exists := strings.TrimSpace(out) != ""

	if s.obj.Absent {
		if exists {
			return compiler.StatusNeedsApply, nil
		}
		return compiler.StatusSatisfied, nil
	}
	if exists {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *ObjectStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	target := fmt.Sprintf("%s in %s", s.obj.Name, s.obj.Database)
	if s.obj.Absent {
		return compiler.NewDiff(compiler.DiffTypeRemove, "database", s.obj.Name, target, ""), nil
	}
	return compiler.NewDiff(compiler.DiffTypeAdd, "database", s.obj.Name, "", target), nil
}

// Apply runs the manifest's DDL, or drops the object for absent resources.
func (s *ObjectStep) Apply(ctx compiler.RunContext) error {
	stmt := s.obj.DDL
	if s.obj.Absent {
		stmt = fmt.Sprintf("DROP TABLE IF EXISTS %s", s.obj.QualifiedName())
	}
	_, err := s.psql(ctx, stmt)
	return err
}

func (s *ObjectStep) psql(ctx compiler.RunContext, statement string) (string, error) {
	result, err := s.runner.Run(ctx.Context(), "psql", "-X", "-d", s.obj.Database, "-tAc", statement)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		stderr := strings.TrimSpace(result.Stderr)
		err := fmt.Errorf("psql against %s failed: %s", s.obj.Database, stderr)
		if isTransientStderr(stderr) {
			return "", execution.Transient(err)
		}
		return "", err
	}
	return result.Stdout, nil
}

func isTransientStderr(stderr string) bool {
	lowered := strings.ToLower(stderr)
	for _, marker := range transientMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// Ensure ObjectStep implements compiler.Step.
var _ compiler.Step = (*ObjectStep)(nil)
