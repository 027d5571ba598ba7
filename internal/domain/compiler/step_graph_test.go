package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
)

// fakeStep is a minimal Step for graph and planner tests.
type fakeStep struct {
	id     StepID
	deps   []StepID
	status StepStatus
}

func newFakeStep(id string, deps ...string) *fakeStep {
	depIDs := make([]StepID, 0, len(deps))
	for _, d := range deps {
		depIDs = append(depIDs, MustNewStepID(d))
	}
	return &fakeStep{
		id:     MustNewStepID(id),
		deps:   depIDs,
		status: StatusSatisfied,
	}
}

func (s *fakeStep) ID() StepID { return s.id }

func (s *fakeStep) Resource() manifest.Resource {
	return manifest.Resource{Kind: manifest.Kind(s.id.Kind()), Name: s.id.Name()}
}

func (s *fakeStep) DependsOn() []StepID { return s.deps }

func (s *fakeStep) Check(_ RunContext) (StepStatus, error) { return s.status, nil }

func (s *fakeStep) Plan(_ RunContext) (Diff, error) {
	return NewDiff(DiffTypeAdd, s.id.Kind(), s.id.Name(), "", "desired"), nil
}

func (s *fakeStep) Apply(_ RunContext) error { return nil }

func sortedIDs(t *testing.T, g *StepGraph) []string {
	t.Helper()
	steps, err := g.TopologicalSort()
	require.NoError(t, err)
	ids := make([]string, 0, len(steps))
	for _, step := range steps {
		ids = append(ids, step.ID().String())
	}
	return ids
}

func TestStepGraphAddDuplicate(t *testing.T) {
	t.Parallel()

	g := NewStepGraph()
	require.NoError(t, g.Add(newFakeStep("file:/etc/motd")))
	assert.ErrorIs(t, g.Add(newFakeStep("file:/etc/motd")), ErrDuplicateStep)
}

func TestStepGraphValidateMissingDep(t *testing.T) {
	t.Parallel()

	g := NewStepGraph()
	require.NoError(t, g.Add(newFakeStep("service:portmapd", "file:/etc/portmapd.conf")))
	assert.ErrorIs(t, g.Validate(), ErrMissingDep)
}

func TestTopologicalSortRespectsDependencies(t *testing.T) {
	t.Parallel()

	g := NewStepGraph()
	require.NoError(t, g.Add(newFakeStep("service:portmapd", "file:/etc/portmapd.conf", "database:portmap")))
	require.NoError(t, g.Add(newFakeStep("database:portmap")))
	require.NoError(t, g.Add(newFakeStep("file:/etc/portmapd.conf")))

	ids := sortedIDs(t, g)
	assert.Equal(t, []string{"database:portmap", "file:/etc/portmapd.conf", "service:portmapd"}, ids)
}

func TestTopologicalSortIsDeterministic(t *testing.T) {
	t.Parallel()

	// Independent steps come out lexicographically, regardless of map
	// iteration order, so repeated sorts agree byte for byte.
	build := func() *StepGraph {
		g := NewStepGraph()
		for _, id := range []string{
			"sysctl:net.ipv4.ip_forward",
			"file:/etc/motd",
			"sysctl:net.core.somaxconn",
			"netif:eth1",
			"firewall:ssh",
		} {
			require.NoError(t, g.Add(newFakeStep(id)))
		}
		return g
	}

	want := []string{
		"file:/etc/motd",
		"firewall:ssh",
		"netif:eth1",
		"sysctl:net.core.somaxconn",
		"sysctl:net.ipv4.ip_forward",
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, sortedIDs(t, build()))
	}
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	t.Parallel()

	g := NewStepGraph()
	require.NoError(t, g.Add(newFakeStep("service:a", "service:b")))
	require.NoError(t, g.Add(newFakeStep("service:b", "service:c")))
	require.NoError(t, g.Add(newFakeStep("service:c", "service:a")))

	_, err := g.TopologicalSort()
	require.ErrorIs(t, err, ErrCyclicDependency)
	// The error names the participating steps.
	assert.Contains(t, err.Error(), "service:a")
	assert.Contains(t, err.Error(), "service:b")
	assert.Contains(t, err.Error(), "service:c")
}

func TestStepGraphRoots(t *testing.T) {
	t.Parallel()

	g := NewStepGraph()
	require.NoError(t, g.Add(newFakeStep("file:/etc/a.conf")))
	require.NoError(t, g.Add(newFakeStep("service:a", "file:/etc/a.conf")))

	roots := g.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "file:/etc/a.conf", roots[0].ID().String())
}
