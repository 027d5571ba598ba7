package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
)

// fakeProvider compiles every resource of its kind into a fakeStep.
type fakeProvider struct {
	kind manifest.Kind
	err  error
}

func (p *fakeProvider) Name() string        { return string(p.kind) }
func (p *fakeProvider) Kind() manifest.Kind { return p.kind }

func (p *fakeProvider) Compile(ctx CompileContext) ([]Step, error) {
	if p.err != nil {
		return nil, p.err
	}
	steps := make([]Step, 0)
	for _, res := range ctx.ResourcesOfKind(p.kind) {
		deps, err := ResourceDeps(res)
		if err != nil {
			return nil, err
		}
		step := newFakeStep(res.IdentityKey())
		step.deps = deps
		steps = append(steps, step)
	}
	return steps, nil
}

func mustSet(t *testing.T, resources ...manifest.Resource) *manifest.Set {
	t.Helper()
	set, err := manifest.NewSet(resources)
	require.NoError(t, err)
	return set
}

func TestCompilerCompile(t *testing.T) {
	t.Parallel()

	c := NewCompiler()
	c.RegisterProvider(&fakeProvider{kind: manifest.KindFile})
	c.RegisterProvider(&fakeProvider{kind: manifest.KindService})

	graph, err := c.Compile(mustSet(t,
		manifest.Resource{Kind: manifest.KindFile, Name: "/etc/portmapd.conf"},
		manifest.Resource{Kind: manifest.KindService, Name: "portmapd",
			DependsOn: []string{"file:/etc/portmapd.conf"}},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, graph.Len())

	steps, err := graph.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, "file:/etc/portmapd.conf", steps[0].ID().String())
	assert.Equal(t, "service:portmapd", steps[1].ID().String())
}

func TestCompilerProviderFailure(t *testing.T) {
	t.Parallel()

	c := NewCompiler()
	c.RegisterProvider(&fakeProvider{kind: manifest.KindFile, err: errors.New("boom")})

	_, err := c.Compile(mustSet(t,
		manifest.Resource{Kind: manifest.KindFile, Name: "/etc/motd"},
	))
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, ErrCodeProviderFailed, stepErr.Code)
	assert.True(t, stepErr.IsCompileError())
}

func TestCompilerProviderStepErrorPassesThrough(t *testing.T) {
	t.Parallel()

	wrapped := NewValidationError("file:/etc/motd", errors.New("bad mode"))
	c := NewCompiler()
	c.RegisterProvider(&fakeProvider{kind: manifest.KindFile, err: wrapped})

	_, err := c.Compile(mustSet(t,
		manifest.Resource{Kind: manifest.KindFile, Name: "/etc/motd"},
	))
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, ErrCodeValidationFailed, stepErr.Code)
}

func TestCompilerMissingDependency(t *testing.T) {
	t.Parallel()

	c := NewCompiler()
	c.RegisterProvider(&fakeProvider{kind: manifest.KindService})

	_, err := c.Compile(mustSet(t,
		manifest.Resource{Kind: manifest.KindService, Name: "portmapd",
			DependsOn: []string{"file:/etc/portmapd.conf"}},
	))
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, ErrCodeDependencyMissing, stepErr.Code)
	assert.True(t, stepErr.IsCompileError())
}

func TestCompilerCyclicDependency(t *testing.T) {
	t.Parallel()

	c := NewCompiler()
	c.RegisterProvider(&fakeProvider{kind: manifest.KindService})

	_, err := c.Compile(mustSet(t,
		manifest.Resource{Kind: manifest.KindService, Name: "a", DependsOn: []string{"service:b"}},
		manifest.Resource{Kind: manifest.KindService, Name: "b", DependsOn: []string{"service:a"}},
	))
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, ErrCodeCyclicDependency, stepErr.Code)
	assert.True(t, stepErr.IsCompileError())
}

func TestStepErrorCodes(t *testing.T) {
	t.Parallel()

	assert.True(t, NewStepDuplicateError("file:/etc/motd").IsCompileError())
	assert.False(t, NewApplyFailedError("file:/etc/motd", errors.New("x")).IsCompileError())
	assert.False(t, NewVerifyFailedError("file:/etc/motd", errors.New("x")).IsCompileError())
	assert.False(t, NewCheckFailedError("file:/etc/motd", errors.New("x")).IsCompileError())

	// errors.Is matches on code.
	err := NewApplyFailedError("file:/etc/motd", errors.New("x"))
	assert.ErrorIs(t, err, &StepError{Code: ErrCodeApplyFailed})
}
