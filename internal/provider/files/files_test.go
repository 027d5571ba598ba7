package files

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

func motdResource(attrs map[string]interface{}) manifest.Resource {
	return manifest.Resource{Kind: manifest.KindFile, Name: "/etc/motd", Attributes: attrs}
}

func runCtx() compiler.RunContext {
	return compiler.NewRunContext(context.Background())
}

func TestParseArtifact(t *testing.T) {
	t.Parallel()

	artifact, err := ParseArtifact(motdResource(map[string]interface{}{
		"content": "managed host\n",
		"mode":    "0600",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/etc/motd", artifact.Path)
	assert.Equal(t, "managed host\n", artifact.Content)
	assert.Equal(t, os.FileMode(0o600), artifact.Mode)
}

func TestParseArtifactOwner(t *testing.T) {
	t.Parallel()

	artifact, err := ParseArtifact(motdResource(map[string]interface{}{
		"content": "x",
		"owner":   "postgres:postgres",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres:postgres", artifact.Owner)

	_, err = ParseArtifact(motdResource(map[string]interface{}{
		"content": "x",
		"owner":   "root; rm -rf /",
	}))
	assert.Error(t, err)
}

func TestArtifactStepApplySetsOwner(t *testing.T) {
	t.Parallel()

	res := motdResource(map[string]interface{}{
		"content": "managed host\n",
		"owner":   "root",
	})
	artifact, err := ParseArtifact(res)
	require.NoError(t, err)

	fs := ports.NewMockFileSystem()
	step := NewArtifactStep(res, artifact, nil, fs)
	require.NoError(t, step.Apply(runCtx()))
	assert.Equal(t, "root", fs.Owner("/etc/motd"))
}

func TestParseArtifactRejectsBadInput(t *testing.T) {
	t.Parallel()

	// Relative destination.
	_, err := ParseArtifact(manifest.Resource{Kind: manifest.KindFile, Name: "etc/motd",
		Attributes: map[string]interface{}{"content": "x"}})
	assert.Error(t, err)

	// content and source together.
	_, err = ParseArtifact(motdResource(map[string]interface{}{
		"content": "x", "source": "/srv/motd",
	}))
	assert.Error(t, err)

	// Neither content nor source.
	_, err = ParseArtifact(motdResource(map[string]interface{}{}))
	assert.Error(t, err)

	// Bad mode strings.
	_, err = ParseArtifact(motdResource(map[string]interface{}{"content": "x", "mode": "rw-r--r--"}))
	assert.Error(t, err)
	_, err = ParseArtifact(motdResource(map[string]interface{}{"content": "x", "mode": "7777"}))
	assert.Error(t, err)

	// Absent needs no content.
	artifact, err := ParseArtifact(manifest.Resource{Kind: manifest.KindFile, Name: "/etc/old.conf", Absent: true})
	require.NoError(t, err)
	assert.True(t, artifact.Absent)
}

func TestArtifactStepCheck(t *testing.T) {
	t.Parallel()

	res := motdResource(map[string]interface{}{"content": "managed host\n"})
	artifact, err := ParseArtifact(res)
	require.NoError(t, err)

	fs := ports.NewMockFileSystem()
	step := NewArtifactStep(res, artifact, nil, fs)

	// Missing file.
	status, err := step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusNeedsApply, status)

	// Wrong content.
	require.NoError(t, fs.WriteFile("/etc/motd", []byte("something else"), 0o644))
	status, err = step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusNeedsApply, status)

	// Matching content.
	require.NoError(t, fs.WriteFile("/etc/motd", []byte("managed host\n"), 0o644))
	status, err = step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusSatisfied, status)
}

func TestArtifactStepCheckDirectoryDestination(t *testing.T) {
	t.Parallel()

	res := motdResource(map[string]interface{}{"content": "managed host\n"})
	artifact, err := ParseArtifact(res)
	require.NoError(t, err)

	fs := ports.NewMockFileSystem()
	require.NoError(t, fs.MkdirAll("/etc/motd", 0o755))

	step := NewArtifactStep(res, artifact, nil, fs)
	_, err = step.Check(runCtx())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestArtifactStepPlanReportsCurrentFile(t *testing.T) {
	t.Parallel()

	res := motdResource(map[string]interface{}{"content": "managed host\n"})
	artifact, err := ParseArtifact(res)
	require.NoError(t, err)

	fs := ports.NewMockFileSystem()
	require.NoError(t, fs.WriteFile("/etc/motd", []byte("old banner"), 0o644))

	step := NewArtifactStep(res, artifact, nil, fs)
	diff, err := step.Plan(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.DiffTypeModify, diff.Type())
	assert.Equal(t, "10 bytes, mode -rw-r--r--", diff.OldValue())
	assert.Equal(t, "managed content", diff.NewValue())
}

func TestArtifactStepApply(t *testing.T) {
	t.Parallel()

	res := motdResource(map[string]interface{}{"content": "managed host\n", "mode": "0600"})
	artifact, err := ParseArtifact(res)
	require.NoError(t, err)

	fs := ports.NewMockFileSystem()
	step := NewArtifactStep(res, artifact, nil, fs)
	require.NoError(t, step.Apply(runCtx()))

	data, err := fs.ReadFile("/etc/motd")
	require.NoError(t, err)
	assert.Equal(t, "managed host\n", string(data))

	info, err := fs.GetFileInfo("/etc/motd")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode.String())
}

func TestArtifactStepApplyFromSource(t *testing.T) {
	t.Parallel()

	res := motdResource(map[string]interface{}{"source": "/srv/templates/motd"})
	artifact, err := ParseArtifact(res)
	require.NoError(t, err)

	fs := ports.NewMockFileSystem()
	require.NoError(t, fs.WriteFile("/srv/templates/motd", []byte("from template\n"), 0o644))

	step := NewArtifactStep(res, artifact, nil, fs)
	require.NoError(t, step.Apply(runCtx()))

	data, err := fs.ReadFile("/etc/motd")
	require.NoError(t, err)
	assert.Equal(t, "from template\n", string(data))

	// Missing source is a check error, not silent drift.
	require.NoError(t, fs.Remove("/srv/templates/motd"))
	require.NoError(t, fs.WriteFile("/etc/motd", []byte("from template\n"), 0o644))
	_, err = step.Check(runCtx())
	assert.Error(t, err)
}

func TestArtifactStepAbsent(t *testing.T) {
	t.Parallel()

	res := manifest.Resource{Kind: manifest.KindFile, Name: "/etc/old.conf", Absent: true}
	artifact, err := ParseArtifact(res)
	require.NoError(t, err)

	fs := ports.NewMockFileSystem()
	require.NoError(t, fs.WriteFile("/etc/old.conf", []byte("legacy"), 0o644))

	step := NewArtifactStep(res, artifact, nil, fs)

	status, err := step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusNeedsApply, status)

	require.NoError(t, step.Apply(runCtx()))
	assert.False(t, fs.Exists("/etc/old.conf"))

	status, err = step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusSatisfied, status)
}

func TestProviderCompile(t *testing.T) {
	t.Parallel()

	set, err := manifest.NewSet([]manifest.Resource{
		motdResource(map[string]interface{}{"content": "managed host\n"}),
	})
	require.NoError(t, err)

	p := NewProvider(ports.NewMockFileSystem())
	steps, err := p.Compile(compiler.NewCompileContext(set))
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "file:/etc/motd", steps[0].ID().String())
}

func TestProviderCompileDestinationWithSpaces(t *testing.T) {
	t.Parallel()

	set, err := manifest.NewSet([]manifest.Resource{
		{Kind: manifest.KindFile, Name: "/etc/my config.yaml",
			Attributes: map[string]interface{}{"content": "x"}},
	})
	require.NoError(t, err)

	p := NewProvider(ports.NewMockFileSystem())
	steps, err := p.Compile(compiler.NewCompileContext(set))
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "file:/etc/my config.yaml", steps[0].ID().String())
}

func TestProviderCompileHostileDestination(t *testing.T) {
	t.Parallel()

	set, err := manifest.NewSet([]manifest.Resource{
		{Kind: manifest.KindFile, Name: "/etc/$(reboot)",
			Attributes: map[string]interface{}{"content": "x"}},
	})
	require.NoError(t, err)

	p := NewProvider(ports.NewMockFileSystem())
	assert.NotPanics(t, func() {
		_, err := p.Compile(compiler.NewCompileContext(set))
		var stepErr *compiler.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, compiler.ErrCodeValidationFailed, stepErr.Code)
	})
}
