package sysctl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

func ipForwardResource(value interface{}) manifest.Resource {
	return manifest.Resource{
		Kind:       manifest.KindSysctl,
		Name:       "net.ipv4.ip_forward",
		Attributes: map[string]interface{}{"value": value},
	}
}

func runCtx() compiler.RunContext {
	return compiler.NewRunContext(context.Background())
}

func TestParseSetting(t *testing.T) {
	t.Parallel()

	setting, err := ParseSetting(ipForwardResource("1"))
	require.NoError(t, err)
	assert.Equal(t, "net.ipv4.ip_forward", setting.Key)
	assert.Equal(t, "1", setting.Value)
	assert.True(t, setting.Persist)
	assert.Equal(t, "/etc/sysctl.d/90-groundwork-net-ipv4-ip_forward.conf", setting.DropInPath())
	assert.Equal(t, "net.ipv4.ip_forward = 1\n", setting.Line())
}

func TestParseSettingValueTypes(t *testing.T) {
	t.Parallel()

	setting, err := ParseSetting(ipForwardResource(1))
	require.NoError(t, err)
	assert.Equal(t, "1", setting.Value)

	setting, err = ParseSetting(ipForwardResource(int64(131072)))
	require.NoError(t, err)
	assert.Equal(t, "131072", setting.Value)

	setting, err = ParseSetting(ipForwardResource(true))
	require.NoError(t, err)
	assert.Equal(t, "1", setting.Value)

	_, err = ParseSetting(ipForwardResource([]interface{}{"1"}))
	assert.Error(t, err)
}

func TestParseSettingRejectsBadInput(t *testing.T) {
	t.Parallel()

	// Missing value.
	_, err := ParseSetting(manifest.Resource{
		Kind: manifest.KindSysctl, Name: "net.ipv4.ip_forward",
		Attributes: map[string]interface{}{},
	})
	assert.Error(t, err)

	// Hostile key.
	_, err = ParseSetting(manifest.Resource{
		Kind: manifest.KindSysctl, Name: "net.ipv4;reboot",
		Attributes: map[string]interface{}{"value": "1"},
	})
	assert.Error(t, err)

	// Absent needs no value.
	setting, err := ParseSetting(manifest.Resource{
		Kind: manifest.KindSysctl, Name: "net.ipv4.ip_forward",
		Attributes: map[string]interface{}{}, Absent: true,
	})
	require.NoError(t, err)
	assert.True(t, setting.Absent)
}

func TestSettingStepCheckSatisfied(t *testing.T) {
	t.Parallel()

	res := ipForwardResource("1")
	setting, err := ParseSetting(res)
	require.NoError(t, err)

	runner := ports.NewMockCommandRunner()
	runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "1\n"})
	fs := ports.NewMockFileSystem()
	require.NoError(t, fs.WriteFile(setting.DropInPath(), []byte(setting.Line()), 0o644))

	step := NewSettingStep(res, setting, nil, runner, fs)
	status, err := step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusSatisfied, status)
}

func TestSettingStepCheckLiveDrift(t *testing.T) {
	t.Parallel()

	res := ipForwardResource("1")
	setting, err := ParseSetting(res)
	require.NoError(t, err)

	runner := ports.NewMockCommandRunner()
	runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "0\n"})

	step := NewSettingStep(res, setting, nil, runner, ports.NewMockFileSystem())
	status, err := step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusNeedsApply, status)
}

func TestSettingStepCheckMissingDropIn(t *testing.T) {
	t.Parallel()

	// Live value matches but the persistence drop-in is gone.
	res := ipForwardResource("1")
	setting, err := ParseSetting(res)
	require.NoError(t, err)

	runner := ports.NewMockCommandRunner()
	runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "1\n"})

	step := NewSettingStep(res, setting, nil, runner, ports.NewMockFileSystem())
	status, err := step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusNeedsApply, status)
}

func TestSettingStepApply(t *testing.T) {
	t.Parallel()

	res := ipForwardResource("1")
	setting, err := ParseSetting(res)
	require.NoError(t, err)

	runner := ports.NewMockCommandRunner()
	runner.AddResult("sysctl", []string{"-w", "net.ipv4.ip_forward=1"},
		ports.CommandResult{ExitCode: 0})
	fs := ports.NewMockFileSystem()

	step := NewSettingStep(res, setting, nil, runner, fs)
	require.NoError(t, step.Apply(runCtx()))

	data, err := fs.ReadFile(setting.DropInPath())
	require.NoError(t, err)
	assert.Equal(t, setting.Line(), string(data))
	assert.Equal(t, 1, runner.CallCount())
}

func TestSettingStepApplyAbsent(t *testing.T) {
	t.Parallel()

	res := manifest.Resource{Kind: manifest.KindSysctl, Name: "net.ipv4.ip_forward", Absent: true}
	setting, err := ParseSetting(res)
	require.NoError(t, err)

	fs := ports.NewMockFileSystem()
	require.NoError(t, fs.WriteFile(setting.DropInPath(), []byte("net.ipv4.ip_forward = 1\n"), 0o644))
	runner := ports.NewMockCommandRunner()

	step := NewSettingStep(res, setting, nil, runner, fs)
	require.NoError(t, step.Apply(runCtx()))

	assert.False(t, fs.Exists(setting.DropInPath()))
	assert.Equal(t, 0, runner.CallCount())
}

func TestProviderCompile(t *testing.T) {
	t.Parallel()

	set, err := manifest.NewSet([]manifest.Resource{
		ipForwardResource("1"),
		{Kind: manifest.KindSysctl, Name: "net.core.somaxconn",
			Attributes: map[string]interface{}{"value": 4096},
			DependsOn:  []string{"sysctl:net.ipv4.ip_forward"}},
	})
	require.NoError(t, err)

	p := NewProvider(ports.NewMockCommandRunner(), ports.NewMockFileSystem())
	steps, err := p.Compile(compiler.NewCompileContext(set))
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "sysctl:net.ipv4.ip_forward", steps[0].ID().String())
	assert.Equal(t, []compiler.StepID{compiler.MustNewStepID("sysctl:net.ipv4.ip_forward")},
		steps[1].DependsOn())
}

func TestProviderCompileInvalidResource(t *testing.T) {
	t.Parallel()

	set, err := manifest.NewSet([]manifest.Resource{
		{Kind: manifest.KindSysctl, Name: "net.ipv4.ip_forward"},
	})
	require.NoError(t, err)

	p := NewProvider(ports.NewMockCommandRunner(), ports.NewMockFileSystem())
	_, err = p.Compile(compiler.NewCompileContext(set))
	require.Error(t, err)

	var stepErr *compiler.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, compiler.ErrCodeValidationFailed, stepErr.Code)
}
