package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundworkd/groundwork/internal/domain/execution"
	"github.com/groundworkd/groundwork/internal/domain/ledger"
	"github.com/groundworkd/groundwork/internal/ports"
)

const manifestPath = "/work/groundwork.yaml"

const forwardingManifest = `version: 1
resources:
  - kind: sysctl
    name: net.ipv4.ip_forward
    value: 1
`

// harness wires a Groundwork instance against mocks and a throwaway ledger.
type harness struct {
	gw     *Groundwork
	out    *bytes.Buffer
	runner *ports.MockCommandRunner
	fs     *ports.MockFileSystem
	ledger string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	out := &bytes.Buffer{}
	runner := ports.NewMockCommandRunner()
	fs := ports.NewMockFileSystem()
	require.NoError(t, fs.WriteFile(manifestPath, []byte(forwardingManifest), 0o644))

	ledgerPath := filepath.Join(t.TempDir(), "ledger.yaml")
	return &harness{
		gw:     NewWithPorts(out, ledgerPath, runner, fs),
		out:    out,
		runner: runner,
		fs:     fs,
		ledger: ledgerPath,
	}
}

// mutatingCalls counts sysctl -w invocations recorded by the mock runner.
func (h *harness) mutatingCalls() int {
	count := 0
	for _, call := range h.runner.Calls() {
		if call.Command == "sysctl" && len(call.Args) > 0 && call.Args[0] == "-w" {
			count++
		}
	}
	return count
}

func TestApplyConvergesAndRecords(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	// The live value already matches, but the persistence drop-in is
	// missing, so the step needs an apply. Re-probing after apply then
	// finds both halves in place.
	h.runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "1\n"})
	h.runner.AddResult("sysctl", []string{"-w", "net.ipv4.ip_forward=1"},
		ports.CommandResult{ExitCode: 0, Stdout: "net.ipv4.ip_forward = 1\n"})

	record, err := h.gw.Apply(context.Background(), manifestPath, false)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, execution.RunSucceeded, record.Status)
	assert.Equal(t, 1, record.StepsAttempted)
	assert.Equal(t, 1, record.StepsSucceeded)
	assert.Equal(t, 1, h.mutatingCalls())

	// The lock is released and the ledger carries the converged entry.
	assert.NoFileExists(t, h.ledger+".lock")
	led, lastRun, err := h.gw.Status()
	require.NoError(t, err)
	require.NotNil(t, lastRun)
	assert.Equal(t, record.PlanID, lastRun.PlanID)

	entry, ok := led.Get("sysctl:net.ipv4.ip_forward")
	require.True(t, ok)
	assert.Equal(t, ledger.OutcomeSuccess, entry.Outcome)
}

func TestApplySecondRunSkipsViaLedger(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "1\n"})
	h.runner.AddResult("sysctl", []string{"-w", "net.ipv4.ip_forward=1"},
		ports.CommandResult{ExitCode: 0})

	_, err := h.gw.Apply(context.Background(), manifestPath, false)
	require.NoError(t, err)
	callsAfterFirst := h.runner.CallCount()

	// Unchanged manifest, successful ledger entry: the second run skips
	// the step without touching the host at all.
	record, err := h.gw.Apply(context.Background(), manifestPath, false)
	require.NoError(t, err)
	assert.Equal(t, execution.RunSucceeded, record.Status)
	assert.Equal(t, callsAfterFirst, h.runner.CallCount())
}

func TestApplyDryRunMutatesNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "0\n"})

	record, err := h.gw.Apply(context.Background(), manifestPath, true)
	require.NoError(t, err)
	assert.Equal(t, execution.RunSucceeded, record.Status)
	assert.Equal(t, 0, h.mutatingCalls())

	// Dry runs take no lock, write no ledger, and record no run.
	assert.NoFileExists(t, h.ledger)
	assert.NoFileExists(t, h.ledger+".lock")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(h.ledger), "last_run.yaml"))
}

func TestApplyLockContention(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "0\n"})

	// A live process holds the lock.
	holder := fmt.Sprintf("%d plan-other\n", os.Getpid())
	require.NoError(t, os.WriteFile(h.ledger+".lock", []byte(holder), 0o644))

	_, err := h.gw.Apply(context.Background(), manifestPath, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrRunInProgress)
	assert.Equal(t, 0, h.mutatingCalls())

	// The foreign lock must survive the failed acquire.
	assert.FileExists(t, h.ledger+".lock")
}

func TestApplyMissingManifest(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.gw.Apply(context.Background(), "/work/missing.yaml", false)
	require.Error(t, err)
	assert.NoFileExists(t, h.ledger+".lock")
}

func TestStatusBeforeFirstRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	led, record, err := h.gw.Status()
	require.NoError(t, err)
	assert.Empty(t, led.Entries())
	assert.Nil(t, record)
}

func TestPrintPlanConverged(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "1\n"})
	setting := "net.ipv4.ip_forward = 1\n"
	require.NoError(t, h.fs.WriteFile("/etc/sysctl.d/90-groundwork-net-ipv4-ip_forward.conf", []byte(setting), 0o644))

	plan, err := h.gw.Plan(context.Background(), manifestPath)
	require.NoError(t, err)

	h.gw.PrintPlan(plan)
	assert.Contains(t, h.out.String(), "No changes needed")
}

func TestPrintPlanPendingChange(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runner.AddResult("sysctl", []string{"-n", "net.ipv4.ip_forward"},
		ports.CommandResult{ExitCode: 0, Stdout: "0\n"})

	plan, err := h.gw.Plan(context.Background(), manifestPath)
	require.NoError(t, err)

	h.gw.PrintPlan(plan)
	output := h.out.String()
	assert.Contains(t, output, "+ sysctl:net.ipv4.ip_forward")
	assert.Contains(t, output, "1 to apply")
}

func TestPrintResultsSummary(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.gw.PrintResults(&execution.RunRecord{
		PlanID:         "plan-123",
		Status:         execution.RunSucceeded,
		StepsAttempted: 2,
		StepsSucceeded: 2,
	})
	output := h.out.String()
	assert.Contains(t, output, "plan-123")
	assert.Contains(t, output, "2 attempted, 2 succeeded")
	assert.Contains(t, output, " - converged")
	assert.NotContains(t, output, "\u2014")
}

func TestPrintStatusEmptyLedger(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.gw.PrintStatus(ledger.NewLedger(), nil)
	output := h.out.String()
	assert.Contains(t, output, "nothing has been applied")
	assert.Contains(t, output, "No runs recorded")
}
