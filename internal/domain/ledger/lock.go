package ledger

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrRunInProgress means another apply run holds the ledger. The second
// invocation refuses to start rather than interleave with the first.
var ErrRunInProgress = errors.New("another run is already in progress")

// RunLock is the single-writer lock over a ledger. Acquire creates the lock
// file exclusively; if it already exists the acquire fails immediately with
// ErrRunInProgress. A lock left behind by a dead process is reported as
// stale but never stolen: the operator removes it once the host is inspected.
type RunLock struct {
	path     string
	acquired bool
}

// NewRunLock creates a RunLock stored next to the given ledger path.
func NewRunLock(ledgerPath string) *RunLock {
	return &RunLock{path: ledgerPath + ".lock"}
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.path
}

// Acquire takes the lock for the given plan ID. The lock file records the
// holder's pid and plan so contention errors can name the other run.
func (l *RunLock) Acquire(planID string) error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return l.contendedError()
		}
		return fmt.Errorf("failed to create run lock: %w", err)
	}

	_, writeErr := fmt.Fprintf(file, "%d %s\n", os.Getpid(), planID)
	closeErr := file.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(l.path)
		return fmt.Errorf("failed to write run lock: %w", errors.Join(writeErr, closeErr))
	}

	l.acquired = true
	return nil
}

// Release removes the lock file. Releasing a lock that was never acquired is
// a no-op, so deferred releases are safe on failed acquires.
func (l *RunLock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// contendedError builds an ErrRunInProgress describing the current holder.
func (l *RunLock) contendedError() error {
	pid, planID := l.readHolder()
	if pid == 0 {
		return fmt.Errorf("%w: lock file %s exists", ErrRunInProgress, l.path)
	}
	if !processAlive(pid) {
		return fmt.Errorf("%w: stale lock at %s held by dead process %d (plan %s); remove the lock file after inspecting the host",
			ErrRunInProgress, l.path, pid, planID)
	}
	return fmt.Errorf("%w: pid %d is applying plan %s", ErrRunInProgress, pid, planID)
}

func (l *RunLock) readHolder() (int, string) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, ""
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, ""
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, ""
	}
	planID := ""
	if len(fields) > 1 {
		planID = fields[1]
	}
	return pid, planID
}

// processAlive probes a pid with signal 0. EPERM means the process exists
// but belongs to another user, so it counts as alive.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
