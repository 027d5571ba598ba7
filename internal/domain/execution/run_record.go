package execution

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunStatus is the lifecycle state of a run record.
type RunStatus string

const (
	// RunInProgress is set when the record is created at plan start.
	RunInProgress RunStatus = "in-progress"
	// RunSucceeded means every step converged or was skipped via the ledger.
	RunSucceeded RunStatus = "succeeded"
	// RunFailed means a step failed and the plan halted.
	RunFailed RunStatus = "failed"
	// RunCancelled means the operator aborted between steps.
	RunCancelled RunStatus = "cancelled"
)

// RunRecord summarizes one execution of a plan. It is persisted at plan
// start and finalized at plan end or abort, so `status` can always show how
// far the last provisioning run got.
type RunRecord struct {
	PlanID         string    `yaml:"plan_id"`
	Status         RunStatus `yaml:"status"`
	StartedAt      time.Time `yaml:"started_at"`
	FinishedAt     time.Time `yaml:"finished_at,omitempty"`
	StepsTotal     int       `yaml:"steps_total"`
	StepsAttempted int       `yaml:"steps_attempted"`
	StepsSucceeded int       `yaml:"steps_succeeded"`
	StepsSkipped   int       `yaml:"steps_skipped"`
	FirstFailure   string    `yaml:"first_failure,omitempty"`
	FailureReason  string    `yaml:"failure_reason,omitempty"`

	results []StepResult
}

// Results returns the per-step results of this run (in-memory only).
func (r *RunRecord) Results() []StepResult {
	return r.results
}

// Failed reports whether the run halted on a step failure.
func (r *RunRecord) Failed() bool {
	return r.Status == RunFailed
}

// RunStore persists the most recent run record next to the ledger, with the
// same write-new-then-swap discipline.
type RunStore struct {
	path string
}

// NewRunStore creates a RunStore at the given path.
func NewRunStore(path string) *RunStore {
	return &RunStore{path: path}
}

// ErrNoRunRecord means no run has been recorded yet.
var ErrNoRunRecord = errors.New("no run record found")

// Load reads the last run record.
func (s *RunStore) Load() (*RunRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrNoRunRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("run record is corrupt: %w", err)
	}
	return &record, nil
}

// Save persists a run record atomically.
func (s *RunStore) Save(record *RunRecord) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create run record directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to swap run record: %w", err)
	}
	return nil
}
