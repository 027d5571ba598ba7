package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/ledger"
	"github.com/groundworkd/groundwork/internal/ports"
)

// DefaultRetryBackoff is the fixed pause before the single transient retry.
// Provisioning runs are short-lived and operator-observed, so a flat wait
// beats exponential schedules here.
const DefaultRetryBackoff = 2 * time.Second

// Executor runs a Plan's steps strictly in order, consulting and updating
// the ledger as it goes. Steps execute one at a time: most step kinds mutate
// shared global host state (firewall chains, one database, one sysctl tree)
// with no isolation, so parallel application would race.
type Executor struct {
	store        *ledger.Store
	dryRun       bool
	retryBackoff time.Duration
	log          ports.Logger
}

// NewExecutor creates an Executor recording into the given ledger store.
func NewExecutor(store *ledger.Store) *Executor {
	return &Executor{
		store:        store,
		retryBackoff: DefaultRetryBackoff,
	}
}

// WithDryRun returns an Executor that simulates execution without applying.
func (e *Executor) WithDryRun(dryRun bool) *Executor {
	clone := *e
	clone.dryRun = dryRun
	return &clone
}

// WithRetryBackoff returns an Executor with the given transient retry pause.
func (e *Executor) WithRetryBackoff(backoff time.Duration) *Executor {
	clone := *e
	clone.retryBackoff = backoff
	return &clone
}

// WithLogger returns an Executor that logs step progress.
func (e *Executor) WithLogger(log ports.Logger) *Executor {
	clone := *e
	clone.log = log
	return &clone
}

// Execute runs all steps in plan order and returns the finalized run record.
// The returned error is reserved for persistence problems (a ledger that
// cannot be written); step failures are reported through the record, which
// always accounts for every step.
//
// Cancellation is honored between steps only: once a step's Apply has been
// invoked, its verification and ledger write complete before the run stops,
// so the ledger never disagrees with live state for the in-flight step.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*RunRecord, error) {
	record := &RunRecord{
		PlanID:     plan.ID(),
		Status:     RunInProgress,
		StartedAt:  time.Now().UTC(),
		StepsTotal: plan.Len(),
	}

	// Step calls get a non-cancellable context so an operator abort cannot
	// tear down an in-flight apply/verify pair.
	runCtx := compiler.NewRunContext(context.WithoutCancel(ctx)).WithDryRun(e.dryRun)

	halted := false
	cancelled := false

	for _, entry := range plan.Entries() {
		if !halted && ctx.Err() != nil {
			cancelled = true
		}
		if halted || cancelled {
			record.results = append(record.results,
				NewStepResult(entry.Step().ID(), compiler.StatusSkipped, nil))
			record.StepsSkipped++
			continue
		}

		result, err := e.executeEntry(runCtx, entry)
		record.results = append(record.results, result)

		switch result.Status() {
		case compiler.StatusLedgerSkip:
			record.StepsSkipped++
		case compiler.StatusSatisfied:
			record.StepsAttempted++
			record.StepsSucceeded++
		case compiler.StatusNeedsApply, compiler.StatusUnknown:
			// Dry run: reported, not attempted.
		case compiler.StatusFailed:
			record.StepsAttempted++
			record.FirstFailure = entry.Step().ID().String()
			if result.Error() != nil {
				record.FailureReason = result.Error().Error()
			}
			halted = true
		case compiler.StatusSkipped:
			record.StepsSkipped++
		}

		if err != nil {
			// The ledger could not be written; the host may have been
			// mutated, so halt rather than continue with unrecorded state.
			record.Status = RunFailed
			record.FinishedAt = time.Now().UTC()
			if record.FirstFailure == "" {
				record.FirstFailure = entry.Step().ID().String()
				record.FailureReason = err.Error()
			}
			return record, err
		}
	}

	record.FinishedAt = time.Now().UTC()
	switch {
	case halted:
		record.Status = RunFailed
	case cancelled:
		record.Status = RunCancelled
	default:
		record.Status = RunSucceeded
	}
	return record, nil
}

// executeEntry converges a single plan entry. The returned error reports
// ledger persistence failures only.
func (e *Executor) executeEntry(ctx compiler.RunContext, entry PlanEntry) (StepResult, error) {
	step := entry.Step()
	stepID := step.ID()

	switch entry.Status() {
	case compiler.StatusLedgerSkip:
		// Unchanged since the last successful apply: zero mutating calls.
		return NewStepResult(stepID, compiler.StatusLedgerSkip, nil), nil

	case compiler.StatusSatisfied:
		// Live state already matches. Record convergence so the next run
		// skips the live probe too.
		if ctx.DryRun() {
			return NewStepResult(stepID, compiler.StatusSatisfied, nil), nil
		}
		err := e.recordOutcome(step, entry.Hash(), ledger.OutcomeSuccess, "")
		return NewStepResult(stepID, compiler.StatusSatisfied, nil), err

	case compiler.StatusNeedsApply, compiler.StatusUnknown:
		if ctx.DryRun() {
			return NewStepResult(stepID, entry.Status(), nil).WithDiff(entry.Diff()), nil
		}
		return e.applyStep(ctx, entry)

	default:
		return NewStepResult(stepID, entry.Status(), nil), nil
	}
}

// applyStep runs Apply with the single transient retry, then verifies the
// live host matches before recording success.
func (e *Executor) applyStep(ctx compiler.RunContext, entry PlanEntry) (StepResult, error) {
	step := entry.Step()
	stepID := step.ID()
	key := stepID.String()

	start := time.Now()
	retried := false

	err := step.Apply(ctx)
	if err != nil && IsTransient(err) {
		e.logWarn(ctx, "transient failure, retrying once", key, err)
		time.Sleep(e.retryBackoff)
		retried = true
		err = step.Apply(ctx)
	}
	duration := time.Since(start)

	if err != nil {
		applyErr := compiler.NewApplyFailedError(key, err)
		recordErr := e.recordOutcome(step, entry.Hash(), ledger.OutcomeFailed, applyErr.Error())
		return NewStepResult(stepID, compiler.StatusFailed, applyErr).
			WithDuration(duration).WithRetried(retried), recordErr
	}

	// Verification re-derives reality from the live system; the ledger is
	// only written once the host actually matches.
	status, verifyErr := step.Check(ctx)
	if verifyErr != nil || status != compiler.StatusSatisfied {
		if verifyErr == nil {
			verifyErr = fmt.Errorf("post-apply check reported %s", status)
		}
		failure := compiler.NewVerifyFailedError(key, verifyErr)
		recordErr := e.recordOutcome(step, entry.Hash(), ledger.OutcomeFailed, failure.Error())
		return NewStepResult(stepID, compiler.StatusFailed, failure).
			WithDuration(duration).WithRetried(retried), recordErr
	}

	e.logInfo(ctx, "step converged", key, duration)
	recordErr := e.recordOutcome(step, entry.Hash(), ledger.OutcomeSuccess, "")
	return NewStepResult(stepID, compiler.StatusSatisfied, nil).
		WithDuration(duration).WithDiff(entry.Diff()).WithRetried(retried), recordErr
}

func (e *Executor) recordOutcome(step compiler.Step, hash string, outcome ledger.Outcome, reason string) error {
	if e.store == nil {
		return nil
	}
	return e.store.Record(ledger.Entry{
		Key:       step.ID().String(),
		Kind:      string(step.Resource().Kind),
		Hash:      hash,
		Outcome:   outcome,
		Reason:    reason,
		AppliedAt: time.Now().UTC(),
	})
}

func (e *Executor) logInfo(ctx compiler.RunContext, msg, key string, d time.Duration) {
	if e.log == nil {
		return
	}
	e.log.Info(ctx.Context(), msg, ports.F("step", key), ports.F("duration", d.String()))
}

func (e *Executor) logWarn(ctx compiler.RunContext, msg, key string, err error) {
	if e.log == nil {
		return
	}
	e.log.Warn(ctx.Context(), msg, ports.F("step", key), ports.F("error", err.Error()))
}
