package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// execute runs one acquired job to its terminal status. Transient errors and
// timeouts become a FAILED ledger row; they never propagate to whoever
// triggered the run.
func (s *Scheduler) execute(run *models.JobRun) {
	if err := s.runs.MarkRunning(run.ID, s.Now().UTC()); err != nil {
		log.Printf("[Worker] failed to mark run %d running: %v", run.ID, err)
		return
	}

	// Hard wall-clock budget, separate from the reaper's staleness cutoff:
	// the worker self-aborts rather than relying on the next tick's sweep.
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RunTimeoutFor(string(run.JobType)))
	defer cancel()

	outputs, err := s.runner.ExecuteRun(ctx, run)

	status := models.RunStatusSucceeded
	reason := ""
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		status = models.RunStatusFailed
		reason = "timeout"
	case errors.Is(err, context.Canceled):
		status = models.RunStatusFailed
		reason = "canceled"
	default:
		status = models.RunStatusFailed
		reason = err.Error()
	}

	// Outputs are consumed only after the terminal status is on the ledger.
	// A superseded run emits nothing: the reaper already failed its row and
	// a replacement may be producing the same outputs.
	if s.ReportOutcome(run, status, reason) && status == models.RunStatusSucceeded {
		s.runner.EmitOutputs(outputs)
	}
}

// ReportOutcome finalizes a run on the ledger, prunes history, and applies
// the retry policy. Returns false when the run no longer owned its row.
func (s *Scheduler) ReportOutcome(run *models.JobRun, status, reason string) bool {
	finalized, err := s.runs.Finalize(run.ID, status, reason, s.Now().UTC())
	if err != nil {
		log.Printf("[Worker] failed to finalize run %d: %v", run.ID, err)
		return false
	}
	if !finalized {
		log.Printf("[Worker] run %d was superseded before finalize (project=%d type=%s), dropping outcome",
			run.ID, run.ProjectID, run.JobType)
		return false
	}

	if err := s.runs.Prune(run.ProjectID, run.JobType, s.cfg.RunHistoryLimit); err != nil {
		log.Printf("[Worker] failed to prune runs project=%d type=%s: %v", run.ProjectID, run.JobType, err)
	}

	if status != models.RunStatusFailed {
		return true
	}

	log.Printf("[Worker] run %d failed (project=%d type=%s attempt=%d): %s",
		run.ID, run.ProjectID, run.JobType, run.Attempt, reason)

	// Attempt 1 is the initial execution; MaxRetries counts the retries
	// after it, so the run is terminal once attempt MaxRetries+1 fails.
	if !retryableTypes[run.JobType] || run.Attempt > s.cfg.MaxRetries {
		// Terminal failure: surface to the operator
		s.emitter.EmitRunFailure(run.ProjectID, run.JobType, reason)
		return true
	}

	delay := RetryBackoff(run.Attempt, s.cfg.RetryBase, s.cfg.RetryCap)
	attempt := run.Attempt + 1
	log.Printf("[Worker] retrying project=%d type=%s attempt=%d in %s", run.ProjectID, run.JobType, attempt, delay)

	time.AfterFunc(delay, func() {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		if _, err := s.Dispatch(run.ProjectID, run.JobType, attempt); err != nil {
			log.Printf("[Worker] retry dispatch failed project=%d type=%s: %v", run.ProjectID, run.JobType, err)
		}
	})
	return true
}

// RetryBackoff returns the exponential backoff delay for a given attempt:
// base, 2x base, 4x base, capped.
func RetryBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}
