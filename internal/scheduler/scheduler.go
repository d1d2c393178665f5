// Package scheduler triggers monitoring jobs on per-type cadences and owns
// the persisted run ledger. Within a (project, job type) pair execution is
// serialized by a check-and-set on the ledger; across pairs runs proceed in
// parallel.
package scheduler

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sitepulse/sitepulse-backend-go/internal/alert"
	"github.com/sitepulse/sitepulse-backend-go/internal/config"
	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
	"github.com/sitepulse/sitepulse-backend-go/internal/service"
)

// Runner executes the work of one dispatched run. Satisfied by
// service.MonitorService; tests substitute fakes.
type Runner interface {
	ExecuteRun(ctx context.Context, run *models.JobRun) (*service.RunOutputs, error)
	EmitOutputs(outputs *service.RunOutputs)
}

// retryableTypes are auto-retried on failure. Forecast- and
// reconciliation-bearing types are not: their next cadence tick re-attempts
// them naturally, and retry loops would compound external-call cost.
var retryableTypes = map[models.JobType]bool{
	models.JobWasteDetection:   true,
	models.JobProgressTracking: true,
}

// Scheduler registers cadences, fans ticks out across active projects, and
// dispatches runs through the ledger's mutual-exclusion check.
type Scheduler struct {
	cfg      config.SchedulerConfig
	cron     *cron.Cron
	runs     *repository.JobRunRepository
	projects *repository.ProjectRepository
	runner   Runner
	emitter  *alert.Emitter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Now is injectable for tests
	Now func() time.Time
}

// New creates a scheduler over the given ledger and runner.
func New(db *sql.DB, cfg config.SchedulerConfig, runner Runner, emitter *alert.Emitter) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:      cfg,
		cron:     cron.New(),
		runs:     repository.NewJobRunRepository(db),
		projects: repository.NewProjectRepository(db),
		runner:   runner,
		emitter:  emitter,
		ctx:      ctx,
		cancel:   cancel,
		Now:      time.Now,
	}
}

// Start registers the recurring cadences and starts the cron loop.
func (s *Scheduler) Start() error {
	cadences := []struct {
		jobType models.JobType
		spec    string
	}{
		{models.JobHealthCheck, s.cfg.HealthCheckSpec},
		{models.JobWasteDetection, s.cfg.WasteDetectionSpec},
		{models.JobProgressTracking, s.cfg.ProgressTrackingSpec},
		{models.JobStrategicAnalysis, s.cfg.StrategicAnalysisSpec},
	}

	for _, c := range cadences {
		jobType := c.jobType
		if _, err := s.cron.AddFunc(c.spec, func() { s.fanOut(jobType) }); err != nil {
			return err
		}
		log.Printf("[Scheduler] registered %s cadence %q", jobType, c.spec)

		// A run budget at or beyond the reaper cutoff means a stalled worker
		// is reaped and replaced while still executing. Legal, but worth a
		// warning at startup.
		if interval, err := s.cfg.Interval(string(jobType)); err == nil {
			if timeout := s.cfg.RunTimeoutFor(string(jobType)); timeout >= 2*interval {
				log.Printf("[Scheduler] warning: %s run timeout %s exceeds the reaper cutoff (2x %s cadence)",
					jobType, timeout, interval)
			}
		}
	}

	s.cron.Start()
	log.Printf("[Scheduler] started")
	return nil
}

// Stop halts the cron loop, cancels in-flight runs and waits for workers to
// finish reporting their outcomes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.cancel()
	s.wg.Wait()
	log.Printf("[Scheduler] stopped")
}

// fanOut dispatches one tick of a job type across all active projects.
func (s *Scheduler) fanOut(jobType models.JobType) {
	projects, err := s.projects.ListActive()
	if err != nil {
		log.Printf("[Scheduler] failed to list projects for %s tick: %v", jobType, err)
		return
	}

	for _, p := range projects {
		if _, err := s.Dispatch(p.ID, jobType, 1); err != nil {
			log.Printf("[Scheduler] dispatch failed project=%d type=%s: %v", p.ID, jobType, err)
		}
	}
}

// RunNow triggers a single run for (projectID, jobType) outside the cadence.
// Returns the created run, which is SKIPPED when the pair already has one in
// flight. The work itself proceeds asynchronously.
func (s *Scheduler) RunNow(projectID int64, jobType models.JobType) (*models.JobRun, error) {
	return s.Dispatch(projectID, jobType, 1)
}

// Dispatch reaps stale runs for the pair, verifies the mutual-exclusion
// invariant, and performs the check-and-set. A won CAS spawns a worker.
func (s *Scheduler) Dispatch(projectID int64, jobType models.JobType, attempt int) (*models.JobRun, error) {
	now := s.Now().UTC()

	// Reaper sweep: a crashed worker leaves a RUNNING row that would block
	// this pair forever. Anything older than 2x the cadence is failed first.
	if interval, err := s.cfg.Interval(string(jobType)); err == nil {
		cutoff := now.Add(-2 * interval)
		if reaped, err := s.runs.ReapStale(projectID, jobType, cutoff); err != nil {
			log.Printf("[Scheduler] reaper failed project=%d type=%s: %v", projectID, jobType, err)
		} else if reaped > 0 {
			log.Printf("[Scheduler] reaped %d stale run(s) project=%d type=%s", reaped, projectID, jobType)
		}
	}

	if running, err := s.runs.CountRunning(projectID, jobType); err == nil && running > 1 {
		// More than one RUNNING row means the CAS was bypassed somewhere.
		// Fatal for trust in the ledger; alert the operator.
		log.Printf("[Scheduler] INVARIANT VIOLATION: %d RUNNING rows project=%d type=%s", running, projectID, jobType)
		s.emitter.EmitInvariantViolation(projectID, jobType, running)
	}

	run, acquired, err := s.runs.TryDispatch(projectID, jobType, now, attempt)
	if err != nil {
		return nil, err
	}
	if !acquired {
		log.Printf("[Scheduler] skipped project=%d type=%s: run already in flight", projectID, jobType)
		return run, nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(run)
	}()

	return run, nil
}
