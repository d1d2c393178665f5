package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/alert"
	"github.com/sitepulse/sitepulse-backend-go/internal/config"
	"github.com/sitepulse/sitepulse-backend-go/internal/database"
	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
	"github.com/sitepulse/sitepulse-backend-go/internal/service"
)

var schedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		HealthCheckSpec:       "0 6 * * *",
		WasteDetectionSpec:    "*/30 * * * *",
		ProgressTrackingSpec:  "*/15 * * * *",
		StrategicAnalysisSpec: "0 7 * * 1",

		WasteDetectionInterval:   30 * time.Minute,
		ProgressTrackingInterval: 15 * time.Minute,
		HealthCheckInterval:      24 * time.Hour,
		StrategicInterval:        7 * 24 * time.Hour,

		RunTimeout:      time.Minute,
		MaxRetries:      3,
		RetryBase:       30 * time.Second,
		RetryCap:        10 * time.Minute,
		RunHistoryLimit: 50,
	}
}

// fakeRunner records executions and returns a scripted error.
type fakeRunner struct {
	mu       sync.Mutex
	executed []models.JobType
	emitted  int
	err      error
	block    chan struct{} // when set, ExecuteRun waits on it
}

func (f *fakeRunner) ExecuteRun(ctx context.Context, run *models.JobRun) (*service.RunOutputs, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.executed = append(f.executed, run.JobType)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &service.RunOutputs{}, nil
}

func (f *fakeRunner) EmitOutputs(*service.RunOutputs) {
	f.mu.Lock()
	f.emitted++
	f.mu.Unlock()
}

func (f *fakeRunner) executions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executed)
}

func (f *fakeRunner) emissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emitted
}

func newTestScheduler(t *testing.T, runner Runner) (*Scheduler, *sql.DB) {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	s := New(db, testSchedulerConfig(), runner, alert.NewEmitter(alert.LogNotifier{}))
	s.Now = func() time.Time { return schedNow }
	t.Cleanup(s.Stop)
	return s, db
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDispatchExecutesAndFinalizes(t *testing.T) {
	runner := &fakeRunner{}
	s, db := newTestScheduler(t, runner)

	run, err := s.Dispatch(1, models.JobWasteDetection, 1)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	repo := repository.NewJobRunRepository(db)
	waitFor(t, "run to finalize", func() bool {
		stored, err := repo.GetByID(run.ID)
		return err == nil && stored.Terminal()
	})

	stored, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.RunStatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", stored.Status)
	}
	if runner.executions() != 1 {
		t.Errorf("executions = %d, want 1", runner.executions())
	}
	waitFor(t, "outputs to be emitted", func() bool { return runner.emissions() == 1 })
}

func TestDispatchWhileRunningSkips(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s, db := newTestScheduler(t, runner)

	first, err := s.Dispatch(1, models.JobWasteDetection, 1)
	if err != nil {
		t.Fatal(err)
	}

	repo := repository.NewJobRunRepository(db)
	waitFor(t, "first run to start", func() bool {
		stored, err := repo.GetByID(first.ID)
		return err == nil && stored.Status == models.RunStatusRunning
	})

	// The same trigger landing again while the first is in flight
	second, err := s.Dispatch(1, models.JobWasteDetection, 1)
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != models.RunStatusSkipped {
		t.Errorf("second run status = %s, want SKIPPED", second.Status)
	}

	close(runner.block)
	waitFor(t, "first run to finalize", func() bool {
		stored, err := repo.GetByID(first.ID)
		return err == nil && stored.Terminal()
	})

	// Exactly one execution despite two triggers
	if runner.executions() != 1 {
		t.Errorf("executions = %d, want 1", runner.executions())
	}
}

func TestFailedRunRecordsReason(t *testing.T) {
	runner := &fakeRunner{err: errors.New("snapshot load failed")}
	s, db := newTestScheduler(t, runner)

	// Health checks are not retryable, so the failure is terminal
	run, err := s.Dispatch(1, models.JobHealthCheck, 1)
	if err != nil {
		t.Fatal(err)
	}

	repo := repository.NewJobRunRepository(db)
	waitFor(t, "run to fail", func() bool {
		stored, err := repo.GetByID(run.ID)
		return err == nil && stored.Status == models.RunStatusFailed
	})

	stored, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.FailureReason != "snapshot load failed" {
		t.Errorf("failure reason = %q", stored.FailureReason)
	}
	if runner.emissions() != 0 {
		t.Error("no outputs may be emitted for a failed run")
	}
}

func TestTimeoutFailsRun(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})} // never closed
	s, db := newTestScheduler(t, runner)
	s.cfg.RunTimeout = 50 * time.Millisecond

	run, err := s.Dispatch(1, models.JobStrategicAnalysis, 1)
	if err != nil {
		t.Fatal(err)
	}

	repo := repository.NewJobRunRepository(db)
	waitFor(t, "run to time out", func() bool {
		stored, err := repo.GetByID(run.ID)
		return err == nil && stored.Status == models.RunStatusFailed
	})

	stored, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.FailureReason != "timeout" {
		t.Errorf("failure reason = %q, want timeout", stored.FailureReason)
	}
}

func TestRetryBackoff(t *testing.T) {
	base := 30 * time.Second
	cap := 10 * time.Minute

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 8 * time.Minute},
		{6, 10 * time.Minute}, // capped
		{10, 10 * time.Minute},
	}

	for _, tc := range cases {
		if got := RetryBackoff(tc.attempt, base, cap); got != tc.want {
			t.Errorf("RetryBackoff(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryableTypes(t *testing.T) {
	if !retryableTypes[models.JobWasteDetection] || !retryableTypes[models.JobProgressTracking] {
		t.Error("waste detection and progress tracking must be retryable")
	}
	if retryableTypes[models.JobHealthCheck] || retryableTypes[models.JobStrategicAnalysis] {
		t.Error("health check and strategic analysis must not auto-retry")
	}
}

func TestRetryStopsAfterBudgetExhausted(t *testing.T) {
	runner := &fakeRunner{err: errors.New("history query failed")}
	s, db := newTestScheduler(t, runner)
	s.cfg.RetryBase = time.Millisecond
	s.cfg.RetryCap = 5 * time.Millisecond

	if _, err := s.Dispatch(1, models.JobWasteDetection, 1); err != nil {
		t.Fatal(err)
	}

	// Initial execution plus MaxRetries retries
	want := s.cfg.MaxRetries + 1
	waitFor(t, "retry budget to be spent", func() bool { return runner.executions() == want })

	// No further retry may be scheduled once the budget is spent
	time.Sleep(100 * time.Millisecond)
	if got := runner.executions(); got != want {
		t.Fatalf("executions = %d, want %d", got, want)
	}

	repo := repository.NewJobRunRepository(db)
	runs, err := repo.List(1, string(models.JobWasteDetection), models.RunStatusFailed, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != want {
		t.Fatalf("failed runs = %d, want %d", len(runs), want)
	}
	if runs[0].Attempt != want {
		t.Errorf("last attempt = %d, want %d", runs[0].Attempt, want)
	}
}

func TestSupersededRunEmitsNothing(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s, db := newTestScheduler(t, runner)
	repo := repository.NewJobRunRepository(db)

	run, err := s.Dispatch(1, models.JobWasteDetection, 1)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "run to start", func() bool {
		stored, err := repo.GetByID(run.ID)
		return err == nil && stored.Status == models.RunStatusRunning
	})

	// The reaper fails the row while the worker is still executing
	if _, err := repo.ReapStale(1, models.JobWasteDetection, schedNow.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	close(runner.block)
	waitFor(t, "stalled worker to finish", func() bool { return runner.executions() == 1 })
	time.Sleep(50 * time.Millisecond)

	// The late success must not land: no outputs, no status rewrite
	if runner.emissions() != 0 {
		t.Errorf("emissions = %d, a superseded run must emit nothing", runner.emissions())
	}
	stored, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.RunStatusFailed {
		t.Errorf("status = %s, want the reaper's FAILED to stand", stored.Status)
	}
}

func TestReaperUnblocksStalePair(t *testing.T) {
	runner := &fakeRunner{}
	s, db := newTestScheduler(t, runner)
	repo := repository.NewJobRunRepository(db)

	// Simulate a crashed worker: RUNNING row started 2 hours ago
	staleStart := schedNow.Add(-2 * time.Hour)
	stale, acquired, err := repo.TryDispatch(1, models.JobWasteDetection, staleStart, 1)
	if err != nil || !acquired {
		t.Fatalf("seed stale run: acquired=%v err=%v", acquired, err)
	}
	if err := repo.MarkRunning(stale.ID, staleStart); err != nil {
		t.Fatal(err)
	}

	// The next tick reaps it (cutoff 2x the 30m cadence) and dispatches
	run, err := s.Dispatch(1, models.JobWasteDetection, 1)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusPending {
		t.Errorf("fresh run status = %s, stale row should have been reaped", run.Status)
	}

	reaped, err := repo.GetByID(stale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reaped.Status != models.RunStatusFailed {
		t.Errorf("stale run status = %s, want FAILED", reaped.Status)
	}
}
