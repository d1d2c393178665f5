package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// JobRunRepository handles the persisted run ledger. The at-most-one-in-flight
// invariant per (project, job type) is enforced here with a conditional
// insert, so it survives process crashes and is testable in isolation.
type JobRunRepository struct {
	db *sql.DB
}

// NewJobRunRepository creates a new job run repository
func NewJobRunRepository(db *sql.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// TryDispatch atomically creates a PENDING run for (projectID, jobType)
// unless a PENDING or RUNNING run already exists for that pair. When the pair
// is busy it records a SKIPPED row instead and returns acquired=false.
func (r *JobRunRepository) TryDispatch(projectID int64, jobType models.JobType, scheduledAt time.Time, attempt int) (*models.JobRun, bool, error) {
	// Conditional insert is the check-and-set: the WHERE NOT EXISTS and the
	// INSERT happen in one statement, so concurrent dispatchers cannot both
	// win.
	query := `
		INSERT INTO job_runs (project_id, job_type, status, attempt, scheduled_at)
		SELECT ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM job_runs
			WHERE project_id = ? AND job_type = ? AND status IN (?, ?)
		)
	`

	result, err := r.db.Exec(query,
		projectID, jobType, models.RunStatusPending, attempt, scheduledAt,
		projectID, jobType, models.RunStatusPending, models.RunStatusRunning,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to dispatch job run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		// Pair is busy: record the trigger as SKIPPED so operators can tell
		// throttling from malfunction.
		skipped, err := r.insertSkipped(projectID, jobType, scheduledAt)
		return skipped, false, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &models.JobRun{
		ID:          id,
		ProjectID:   projectID,
		JobType:     jobType,
		Status:      models.RunStatusPending,
		Attempt:     attempt,
		ScheduledAt: scheduledAt,
	}, true, nil
}

func (r *JobRunRepository) insertSkipped(projectID int64, jobType models.JobType, scheduledAt time.Time) (*models.JobRun, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO job_runs (project_id, job_type, status, attempt, scheduled_at, finished_at)
		VALUES (?, ?, ?, 1, ?, ?)
	`

	result, err := r.db.Exec(query, projectID, jobType, models.RunStatusSkipped, scheduledAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record skipped run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &models.JobRun{
		ID:          id,
		ProjectID:   projectID,
		JobType:     jobType,
		Status:      models.RunStatusSkipped,
		Attempt:     1,
		ScheduledAt: scheduledAt,
		FinishedAt:  &now,
	}, nil
}

// MarkRunning transitions a PENDING run to RUNNING. Only the worker that owns
// the run calls this.
func (r *JobRunRepository) MarkRunning(runID int64, at time.Time) error {
	query := `UPDATE job_runs SET status = ?, started_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.Exec(query, models.RunStatusRunning, at, runID, models.RunStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d not in PENDING state", runID)
	}
	return nil
}

// Finalize records the terminal outcome of a run. Only in-flight rows can be
// finalized: a worker whose row was already failed by the reaper gets
// finalized=false and must not touch the ledger again, since a replacement
// run may already be executing.
func (r *JobRunRepository) Finalize(runID int64, status, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE job_runs SET status = ?, failure_reason = ?, finished_at = ?
		WHERE id = ? AND status IN (?, ?)
	`

	result, err := r.db.Exec(query, status, reason, at, runID,
		models.RunStatusPending, models.RunStatusRunning)
	if err != nil {
		return false, fmt.Errorf("failed to finalize run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ReapStale fails any PENDING or RUNNING run for (projectID, jobType) that
// started (or was scheduled) before the cutoff. This clears rows left behind
// by crashed workers so the pair is not blocked forever. Returns the number
// of runs reaped.
func (r *JobRunRepository) ReapStale(projectID int64, jobType models.JobType, cutoff time.Time) (int64, error) {
	query := `
		UPDATE job_runs
		SET status = ?, failure_reason = 'reaped: stale run', finished_at = ?
		WHERE project_id = ? AND job_type = ?
		  AND status IN (?, ?)
		  AND COALESCE(started_at, scheduled_at) < ?
	`

	result, err := r.db.Exec(query,
		models.RunStatusFailed, time.Now().UTC(),
		projectID, jobType,
		models.RunStatusPending, models.RunStatusRunning,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale runs: %w", err)
	}

	return result.RowsAffected()
}

// CountRunning returns how many runs for the pair are currently RUNNING.
// Anything above one means the mutual-exclusion invariant was broken.
func (r *JobRunRepository) CountRunning(projectID int64, jobType models.JobType) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM job_runs WHERE project_id = ? AND job_type = ? AND status = ?`
	err := r.db.QueryRow(query, projectID, jobType, models.RunStatusRunning).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count running runs: %w", err)
	}
	return count, nil
}

const jobRunColumns = `id, project_id, job_type, status, failure_reason, attempt,
	scheduled_at, started_at, finished_at`

func scanJobRun(row interface{ Scan(...interface{}) error }) (*models.JobRun, error) {
	run := &models.JobRun{}
	err := row.Scan(
		&run.ID, &run.ProjectID, &run.JobType, &run.Status, &run.FailureReason,
		&run.Attempt, &run.ScheduledAt, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetByID retrieves a run by ID
func (r *JobRunRepository) GetByID(id int64) (*models.JobRun, error) {
	query := `SELECT ` + jobRunColumns + ` FROM job_runs WHERE id = ?`

	run, err := scanJobRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job run not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job run: %w", err)
	}

	return run, nil
}

// List retrieves runs for a project with optional type and status filters,
// newest first.
func (r *JobRunRepository) List(projectID int64, jobType, status string, limit int) ([]*models.JobRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + jobRunColumns + ` FROM job_runs WHERE project_id = ?`
	args := []interface{}{projectID}

	if jobType != "" {
		query += " AND job_type = ?"
		args = append(args, jobType)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY scheduled_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Prune keeps only the most recent limit terminal runs for the pair. In-flight
// rows are never pruned.
func (r *JobRunRepository) Prune(projectID int64, jobType models.JobType, limit int) error {
	query := `
		DELETE FROM job_runs
		WHERE project_id = ? AND job_type = ?
		  AND status IN (?, ?, ?)
		  AND id NOT IN (
			SELECT id FROM job_runs
			WHERE project_id = ? AND job_type = ?
			  AND status IN (?, ?, ?)
			ORDER BY scheduled_at DESC, id DESC
			LIMIT ?
		  )
	`

	_, err := r.db.Exec(query,
		projectID, jobType,
		models.RunStatusSucceeded, models.RunStatusFailed, models.RunStatusSkipped,
		projectID, jobType,
		models.RunStatusSucceeded, models.RunStatusFailed, models.RunStatusSkipped,
		limit,
	)
	if err != nil {
		return fmt.Errorf("failed to prune job runs: %w", err)
	}
	return nil
}
