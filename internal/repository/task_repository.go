package repository

import (
	"database/sql"
	"fmt"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// TaskRepository handles database operations for task records and their
// resource assignments.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, project_id, external_id, name, planned_start, planned_end,
	actual_start, actual_end, percent_complete, resource_id, site_lat, site_lng,
	planned_hours, actual_hours, local_modified_at, external_modified_at, created_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.TaskRecord, error) {
	t := &models.TaskRecord{}
	var externalID sql.NullString
	err := row.Scan(
		&t.ID, &t.ProjectID, &externalID, &t.Name, &t.PlannedStart, &t.PlannedEnd,
		&t.ActualStart, &t.ActualEnd, &t.PercentComplete, &t.ResourceID,
		&t.SiteLat, &t.SiteLng, &t.PlannedHours, &t.ActualHours,
		&t.LocalModifiedAt, &t.ExternalModifiedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if externalID.Valid {
		t.ExternalID = externalID.String
	}
	return t, nil
}

// nullableExternalID maps an empty external ID to NULL so the partial unique
// index only applies to records that actually came from the external system.
func nullableExternalID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

// Create inserts a new task record
func (r *TaskRepository) Create(t *models.TaskRecord) error {
	return r.create(r.db, t)
}

// CreateTx inserts a new task record within an existing transaction
func (r *TaskRepository) CreateTx(tx *sql.Tx, t *models.TaskRecord) error {
	return r.create(tx, t)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (r *TaskRepository) create(e execer, t *models.TaskRecord) error {
	query := `
		INSERT INTO task_records (
			project_id, external_id, name, planned_start, planned_end,
			actual_start, actual_end, percent_complete, resource_id,
			site_lat, site_lng, planned_hours, actual_hours,
			local_modified_at, external_modified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := e.Exec(query,
		t.ProjectID, nullableExternalID(t.ExternalID), t.Name, t.PlannedStart, t.PlannedEnd,
		t.ActualStart, t.ActualEnd, t.PercentComplete, t.ResourceID,
		t.SiteLat, t.SiteLng, t.PlannedHours, t.ActualHours,
		t.LocalModifiedAt, t.ExternalModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	t.ID = id
	return nil
}

// GetByExternalID retrieves a task by its external identifier within a
// project. Returns (nil, nil) when no such task exists.
func (r *TaskRepository) GetByExternalID(projectID int64, externalID string) (*models.TaskRecord, error) {
	return r.getByExternalID(r.db, projectID, externalID)
}

// GetByExternalIDTx is the transactional variant, so lookups observe rows
// written earlier in the same transaction.
func (r *TaskRepository) GetByExternalIDTx(tx *sql.Tx, projectID int64, externalID string) (*models.TaskRecord, error) {
	return r.getByExternalID(tx, projectID, externalID)
}

type queryRower interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (r *TaskRepository) getByExternalID(q queryRower, projectID int64, externalID string) (*models.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM task_records WHERE project_id = ? AND external_id = ?`

	t, err := scanTask(q.QueryRow(query, projectID, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task by external id: %w", err)
	}

	return t, nil
}

// ListByProject retrieves all task records for a project
func (r *TaskRepository) ListByProject(projectID int64) ([]models.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM task_records WHERE project_id = ? ORDER BY planned_start, id`

	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task records: %w", err)
	}
	defer rows.Close()

	var tasks []models.TaskRecord
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task record: %w", err)
		}
		tasks = append(tasks, *t)
	}

	return tasks, rows.Err()
}

// UpdateFromExternalTx overwrites the externally-owned fields of a task with
// values from the external system, within an existing transaction.
func (r *TaskRepository) UpdateFromExternalTx(tx *sql.Tx, t *models.TaskRecord) error {
	query := `
		UPDATE task_records
		SET name = ?, planned_start = ?, planned_end = ?,
			actual_start = ?, actual_end = ?, percent_complete = ?,
			resource_id = ?, site_lat = ?, site_lng = ?,
			planned_hours = ?, actual_hours = ?,
			local_modified_at = ?, external_modified_at = ?
		WHERE id = ?
	`

	_, err := tx.Exec(query,
		t.Name, t.PlannedStart, t.PlannedEnd,
		t.ActualStart, t.ActualEnd, t.PercentComplete,
		t.ResourceID, t.SiteLat, t.SiteLng,
		t.PlannedHours, t.ActualHours,
		t.LocalModifiedAt, t.ExternalModifiedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task from external: %w", err)
	}
	return nil
}

// ListAssignments retrieves resource assignments for a project
func (r *TaskRepository) ListAssignments(projectID int64) ([]models.ResourceAssignment, error) {
	query := `
		SELECT id, project_id, resource_id, resource_name, skill_level, required_skill,
			   assigned_hours, worked_hours, period_start, period_end
		FROM resource_assignments
		WHERE project_id = ?
		ORDER BY period_start, id
	`

	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.ResourceAssignment
	for rows.Next() {
		var a models.ResourceAssignment
		err := rows.Scan(
			&a.ID, &a.ProjectID, &a.ResourceID, &a.ResourceName, &a.SkillLevel,
			&a.RequiredSkill, &a.AssignedHours, &a.WorkedHours, &a.PeriodStart, &a.PeriodEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// CreateAssignment inserts a resource assignment
func (r *TaskRepository) CreateAssignment(a *models.ResourceAssignment) error {
	query := `
		INSERT INTO resource_assignments (
			project_id, resource_id, resource_name, skill_level, required_skill,
			assigned_hours, worked_hours, period_start, period_end
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		a.ProjectID, a.ResourceID, a.ResourceName, a.SkillLevel, a.RequiredSkill,
		a.AssignedHours, a.WorkedHours, a.PeriodStart, a.PeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to create resource assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	a.ID = id
	return nil
}

// AppendProgress records one progress sample for a project
func (r *TaskRepository) AppendProgress(e *models.ProgressEntry) error {
	query := `
		INSERT INTO progress_entries (project_id, recorded_at, percent_complete, actual_cost, earned_value)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query, e.ProjectID, e.RecordedAt, e.PercentComplete, e.ActualCost, e.EarnedValue)
	if err != nil {
		return fmt.Errorf("failed to append progress entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.ID = id
	return nil
}

// ListProgress retrieves the progress time series for a project in
// chronological order.
func (r *TaskRepository) ListProgress(projectID int64) ([]models.ProgressEntry, error) {
	query := `
		SELECT id, project_id, recorded_at, percent_complete, actual_cost, earned_value
		FROM progress_entries
		WHERE project_id = ?
		ORDER BY recorded_at, id
	`

	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ProgressEntry
	for rows.Next() {
		var e models.ProgressEntry
		err := rows.Scan(&e.ID, &e.ProjectID, &e.RecordedAt, &e.PercentComplete, &e.ActualCost, &e.EarnedValue)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
