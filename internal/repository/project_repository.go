package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create registers a new project
func (r *ProjectRepository) Create(p *models.Project) error {
	query := `
		INSERT INTO projects (name, external_id, budget, planned_start, planned_end, status, actual_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if p.Status == "" {
		p.Status = models.ProjectStatusActive
	}

	result, err := r.db.Exec(query,
		p.Name, p.ExternalID, p.Budget, p.PlannedStart, p.PlannedEnd, p.Status, p.ActualCost,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	p.ID = id
	return nil
}

const projectColumns = `id, name, external_id, budget, planned_start, planned_end,
	status, archived, spi, cpi, actual_cost, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(
		&p.ID, &p.Name, &p.ExternalID, &p.Budget, &p.PlannedStart, &p.PlannedEnd,
		&p.Status, &p.Archived, &p.SPI, &p.CPI, &p.ActualCost, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(id int64) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`

	p, err := scanProject(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return p, nil
}

// ListActive retrieves all non-archived active projects, the fan-out set for
// scheduled jobs.
func (r *ProjectRepository) ListActive() ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE archived = 0 AND status = ? ORDER BY id`

	rows, err := r.db.Query(query, models.ProjectStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// UpdateIndices refreshes the derived SPI/CPI columns and the cost actual.
func (r *ProjectRepository) UpdateIndices(id int64, spi, cpi, actualCost float64) error {
	query := `
		UPDATE projects
		SET spi = ?, cpi = ?, actual_cost = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, spi, cpi, actualCost, id)
	if err != nil {
		return fmt.Errorf("failed to update project indices: %w", err)
	}
	return nil
}

// Archive marks a project as archived. Child records remain for history but
// are excluded from monitoring queries.
func (r *ProjectRepository) Archive(id int64) error {
	query := `UPDATE projects SET archived = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to archive project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project not found: %d", id)
	}
	return nil
}

// Touch updates the project's updated_at timestamp.
func (r *ProjectRepository) Touch(id int64, at time.Time) error {
	_, err := r.db.Exec(`UPDATE projects SET updated_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}
	return nil
}
