package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// ForecastRepository handles database operations for forecast snapshots and
// the residual history that feeds interval estimation.
type ForecastRepository struct {
	db *sql.DB
}

// NewForecastRepository creates a new forecast repository
func NewForecastRepository(db *sql.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// Insert appends a forecast snapshot. Snapshots are append-only; the current
// forecast is the most recent one.
func (r *ForecastRepository) Insert(s *models.ForecastSnapshot) error {
	query := `
		INSERT INTO forecast_snapshots (
			project_id, generated_at, completion_date, completion_lower_date,
			completion_upper_date, final_cost, final_cost_lower, final_cost_upper,
			risk_level, model, low_confidence, inputs_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		s.ProjectID, s.GeneratedAt, s.CompletionDate, s.CompletionLowerDate,
		s.CompletionUpperDate, s.FinalCost, s.FinalCostLower, s.FinalCostUpper,
		s.RiskLevel, s.Model, s.LowConfidence, s.InputsHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert forecast snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	s.ID = id
	return nil
}

// Latest returns the most recent snapshot for a project, or (nil, nil) when
// none exists yet.
func (r *ForecastRepository) Latest(projectID int64) (*models.ForecastSnapshot, error) {
	query := `
		SELECT id, project_id, generated_at, completion_date, completion_lower_date,
			   completion_upper_date, final_cost, final_cost_lower, final_cost_upper,
			   risk_level, model, low_confidence, inputs_hash
		FROM forecast_snapshots
		WHERE project_id = ?
		ORDER BY generated_at DESC, id DESC
		LIMIT 1
	`

	s := &models.ForecastSnapshot{}
	err := r.db.QueryRow(query, projectID).Scan(
		&s.ID, &s.ProjectID, &s.GeneratedAt, &s.CompletionDate, &s.CompletionLowerDate,
		&s.CompletionUpperDate, &s.FinalCost, &s.FinalCostLower, &s.FinalCostUpper,
		&s.RiskLevel, &s.Model, &s.LowConfidence, &s.InputsHash,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest forecast: %w", err)
	}

	return s, nil
}

// AppendResidual records one observed forecast error for a project.
func (r *ForecastRepository) AppendResidual(projectID int64, at time.Time, residual float64) error {
	query := `INSERT INTO forecast_residuals (project_id, recorded_at, residual) VALUES (?, ?, ?)`
	if _, err := r.db.Exec(query, projectID, at, residual); err != nil {
		return fmt.Errorf("failed to append forecast residual: %w", err)
	}
	return nil
}

// Residuals returns the recorded forecast errors for a project in
// chronological order.
func (r *ForecastRepository) Residuals(projectID int64) ([]float64, error) {
	query := `SELECT residual FROM forecast_residuals WHERE project_id = ? ORDER BY recorded_at, id`

	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast residuals: %w", err)
	}
	defer rows.Close()

	var residuals []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan residual: %w", err)
		}
		residuals = append(residuals, v)
	}

	return residuals, rows.Err()
}
