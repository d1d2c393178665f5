package repository

import (
	"database/sql"
	"fmt"

	"github.com/sitepulse/sitepulse-backend-go/internal/database"
	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// WasteRepository handles database operations for waste records
type WasteRepository struct {
	db *sql.DB
}

// NewWasteRepository creates a new waste repository
func NewWasteRepository(db *sql.DB) *WasteRepository {
	return &WasteRepository{db: db}
}

// ReplaceComputed persists a batch of computed records for one classification
// run. For each record, any prior computed record for the same (project,
// category, window) is superseded: deleted and re-inserted in one
// transaction, so at most one computed record per window survives.
func (r *WasteRepository) ReplaceComputed(records []models.WasteRecord) error {
	if len(records) == 0 {
		return nil
	}

	return database.Transaction(r.db, func(tx *sql.Tx) error {
		del := `
			DELETE FROM waste_records
			WHERE project_id = ? AND category = ? AND computed_window = ? AND source = ?
		`
		ins := `
			INSERT INTO waste_records (
				project_id, category, score, insufficient_data,
				cost_impact, time_impact_hours, detected_at, computed_window, source
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		for i := range records {
			rec := &records[i]
			if _, err := tx.Exec(del, rec.ProjectID, rec.Category, rec.ComputedWindow, models.WasteSourceComputed); err != nil {
				return fmt.Errorf("failed to supersede waste record: %w", err)
			}

			result, err := tx.Exec(ins,
				rec.ProjectID, rec.Category, rec.Score, rec.InsufficientData,
				rec.CostImpact, rec.TimeImpactHours, rec.DetectedAt, rec.ComputedWindow, models.WasteSourceComputed,
			)
			if err != nil {
				return fmt.Errorf("failed to insert waste record: %w", err)
			}

			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
			rec.ID = id
		}

		return nil
	})
}

// CreateManual inserts a manually reported waste record. Manual records are
// never superseded by recomputation.
func (r *WasteRepository) CreateManual(rec *models.WasteRecord) error {
	query := `
		INSERT INTO waste_records (
			project_id, category, score, insufficient_data,
			cost_impact, time_impact_hours, detected_at, computed_window, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		rec.ProjectID, rec.Category, rec.Score, rec.InsufficientData,
		rec.CostImpact, rec.TimeImpactHours, rec.DetectedAt, rec.ComputedWindow, models.WasteSourceManual,
	)
	if err != nil {
		return fmt.Errorf("failed to create manual waste record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

const wasteColumns = `id, project_id, category, score, insufficient_data,
	cost_impact, time_impact_hours, detected_at, computed_window, source`

func scanWaste(row interface{ Scan(...interface{}) error }) (*models.WasteRecord, error) {
	rec := &models.WasteRecord{}
	err := row.Scan(
		&rec.ID, &rec.ProjectID, &rec.Category, &rec.Score, &rec.InsufficientData,
		&rec.CostImpact, &rec.TimeImpactHours, &rec.DetectedAt, &rec.ComputedWindow, &rec.Source,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// LatestPerCategory returns the most recent record for each category of a
// project, the waste-summary view.
func (r *WasteRepository) LatestPerCategory(projectID int64) ([]models.WasteRecord, error) {
	// Most recent detected_at per category; rowid breaks same-timestamp ties
	query := `
		SELECT ` + wasteColumns + `
		FROM waste_records
		WHERE id IN (
			SELECT id FROM waste_records w
			WHERE w.project_id = ?
			  AND w.detected_at = (
				SELECT MAX(detected_at) FROM waste_records
				WHERE project_id = w.project_id AND category = w.category
			  )
		)
		AND project_id = ?
		ORDER BY category
	`

	rows, err := r.db.Query(query, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest waste records: %w", err)
	}
	defer rows.Close()

	var records []models.WasteRecord
	seen := make(map[models.WasteCategory]bool)
	for rows.Next() {
		rec, err := scanWaste(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waste record: %w", err)
		}
		if seen[rec.Category] {
			continue
		}
		seen[rec.Category] = true
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// History returns the retained records for one category in chronological
// order, for trend analysis.
func (r *WasteRepository) History(projectID int64, category models.WasteCategory, limit int) ([]models.WasteRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + wasteColumns + `
		FROM waste_records
		WHERE project_id = ? AND category = ?
		ORDER BY detected_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, projectID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query waste history: %w", err)
	}
	defer rows.Close()

	var records []models.WasteRecord
	for rows.Next() {
		rec, err := scanWaste(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waste record: %w", err)
		}
		records = append(records, *rec)
	}

	// Reverse into chronological order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, rows.Err()
}

// CountForProject returns the number of waste records for a project, used by
// scheduling tests and pruning diagnostics.
func (r *WasteRepository) CountForProject(projectID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM waste_records WHERE project_id = ?`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count waste records: %w", err)
	}
	return count, nil
}
