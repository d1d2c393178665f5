package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered schema history. Append only; never edit an
// applied version.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_projects",
		SQL: `
			CREATE TABLE IF NOT EXISTS projects (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				external_id TEXT NOT NULL DEFAULT '',
				budget REAL NOT NULL DEFAULT 0,
				planned_start TIMESTAMP NOT NULL,
				planned_end TIMESTAMP NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				archived INTEGER NOT NULL DEFAULT 0,
				spi REAL NOT NULL DEFAULT 1.0,
				cpi REAL NOT NULL DEFAULT 1.0,
				actual_cost REAL NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version: 2,
		Name:    "create_task_records",
		SQL: `
			CREATE TABLE IF NOT EXISTS task_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL REFERENCES projects(id),
				external_id TEXT,
				name TEXT NOT NULL,
				planned_start TIMESTAMP NOT NULL,
				planned_end TIMESTAMP NOT NULL,
				actual_start TIMESTAMP,
				actual_end TIMESTAMP,
				percent_complete REAL NOT NULL DEFAULT 0,
				resource_id TEXT NOT NULL DEFAULT '',
				site_lat REAL NOT NULL DEFAULT 0,
				site_lng REAL NOT NULL DEFAULT 0,
				planned_hours REAL NOT NULL DEFAULT 0,
				actual_hours REAL NOT NULL DEFAULT 0,
				local_modified_at TIMESTAMP NOT NULL,
				external_modified_at TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_task_external
				ON task_records(project_id, external_id)
				WHERE external_id IS NOT NULL;
			CREATE INDEX IF NOT EXISTS idx_task_project ON task_records(project_id);
		`,
	},
	{
		Version: 3,
		Name:    "create_waste_records",
		SQL: `
			CREATE TABLE IF NOT EXISTS waste_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL REFERENCES projects(id),
				category TEXT NOT NULL,
				score REAL NOT NULL,
				insufficient_data INTEGER NOT NULL DEFAULT 0,
				cost_impact REAL NOT NULL DEFAULT 0,
				time_impact_hours REAL NOT NULL DEFAULT 0,
				detected_at TIMESTAMP NOT NULL,
				computed_window TIMESTAMP NOT NULL,
				source TEXT NOT NULL DEFAULT 'computed'
			);
			CREATE INDEX IF NOT EXISTS idx_waste_project_cat
				ON waste_records(project_id, category, detected_at);
		`,
	},
	{
		Version: 4,
		Name:    "create_forecast_snapshots",
		SQL: `
			CREATE TABLE IF NOT EXISTS forecast_snapshots (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL REFERENCES projects(id),
				generated_at TIMESTAMP NOT NULL,
				completion_date TIMESTAMP NOT NULL,
				completion_lower_date TIMESTAMP NOT NULL,
				completion_upper_date TIMESTAMP NOT NULL,
				final_cost REAL NOT NULL,
				final_cost_lower REAL NOT NULL,
				final_cost_upper REAL NOT NULL,
				risk_level TEXT NOT NULL,
				model TEXT NOT NULL,
				low_confidence INTEGER NOT NULL DEFAULT 0,
				inputs_hash TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_forecast_project
				ON forecast_snapshots(project_id, generated_at);

			CREATE TABLE IF NOT EXISTS forecast_residuals (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL REFERENCES projects(id),
				recorded_at TIMESTAMP NOT NULL,
				residual REAL NOT NULL
			);
		`,
	},
	{
		Version: 5,
		Name:    "create_job_runs",
		SQL: `
			CREATE TABLE IF NOT EXISTS job_runs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL,
				job_type TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'PENDING',
				failure_reason TEXT NOT NULL DEFAULT '',
				attempt INTEGER NOT NULL DEFAULT 1,
				scheduled_at TIMESTAMP NOT NULL,
				started_at TIMESTAMP,
				finished_at TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_job_runs_pair
				ON job_runs(project_id, job_type, status);
		`,
	},
	{
		Version: 6,
		Name:    "create_resource_assignments",
		SQL: `
			CREATE TABLE IF NOT EXISTS resource_assignments (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL REFERENCES projects(id),
				resource_id TEXT NOT NULL,
				resource_name TEXT NOT NULL DEFAULT '',
				skill_level INTEGER NOT NULL DEFAULT 1,
				required_skill INTEGER NOT NULL DEFAULT 1,
				assigned_hours REAL NOT NULL DEFAULT 0,
				worked_hours REAL NOT NULL DEFAULT 0,
				period_start TIMESTAMP NOT NULL,
				period_end TIMESTAMP NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_assignments_project
				ON resource_assignments(project_id);
		`,
	},
	{
		Version: 7,
		Name:    "create_progress_entries",
		SQL: `
			CREATE TABLE IF NOT EXISTS progress_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL REFERENCES projects(id),
				recorded_at TIMESTAMP NOT NULL,
				percent_complete REAL NOT NULL,
				actual_cost REAL NOT NULL DEFAULT 0,
				earned_value REAL NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_progress_project
				ON progress_entries(project_id, recorded_at);
		`,
	},
}

// Migrate applies all pending migrations in version order.
func Migrate(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("failed to apply migration %d_%s: %w", m.Version, m.Name, err)
		}
		log.Printf("Applied migration %d_%s", m.Version, m.Name)
	}

	return nil
}

func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func applyMigration(db *sql.DB, m Migration) error {
	return Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(m.SQL); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name)
		return err
	})
}
