package models

import "time"

// Project represents a monitored construction project. It is the aggregate
// root: task records, waste records and forecast snapshots belong to a
// project and follow it into the archive.
type Project struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	ExternalID string `json:"external_id,omitempty" db:"external_id"` // ID in the external PM system

	// Baseline plan
	Budget       float64   `json:"budget" db:"budget"`
	PlannedStart time.Time `json:"planned_start" db:"planned_start"`
	PlannedEnd   time.Time `json:"planned_end" db:"planned_end"`

	Status   string `json:"status" db:"status"` // active, on_hold, completed
	Archived bool   `json:"archived" db:"archived"`

	// Derived performance indices, refreshed by progress-tracking runs
	SPI float64 `json:"spi" db:"spi"` // schedule performance index
	CPI float64 `json:"cpi" db:"cpi"` // cost performance index

	// Cost actuals
	ActualCost float64 `json:"actual_cost" db:"actual_cost"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Project status constants
const (
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
)

// PlannedDurationHours returns the planned project duration in hours.
func (p *Project) PlannedDurationHours() float64 {
	d := p.PlannedEnd.Sub(p.PlannedStart)
	if d <= 0 {
		return 0
	}
	return d.Hours()
}
