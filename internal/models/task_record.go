package models

import "time"

// TaskRecord represents a single schedule activity within a project.
// Records can originate locally or be merged in from the external PM system;
// when both sides have edits, the side with the newer last-modified timestamp
// wins, with the external side preferred on exact ties.
type TaskRecord struct {
	ID        int64 `json:"id" db:"id"`
	ProjectID int64 `json:"project_id" db:"project_id"`

	// ExternalID is the stable identifier in the external PM system.
	// Empty for local-only tasks. Unique within a project when set.
	ExternalID string `json:"external_id,omitempty" db:"external_id"`

	Name string `json:"name" db:"name"`

	PlannedStart time.Time  `json:"planned_start" db:"planned_start"`
	PlannedEnd   time.Time  `json:"planned_end" db:"planned_end"`
	ActualStart  *time.Time `json:"actual_start,omitempty" db:"actual_start"`
	ActualEnd    *time.Time `json:"actual_end,omitempty" db:"actual_end"`

	PercentComplete float64 `json:"percent_complete" db:"percent_complete"` // 0-100
	ResourceID      string  `json:"resource_id,omitempty" db:"resource_id"`

	// Work area coordinates on site, used for haul-distance analysis.
	// Zero values mean the task has no recorded location.
	SiteLat float64 `json:"site_lat,omitempty" db:"site_lat"`
	SiteLng float64 `json:"site_lng,omitempty" db:"site_lng"`

	// Planned and consumed effort in resource-hours
	PlannedHours float64 `json:"planned_hours" db:"planned_hours"`
	ActualHours  float64 `json:"actual_hours" db:"actual_hours"`

	LocalModifiedAt    time.Time  `json:"local_modified_at" db:"local_modified_at"`
	ExternalModifiedAt *time.Time `json:"external_modified_at,omitempty" db:"external_modified_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ResourceAssignment links a labor or equipment resource to a project for a
// utilization window. Used by the Non-utilized Talent and Overproduction
// scorers.
type ResourceAssignment struct {
	ID            int64     `json:"id" db:"id"`
	ProjectID     int64     `json:"project_id" db:"project_id"`
	ResourceID    string    `json:"resource_id" db:"resource_id"`
	ResourceName  string    `json:"resource_name" db:"resource_name"`
	SkillLevel    int       `json:"skill_level" db:"skill_level"` // 1 (laborer) .. 5 (specialist)
	RequiredSkill int       `json:"required_skill" db:"required_skill"` // skill level the assigned work demands
	AssignedHours float64   `json:"assigned_hours" db:"assigned_hours"`
	WorkedHours   float64   `json:"worked_hours" db:"worked_hours"`
	PeriodStart   time.Time `json:"period_start" db:"period_start"`
	PeriodEnd     time.Time `json:"period_end" db:"period_end"`
}

// ProgressEntry is one sample of the percent-complete-per-period time series
// consumed by the forecast engine. Appended by progress-tracking runs.
type ProgressEntry struct {
	ID              int64     `json:"id" db:"id"`
	ProjectID       int64     `json:"project_id" db:"project_id"`
	RecordedAt      time.Time `json:"recorded_at" db:"recorded_at"`
	PercentComplete float64   `json:"percent_complete" db:"percent_complete"`
	ActualCost      float64   `json:"actual_cost" db:"actual_cost"`
	EarnedValue     float64   `json:"earned_value" db:"earned_value"`
}
