package models

import "time"

// WasteCategory is one of the 8 lean-construction waste categories (DOWNTIME).
type WasteCategory string

// The fixed waste categories. Order matters only for display.
const (
	WasteDefects           WasteCategory = "defects"
	WasteOverproduction    WasteCategory = "overproduction"
	WasteWaiting           WasteCategory = "waiting"
	WasteNonUtilizedTalent WasteCategory = "non_utilized_talent"
	WasteTransportation    WasteCategory = "transportation"
	WasteInventory         WasteCategory = "inventory"
	WasteMotion            WasteCategory = "motion"
	WasteExtraProcessing   WasteCategory = "extra_processing"
)

// AllWasteCategories lists every category a classification run scores.
var AllWasteCategories = []WasteCategory{
	WasteDefects,
	WasteOverproduction,
	WasteWaiting,
	WasteNonUtilizedTalent,
	WasteTransportation,
	WasteInventory,
	WasteMotion,
	WasteExtraProcessing,
}

// WasteRecord source constants
const (
	WasteSourceComputed = "computed"
	WasteSourceManual   = "manual"
)

// WasteRecord is one scored waste observation for a project. Computed records
// are immutable; recomputation for the same window supersedes the prior
// record instead of mutating it.
type WasteRecord struct {
	ID        int64         `json:"id" db:"id"`
	ProjectID int64         `json:"project_id" db:"project_id"`
	Category  WasteCategory `json:"category" db:"category"`

	// Score is normalized to [0,1] so categories are comparable for ranking.
	Score float64 `json:"score" db:"score"`

	// InsufficientData marks a score of 0 that means "could not measure",
	// not "no waste". Callers must check it before treating 0 as clean.
	InsufficientData bool `json:"insufficient_data" db:"insufficient_data"`

	CostImpact      float64 `json:"cost_impact" db:"cost_impact"`             // estimated currency impact
	TimeImpactHours float64 `json:"time_impact_hours" db:"time_impact_hours"` // estimated schedule impact

	DetectedAt time.Time `json:"detected_at" db:"detected_at"`

	// ComputedWindow is DetectedAt truncated to the computation window.
	// At most one computed record exists per (project, category, window).
	ComputedWindow time.Time `json:"computed_window" db:"computed_window"`

	Source string `json:"source" db:"source"` // computed, manual
}
