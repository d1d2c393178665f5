package models

import "time"

// Alert severity constants
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Alert is a structured notification handed to the notification collaborator.
// Delivery is fire-and-forget from this core's perspective.
type Alert struct {
	ID        string    `json:"id"`
	ProjectID int64     `json:"project_id"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category"` // waste category, "forecast", "scheduler"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// DigestReport is the periodic roll-up produced by strategic-analysis runs.
type DigestReport struct {
	ProjectID       int64            `json:"project_id"`
	ProjectName     string           `json:"project_name"`
	GeneratedAt     time.Time        `json:"generated_at"`
	PercentComplete float64          `json:"percent_complete"`
	RiskLevel       RiskLevel        `json:"risk_level"`
	ForecastCost    float64          `json:"forecast_cost"`
	CompletionDate  time.Time        `json:"completion_date"`
	PriorityActions []PriorityAction `json:"priority_actions"`
}

// PriorityAction is one of the top-ranked waste categories in a digest,
// ordered by score times cost impact.
type PriorityAction struct {
	Category   WasteCategory `json:"category"`
	Score      float64       `json:"score"`
	CostImpact float64       `json:"cost_impact"`
}
