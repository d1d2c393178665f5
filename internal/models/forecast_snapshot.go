package models

import "time"

// RiskLevel is the categorical outcome of a forecast run.
type RiskLevel string

// Risk levels, ordered from best to worst.
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// riskOrder maps levels to a comparable rank.
var riskOrder = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether r is equal to or worse than other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskOrder[r] >= riskOrder[other]
}

// ForecastSnapshot is one append-only forecast result for a project. The
// current forecast is always the most recent snapshot.
type ForecastSnapshot struct {
	ID          int64     `json:"id" db:"id"`
	ProjectID   int64     `json:"project_id" db:"project_id"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`

	CompletionDate      time.Time `json:"completion_date" db:"completion_date"`
	CompletionLowerDate time.Time `json:"completion_lower_date" db:"completion_lower_date"`
	CompletionUpperDate time.Time `json:"completion_upper_date" db:"completion_upper_date"`

	FinalCost      float64 `json:"final_cost" db:"final_cost"`
	FinalCostLower float64 `json:"final_cost_lower" db:"final_cost_lower"`
	FinalCostUpper float64 `json:"final_cost_upper" db:"final_cost_upper"`

	RiskLevel RiskLevel `json:"risk_level" db:"risk_level"`

	// Model is the name of the forecasting variant that produced the
	// schedule projection (trend_extrapolation, sequence_model, ...).
	Model string `json:"model" db:"model"`

	// LowConfidence marks snapshots produced without enough history to be
	// meaningful. They are persisted but suppressed from user-facing alerts.
	LowConfidence bool `json:"low_confidence" db:"low_confidence"`

	// InputsHash is a deterministic digest of the exact input vector, so
	// two snapshots can be compared for "did the data change" without
	// re-running the model.
	InputsHash string `json:"inputs_hash" db:"inputs_hash"`
}

// ForecastResidual is one recorded forecast error (actual minus forecast, as
// a fraction) used by the Monte Carlo interval estimation of later runs.
type ForecastResidual struct {
	ID         int64     `json:"id" db:"id"`
	ProjectID  int64     `json:"project_id" db:"project_id"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Residual   float64   `json:"residual" db:"residual"`
}
