// Package alert turns classifier and forecast outputs into structured alerts
// and digest reports for the notification collaborator. Delivery is
// fire-and-forget; the collaborator owns the guarantees.
package alert

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/waste"
)

// Notifier delivers one alert. Implementations must not block the caller
// beyond trivial handoff.
type Notifier interface {
	Emit(alert models.Alert)
}

// LogNotifier writes alerts to the process log. The default sink when no
// notification collaborator is wired in.
type LogNotifier struct{}

// Emit logs the alert
func (LogNotifier) Emit(a models.Alert) {
	log.Printf("[Alert] severity=%s project=%d category=%s %s", a.Severity, a.ProjectID, a.Category, a.Message)
}

// Waste scores at or above this raise a warning alert.
const wasteAlertThreshold = 0.7

// Emitter builds alerts and digests from run outputs.
type Emitter struct {
	notifier Notifier
}

// NewEmitter creates an emitter over the given notifier.
func NewEmitter(n Notifier) *Emitter {
	if n == nil {
		n = LogNotifier{}
	}
	return &Emitter{notifier: n}
}

func newAlert(projectID int64, severity, category, message string) models.Alert {
	return models.Alert{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Severity:  severity,
		Category:  category,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// EmitWasteAlerts raises a warning for every category scoring above the
// threshold. Insufficient-data records never alert.
func (e *Emitter) EmitWasteAlerts(project *models.Project, records []models.WasteRecord) {
	for _, rec := range records {
		if rec.InsufficientData || rec.Score < wasteAlertThreshold {
			continue
		}
		e.notifier.Emit(newAlert(project.ID, models.SeverityWarning, string(rec.Category),
			fmt.Sprintf("%s waste score %.2f on %s, estimated impact %.0f", rec.Category, rec.Score, project.Name, rec.CostImpact)))
	}
}

// EmitForecastAlert raises an alert when the forecast risk is HIGH or worse,
// escalating to CRITICAL severity at CRITICAL risk. Low-confidence snapshots
// are suppressed from user-facing alerts.
func (e *Emitter) EmitForecastAlert(project *models.Project, s *models.ForecastSnapshot) {
	if s.LowConfidence || !s.RiskLevel.AtLeast(models.RiskHigh) {
		return
	}

	severity := models.SeverityWarning
	if s.RiskLevel == models.RiskCritical {
		severity = models.SeverityCritical
	}

	e.notifier.Emit(newAlert(project.ID, severity, "forecast",
		fmt.Sprintf("forecast risk %s for %s: completion %s, final cost %.0f",
			s.RiskLevel, project.Name, s.CompletionDate.Format("2006-01-02"), s.FinalCost)))
}

// EmitRunFailure reports a terminally failed job run.
func (e *Emitter) EmitRunFailure(projectID int64, jobType models.JobType, reason string) {
	e.notifier.Emit(newAlert(projectID, models.SeverityWarning, "scheduler",
		fmt.Sprintf("%s run failed terminally: %s", jobType, reason)))
}

// EmitInvariantViolation reports a broken at-most-one-run guarantee. This is
// the only error class that escalates past the job boundary; it means a bug
// in the mutual-exclusion mechanism, not a runtime condition.
func (e *Emitter) EmitInvariantViolation(projectID int64, jobType models.JobType, running int) {
	e.notifier.Emit(newAlert(projectID, models.SeverityCritical, "scheduler",
		fmt.Sprintf("invariant violation: %d RUNNING rows for %s", running, jobType)))
}

// BuildDigest assembles the periodic digest report for a strategic-analysis
// run: overall health, forecast summary and the top-3 priority actions.
func (e *Emitter) BuildDigest(project *models.Project, records []models.WasteRecord, snapshot *models.ForecastSnapshot, percentComplete float64) *models.DigestReport {
	digest := &models.DigestReport{
		ProjectID:       project.ID,
		ProjectName:     project.Name,
		GeneratedAt:     time.Now().UTC(),
		PercentComplete: percentComplete,
		PriorityActions: waste.Rank(records, 3),
	}

	if snapshot != nil {
		digest.RiskLevel = snapshot.RiskLevel
		digest.ForecastCost = snapshot.FinalCost
		digest.CompletionDate = snapshot.CompletionDate
	}

	return digest
}

// EmitDigest sends the digest as an informational alert.
func (e *Emitter) EmitDigest(d *models.DigestReport) {
	msg := fmt.Sprintf("weekly digest for %s: %.1f%% complete, risk %s", d.ProjectName, d.PercentComplete, d.RiskLevel)
	for i, a := range d.PriorityActions {
		msg += fmt.Sprintf("; priority %d: %s (%.2f)", i+1, a.Category, a.Score)
	}
	e.notifier.Emit(newAlert(d.ProjectID, models.SeverityInfo, "digest", msg))
}
