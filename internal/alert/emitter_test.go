package alert

import (
	"testing"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// captureNotifier records every emitted alert.
type captureNotifier struct {
	alerts []models.Alert
}

func (c *captureNotifier) Emit(a models.Alert) {
	c.alerts = append(c.alerts, a)
}

func testAlertProject() *models.Project {
	return &models.Project{ID: 1, Name: "harbor terminal", Budget: 500_000}
}

func TestEmitWasteAlertsThreshold(t *testing.T) {
	sink := &captureNotifier{}
	e := NewEmitter(sink)

	records := []models.WasteRecord{
		{Category: models.WasteDefects, Score: 0.9, CostImpact: 20_000},
		{Category: models.WasteWaiting, Score: 0.4},
		{Category: models.WasteMotion, Score: 0.95, InsufficientData: true},
	}
	e.EmitWasteAlerts(testAlertProject(), records)

	if len(sink.alerts) != 1 {
		t.Fatalf("alerts = %d, want only the high-scoring category", len(sink.alerts))
	}
	if sink.alerts[0].Category != string(models.WasteDefects) {
		t.Errorf("alert category = %s, want defects", sink.alerts[0].Category)
	}
	if sink.alerts[0].Severity != models.SeverityWarning {
		t.Errorf("severity = %s, want WARNING", sink.alerts[0].Severity)
	}
}

func TestEmitForecastAlertRiskGate(t *testing.T) {
	cases := []struct {
		name          string
		risk          models.RiskLevel
		lowConfidence bool
		wantAlerts    int
		wantSeverity  string
	}{
		{"low risk silent", models.RiskLow, false, 0, ""},
		{"medium risk silent", models.RiskMedium, false, 0, ""},
		{"high risk warns", models.RiskHigh, false, 1, models.SeverityWarning},
		{"critical escalates", models.RiskCritical, false, 1, models.SeverityCritical},
		{"low confidence suppressed", models.RiskCritical, true, 0, ""},
	}

	for _, tc := range cases {
		sink := &captureNotifier{}
		e := NewEmitter(sink)

		e.EmitForecastAlert(testAlertProject(), &models.ForecastSnapshot{
			RiskLevel:     tc.risk,
			LowConfidence: tc.lowConfidence,
		})

		if len(sink.alerts) != tc.wantAlerts {
			t.Errorf("%s: alerts = %d, want %d", tc.name, len(sink.alerts), tc.wantAlerts)
			continue
		}
		if tc.wantAlerts == 1 && sink.alerts[0].Severity != tc.wantSeverity {
			t.Errorf("%s: severity = %s, want %s", tc.name, sink.alerts[0].Severity, tc.wantSeverity)
		}
	}
}

func TestEmitInvariantViolationIsCritical(t *testing.T) {
	sink := &captureNotifier{}
	e := NewEmitter(sink)

	e.EmitInvariantViolation(1, models.JobWasteDetection, 2)

	if len(sink.alerts) != 1 || sink.alerts[0].Severity != models.SeverityCritical {
		t.Fatalf("invariant violation must emit one CRITICAL alert, got %v", sink.alerts)
	}
}

func TestBuildDigestTopThree(t *testing.T) {
	e := NewEmitter(&captureNotifier{})

	records := []models.WasteRecord{
		{Category: models.WasteDefects, Score: 0.9, CostImpact: 10_000},
		{Category: models.WasteWaiting, Score: 0.8, CostImpact: 5_000},
		{Category: models.WasteMotion, Score: 0.7, CostImpact: 1_000},
		{Category: models.WasteInventory, Score: 0.6, CostImpact: 500},
		{Category: models.WasteOverproduction, Score: 0.99, InsufficientData: true},
	}

	digest := e.BuildDigest(testAlertProject(), records, &models.ForecastSnapshot{
		RiskLevel: models.RiskMedium,
		FinalCost: 520_000,
	}, 42.5)

	if len(digest.PriorityActions) != 3 {
		t.Fatalf("priority actions = %d, want top 3", len(digest.PriorityActions))
	}
	if digest.PriorityActions[0].Category != models.WasteDefects {
		t.Errorf("top action = %s, want defects (highest score x impact)", digest.PriorityActions[0].Category)
	}
	if digest.RiskLevel != models.RiskMedium || digest.ForecastCost != 520_000 {
		t.Error("digest should carry the forecast summary")
	}
	if digest.PercentComplete != 42.5 {
		t.Errorf("percent complete = %f, want 42.5", digest.PercentComplete)
	}
}

func TestEmitDigestIsInfo(t *testing.T) {
	sink := &captureNotifier{}
	e := NewEmitter(sink)

	e.EmitDigest(&models.DigestReport{ProjectID: 1, ProjectName: "harbor terminal"})

	if len(sink.alerts) != 1 || sink.alerts[0].Severity != models.SeverityInfo {
		t.Fatalf("digest must emit one INFO alert, got %v", sink.alerts)
	}
}
