package waste

import (
	"testing"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testProject() *models.Project {
	return &models.Project{
		ID:           1,
		Name:         "Riverside Tower",
		Budget:       2_000_000,
		PlannedStart: testNow.AddDate(0, -3, 0),
		PlannedEnd:   testNow.AddDate(0, 3, 0),
	}
}

func timePtr(t time.Time) *time.Time { return &t }

// testSnapshot builds a snapshot with enough signal in every category to
// produce a non-trivial score.
func testSnapshot() *models.Snapshot {
	p := testProject()
	start := p.PlannedStart

	tasks := []models.TaskRecord{
		{
			// Completed with heavy hour overrun: defects / extra processing
			ProjectID: 1, Name: "Foundations",
			PlannedStart: start, PlannedEnd: start.AddDate(0, 1, 0),
			ActualStart:  timePtr(start.Add(36 * time.Hour)), // waited 36h
			ActualEnd:    timePtr(start.AddDate(0, 1, 5)),
			PercentComplete: 100, PlannedHours: 400, ActualHours: 560,
			ResourceID: "crew-a", SiteLat: 40.7128, SiteLng: -74.0060,
		},
		{
			// Started long ago, barely moving: inventory
			ProjectID: 1, Name: "Steel frame",
			PlannedStart: start.AddDate(0, 1, 0), PlannedEnd: start.AddDate(0, 2, 0),
			ActualStart:  timePtr(start.AddDate(0, 1, 2)),
			PercentComplete: 20, PlannedHours: 600, ActualHours: 300,
			ResourceID: "crew-a", SiteLat: 40.7130, SiteLng: -74.0062, // ~30m away: motion
		},
		{
			// Far ahead of schedule with heavy burn: overproduction
			ProjectID: 1, Name: "Facade panels",
			PlannedStart: start.AddDate(0, 2, 0), PlannedEnd: p.PlannedEnd,
			ActualStart:  timePtr(start.AddDate(0, 2, 1)),
			PercentComplete: 80, PlannedHours: 500, ActualHours: 520,
			ResourceID: "crew-a", SiteLat: 40.7300, SiteLng: -74.0500, // km away: transportation
		},
	}

	assignments := []models.ResourceAssignment{
		{
			ProjectID: 1, ResourceID: "crew-a", ResourceName: "Crew A",
			SkillLevel: 4, RequiredSkill: 2, // overqualified
			AssignedHours: 160, WorkedHours: 100, // idle capacity
			PeriodStart: start, PeriodEnd: testNow,
		},
	}

	return &models.Snapshot{
		Project:     p,
		Tasks:       tasks,
		Assignments: assignments,
		TakenAt:     testNow,
	}
}

func TestClassifyScoresBounded(t *testing.T) {
	records := NewClassifier().Classify(testSnapshot(), testNow)

	if len(records) != len(models.AllWasteCategories) {
		t.Fatalf("got %d records, want %d", len(records), len(models.AllWasteCategories))
	}

	for _, rec := range records {
		if rec.Score < 0 || rec.Score > 1 {
			t.Errorf("%s score %f out of [0,1]", rec.Category, rec.Score)
		}
		if rec.CostImpact < 0 || rec.TimeImpactHours < 0 {
			t.Errorf("%s has negative impact", rec.Category)
		}
		if rec.Source != models.WasteSourceComputed {
			t.Errorf("%s source = %q", rec.Category, rec.Source)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier()
	a := c.Classify(testSnapshot(), testNow)
	b := c.Classify(testSnapshot(), testNow)

	for i := range a {
		if a[i].Score != b[i].Score || a[i].CostImpact != b[i].CostImpact {
			t.Errorf("%s: classification not deterministic (%f vs %f)", a[i].Category, a[i].Score, b[i].Score)
		}
	}
}

func TestClassifyNoAssignments(t *testing.T) {
	snap := testSnapshot()
	snap.Assignments = nil

	records := NewClassifier().Classify(snap, testNow)

	var talent *models.WasteRecord
	for i := range records {
		if records[i].Category == models.WasteNonUtilizedTalent {
			talent = &records[i]
		}
	}
	if talent == nil {
		t.Fatal("non_utilized_talent record missing")
	}
	if !talent.InsufficientData {
		t.Error("expected insufficient_data flag with no assignment records")
	}
	if talent.Score != 0 {
		t.Errorf("insufficient-data score = %f, want 0", talent.Score)
	}
}

func TestClassifyEmptySnapshot(t *testing.T) {
	snap := &models.Snapshot{Project: testProject(), TakenAt: testNow}
	records := NewClassifier().Classify(snap, testNow)

	for _, rec := range records {
		if !rec.InsufficientData {
			t.Errorf("%s: empty snapshot should flag insufficient data", rec.Category)
		}
		if rec.Score != 0 {
			t.Errorf("%s: empty snapshot score = %f, want 0", rec.Category, rec.Score)
		}
	}
}

func TestClassifyWindowTruncation(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 47, 33, 0, time.UTC)
	records := NewClassifier().Classify(testSnapshot(), now)

	want := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	for _, rec := range records {
		if !rec.ComputedWindow.Equal(want) {
			t.Errorf("%s window = %v, want %v", rec.Category, rec.ComputedWindow, want)
		}
	}
}

func TestRank(t *testing.T) {
	records := []models.WasteRecord{
		{Category: models.WasteDefects, Score: 0.9, CostImpact: 100_000},
		{Category: models.WasteWaiting, Score: 0.8, CostImpact: 50_000},
		{Category: models.WasteMotion, Score: 0.95, CostImpact: 10_000},
		{Category: models.WasteInventory, Score: 0.5, CostImpact: 200_000},
		{Category: models.WasteNonUtilizedTalent, Score: 0, InsufficientData: true, CostImpact: 0},
	}

	actions := Rank(records, 3)
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3", len(actions))
	}

	// score*cost: inventory 100k, defects 90k, waiting 40k, motion 9.5k
	want := []models.WasteCategory{models.WasteInventory, models.WasteDefects, models.WasteWaiting}
	for i, a := range actions {
		if a.Category != want[i] {
			t.Errorf("rank %d = %s, want %s", i, a.Category, want[i])
		}
	}
}

func TestRankExcludesInsufficientData(t *testing.T) {
	records := []models.WasteRecord{
		{Category: models.WasteNonUtilizedTalent, Score: 0, InsufficientData: true},
	}
	if actions := Rank(records, 3); len(actions) != 0 {
		t.Errorf("insufficient-data records should not rank, got %d", len(actions))
	}
}

func TestImpactScalesWithProjectSize(t *testing.T) {
	small := testSnapshot()
	small.Project.Budget = 100_000

	large := testSnapshot()
	large.Project.Budget = 10_000_000

	c := NewClassifier()
	smallRecs := c.Classify(small, testNow)
	largeRecs := c.Classify(large, testNow)

	for i := range smallRecs {
		if smallRecs[i].InsufficientData {
			continue
		}
		if smallRecs[i].Score != largeRecs[i].Score {
			t.Errorf("%s: score should not depend on budget", smallRecs[i].Category)
		}
		if smallRecs[i].Score > 0 && largeRecs[i].CostImpact <= smallRecs[i].CostImpact {
			t.Errorf("%s: larger project should have larger cost impact", smallRecs[i].Category)
		}
	}
}
