package pmsync

import (
	"testing"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

var resolveNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func localTask(localMod time.Time, externalMod *time.Time) *models.TaskRecord {
	return &models.TaskRecord{
		ID:                 1,
		ProjectID:          1,
		ExternalID:         "ext-1",
		Name:               "local name",
		LocalModifiedAt:    localMod,
		ExternalModifiedAt: externalMod,
	}
}

func TestResolveTaskCreate(t *testing.T) {
	ext := ExternalRecord{ExternalID: "ext-1", ModifiedAt: resolveNow}
	if got := ResolveTask(nil, ext); got != ActionCreate {
		t.Errorf("resolve(nil) = %v, want create", got)
	}
}

func TestResolveTaskExternalNewer(t *testing.T) {
	applied := resolveNow.Add(-2 * time.Hour)
	local := localTask(resolveNow.Add(-2*time.Hour), &applied)
	ext := ExternalRecord{ExternalID: "ext-1", ModifiedAt: resolveNow.Add(-time.Hour)}

	if got := ResolveTask(local, ext); got != ActionUpdate {
		t.Errorf("newer external = %v, want update", got)
	}
}

func TestResolveTaskLocalNewer(t *testing.T) {
	applied := resolveNow.Add(-3 * time.Hour)
	local := localTask(resolveNow.Add(-time.Hour), &applied)
	ext := ExternalRecord{ExternalID: "ext-1", ModifiedAt: resolveNow.Add(-2 * time.Hour)}

	if got := ResolveTask(local, ext); got != ActionConflict {
		t.Errorf("newer local = %v, want conflict", got)
	}
}

func TestResolveTaskTieExternalWins(t *testing.T) {
	// Identical timestamps: external side wins, but only if this exact
	// version has not already been applied.
	tie := resolveNow.Add(-time.Hour)
	local := localTask(tie, nil)
	ext := ExternalRecord{ExternalID: "ext-1", ModifiedAt: tie}

	if got := ResolveTask(local, ext); got != ActionUpdate {
		t.Errorf("tie = %v, want update (external wins)", got)
	}
}

func TestResolveTaskIdempotent(t *testing.T) {
	// The external version was already applied: re-running the same batch
	// must not produce a second update.
	ext := ExternalRecord{ExternalID: "ext-1", ModifiedAt: resolveNow.Add(-time.Hour)}

	local := localTask(resolveNow.Add(-time.Hour), nil)
	if got := ResolveTask(local, ext); got != ActionUpdate {
		t.Fatalf("first pass = %v, want update", got)
	}

	applyExternal(local, ext)
	if got := ResolveTask(local, ext); got != ActionSkip {
		t.Errorf("second pass = %v, want skip", got)
	}
}

func TestResolveTaskDeterministic(t *testing.T) {
	applied := resolveNow.Add(-2 * time.Hour)
	local := localTask(resolveNow.Add(-time.Hour), &applied)
	ext := ExternalRecord{ExternalID: "ext-1", ModifiedAt: resolveNow.Add(-90 * time.Minute)}

	first := ResolveTask(local, ext)
	for i := 0; i < 10; i++ {
		if got := ResolveTask(local, ext); got != first {
			t.Fatalf("resolution changed between identical calls: %v then %v", first, got)
		}
	}
}

func TestApplyExternalStampsVersions(t *testing.T) {
	modified := resolveNow.Add(-time.Hour)
	start := resolveNow.Add(-48 * time.Hour)
	ext := ExternalRecord{
		ExternalID:      "ext-1",
		Name:            "pour foundation",
		PlannedStart:    start,
		PlannedEnd:      start.Add(72 * time.Hour),
		ActualStart:     &start,
		PercentComplete: 40,
		ResourceID:      "crew-a",
		PlannedHours:    60,
		ActualHours:     30,
		ModifiedAt:      modified,
	}

	local := localTask(resolveNow.Add(-2*time.Hour), nil)
	applyExternal(local, ext)

	if local.Name != "pour foundation" || local.PercentComplete != 40 {
		t.Error("external fields were not copied")
	}
	if local.ExternalModifiedAt == nil || !local.ExternalModifiedAt.Equal(modified) {
		t.Error("external modified stamp not recorded")
	}
	if !local.LocalModifiedAt.Equal(modified) {
		t.Error("local modified stamp should match the applied external version")
	}
	if local.ActualStart == ext.ActualStart {
		t.Error("actual start should be copied, not aliased")
	}
}
