// Package waste implements the lean-construction waste classifier. Each of
// the 8 DOWNTIME categories has an independent scoring function over the
// project snapshot; raw statistics are squashed into [0,1] so categories can
// be ranked against each other.
package waste

import (
	"sort"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/stats"
)

// Window is the recomputation window: at most one computed record exists per
// (project, category, window).
const Window = time.Hour

// scorer computes the raw statistic for one category. ok=false means the
// snapshot lacks the inputs this category needs; the caller then emits a
// zero score with the insufficient-data flag instead of a fabricated number.
type scorer func(snap *models.Snapshot, now time.Time) (raw float64, ok bool)

// scale is the raw value at which the logistic squash outputs roughly 0.46.
type categorySpec struct {
	score scorer
	scale float64
}

var specs = map[models.WasteCategory]categorySpec{
	models.WasteDefects:           {scoreDefects, 0.3},
	models.WasteOverproduction:    {scoreOverproduction, 0.25},
	models.WasteWaiting:           {scoreWaiting, 48},
	models.WasteNonUtilizedTalent: {scoreNonUtilizedTalent, 0.3},
	models.WasteTransportation:    {scoreTransportation, 2000},
	models.WasteInventory:         {scoreInventory, 0.3},
	models.WasteMotion:            {scoreMotion, 3},
	models.WasteExtraProcessing:   {scoreExtraProcessing, 0.4},
}

// Classifier scores project snapshots. It is stateless; classification is a
// pure function of the snapshot, so identical snapshots yield identical
// scores.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify scores every category for the snapshot. The returned records carry
// detected-at = now and the truncated computation window; persistence applies
// the supersession rule.
func (c *Classifier) Classify(snap *models.Snapshot, now time.Time) []models.WasteRecord {
	window := now.UTC().Truncate(Window)

	records := make([]models.WasteRecord, 0, len(models.AllWasteCategories))
	for _, category := range models.AllWasteCategories {
		spec := specs[category]

		rec := models.WasteRecord{
			ProjectID:      snap.Project.ID,
			Category:       category,
			DetectedAt:     now.UTC(),
			ComputedWindow: window,
			Source:         models.WasteSourceComputed,
		}

		raw, ok := spec.score(snap, now)
		if !ok {
			rec.InsufficientData = true
			records = append(records, rec)
			continue
		}

		rec.Score = stats.Clamp(stats.Logistic(raw, spec.scale), 0, 1)
		rec.CostImpact = rec.Score * costImpactFactor(category, snap.Project)
		rec.TimeImpactHours = rec.Score * timeImpactFactor(category, snap.Project)
		records = append(records, rec)
	}

	return records
}

// Rank sorts records by score times cost impact, descending, and returns the
// top n as priority actions. Insufficient-data records never rank.
func Rank(records []models.WasteRecord, n int) []models.PriorityAction {
	ranked := make([]models.WasteRecord, 0, len(records))
	for _, rec := range records {
		if rec.InsufficientData {
			continue
		}
		ranked = append(ranked, rec)
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Score*ranked[i].CostImpact > ranked[j].Score*ranked[j].CostImpact
	})

	if n > len(ranked) {
		n = len(ranked)
	}

	actions := make([]models.PriorityAction, 0, n)
	for _, rec := range ranked[:n] {
		actions = append(actions, models.PriorityAction{
			Category:   rec.Category,
			Score:      rec.Score,
			CostImpact: rec.CostImpact,
		})
	}
	return actions
}
