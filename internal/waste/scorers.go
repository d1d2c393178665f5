package waste

import (
	"time"

	"github.com/golang/geo/s2"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

const earthRadiusMeters = 6371000.0

// Distances below this are crew movement within a work area (Motion);
// above it, material hauling between areas (Transportation).
const motionDistanceCutoffMeters = 150.0

// scoreDefects measures rework: completed tasks whose consumed hours overran
// the plan. Raw statistic is the mean overrun fraction across completed tasks.
func scoreDefects(snap *models.Snapshot, _ time.Time) (float64, bool) {
	var overruns []float64
	for _, t := range snap.Tasks {
		if t.PercentComplete < 100 || t.PlannedHours <= 0 {
			continue
		}
		overrun := (t.ActualHours - t.PlannedHours) / t.PlannedHours
		if overrun < 0 {
			overrun = 0
		}
		overruns = append(overruns, overrun)
	}

	if len(overruns) == 0 {
		return 0, false
	}
	return mean(overruns), true
}

// scoreOverproduction measures work done ahead of schedule relative to the
// resource-hours burned for it. Producing ahead of need ties up cash and
// space even though progress looks good.
func scoreOverproduction(snap *models.Snapshot, now time.Time) (float64, bool) {
	var ahead []float64
	for _, t := range snap.Tasks {
		expected := expectedCompletionFraction(t, now)
		if expected < 0 {
			continue
		}
		actual := t.PercentComplete / 100.0
		excess := actual - expected
		if excess <= 0 {
			continue
		}
		// Weight by consumed effort: running ahead with heavy resource burn
		// is worse than coasting ahead.
		weight := 1.0
		if t.PlannedHours > 0 && t.ActualHours > t.PlannedHours*actual {
			weight = t.ActualHours / (t.PlannedHours * actual)
		}
		ahead = append(ahead, excess*weight)
	}

	if len(snap.Tasks) == 0 {
		return 0, false
	}
	if len(ahead) == 0 {
		return 0, true
	}

	var sum float64
	for _, v := range ahead {
		sum += v
	}
	return sum / float64(len(snap.Tasks)), true
}

// scoreWaiting measures idle gaps between planned and actual starts. Raw
// statistic is the mean start delay in hours across started tasks.
func scoreWaiting(snap *models.Snapshot, _ time.Time) (float64, bool) {
	var delays []float64
	for _, t := range snap.Tasks {
		if t.ActualStart == nil {
			continue
		}
		delay := t.ActualStart.Sub(t.PlannedStart).Hours()
		if delay < 0 {
			delay = 0
		}
		delays = append(delays, delay)
	}

	if len(delays) == 0 {
		return 0, false
	}
	return mean(delays), true
}

// scoreNonUtilizedTalent measures skill mismatch and idle capacity across
// resource assignments. Requires assignment records; without them the
// category reports insufficient data rather than a fabricated zero.
func scoreNonUtilizedTalent(snap *models.Snapshot, _ time.Time) (float64, bool) {
	if len(snap.Assignments) == 0 {
		return 0, false
	}

	var total float64
	for _, a := range snap.Assignments {
		var waste float64

		// Overqualification: a specialist on laborer work
		if a.RequiredSkill > 0 && a.SkillLevel > a.RequiredSkill {
			waste += float64(a.SkillLevel-a.RequiredSkill) / 4.0
		}

		// Idle capacity within the assignment window
		if a.AssignedHours > 0 && a.WorkedHours < a.AssignedHours {
			waste += (a.AssignedHours - a.WorkedHours) / a.AssignedHours
		}

		total += waste
	}

	return total / float64(len(snap.Assignments)), true
}

// scoreTransportation measures long-haul material movement: the summed
// distance between consecutive work areas for each resource, counting only
// legs above the motion cutoff. Raw statistic is meters per resource.
func scoreTransportation(snap *models.Snapshot, _ time.Time) (float64, bool) {
	legs := resourceLegs(snap.Tasks)
	if len(legs) == 0 {
		return 0, false
	}

	var total float64
	resources := make(map[string]bool)
	for _, leg := range legs {
		resources[leg.resourceID] = true
		if leg.meters >= motionDistanceCutoffMeters {
			total += leg.meters
		}
	}

	return total / float64(len(resources)), true
}

// scoreMotion measures short crew relocations within the site: the count of
// sub-cutoff moves per resource. Frequent shuffling between nearby work areas
// is lost time even when each move is short.
func scoreMotion(snap *models.Snapshot, _ time.Time) (float64, bool) {
	legs := resourceLegs(snap.Tasks)
	if len(legs) == 0 {
		return 0, false
	}

	moves := 0
	resources := make(map[string]bool)
	for _, leg := range legs {
		resources[leg.resourceID] = true
		if leg.meters > 0 && leg.meters < motionDistanceCutoffMeters {
			moves++
		}
	}

	return float64(moves) / float64(len(resources)), true
}

// scoreInventory measures work-in-progress pileup: tasks opened long ago that
// remain far from complete. Raw statistic is the stalled fraction of started
// tasks, weighted by how stale each one is.
func scoreInventory(snap *models.Snapshot, now time.Time) (float64, bool) {
	started := 0
	var stalled float64
	for _, t := range snap.Tasks {
		if t.ActualStart == nil || t.PercentComplete >= 100 {
			continue
		}
		started++

		plannedDur := t.PlannedEnd.Sub(t.PlannedStart)
		if plannedDur <= 0 {
			continue
		}
		elapsed := now.Sub(*t.ActualStart)
		expected := elapsed.Hours() / plannedDur.Hours()
		actual := t.PercentComplete / 100.0
		if expected > 1.0 && actual < 0.5 {
			stalled += expected - actual
		}
	}

	if started == 0 {
		return 0, false
	}
	return stalled / float64(started), true
}

// scoreExtraProcessing measures effort spent beyond what the achieved
// progress justifies: consumed hours per percent complete versus plan.
func scoreExtraProcessing(snap *models.Snapshot, _ time.Time) (float64, bool) {
	var excesses []float64
	for _, t := range snap.Tasks {
		if t.PlannedHours <= 0 || t.PercentComplete < 10 {
			continue
		}
		earnedHours := t.PlannedHours * t.PercentComplete / 100.0
		if earnedHours <= 0 {
			continue
		}
		excess := t.ActualHours/earnedHours - 1.0
		if excess < 0 {
			excess = 0
		}
		excesses = append(excesses, excess)
	}

	if len(excesses) == 0 {
		return 0, false
	}
	return mean(excesses), true
}

// expectedCompletionFraction returns where a task should be, time-wise,
// between its planned start and end. Returns -1 when the task has no valid
// planned window or has not reached its planned start.
func expectedCompletionFraction(t models.TaskRecord, now time.Time) float64 {
	dur := t.PlannedEnd.Sub(t.PlannedStart)
	if dur <= 0 {
		return -1
	}
	if now.Before(t.PlannedStart) {
		return -1
	}
	frac := now.Sub(t.PlannedStart).Hours() / dur.Hours()
	if frac > 1 {
		frac = 1
	}
	return frac
}

type resourceLeg struct {
	resourceID string
	meters     float64
}

// resourceLegs builds the sequence of site moves per resource from located
// tasks ordered by planned start.
func resourceLegs(tasks []models.TaskRecord) []resourceLeg {
	byResource := make(map[string][]models.TaskRecord)
	for _, t := range tasks {
		if t.ResourceID == "" || (t.SiteLat == 0 && t.SiteLng == 0) {
			continue
		}
		byResource[t.ResourceID] = append(byResource[t.ResourceID], t)
	}

	var legs []resourceLeg
	for resourceID, seq := range byResource {
		// Tasks arrive ordered by planned start from the repository
		for i := 1; i < len(seq); i++ {
			prev := s2.LatLngFromDegrees(seq[i-1].SiteLat, seq[i-1].SiteLng)
			cur := s2.LatLngFromDegrees(seq[i].SiteLat, seq[i].SiteLng)
			meters := prev.Distance(cur).Radians() * earthRadiusMeters
			legs = append(legs, resourceLeg{resourceID: resourceID, meters: meters})
		}
	}

	return legs
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
