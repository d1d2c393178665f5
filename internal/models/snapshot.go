package models

import "time"

// Snapshot is the point-in-time view of a project's task, resource and cost
// data that classification and forecasting run over. Within one job run it is
// loaded once, after any reconciliation, so both consumers see the same data.
type Snapshot struct {
	Project     *Project
	Tasks       []TaskRecord
	Assignments []ResourceAssignment
	Progress    []ProgressEntry
	TakenAt     time.Time
}

// OverallPercentComplete returns the planned-hours-weighted completion of the
// snapshot's tasks, or the plain average when no planned hours are recorded.
func (s *Snapshot) OverallPercentComplete() float64 {
	if len(s.Tasks) == 0 {
		return 0
	}
	var weighted, hours float64
	for _, t := range s.Tasks {
		weighted += t.PercentComplete * t.PlannedHours
		hours += t.PlannedHours
	}
	if hours > 0 {
		return weighted / hours
	}
	var sum float64
	for _, t := range s.Tasks {
		sum += t.PercentComplete
	}
	return sum / float64(len(s.Tasks))
}
