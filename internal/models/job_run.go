package models

import "time"

// JobType identifies one of the recurring monitoring jobs.
type JobType string

// The recurring job types and their default cadences (see config).
const (
	JobHealthCheck       JobType = "health-check"       // daily
	JobWasteDetection    JobType = "waste-detection"    // every 30 minutes
	JobProgressTracking  JobType = "progress-tracking"  // every 15 minutes
	JobStrategicAnalysis JobType = "strategic-analysis" // weekly
)

// AllJobTypes lists every schedulable job type.
var AllJobTypes = []JobType{
	JobHealthCheck,
	JobWasteDetection,
	JobProgressTracking,
	JobStrategicAnalysis,
}

// JobRun status constants
const (
	RunStatusPending   = "PENDING"
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
	RunStatusSkipped   = "SKIPPED"
)

// JobRun is one row in the persisted run ledger. All in-flight and completed
// run state lives here rather than in scheduler memory, which makes the
// mutual-exclusion and reaper logic crash-safe.
//
// Invariant: for a given (project, job type) at most one row is RUNNING.
type JobRun struct {
	ID        int64   `json:"id" db:"id"`
	ProjectID int64   `json:"project_id" db:"project_id"`
	JobType   JobType `json:"job_type" db:"job_type"`

	Status        string `json:"status" db:"status"`
	FailureReason string `json:"failure_reason,omitempty" db:"failure_reason"`
	Attempt       int    `json:"attempt" db:"attempt"`

	ScheduledAt time.Time  `json:"scheduled_at" db:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// Terminal reports whether the run has reached a final status.
func (r *JobRun) Terminal() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusSkipped:
		return true
	}
	return false
}
