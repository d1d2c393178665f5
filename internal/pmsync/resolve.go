package pmsync

import (
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// Action is the outcome of resolving one external record against local state.
type Action int

// Resolution actions.
const (
	ActionCreate Action = iota // no local record for the external id
	ActionUpdate               // external side wins, overwrite local fields
	ActionSkip                 // this external version was already applied
	ActionConflict             // local side is strictly newer, external discarded
)

// ResolveTask decides what a reconcile run does with one external record.
// The tie-break rule lives here and nowhere else: external wins ties and
// strictly-newer comparisons; a strictly newer local edit wins and is logged
// as a conflict.
func ResolveTask(local *models.TaskRecord, ext ExternalRecord) Action {
	if local == nil {
		return ActionCreate
	}

	// Already applied this exact external version: the idempotence check
	// that makes re-running the same batch a no-op.
	if local.ExternalModifiedAt != nil && !ext.ModifiedAt.After(*local.ExternalModifiedAt) {
		return ActionSkip
	}

	if local.LocalModifiedAt.After(ext.ModifiedAt) {
		return ActionConflict
	}

	return ActionUpdate
}

// applyExternal copies the externally-owned fields onto the local record and
// stamps both modified timestamps with the external one, so a later local
// edit compares strictly newer.
func applyExternal(local *models.TaskRecord, ext ExternalRecord) {
	local.Name = ext.Name
	local.PlannedStart = ext.PlannedStart
	local.PlannedEnd = ext.PlannedEnd
	local.ActualStart = copyTime(ext.ActualStart)
	local.ActualEnd = copyTime(ext.ActualEnd)
	local.PercentComplete = ext.PercentComplete
	local.ResourceID = ext.ResourceID
	local.SiteLat = ext.SiteLat
	local.SiteLng = ext.SiteLng
	local.PlannedHours = ext.PlannedHours
	local.ActualHours = ext.ActualHours
	local.LocalModifiedAt = ext.ModifiedAt
	modifiedAt := ext.ModifiedAt
	local.ExternalModifiedAt = &modifiedAt
}

// newTaskFromExternal builds a fresh local record for an unmatched external
// record.
func newTaskFromExternal(projectID int64, ext ExternalRecord) *models.TaskRecord {
	t := &models.TaskRecord{
		ProjectID:  projectID,
		ExternalID: ext.ExternalID,
	}
	applyExternal(t, ext)
	return t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
