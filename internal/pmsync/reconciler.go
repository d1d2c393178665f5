package pmsync

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/sitepulse/sitepulse-backend-go/internal/database"
	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
)

// Result summarizes one reconcile run.
type Result struct {
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	Skipped    int      `json:"skipped"`
	Conflicts  int      `json:"conflicts"`
	Pages      int      `json:"pages"`
	Conflicted []string `json:"conflicted_external_ids,omitempty"`
}

// Reconciler merges external PM data into local task records.
type Reconciler struct {
	db     *sql.DB
	client Client
	tasks  *repository.TaskRepository
}

// NewReconciler creates a reconciler over the given external client.
func NewReconciler(db *sql.DB, client Client) *Reconciler {
	return &Reconciler{
		db:     db,
		client: client,
		tasks:  repository.NewTaskRepository(db),
	}
}

// Reconcile pages through the external change feed for a project and merges
// each page in its own transaction. Pages already committed survive a later
// page failure: the run reports the error and the next trigger reconciles
// from the beginning, which is safe because every merge is idempotent.
func (r *Reconciler) Reconcile(ctx context.Context, project *models.Project) (*Result, error) {
	if project.ExternalID == "" {
		return nil, fmt.Errorf("project %d has no external id", project.ID)
	}

	result := &Result{}
	cursor := ""

	for {
		// Cooperative cancellation between pages
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		page, err := r.client.FetchChangedSince(ctx, project.ExternalID, cursor)
		if err != nil {
			return result, fmt.Errorf("failed to fetch page %d: %w", result.Pages+1, err)
		}

		if err := r.mergePage(page.Records, project.ID, result); err != nil {
			return result, err
		}
		result.Pages++

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	log.Printf("[Reconciler] project=%d created=%d updated=%d skipped=%d conflicts=%d pages=%d",
		project.ID, result.Created, result.Updated, result.Skipped, result.Conflicts, result.Pages)

	return result, nil
}

// mergePage applies one page of external records inside a transaction.
// Local-only records are never touched: reconciliation only writes rows it
// can key by external id.
func (r *Reconciler) mergePage(records []ExternalRecord, projectID int64, result *Result) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		for _, ext := range records {
			if ext.ExternalID == "" {
				result.Skipped++
				continue
			}

			// Lookups go through the page transaction so a record created
			// earlier in this page is visible when its id repeats.
			local, err := r.tasks.GetByExternalIDTx(tx, projectID, ext.ExternalID)
			if err != nil {
				return err
			}

			switch ResolveTask(local, ext) {
			case ActionCreate:
				task := newTaskFromExternal(projectID, ext)
				if err := r.tasks.CreateTx(tx, task); err != nil {
					return err
				}
				result.Created++

			case ActionUpdate:
				applyExternal(local, ext)
				if err := r.tasks.UpdateFromExternalTx(tx, local); err != nil {
					return err
				}
				result.Updated++

			case ActionSkip:
				result.Skipped++

			case ActionConflict:
				// Local edit is strictly newer: discard the external value
				// but record the discrepancy for audit. Not a failure.
				result.Conflicts++
				result.Conflicted = append(result.Conflicted, ext.ExternalID)
			}
		}
		return nil
	})
}
