package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
	"github.com/sitepulse/sitepulse-backend-go/internal/scheduler"
	"github.com/sitepulse/sitepulse-backend-go/pkg/response"
)

// JobHandler handles HTTP requests for the run ledger and manual triggers
type JobHandler struct {
	sched *scheduler.Scheduler
	runs  *repository.JobRunRepository
}

// NewJobHandler creates a new job handler
func NewJobHandler(sched *scheduler.Scheduler, runs *repository.JobRunRepository) *JobHandler {
	return &JobHandler{sched: sched, runs: runs}
}

// RunNow triggers a job outside its cadence. The response reports the created
// run and whether it was dispatched or skipped; the work itself runs async.
// POST /api/v1/projects/:id/jobs/:jobType/run-now
func (h *JobHandler) RunNow(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	jobType := models.JobType(c.Param("jobType"))
	if !validJobType(jobType) {
		response.BadRequest(c, "Invalid job type")
		return
	}

	run, err := h.sched.RunNow(id, jobType)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"run_id": run.ID,
		"status": run.Status,
	})
}

// List returns the run ledger for a project
// GET /api/v1/projects/:id/jobs?type=waste-detection&status=FAILED&limit=20
func (h *JobHandler) List(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	jobType := c.Query("type")
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.runs.List(id, jobType, status, limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, runs)
}

func validJobType(jobType models.JobType) bool {
	for _, t := range models.AllJobTypes {
		if t == jobType {
			return true
		}
	}
	return false
}
