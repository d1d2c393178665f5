package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
	"github.com/sitepulse/sitepulse-backend-go/pkg/response"
)

// ProjectHandler handles HTTP requests for project registration and listing
type ProjectHandler struct {
	projects *repository.ProjectRepository
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects *repository.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// CreateProjectRequest represents the request body for registering a project
type CreateProjectRequest struct {
	Name         string    `json:"name" binding:"required"`
	ExternalID   string    `json:"external_id"`
	Budget       float64   `json:"budget" binding:"required"`
	PlannedStart time.Time `json:"planned_start" binding:"required"`
	PlannedEnd   time.Time `json:"planned_end" binding:"required"`
}

// Create registers a project
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if !req.PlannedEnd.After(req.PlannedStart) {
		response.BadRequest(c, "planned_end must be after planned_start")
		return
	}

	project := &models.Project{
		Name:         req.Name,
		ExternalID:   req.ExternalID,
		Budget:       req.Budget,
		PlannedStart: req.PlannedStart,
		PlannedEnd:   req.PlannedEnd,
		Status:       models.ProjectStatusActive,
	}

	if err := h.projects.Create(project); err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, project)
}

// List retrieves active projects
// GET /api/v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.ListActive()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, projects)
}

// Get retrieves one project
// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	project, err := h.projects.GetByID(id)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, project)
}

// Archive archives a project, removing it from monitoring fan-out
// POST /api/v1/projects/:id/archive
func (h *ProjectHandler) Archive(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	if err := h.projects.Archive(id); err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, gin.H{"archived": true})
}

func parseProjectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid project ID")
		return 0, false
	}
	return id, true
}
