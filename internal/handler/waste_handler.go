package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
	"github.com/sitepulse/sitepulse-backend-go/internal/waste"
	"github.com/sitepulse/sitepulse-backend-go/pkg/response"
)

// WasteHandler handles HTTP requests for waste analytics
type WasteHandler struct {
	wastes *repository.WasteRepository
}

// NewWasteHandler creates a new waste handler
func NewWasteHandler(wastes *repository.WasteRepository) *WasteHandler {
	return &WasteHandler{wastes: wastes}
}

// Summary returns the latest record per category plus the priority actions
// GET /api/v1/projects/:id/waste-summary
func (h *WasteHandler) Summary(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	records, err := h.wastes.LatestPerCategory(id)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"records":          records,
		"priority_actions": waste.Rank(records, 3),
	})
}

// History returns the retained trend for one category
// GET /api/v1/projects/:id/waste-history?category=waiting&limit=100
func (h *WasteHandler) History(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	category := models.WasteCategory(c.Query("category"))
	if !validCategory(category) {
		response.BadRequest(c, "Invalid or missing category")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	records, err := h.wastes.History(id, category, limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, records)
}

func validCategory(category models.WasteCategory) bool {
	for _, c := range models.AllWasteCategories {
		if c == category {
			return true
		}
	}
	return false
}
