package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
	"github.com/sitepulse/sitepulse-backend-go/pkg/response"
)

// ForecastHandler handles HTTP requests for forecast snapshots
type ForecastHandler struct {
	forecasts *repository.ForecastRepository
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(forecasts *repository.ForecastRepository) *ForecastHandler {
	return &ForecastHandler{forecasts: forecasts}
}

// Latest returns the current (most recent) forecast snapshot
// GET /api/v1/projects/:id/forecast
func (h *ForecastHandler) Latest(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	snapshot, err := h.forecasts.Latest(id)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if snapshot == nil {
		response.NotFound(c, "No forecast yet for this project")
		return
	}

	response.Success(c, snapshot)
}
