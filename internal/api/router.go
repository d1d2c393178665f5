package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitepulse/sitepulse-backend-go/internal/handler"
	"github.com/sitepulse/sitepulse-backend-go/internal/middleware"
	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
	"github.com/sitepulse/sitepulse-backend-go/internal/scheduler"
)

// SetupRouter wires the HTTP surface
func SetupRouter(db *sql.DB, sched *scheduler.Scheduler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	projectHandler := handler.NewProjectHandler(repository.NewProjectRepository(db))
	wasteHandler := handler.NewWasteHandler(repository.NewWasteRepository(db))
	forecastHandler := handler.NewForecastHandler(repository.NewForecastRepository(db))
	jobHandler := handler.NewJobHandler(sched, repository.NewJobRunRepository(db))

	// Manual triggers are rate-limited per client
	runNowLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "SitePulse analytics core is running",
		})
	})

	api := r.Group("/api/v1")
	{
		projects := api.Group("/projects")
		{
			projects.GET("", projectHandler.List)
			projects.POST("", projectHandler.Create)
			projects.GET("/:id", projectHandler.Get)
			projects.POST("/:id/archive", projectHandler.Archive)

			projects.GET("/:id/waste-summary", wasteHandler.Summary)
			projects.GET("/:id/waste-history", wasteHandler.History)
			projects.GET("/:id/forecast", forecastHandler.Latest)

			projects.GET("/:id/jobs", jobHandler.List)
			projects.POST("/:id/jobs/:jobType/run-now", runNowLimiter.Middleware(), jobHandler.RunNow)
		}
	}

	return r
}
