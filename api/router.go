package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/api/handlers"
	"github.com/yourusername/media-fetch-go/api/middleware"
	"github.com/yourusername/media-fetch-go/internal/app"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	service *app.FetchService,
	checks map[string]handlers.ReadinessCheck,
	logger *zap.Logger,
) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(checks)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		fetchHandler := handlers.NewFetchHandler(service, logger)
		v1.POST("/fetch", fetchHandler.Fetch)
		v1.GET("/classify", fetchHandler.Classify)
		v1.GET("/platforms", fetchHandler.Platforms)

		historyHandler := handlers.NewHistoryHandler(service, logger)
		history := v1.Group("/history")
		{
			history.GET("", historyHandler.ListHistory)
			history.GET("/stats", historyHandler.GetStats)
			history.GET("/:id", historyHandler.GetRecord)
			history.DELETE("/:id", historyHandler.DeleteRecord)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
