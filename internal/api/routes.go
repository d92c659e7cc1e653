// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/churn-dashboard/backend/internal/chart"
	"github.com/churn-dashboard/backend/internal/dashboard"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	State             *dashboard.State
	Version           string
	AllowedExtensions []string
	Chart             chart.Options
	WSMaxMessageKB    int
	Logger            *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Dashboard DashboardHandler
	Batch     BatchHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.State),
		Dashboard: NewDashboardHandler(deps.State, deps.Chart),
		Batch:     NewBatchHandler(deps.State, deps.AllowedExtensions),
		WebSocket: NewWebSocketHandler(deps.State, deps.WSMaxMessageKB, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
// uploadMiddleware wraps the batch upload route only.
func RegisterRoutes(e *echo.Echo, handlers *Handlers, uploadMiddleware ...echo.MiddlewareFunc) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Dashboard panels
	apiGroup.GET("/dashboard", handlers.Dashboard.HandleDashboard)
	apiGroup.GET("/records/:index", handlers.Dashboard.HandleRecord)
	apiGroup.GET("/importance", handlers.Dashboard.HandleImportance)
	apiGroup.GET("/importance/chart.png", handlers.Dashboard.HandleImportanceChart)
	apiGroup.GET("/dataset/summary", handlers.Dashboard.HandleDatasetSummary)

	// Batch scoring
	apiGroup.POST("/batch/score", handlers.Batch.HandleScoreBatch, uploadMiddleware...)

	// WebSocket event channel
	apiGroup.GET("/ws", handlers.WebSocket.HandleWebSocket)
}
