// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the read-only dashboard panels
type DashboardHandler interface {
	HandleDashboard(c echo.Context) error
	HandleRecord(c echo.Context) error
	HandleImportance(c echo.Context) error
	HandleImportanceChart(c echo.Context) error
	HandleDatasetSummary(c echo.Context) error
}

// BatchHandler scores uploaded customer batches
type BatchHandler interface {
	HandleScoreBatch(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
