// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/churn-dashboard/backend/internal/dashboard"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	state   *dashboard.State
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, state *dashboard.State) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		state:   state,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	a := h.state.Artifacts()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"version":      h.version,
		"model":        a.Model.Kind(),
		"modelVersion": a.ModelVersion,
		"rows":         a.RowCount(),
	})
}
