// handlers_dashboard.go - Record inspector, importance and summary handlers
package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/churn-dashboard/backend/internal/chart"
	"github.com/churn-dashboard/backend/internal/dashboard"
)

// DashboardHandlerImpl implements the DashboardHandler interface
type DashboardHandlerImpl struct {
	state     *dashboard.State
	chartOpts chart.Options
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(state *dashboard.State, chartOpts chart.Options) DashboardHandler {
	return &DashboardHandlerImpl{
		state:     state,
		chartOpts: chartOpts,
	}
}

// HandleDashboard returns the initial view with record 0 selected
func (h *DashboardHandlerImpl) HandleDashboard(c echo.Context) error {
	return respond(c, http.StatusOK, h.state.InitialView())
}

// HandleRecord returns the prediction for one reference customer
func (h *DashboardHandlerImpl) HandleRecord(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return NewValidationError("index")
	}

	view, err := h.state.Inspect(index)
	if err != nil {
		if errors.Is(err, dashboard.ErrIndexOutOfRange) {
			return NewBadRequestError("record index out of range", err)
		}
		return NewInternalError("failed to score record", err)
	}
	return respond(c, http.StatusOK, view)
}

// topN reads the optional "n" query parameter
func (h *DashboardHandlerImpl) topN(c echo.Context) (int, error) {
	raw := c.QueryParam("n")
	if raw == "" {
		return h.state.TopN(), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, NewValidationError("n")
	}
	return n, nil
}

// HandleImportance returns the top features by static importance
func (h *DashboardHandlerImpl) HandleImportance(c echo.Context) error {
	n, err := h.topN(c)
	if err != nil {
		return err
	}

	entries, err := h.state.TopImportance(n)
	if err != nil {
		if errors.Is(err, dashboard.ErrImportanceUnavailable) {
			return NewImportanceUnavailableError(err)
		}
		return NewInternalError("failed to compute importance", err)
	}
	return respond(c, http.StatusOK, dashboard.ImportanceView{Available: true, Entries: entries})
}

// HandleImportanceChart renders the importance bar chart as PNG
func (h *DashboardHandlerImpl) HandleImportanceChart(c echo.Context) error {
	n, err := h.topN(c)
	if err != nil {
		return err
	}

	entries, err := h.state.TopImportance(n)
	if err != nil {
		if errors.Is(err, dashboard.ErrImportanceUnavailable) {
			return NewImportanceUnavailableError(err)
		}
		return NewInternalError("failed to compute importance", err)
	}

	var buf bytes.Buffer
	if err := chart.RenderImportance(&buf, entries, h.chartOpts); err != nil {
		return NewInternalError("failed to render chart", err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=300")
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// HandleDatasetSummary returns descriptive statistics of the reference data
func (h *DashboardHandlerImpl) HandleDatasetSummary(c echo.Context) error {
	return respond(c, http.StatusOK, h.state.Summary())
}
