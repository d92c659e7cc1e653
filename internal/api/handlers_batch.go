// handlers_batch.go - Batch upload scoring handlers
package api

import (
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/churn-dashboard/backend/internal/dashboard"
)

// BatchHandlerImpl implements the BatchHandler interface
type BatchHandlerImpl struct {
	state   *dashboard.State
	allowed []string
}

// NewBatchHandler creates a batch handler. An empty allow list accepts any
// file extension.
func NewBatchHandler(state *dashboard.State, allowedExtensions []string) BatchHandler {
	return &BatchHandlerImpl{
		state:   state,
		allowed: allowedExtensions,
	}
}

// batchResponse carries a failed batch together with its error code
type batchResponse struct {
	Code string `json:"code,omitempty" msgpack:"code,omitempty"`
	*dashboard.BatchView
}

// HandleScoreBatch accepts a multipart upload in field "file" and scores it.
// A batch that fails to parse or score answers 422 with the batch view, so
// schema warnings still reach the client.
func (h *BatchHandlerImpl) HandleScoreBatch(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return NewValidationError("file")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if len(h.allowed) > 0 && !slices.Contains(h.allowed, ext) {
		return NewBadRequestError("unsupported file type: "+ext, nil)
	}

	src, err := fh.Open()
	if err != nil {
		return NewBadRequestError("failed to open upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewBadRequestError("failed to read upload", err)
	}

	view := h.state.ScoreBatch(fh.Filename, data)
	if view.Failed() {
		return respond(c, http.StatusUnprocessableEntity, batchResponse{Code: CodeBatchFailed, BatchView: view})
	}
	return respond(c, http.StatusOK, batchResponse{BatchView: view})
}
