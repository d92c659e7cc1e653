package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/churn-dashboard/backend/internal/artifact"
	"github.com/churn-dashboard/backend/internal/chart"
	"github.com/churn-dashboard/backend/internal/classifier"
	"github.com/churn-dashboard/backend/internal/dashboard"
	"github.com/churn-dashboard/backend/internal/schema"
	"github.com/churn-dashboard/backend/internal/testutil"
)

var referenceColumns = []string{"age", "tenure", "spend"}

func newTestState(t *testing.T, clf classifier.Classifier) *dashboard.State {
	t.Helper()
	s, err := schema.New(referenceColumns, nil)
	require.NoError(t, err)

	display := testutil.Frame(
		[]string{"customer_unique_id", "age", "tenure", "spend"},
		[]string{"c1", "30", "2", "10.5"},
		[]string{"c2", "52", "", "99"},
		[]string{"c3", "41", "18", "42"},
	)
	X, _, err := s.EncodeFrame(display.DropColumn("customer_unique_id"))
	require.NoError(t, err)

	return dashboard.NewState(&artifact.Artifacts{
		Model:            testutil.NewModel(clf, referenceColumns),
		Schema:           s,
		Display:          display,
		Features:         X,
		Labels:           []int{0, 1, 1},
		LabelNames:       artifact.DefaultLabelNames,
		IdentifierColumn: "customer_unique_id",
		ModelVersion:     "1.0.0",
	}, dashboard.Options{Title: "Test Dashboard"}, nil)
}

func forest(t *testing.T) classifier.Classifier {
	t.Helper()
	model, err := testutil.SplitEnvelope(referenceColumns, 0, 40).Build()
	require.NoError(t, err)
	return model.Classifier
}

func newTestServer(t *testing.T, clf classifier.Classifier) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, NewHandlers(&Dependencies{
		State:             newTestState(t, clf),
		Version:           "test",
		AllowedExtensions: []string{".csv", ".xlsx"},
		Chart:             chart.DefaultOptions,
		WSMaxMessageKB:    1024,
	}))
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	return serve(e, httptest.NewRequest(http.MethodGet, path, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func TestHandleHealth(t *testing.T) {
	rec := get(newTestServer(t, forest(t)), "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"model":"random_forest"`)
	assert.Contains(t, rec.Body.String(), `"rows":3`)
}

func TestHandleDashboard(t *testing.T) {
	rec := get(newTestServer(t, forest(t)), "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Test Dashboard", view.Title)
	assert.Equal(t, 2, view.Bound)
	require.NotNil(t, view.Record)
	assert.Equal(t, 0, view.Record.Index)
	assert.Equal(t, 0.25, view.Record.Prediction.Probability)
	assert.True(t, view.Importance.Available)
	assert.Nil(t, view.Batch)
}

func TestHandleRecord(t *testing.T) {
	e := newTestServer(t, forest(t))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"valid", "/api/records/1", http.StatusOK, ""},
		{"last", "/api/records/2", http.StatusOK, ""},
		{"past bound", "/api/records/3", http.StatusBadRequest, CodeBadRequest},
		{"negative", "/api/records/-1", http.StatusBadRequest, CodeBadRequest},
		{"not a number", "/api/records/abc", http.StatusBadRequest, CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(e, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
			}
		})
	}

	rec := get(e, "/api/records/1")
	var view dashboard.RecordView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Churn", view.Prediction.Label)
	assert.Equal(t, 0.75, view.Prediction.Probability)
	assert.Equal(t, "c2", view.Record[0].Value)
}

func TestHandleRecord_Msgpack(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/records/0", nil)
	req.Header.Set(echo.HeaderAccept, MIMEApplicationMsgpack)
	rec := serve(newTestServer(t, forest(t)), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MIMEApplicationMsgpack, rec.Header().Get(echo.HeaderContentType))

	var view dashboard.RecordView
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 0, view.Index)
	assert.Equal(t, "Not Churn", view.Prediction.Label)
}

func TestHandleImportance(t *testing.T) {
	e := newTestServer(t, forest(t))

	rec := get(e, "/api/importance")
	require.Equal(t, http.StatusOK, rec.Code)
	var view dashboard.ImportanceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.Available)
	require.Len(t, view.Entries, 3)
	assert.Equal(t, "age", view.Entries[0].Feature)
	assert.Equal(t, 1.0, view.Entries[0].Importance)

	rec = get(e, "/api/importance?n=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Entries, 1)

	rec = get(e, "/api/importance?n=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, decodeError(t, rec).Code)
}

func TestHandleImportance_Unavailable(t *testing.T) {
	e := newTestServer(t, testutil.NewStubClassifier(3))

	for _, path := range []string{"/api/importance", "/api/importance/chart.png"} {
		rec := get(e, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, CodeImportanceUnavailable, decodeError(t, rec).Code, path)
	}

	// the rest of the dashboard keeps working
	rec := get(e, "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)
}

func TestHandleImportanceChart(t *testing.T) {
	rec := get(newTestServer(t, forest(t)), "/api/importance/chart.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestHandleDatasetSummary(t *testing.T) {
	rec := get(newTestServer(t, forest(t)), "/api/dataset/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var sum dashboard.DatasetSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 3, sum.Rows)
	assert.Equal(t, 2, sum.Churned)
	assert.Len(t, sum.Features, 3)
}

func TestErrorHandler(t *testing.T) {
	e := newTestServer(t, forest(t))

	rec := get(e, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rec).Code)

	rec = httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	ErrorHandler(assert.AnError, c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, decodeError(t, rec).Code)
}

func multipartUpload(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batch/score", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

type batchBody struct {
	Code string `json:"code"`
	dashboard.BatchView
}

func TestHandleScoreBatch(t *testing.T) {
	e := newTestServer(t, forest(t))

	rec := serve(e, multipartUpload(t, "file", "batch.csv", []byte("tenure,spend,region\n12,99.5,SP\n")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body batchBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Code)
	assert.Equal(t, dashboard.NoticeLoaded, body.Notice)
	assert.Equal(t, "batch.csv", body.File.Name)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "Not Churn", body.Rows[0].Prediction)
	assert.True(t, body.Rows[0].Imputed)
	require.Len(t, body.Warnings, 2)
	assert.Equal(t, "Missing columns: {age}", body.Warnings[0].Message)
	assert.Equal(t, "Extra columns: {region}", body.Warnings[1].Message)
}

func TestHandleScoreBatch_Failed(t *testing.T) {
	e := newTestServer(t, forest(t))

	rec := serve(e, multipartUpload(t, "file", "batch.csv", []byte("age,tenure,spend,region\nold,1,2,SP\n")))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body batchBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeBatchFailed, body.Code)
	assert.NotEmpty(t, body.Error)
	assert.Empty(t, body.Rows)
	assert.Len(t, body.Warnings, 1, "warnings are reported even when scoring fails")
}

func TestHandleScoreBatch_BadRequests(t *testing.T) {
	e := newTestServer(t, forest(t))

	rec := serve(e, multipartUpload(t, "upload", "batch.csv", []byte("a\n1\n")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, decodeError(t, rec).Code)

	rec = serve(e, multipartUpload(t, "file", "batch.json", []byte("{}")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, decodeError(t, rec).Code)
}

func TestHandleScoreBatch_EmptyUpload(t *testing.T) {
	stub := testutil.NewStubClassifier(3)
	e := newTestServer(t, stub)

	rec := serve(e, multipartUpload(t, "file", "batch.csv", []byte("age,tenure,spend\n")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dashboard.NoticeNoRows)
	assert.Contains(t, rec.Body.String(), `"rows":[]`)
}
