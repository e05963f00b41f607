package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "tiervc/internal/errors"
	"tiervc/internal/evaluation"
	"tiervc/internal/exporter"
	"tiervc/internal/middleware"
	"tiervc/internal/services"
	"tiervc/internal/shared/testutil"
	"tiervc/internal/spreadsheet"
	"tiervc/pkg/contracts/api/v1"
	"tiervc/pkg/contracts/events"
)

const startupsCSV = "Company Name,Description,Industry,Stage\n" +
	"Acme AI,Agents for accounting,AI,Seed\n" +
	"Beta Bio,Lab automation,Biotech,Series A\n"

type fixture struct {
	svc    *services.EvaluationService
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := services.NewEvaluationService(
		spreadsheet.NewParser(10, logger),
		evaluation.NewEvaluator(testutil.NewStaticProvider(80, 60, 78).Scoring(), nil, logger),
		evaluation.NewMemoryStore(5),
		nil, nil, nil,
		services.EvaluationOptions{IdleTimeout: 5 * time.Second},
		logger,
	)
	errs := apierrors.NewErrorHandler(logger, false)
	h := NewEvaluationHandler(svc, middleware.NewValidator(), errs, 1<<20, logger)

	r := chi.NewRouter()
	r.Mount("/api", h.Routes())
	return &fixture{svc: svc, router: r}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseSSE(t *testing.T, body string) []events.Event {
	t.Helper()
	var out []events.Event
	for _, frame := range strings.Split(strings.TrimSpace(body), "\n\n") {
		require.True(t, strings.HasPrefix(frame, "data: "), "frame %q", frame)
		e, err := events.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")))
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func problemOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var p map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestEvaluate_UploadStreamsEvents(t *testing.T) {
	f := newFixture(t)

	rec := f.do(uploadRequest(t, "file", "startups.csv", startupsCSV))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	batchID := rec.Header().Get("X-Batch-ID")
	require.NotEmpty(t, batchID)

	got := parseSSE(t, rec.Body.String())
	require.GreaterOrEqual(t, len(got), 4)

	mapping, ok := got[0].(events.Mapping)
	require.True(t, ok)
	assert.Equal(t, "Company Name", mapping.Mapping["name"])
	assert.Equal(t, 2, mapping.Count)

	startups, ok := got[1].(events.Startups)
	require.True(t, ok)
	assert.Equal(t, []string{"Acme AI", "Beta Bio"}, startups.Names)

	complete, ok := got[len(got)-1].(events.Complete)
	require.True(t, ok)
	assert.Equal(t, batchID, complete.BatchID)
	assert.Equal(t, 2, complete.Total)
	assert.Equal(t, 2, complete.TierCounts[1])
}

func TestEvaluate_JSONRecords(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonRequest(`{"records":[{"name":"Acme","industry":"SaaS","total_raised_m":2}]}`))
	require.Equal(t, http.StatusOK, rec.Code)

	got := parseSSE(t, rec.Body.String())
	complete, ok := got[len(got)-1].(events.Complete)
	require.True(t, ok)
	assert.Equal(t, 1, complete.Total)
}

func TestEvaluate_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing file field",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "upload", "x.csv", startupsCSV) },
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeInvalidUpload,
		},
		{
			name: "no startups",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "x.csv", "Company Name,Description\n")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeNoStartups,
		},
		{
			name:       "empty file",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "x.csv", "") },
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeInvalidUpload,
		},
		{
			name:       "empty records",
			req:        func(*testing.T) *http.Request { return jsonRequest(`{"records":[]}`) },
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name: "plain text",
			req: func(*testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader("hello"))
				req.Header.Set("Content-Type", "text/plain")
				return req
			},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   apierrors.CodeUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(tt.req(t))

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, problemOf(t, rec)["error_code"])

			_, running := f.svc.Active()
			assert.False(t, running, "rejected uploads never start a batch")
		})
	}
}

func TestEvaluate_BatchInProgress(t *testing.T) {
	f := newFixture(t)
	sub, err := f.svc.FromRecords(context.Background(), nil)
	require.ErrorIs(t, err, services.ErrNoStartups)
	require.Nil(t, sub)

	sub, err = f.svc.ParseUpload(context.Background(), "x.csv", []byte(startupsCSV))
	require.NoError(t, err)
	_, err = f.svc.Begin(sub)
	require.NoError(t, err)

	rec := f.do(uploadRequest(t, "file", "startups.csv", startupsCSV))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.CodeBatchInProgress, problemOf(t, rec)["error_code"])
}

func TestDownload(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/download", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	p := problemOf(t, rec)
	assert.Equal(t, apierrors.CodeNoResults, p["error_code"])
	assert.Equal(t, "No results available. Please run evaluation first.", p["detail"])

	require.Equal(t, http.StatusOK, f.do(uploadRequest(t, "file", "startups.csv", startupsCSV)).Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, spreadsheet.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), spreadsheet.ResultsFilename)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "body is a zip container")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/download?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, exporter.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "TierVC_results.csv")
	assert.Contains(t, rec.Body.String(), "Acme AI")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/download?format=pdf", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.CodeInvalidRequest, problemOf(t, rec)["error_code"])
}

func TestBatches(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/batches/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.CodeBatchNotFound, problemOf(t, rec)["error_code"])

	run := f.do(uploadRequest(t, "file", "startups.csv", startupsCSV))
	id := run.Header().Get("X-Batch-ID")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/batches/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var batch api.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Equal(t, id, batch.ID)
	assert.Equal(t, "completed", batch.Status)
	assert.Equal(t, "startups.csv", batch.Source)
	assert.Len(t, batch.Results, 2)
	assert.NotNil(t, batch.CompletedAt)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.BatchListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Batches, 1)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), id)
}
