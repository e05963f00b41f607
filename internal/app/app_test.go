package app

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tiervc/internal/config"
	"tiervc/internal/infrastructure"
	"tiervc/internal/shared/testutil"
	"tiervc/pkg/contracts/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	cfg := config.Default()
	cfg.Security.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	otelProviders, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    "tiervc-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
		SampleRatio:    1,
	}, logger)
	require.NoError(t, err)

	a, err := NewWithConfig(cfg,
		WithLogger(logger),
		WithOTel(otelProviders),
		WithScoringProviders(testutil.NewStaticProvider(80, 60, 78).Scoring()),
	)
	require.NoError(t, err)
	t.Cleanup(a.WebSocketHub.Stop)
	return a
}

func withKeys(cfg *config.Config) {
	cfg.Providers.Keys = config.APIKeys{OpenRouter: "or", Anthropic: "an", OpenAI: "oa", Gemini: "ge"}
}

func get(a *Application, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func uploadCSV(t *testing.T, url, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "startups.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(content))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.Config)
		path       string
		wantStatus int
		wantBody   string
	}{
		{"root", nil, "/", http.StatusOK, `"status":"TierVC API Running"`},
		{"health", nil, "/api/health", http.StatusOK, `"status":"ok"`},
		{"live", nil, "/api/health/live", http.StatusOK, `"status":"alive"`},
		{"ready without keys", nil, "/api/health/ready", http.StatusServiceUnavailable, `"status":"not_ready"`},
		{"ready with keys", withKeys, "/api/health/ready", http.StatusOK, `"status":"ready"`},
		{"version", nil, "/api/version", http.StatusOK, `"api_version":"v1"`},
		{"no results yet", nil, "/api/download", http.StatusNotFound, `"error_code":"NO_RESULTS"`},
		{"unknown route", nil, "/nope", http.StatusNotFound, `"status":404`},
		{"metrics disabled", nil, "/metrics", http.StatusServiceUnavailable, `"status":503`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, tt.mutate)
			rec := get(a, tt.path)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestMiddlewareStack(t *testing.T) {
	a := newTestApp(t, nil)

	rec := get(a, "/api/health")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodOptions, "/api/evaluate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Batch-ID")
}

func TestRateLimit(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	})

	assert.Equal(t, http.StatusOK, get(a, "/api/health").Code)
	rec := get(a, "/api/health")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestEvaluateEndToEnd(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	// runs before srv.Close and the hub's Stop
	t.Cleanup(func() { _ = conn.Close() })

	var greeting events.WebSocketMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&greeting))
	require.Equal(t, events.MessageTypeConnection, greeting.Type)

	csv := "Company Name,Description,Industry\nAcme AI,Agents for accounting,AI\n"
	resp, err := srv.Client().Do(uploadCSV(t, srv.URL+"/api/evaluate", csv))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	batchID := resp.Header.Get("X-Batch-ID")
	require.NotEmpty(t, batchID)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `"type":"complete"`)

	// the hub mirrors the same batch
	var kinds []string
	for {
		var msg events.WebSocketMessage
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, events.MessageTypeBatchEvent, msg.Type)
		assert.Equal(t, batchID, msg.BatchID)

		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &head))
		kinds = append(kinds, head.Type)
		if head.Type == "complete" {
			break
		}
	}
	assert.Equal(t, "mapping", kinds[0])
	assert.Equal(t, "startups", kinds[1])

	rec := get(a, "/api/download")
	assert.Equal(t, http.StatusOK, rec.Code)
}
