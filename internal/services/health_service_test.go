package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiervc/internal/config"
	"tiervc/internal/shared/testutil"
)

type activeBatch struct {
	id string
}

func (a activeBatch) Active() (string, bool) { return a.id, a.id != "" }

type clientCounter int

func (c clientCounter) ClientCount() int { return int(c) }

func allKeys() config.APIKeys {
	return config.APIKeys{OpenRouter: "or", Anthropic: "an", OpenAI: "oa", Gemini: "ge"}
}

func TestHealthService_Readiness(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		keys       config.APIKeys
		batches    BatchTracker
		wantStatus string
		wantEval   string
	}{
		{
			name:       "all keys configured",
			keys:       allKeys(),
			wantStatus: "ready",
			wantEval:   "Idle",
		},
		{
			name:       "missing key",
			keys:       config.APIKeys{},
			wantStatus: "not_ready",
			wantEval:   "Idle",
		},
		{
			name:       "batch running",
			keys:       allKeys(),
			batches:    activeBatch{id: "b-1"},
			wantStatus: "ready",
			wantEval:   "Batch running",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers := config.DefaultProviders()
			providers.Keys = tt.keys
			hs := NewHealthService("1.0.0", providers, tt.batches, clientCounter(2), logger)

			status := hs.ReadinessCheck(ctx)
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "1.0.0", status.Version)
			require.Contains(t, status.Services, "evaluation")
			assert.Equal(t, tt.wantEval, status.Services["evaluation"].Message)
			assert.Equal(t, map[string]int{"clients": 2}, status.Services["websocket"].Detail)
		})
	}

	assert.NotEmpty(t, handler.Find("readiness check failed"))
}

func TestHealthService_MissingKeyNamesRole(t *testing.T) {
	providers := config.DefaultProviders()
	providers.Keys = config.APIKeys{OpenRouter: "or"}
	hs := NewHealthService("1.0.0", providers, nil, nil, nil)

	svc := hs.ReadinessCheck(context.Background()).Services["providers"]
	assert.Equal(t, "not_ready", svc.Status)
	assert.Contains(t, svc.Message, "team analyst")
}

func TestHealthService_Liveness(t *testing.T) {
	hs := NewHealthService("1.0.0", config.DefaultProviders(), nil, nil, nil)
	ctx := context.Background()

	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)

	live := hs.LivenessCheck(ctx)
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")
	assert.Contains(t, live.Runtime, "memory_alloc_mb")

	assert.Equal(t, "1.0.0", hs.Version()["version"])
	assert.Equal(t, "WebSocket hub disabled", hs.ReadinessCheck(ctx).Services["websocket"].Message)
}
