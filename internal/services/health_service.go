package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"tiervc/internal/config"
	"tiervc/internal/infrastructure"
	"tiervc/pkg/contracts"
)

// HubStats is implemented by the WebSocket hub
type HubStats interface {
	ClientCount() int
}

// BatchTracker reports the running batch
type BatchTracker interface {
	Active() (string, bool)
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	providers config.ProvidersConfig
	batches   BatchTracker
	hub       HubStats
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

// NewHealthService creates a health service. batches and hub may be nil.
func NewHealthService(version string, providers config.ProvidersConfig, batches BatchTracker, hub HubStats, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:   version,
		providers: providers,
		batches:   batches,
		hub:       hub,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check", slog.Duration("uptime", time.Since(hs.startTime)))
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports ready when every analysis role has a credential
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"providers":  hs.checkProviders(),
			"evaluation": hs.checkEvaluation(),
			"websocket":  hs.checkWebSocket(),
		},
	}

	for name, svc := range status.Services {
		if svc.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("service", name),
				slog.String("message", svc.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.CollectRuntimeStats()
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":          time.Since(hs.startTime).Seconds(),
			"go_version":      runtime.Version(),
			"goroutines":      stats.Goroutines,
			"memory_alloc_mb": stats.MemoryAllocMB,
			"gc_count":        stats.GCCount,
		},
	}
}

// Version returns build and runtime version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":     hs.version,
		"api_version": info.APIVersion,
		"build_time":  info.BuildTime,
		"git_commit":  info.GitCommit,
		"go_version":  info.GoVersion,
		"os":          info.OS,
		"arch":        info.Architecture,
		"uptime":      time.Since(hs.startTime).Seconds(),
		"start_time":  hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkProviders() ServiceHealth {
	roles := []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{"market", hs.providers.Market},
		{"team", hs.providers.Team},
		{"judge", hs.providers.Judge},
	}
	backends := make(map[string]string, len(roles))
	for _, role := range roles {
		backends[role.name] = role.cfg.Backend + "/" + role.cfg.Model
	}
	for _, role := range roles {
		if _, err := hs.providers.Keys.For(role.cfg.Backend); err != nil {
			return ServiceHealth{
				Status:  "not_ready",
				Message: role.name + " analyst: " + err.Error(),
				Detail:  backends,
			}
		}
	}
	return ServiceHealth{Status: "ready", Message: "All analysis providers configured", Detail: backends}
}

func (hs *HealthService) checkEvaluation() ServiceHealth {
	if hs.batches == nil {
		return ServiceHealth{Status: "ready", Message: "Idle"}
	}
	if id, ok := hs.batches.Active(); ok {
		return ServiceHealth{Status: "ready", Message: "Batch running", Detail: map[string]string{"batch_id": id}}
	}
	return ServiceHealth{Status: "ready", Message: "Idle"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "WebSocket hub disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "WebSocket hub running",
		Detail:  map[string]int{"clients": hs.hub.ClientCount()},
	}
}
