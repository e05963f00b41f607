package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tiervc/internal/config"
	apierrors "tiervc/internal/errors"
	"tiervc/internal/evaluation"
	"tiervc/internal/infrastructure"
	customMiddleware "tiervc/internal/middleware"
	"tiervc/internal/providers"
	"tiervc/internal/services"
	"tiervc/internal/spreadsheet"
	handlers "tiervc/internal/transport/http"
	ws "tiervc/internal/websocket"
	"tiervc/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	WebSocketHub  *ws.Hub
	Services      *ServiceContainer

	scoring *providers.ScoringProviders
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Evaluation *services.EvaluationService
	Health     *services.HealthService
	Store      *evaluation.MemoryStore
}

// Option customizes NewWithConfig
type Option func(*Application)

// WithLogger replaces the logger built from the logging config
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.Logger = logger }
}

// WithScoringProviders replaces the providers built from the providers config
func WithScoringProviders(p providers.ScoringProviders) Option {
	return func(a *Application) { a.scoring = &p }
}

// WithOTel supplies already initialized telemetry providers
func WithOTel(p *infrastructure.OTelProviders) Option {
	return func(a *Application) { a.OTelProviders = p }
}

// NewApplication loads configuration and creates the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates an application from cfg with dependency injection
func NewWithConfig(cfg *config.Config, opts ...Option) (*Application, error) {
	app := &Application{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		app.Logger = logger
	}

	app.Logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	if app.OTelProviders == nil {
		otelCfg := infrastructure.DefaultOTelConfig()
		if cfg.Telemetry.ServiceName != "" {
			otelCfg.ServiceName = cfg.Telemetry.ServiceName
		}
		if cfg.Telemetry.TraceStdout {
			otelCfg.TraceExporter = "stdout"
		}
		otelProviders, err := infrastructure.InitializeOTel(otelCfg, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		app.OTelProviders = otelProviders
	}

	metrics, err := infrastructure.CreateBusinessMetrics(app.OTelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	app.Metrics = metrics
	app.ErrorHandler = apierrors.NewErrorHandler(app.Logger, false)

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger, a.Metrics)
	hub.Start()
	a.WebSocketHub = hub

	scoring, err := a.scoringProviders()
	if err != nil {
		hub.Stop()
		return err
	}

	tracer := evaluation.NewTracer(a.Metrics)
	store := evaluation.NewMemoryStore(a.Config.Evaluation.MaxBatches)
	evaluationService := services.NewEvaluationService(
		spreadsheet.NewParser(a.Config.Evaluation.MaxRecords, a.Logger),
		evaluation.NewEvaluator(scoring, tracer, a.Logger),
		store,
		tracer,
		hub,
		a.Metrics,
		services.EvaluationOptions{
			Concurrency:   a.Config.Evaluation.Concurrency,
			RecordTimeout: a.Config.Evaluation.RecordTimeout,
			IdleTimeout:   a.Config.Stream.IdleTimeout,
		},
		a.Logger,
	)

	healthService := services.NewHealthService(contracts.Version, a.Config.Providers, evaluationService, hub, a.Logger)

	a.Services = &ServiceContainer{
		Evaluation: evaluationService,
		Health:     healthService,
		Store:      store,
	}
	return nil
}

// scoringProviders builds the analysis roles. Missing credentials leave the
// server running with roles that fail every record; readiness reports them.
func (a *Application) scoringProviders() (providers.ScoringProviders, error) {
	if a.scoring != nil {
		return *a.scoring, nil
	}
	scoring, err := providers.NewScoringProviders(context.Background(), a.Config.Providers, a.Logger)
	if err == nil {
		return scoring, nil
	}
	if errors.Is(err, config.ErrMissingAPIKey) {
		a.Logger.Warn("Analysis providers unavailable", slog.String("error", err.Error()))
		return providers.Unavailable(err), nil
	}
	return providers.ScoringProviders{}, fmt.Errorf("failed to initialize providers: %w", err)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These don't wrap the ResponseWriter, so they are safe for the upgrade
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	// Preflight requests never match a route, so CORS sits on the root
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}

	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, handlers.WebSocketConfig{
		AllowedOrigins:  a.Config.Security.AllowedOrigins,
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		Client: ws.ClientOptions{
			PingPeriod: a.Config.WebSocket.PingPeriod,
			PongWait:   a.Config.WebSocket.PongWait,
		},
	}, a.ErrorHandler, a.Logger)
	r.With(
		customMiddleware.StructuredLogger(a.Logger),
		apierrors.RecoveryMiddleware(a.ErrorHandler),
		customMiddleware.WebSocketTraceMiddleware(a.OTelProviders.Tracer, a.Logger),
	).Handle("/ws", wsHandler)

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → CORS → OTel → logging/recovery → headers → rate limit
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			).Handler)
		}

		health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Get("/", health.Root)
		a.setupAPIRoutes(r, health)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, health *handlers.HealthHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/health/live", health.LivenessCheck)
		r.Get("/version", health.Version)

		evaluations := handlers.NewEvaluationHandler(
			a.Services.Evaluation,
			customMiddleware.NewValidator(),
			a.ErrorHandler,
			a.Config.Security.MaxUploadBytes,
			a.Logger,
		)
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.MaxBodySize(a.Config.Security.MaxUploadBytes))
			evaluations.RegisterRoutes(r)
		})
	})
}

// getCORSConfig exposes the batch id header so browsers can read it from the stream response
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-Batch-ID",
			"Content-Disposition",
		},
		AllowCredentials: !containsWildcard(a.Config.Security.AllowedOrigins),
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.WithoutCancel(ctx))
}

// performStartupHealthCheck reports configuration that will make evaluations fail
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	status := a.Services.Health.ReadinessCheck(ctx)
	if status.Status == "ready" {
		a.Logger.InfoContext(ctx, "Startup health check passed")
		return nil
	}

	var warnings []string
	for name, svc := range status.Services {
		if svc.Status != "ready" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", name, svc.Message))
		}
	}
	return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
}
