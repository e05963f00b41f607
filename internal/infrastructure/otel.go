package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"tiervc/pkg/contracts"
)

const (
	ServiceName = "tiervc"
	MeterName   = "tiervc"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout" or "none"
	MetricExporter string // "prometheus" or "none"
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns the default configuration: Prometheus metrics
// and no span export.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up the global tracer and meter providers
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return providers, nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var opts []sdktrace.TracerProviderOption
	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(append(opts,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)...)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "Tracing initialized", slog.String("exporter", cfg.TraceExporter))
	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none", "":
		providers.Meter = noop.NewMeterProvider().Meter(MeterName)
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.DebugContext(ctx, "Metrics initialized", slog.String("exporter", cfg.MetricExporter))
	return nil
}

// BusinessMetrics holds the application metrics
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	BatchesTotal          metric.Int64Counter
	RecordsTotal          metric.Int64Counter
	RecordDuration        metric.Float64Histogram
	StageDuration         metric.Float64Histogram
	ProviderErrors        metric.Int64Counter
	ActiveRecords         metric.Int64UpDownCounter
	StreamIdleTimeouts    metric.Int64Counter
	WebSocketConnections  metric.Int64UpDownCounter
	WebSocketMessagesSent metric.Int64Counter
}

// CreateBusinessMetrics registers the application metrics on meter. A nil
// meter yields no-op instruments.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
	}

	m := &BusinessMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of active HTTP requests")); err != nil {
		return nil, err
	}
	if m.BatchesTotal, err = meter.Int64Counter("evaluation_batches_total",
		metric.WithDescription("Total number of evaluation batches by final status")); err != nil {
		return nil, err
	}
	if m.RecordsTotal, err = meter.Int64Counter("evaluation_records_total",
		metric.WithDescription("Total number of evaluated startups by outcome")); err != nil {
		return nil, err
	}
	if m.RecordDuration, err = meter.Float64Histogram("evaluation_record_duration_seconds",
		metric.WithDescription("Wall-clock time to evaluate one startup"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.StageDuration, err = meter.Float64Histogram("evaluation_stage_duration_seconds",
		metric.WithDescription("Duration of one analysis stage"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.ProviderErrors, err = meter.Int64Counter("evaluation_provider_errors_total",
		metric.WithDescription("Provider and judgment parse failures by stage")); err != nil {
		return nil, err
	}
	if m.ActiveRecords, err = meter.Int64UpDownCounter("evaluation_active_records",
		metric.WithDescription("Startups currently being evaluated")); err != nil {
		return nil, err
	}
	if m.StreamIdleTimeouts, err = meter.Int64Counter("stream_idle_timeouts_total",
		metric.WithDescription("Event streams closed because no event arrived in time")); err != nil {
		return nil, err
	}
	if m.WebSocketConnections, err = meter.Int64UpDownCounter("websocket_connections",
		metric.WithDescription("Connected WebSocket clients")); err != nil {
		return nil, err
	}
	if m.WebSocketMessagesSent, err = meter.Int64Counter("websocket_messages_sent_total",
		metric.WithDescription("Messages delivered to WebSocket clients")); err != nil {
		return nil, err
	}

	return m, nil
}

// NoopBusinessMetrics returns metrics that record nothing
func NoopBusinessMetrics() *BusinessMetrics {
	m, _ := CreateBusinessMetrics(nil)
	return m
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}
