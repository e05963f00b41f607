package evaluation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"tiervc/internal/infrastructure"
)

const (
	TracerName = "tiervc.evaluation"
)

// Tracer provides spans and metrics for batch, record and stage execution
type Tracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewTracer creates a tracer. A nil metrics value records nothing.
func NewTracer(metrics *infrastructure.BusinessMetrics) *Tracer {
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	return &Tracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
}

// StartBatch creates the span covering a whole batch
func (t *Tracer) StartBatch(ctx context.Context, batchID string, records int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "evaluation.batch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("batch.id", batchID),
			attribute.Int("batch.records", records),
		),
	)
}

// EndBatch records the batch outcome and closes its span
func (t *Tracer) EndBatch(ctx context.Context, span trace.Span, status string, succeeded, failed int) {
	span.SetAttributes(
		attribute.String("batch.status", status),
		attribute.Int("batch.succeeded", succeeded),
		attribute.Int("batch.failed", failed),
	)
	t.metrics.BatchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))

	if status == string(BatchStatusCompleted) {
		span.SetStatus(codes.Ok, "batch completed")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("batch ended with status: %s", status))
	}
	span.End()
}

// StartRecord creates the span for one startup's pipeline
func (t *Tracer) StartRecord(ctx context.Context, startup string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "evaluation.record",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("startup.name", startup)),
	)
	t.metrics.ActiveRecords.Add(ctx, 1)
	return ctx, span
}

// EndRecord records the record outcome and closes its span
func (t *Tracer) EndRecord(ctx context.Context, span trace.Span, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(GetErrorType(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "record evaluated")
	}
	span.SetAttributes(
		attribute.String("record.outcome", outcome),
		attribute.Float64("record.duration_seconds", duration.Seconds()),
	)

	t.metrics.ActiveRecords.Add(ctx, -1)
	t.metrics.RecordsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	t.metrics.RecordDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	span.End()
}

// TraceStage runs fn inside an evaluation.stage.<stage> span and records its duration
func (t *Tracer) TraceStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, "evaluation.stage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage", stage)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	t.metrics.StageDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		t.metrics.ProviderErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
