package evaluation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tiervc/internal/stream"
	"tiervc/pkg/contracts/domain"
	"tiervc/pkg/contracts/events"
)

// BatchOptions bounds how a batch is executed
type BatchOptions struct {
	// BatchID labels log lines; it is optional
	BatchID string
	// Concurrency caps simultaneous pipelines; <= 0 runs every record at once
	Concurrency int
	// RecordTimeout bounds one record's pipeline; <= 0 disables it
	RecordTimeout time.Duration
}

// BatchOutcome is what a batch produced. Results keep submission order
// with failed records left out.
type BatchOutcome struct {
	Results []domain.EvaluationResult
	Failed  int
	Errors  []*EvaluationError
}

// EvaluateBatch evaluates records concurrently. A failing record is logged
// and skipped; it never aborts the others. Cancelling ctx cancels every
// in-flight pipeline, and the partial outcome is returned with ctx's error.
func (e *Evaluator) EvaluateBatch(ctx context.Context, records []domain.InputRecord, emit stream.Emitter, opts BatchOptions) (BatchOutcome, error) {
	if emit == nil {
		emit = func(events.Event) {}
	}
	logger := e.logger.With(slog.String("batch_id", opts.BatchID))

	emit(events.Log{Stage: events.StageSystem, Message: "Starting batch evaluation"})
	logger.InfoContext(ctx, "batch_evaluation_started", slog.Int("records", len(records)))

	var (
		mu      sync.Mutex
		slots   = make([]*domain.EvaluationResult, len(records))
		outcome BatchOutcome
	)

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, record := range records {
		g.Go(func() error {
			result, err := e.evaluateWithTimeout(ctx, record, emit, opts.RecordTimeout)
			if err != nil {
				evalErr := NewStageError("", record.WithDefaults().Name, err)
				logger.ErrorContext(ctx, "record_evaluation_failed",
					slog.String("startup", evalErr.Startup),
					slog.String("stage", evalErr.Stage),
					slog.String("error_type", string(evalErr.Type)),
					slog.String("error", err.Error()))
				emit(events.Log{
					Startup: evalErr.Startup,
					Stage:   failureStage(evalErr),
					Message: "Evaluation failed: " + err.Error(),
				})

				mu.Lock()
				outcome.Failed++
				outcome.Errors = append(outcome.Errors, evalErr)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			slots[i] = &result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	outcome.Results = make([]domain.EvaluationResult, 0, len(records))
	for _, r := range slots {
		if r != nil {
			outcome.Results = append(outcome.Results, *r)
		}
	}

	logger.InfoContext(ctx, "batch_evaluation_finished",
		slog.Int("succeeded", len(outcome.Results)),
		slog.Int("failed", outcome.Failed))

	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (e *Evaluator) evaluateWithTimeout(ctx context.Context, record domain.InputRecord, emit stream.Emitter, timeout time.Duration) (domain.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EvaluationResult{}, NewStageError("", record.WithDefaults().Name, err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return e.EvaluateRecord(ctx, record, emit)
}

func failureStage(err *EvaluationError) events.Stage {
	if err.Stage == "" {
		return events.StageSystem
	}
	return events.Stage(err.Stage)
}
