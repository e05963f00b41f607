package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tiervc/internal/evaluation"
	"tiervc/internal/exporter"
	"tiervc/internal/infrastructure"
	"tiervc/internal/spreadsheet"
	"tiervc/internal/stream"
	"tiervc/pkg/contracts/domain"
	"tiervc/pkg/contracts/events"
)

// resultsBaseName is the download name of exports without extension
const resultsBaseName = "TierVC_results"

// Submission is a parsed upload ready to be evaluated
type Submission struct {
	Source  string
	Records []domain.InputRecord
	Mapping map[string]string
}

// Names lists the record names in submission order
func (s *Submission) Names() []string {
	names := make([]string, len(s.Records))
	for i, r := range s.Records {
		names[i] = r.Name
	}
	return names
}

// BatchBroadcaster mirrors batch events to live subscribers
type BatchBroadcaster interface {
	Emitter(ctx context.Context, batchID string) stream.Emitter
}

// SheetFetcher reads the raw cells of a Google Sheet
type SheetFetcher interface {
	Fetch(ctx context.Context, sheetID, readRange string) ([][]string, error)
}

// EvaluationOptions tunes batch execution and streaming
type EvaluationOptions struct {
	Concurrency   int
	RecordTimeout time.Duration
	IdleTimeout   time.Duration
}

// EvaluationService runs uploads through the evaluation pipeline and keeps
// the completed batches
type EvaluationService struct {
	parser    *spreadsheet.Parser
	evaluator *evaluation.Evaluator
	store     *evaluation.MemoryStore
	tracer    *evaluation.Tracer
	hub       BatchBroadcaster
	metrics   *infrastructure.BusinessMetrics
	opts      EvaluationOptions
	logger    *slog.Logger
}

// NewEvaluationService wires the service. hub and metrics may be nil.
func NewEvaluationService(
	parser *spreadsheet.Parser,
	evaluator *evaluation.Evaluator,
	store *evaluation.MemoryStore,
	tracer *evaluation.Tracer,
	hub BatchBroadcaster,
	metrics *infrastructure.BusinessMetrics,
	opts EvaluationOptions,
	logger *slog.Logger,
) *EvaluationService {
	if tracer == nil {
		tracer = evaluation.NewTracer(metrics)
	}
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	return &EvaluationService{
		parser:    parser,
		evaluator: evaluator,
		store:     store,
		tracer:    tracer,
		hub:       hub,
		metrics:   metrics,
		opts:      opts,
		logger:    infrastructure.WithComponent(logger, "evaluation_service"),
	}
}

// ParseUpload parses an XLSX or CSV upload
func (s *EvaluationService) ParseUpload(ctx context.Context, filename string, content []byte) (*Submission, error) {
	records, mapping, err := s.parser.Parse(content)
	if err != nil {
		s.logger.WarnContext(ctx, "upload_parse_failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return nil, err
	}
	return s.submission(ctx, filename, records, mapping)
}

// ImportSheet reads a Google Sheet through fetcher and parses it like an upload
func (s *EvaluationService) ImportSheet(ctx context.Context, fetcher SheetFetcher, sheetID, readRange string) (*Submission, error) {
	rows, err := fetcher.Fetch(ctx, sheetID, readRange)
	if err != nil {
		return nil, err
	}
	records, mapping, err := s.parser.ParseRows(rows)
	if err != nil {
		return nil, err
	}
	return s.submission(ctx, "sheets:"+sheetID, records, mapping)
}

// FromRecords builds a submission from records sent as JSON. Every field
// maps to its own JSON key. Like an upload, only the first MaxRecords
// non-blank records are kept.
func (s *EvaluationService) FromRecords(ctx context.Context, records []domain.InputRecord) (*Submission, error) {
	limit := s.parser.MaxRecords()
	clean := make([]domain.InputRecord, 0, min(len(records), limit))
	for _, r := range records {
		if r.IsBlank() {
			continue
		}
		clean = append(clean, r.WithDefaults())
		if len(clean) >= limit {
			break
		}
	}
	mapping := make(spreadsheet.Mapping, 0, len(spreadsheet.Fields()))
	for _, f := range spreadsheet.Fields() {
		mapping = append(mapping, spreadsheet.FieldMapping{Field: f, Column: f})
	}
	return s.submission(ctx, "json", clean, mapping)
}

func (s *EvaluationService) submission(ctx context.Context, source string, records []domain.InputRecord, mapping spreadsheet.Mapping) (*Submission, error) {
	if len(records) == 0 {
		return nil, ErrNoStartups
	}
	s.logger.InfoContext(ctx, "submission_parsed",
		slog.String("source", source),
		slog.Int("records", len(records)))
	return &Submission{Source: source, Records: records, Mapping: mapping.Map()}, nil
}

// Run is an admitted batch waiting to be streamed
type Run struct {
	svc   *EvaluationService
	batch *evaluation.Batch
	sub   *Submission
}

// ID returns the batch id
func (r *Run) ID() string { return r.batch.ID }

// Begin admits sub as the running batch. Only one batch runs at a time.
func (s *EvaluationService) Begin(sub *Submission) (*Run, error) {
	batch, err := s.store.BeginBatch(sub.Source, len(sub.Records))
	if err != nil {
		return nil, err
	}
	return &Run{svc: s, batch: batch, sub: sub}, nil
}

// Stream evaluates the batch and delivers its events to sink in order:
// mapping, startups, interleaved log/result events, then complete. If the
// stream stalls for the idle timeout sink receives an error event instead.
// A failing sink, a cancelled ctx or the idle timeout cancel the batch.
func (r *Run) Stream(ctx context.Context, sink stream.Sink) (*evaluation.Batch, error) {
	s := r.svc
	id := r.batch.ID
	logger := s.logger.With(slog.String("batch_id", id))

	ctx, cancel := context.WithCancel(infrastructure.WithBatchID(ctx, id))
	defer cancel()
	ctx, span := s.tracer.StartBatch(ctx, id, len(r.sub.Records))

	q := stream.NewQueue()
	emit := q.Emit
	var mirror stream.Emitter
	if s.hub != nil {
		// The hub outlives the request, so it must not see the cancellation.
		mirror = s.hub.Emitter(context.WithoutCancel(ctx), id)
		emit = stream.Tee(q.Emit, mirror)
	}

	logger.InfoContext(ctx, "batch_started",
		slog.String("source", r.sub.Source),
		slog.Int("records", len(r.sub.Records)))

	var (
		outcome  evaluation.BatchOutcome
		stored   *evaluation.Batch
		runErr   error
		relayErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		defer q.Close()
		emit(events.Mapping{Mapping: r.sub.Mapping, Count: len(r.sub.Records)})
		emit(events.Startups{Names: r.sub.Names()})

		outcome, runErr = s.evaluator.EvaluateBatch(ctx, r.sub.Records, emit, evaluation.BatchOptions{
			BatchID:       id,
			Concurrency:   s.opts.Concurrency,
			RecordTimeout: s.opts.RecordTimeout,
		})
		if runErr != nil {
			return nil
		}
		stored, runErr = s.store.Complete(id, outcome.Results, outcome.Failed)
		if runErr != nil {
			return nil
		}
		emit(events.Complete{
			BatchID:    id,
			TierCounts: stored.TierCounts,
			Total:      len(stored.Results),
			Failed:     stored.Failed,
		})
		return nil
	})
	g.Go(func() error {
		relayErr = stream.Relay(ctx, q, s.opts.IdleTimeout, sink)
		if relayErr != nil {
			cancel()
		}
		return nil
	})
	_ = g.Wait()

	if runErr == nil {
		s.tracer.EndBatch(ctx, span, string(evaluation.BatchStatusCompleted), len(outcome.Results), outcome.Failed)
		logger.InfoContext(ctx, "batch_completed",
			slog.Int("succeeded", len(outcome.Results)),
			slog.Int("failed", outcome.Failed))
		if relayErr != nil {
			logger.WarnContext(ctx, "stream_ended_early", slog.String("error", relayErr.Error()))
		}
		return stored, nil
	}

	cause := runErr
	status := evaluation.BatchStatusFailed
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		status = evaluation.BatchStatusCancelled
	}
	if relayErr != nil {
		cause = fmt.Errorf("event stream: %w", relayErr)
	}
	if errors.Is(relayErr, stream.ErrIdleTimeout) {
		s.metrics.StreamIdleTimeouts.Add(context.WithoutCancel(ctx), 1)
	}
	if err := s.store.Fail(id, status, cause); err != nil {
		logger.ErrorContext(ctx, "batch_fail_not_recorded", slog.String("error", err.Error()))
	}
	if mirror != nil {
		mirror(events.Error{Message: "Batch " + string(status) + ": " + cause.Error()})
	}

	s.tracer.EndBatch(ctx, span, string(status), len(outcome.Results), outcome.Failed)
	logger.WarnContext(ctx, "batch_aborted",
		slog.String("status", string(status)),
		slog.Int("succeeded", len(outcome.Results)),
		slog.Int("failed", outcome.Failed),
		slog.String("error", cause.Error()))
	return nil, cause
}

// Latest returns the most recently completed batch
func (s *EvaluationService) Latest() (*evaluation.Batch, error) {
	return s.store.Latest()
}

// Get returns one batch by id
func (s *EvaluationService) Get(id string) (*evaluation.Batch, error) {
	return s.store.Get(id)
}

// List returns the retained batches, newest first
func (s *EvaluationService) List() []*evaluation.Batch {
	return s.store.List()
}

// Active returns the id of the running batch, if any
func (s *EvaluationService) Active() (string, bool) {
	return s.store.Active()
}

// ExportLatest renders the latest completed batch
func (s *EvaluationService) ExportLatest(ctx context.Context, format exporter.Format) (exporter.File, error) {
	batch, err := s.store.Latest()
	if err != nil {
		return exporter.File{}, err
	}
	return s.render(ctx, batch, format, resultsBaseName)
}

// Export renders a completed batch sorted by score
func (s *EvaluationService) Export(ctx context.Context, batch *evaluation.Batch, format exporter.Format) (exporter.File, error) {
	return s.render(ctx, batch, format, resultsBaseName+"_"+batch.ID)
}

func (s *EvaluationService) render(ctx context.Context, batch *evaluation.Batch, format exporter.Format, baseName string) (exporter.File, error) {
	if batch.Status != evaluation.BatchStatusCompleted {
		return exporter.File{}, fmt.Errorf("batch %s is %s: %w", batch.ID, batch.Status, evaluation.ErrNoResults)
	}
	file, err := exporter.Render(format, baseName, batch.Results)
	if err != nil {
		return exporter.File{}, fmt.Errorf("export batch %s: %w", batch.ID, err)
	}
	s.logger.InfoContext(ctx, "batch_exported",
		slog.String("batch_id", batch.ID),
		slog.String("format", string(format)),
		slog.Int("results", len(batch.Results)),
		slog.Int("bytes", len(file.Data)))
	return file, nil
}
