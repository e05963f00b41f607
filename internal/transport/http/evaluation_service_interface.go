package http

import (
	"context"

	"tiervc/internal/evaluation"
	"tiervc/internal/exporter"
	"tiervc/internal/services"
	"tiervc/pkg/contracts/domain"
)

// EvaluationService is what the evaluation handler needs from the service layer
type EvaluationService interface {
	ParseUpload(ctx context.Context, filename string, content []byte) (*services.Submission, error)
	FromRecords(ctx context.Context, records []domain.InputRecord) (*services.Submission, error)
	Begin(sub *services.Submission) (*services.Run, error)
	Latest() (*evaluation.Batch, error)
	Get(id string) (*evaluation.Batch, error)
	List() []*evaluation.Batch
	ExportLatest(ctx context.Context, format exporter.Format) (exporter.File, error)
	Export(ctx context.Context, batch *evaluation.Batch, format exporter.Format) (exporter.File, error)
}
