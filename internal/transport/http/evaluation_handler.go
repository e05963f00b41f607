package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "tiervc/internal/errors"
	"tiervc/internal/evaluation"
	"tiervc/internal/exporter"
	"tiervc/internal/infrastructure"
	"tiervc/internal/middleware"
	"tiervc/internal/services"
	"tiervc/pkg/contracts/api/v1"
)

// uploadField is the multipart form field carrying the spreadsheet
const uploadField = "file"

// EvaluationHandler serves the evaluate, download and batch endpoints
type EvaluationHandler struct {
	service   EvaluationService
	validator *middleware.Validator
	errors    *apierrors.ErrorHandler
	maxUpload int64
	logger    *slog.Logger
}

// NewEvaluationHandler creates the handler. maxUpload bounds multipart
// parsing held in memory.
func NewEvaluationHandler(service EvaluationService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, maxUpload int64, logger *slog.Logger) *EvaluationHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if validator == nil {
		validator = middleware.NewValidator()
	}
	logger = infrastructure.WithComponent(logger, "http").With(slog.String("handler", "evaluation"))
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &EvaluationHandler{
		service:   service,
		validator: validator,
		errors:    errorHandler,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Routes returns a router meant to be mounted under /api
func (h *EvaluationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes adds the evaluation endpoints to r
func (h *EvaluationHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.ContentTypeValidator(h.errors, "application/json", "multipart/form-data")).
		Post("/evaluate", h.Evaluate)
	r.Get("/download", h.DownloadLatest)
	r.Get("/batches", h.ListBatches)
	r.Get("/batches/{id}", h.GetBatch)
	r.Get("/batches/{id}/download", h.DownloadBatch)
}

// Evaluate handles POST /api/evaluate. The body is either a multipart upload
// with a "file" field or a JSON EvaluateRequest. Problems are returned as
// JSON until the stream opens; afterwards progress arrives as server-sent
// events ending in complete or error.
func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sub, err := h.submission(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	run, err := h.service.Begin(sub)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	w.Header().Set("X-Batch-ID", run.ID())
	sse := newSSEWriter(w)
	if err := sse.start(); err != nil {
		h.logger.WarnContext(ctx, "event stream could not start", slog.String("error", err.Error()))
	}

	batch, err := run.Stream(ctx, sse.Send)
	if err != nil {
		h.logger.WarnContext(ctx, "evaluation stream ended without completing",
			slog.String("batch_id", run.ID()),
			slog.String("error", err.Error()))
		return
	}
	h.logger.InfoContext(ctx, "evaluation stream completed",
		slog.String("batch_id", batch.ID),
		slog.Int("results", len(batch.Results)),
		slog.Int("failed", batch.Failed))
}

func (h *EvaluationHandler) submission(r *http.Request) (*services.Submission, error) {
	ctx := r.Context()
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "application/json":
		var req api.EvaluateRequest
		if err := h.validator.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.service.FromRecords(ctx, req.Records)

	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, maxErr
			}
			return nil, apierrors.InvalidUploadWithError(err)
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			return nil, apierrors.InvalidUploadWithError(fmt.Errorf("form field %q: %w", uploadField, err))
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return nil, apierrors.InvalidUploadWithError(err)
		}
		return h.service.ParseUpload(ctx, header.Filename, content)

	default:
		return nil, apierrors.NewWithDetails(
			http.StatusUnsupportedMediaType,
			apierrors.CodeUnsupportedMediaType,
			"Upload a spreadsheet as multipart/form-data or send records as JSON",
			map[string]interface{}{"content_type": r.Header.Get("Content-Type")},
		)
	}
}

// DownloadLatest handles GET /api/download?format=xlsx|csv
func (h *EvaluationHandler) DownloadLatest(w http.ResponseWriter, r *http.Request) {
	format, err := downloadFormat(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	file, err := h.service.ExportLatest(r.Context(), format)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	writeDownload(w, file)
}

// DownloadBatch handles GET /api/batches/{id}/download?format=xlsx|csv
func (h *EvaluationHandler) DownloadBatch(w http.ResponseWriter, r *http.Request) {
	format, err := downloadFormat(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	batch, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	file, err := h.service.Export(r.Context(), batch, format)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	writeDownload(w, file)
}

func downloadFormat(r *http.Request) (exporter.Format, error) {
	format, err := exporter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return "", apierrors.InvalidRequestWithError(err)
	}
	return format, nil
}

// ListBatches handles GET /api/batches
func (h *EvaluationHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches := h.service.List()
	resp := api.BatchListResponse{Batches: make([]api.BatchResponse, 0, len(batches))}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, toBatchResponse(b))
	}
	render.JSON(w, r, resp)
}

// GetBatch handles GET /api/batches/{id}
func (h *EvaluationHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, toBatchResponse(batch))
}

func writeDownload(w http.ResponseWriter, file exporter.File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

func toBatchResponse(b *evaluation.Batch) api.BatchResponse {
	return api.BatchResponse{
		ID:          b.ID,
		Status:      string(b.Status),
		Source:      b.Source,
		Total:       b.Total,
		Failed:      b.Failed,
		TierCounts:  b.TierCounts,
		Results:     b.Results,
		StartedAt:   b.StartedAt,
		CompletedAt: b.CompletedAt,
		Error:       b.Error,
	}
}
