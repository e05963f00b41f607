package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tiervc/internal/evaluation"
	"tiervc/internal/infrastructure"
	"tiervc/internal/services"
	"tiervc/internal/spreadsheet"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       infrastructure.WithComponent(logger, "error_handler"),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return h.apiErrorToProblem(ErrPayloadTooLarge, r)
	case errors.Is(err, evaluation.ErrBatchInProgress):
		return h.apiErrorToProblem(ErrBatchInProgress, r)
	case errors.Is(err, evaluation.ErrNoResults):
		return h.apiErrorToProblem(ErrNoResults, r)
	case errors.Is(err, evaluation.ErrBatchNotFound):
		return h.apiErrorToProblem(ErrBatchNotFound, r)
	case errors.Is(err, services.ErrNoStartups):
		return h.apiErrorToProblem(ErrNoStartups, r)
	case errors.Is(err, spreadsheet.ErrEmptyInput), errors.Is(err, spreadsheet.ErrUnreadable):
		return h.apiErrorToProblem(InvalidUploadWithError(err), r)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

var problemTypes = map[string]string{
	CodeInvalidRequest:       TypeValidation,
	CodeValidationFailed:     TypeValidation,
	CodeInvalidUpload:        TypeInvalidUpload,
	CodeNoStartups:           TypeNoStartups,
	CodeNotFound:             TypeNotFound,
	CodeNoResults:            TypeNoResults,
	CodeBatchNotFound:        TypeBatchNotFound,
	CodeBatchInProgress:      TypeBatchInProgress,
	CodePayloadTooLarge:      TypePayloadTooLarge,
	CodeUnsupportedMediaType: TypeUnsupportedMedia,
	CodeRateLimitExceeded:    TypeRateLimit,
	CodeServiceUnavailable:   TypeServiceDown,
	CodeWebSocketUpgrade:     TypeWebSocket,
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType, ok := problemTypes[apiErr.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		problem.WithExtension("retry_after", 60)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := h.apiErrorToProblem(ErrNotFound, r).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	_ = render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
