package errors

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"tiervc/internal/infrastructure"
)

// ErrorMiddleware recovers panics into problems and writes one access log
// line per request. Evaluation streams are logged with their batch id once
// the stream ends.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  infrastructure.WithComponent(logger, "error_middleware"),
	}
}

// Handler returns the middleware handler function
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer m.handler.recoverInto(ww, r)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		}
		if batchID := ww.Header().Get("X-Batch-ID"); batchID != "" {
			attrs = append(attrs, slog.String("batch_id", batchID))
		}
		if strings.HasPrefix(ww.Header().Get("Content-Type"), "text/event-stream") {
			attrs = append(attrs, slog.Bool("stream", true))
		}
		if r.URL.RawQuery != "" {
			attrs = append(attrs, slog.String("query", r.URL.RawQuery))
		}
		m.logger.LogAttrs(r.Context(), levelForStatus(status), "http request", attrs...)
	})
}

// RecoveryMiddleware only recovers panics. It guards routes that log
// elsewhere, such as the websocket upgrade.
func RecoveryMiddleware(handler *ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer handler.recoverInto(w, r)
			next.ServeHTTP(w, r)
		})
	}
}

// recoverInto must be deferred directly. http.ErrAbortHandler is re-raised
// so net/http can drop the connection.
func (h *ErrorHandler) recoverInto(w http.ResponseWriter, r *http.Request) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		panic(rec)
	}
	h.HandlePanic(w, r, rec)
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
