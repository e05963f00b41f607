package http

import (
	"net/http"

	apierrors "tiervc/internal/errors"
)

// MetricsHandler serves the Prometheus scrape endpoint
type MetricsHandler struct {
	exporter http.Handler
	errors   *apierrors.ErrorHandler
}

// NewMetricsHandler wraps the exporter handler; a nil exporter answers 503
func NewMetricsHandler(exporter http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter, errors: errorHandler}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		h.errors.HandleError(w, r, apierrors.ErrServiceUnavailable)
		return
	}
	h.exporter.ServeHTTP(w, r)
}
