package http

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"tiervc/pkg/contracts/events"
)

// sseWriter writes events as server-sent "data:" frames and flushes each one
type sseWriter struct {
	mu sync.Mutex
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

// start commits the headers so the client sees the stream open at once
func (s *sseWriter) start() error {
	s.w.WriteHeader(http.StatusOK)
	return s.flush()
}

// Send implements stream.Sink
func (s *sseWriter) Send(e events.Event) error {
	data, err := events.Marshal(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.flush()
}

func (s *sseWriter) flush() error {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
