// Package testutil holds helpers shared by package tests: a capturing slog
// handler and deterministic analysis providers.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is a captured log line with its attributes flattened
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type logBuffer struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler captures log records, including attributes bound
// with Logger.With, for assertions
type BufferedSlogHandler struct {
	buf   *logBuffer
	attrs []slog.Attr
	t     *testing.T
}

// NewBufferedSlogHandler creates a handler that also echoes lines to t
func NewBufferedSlogHandler(t *testing.T) *BufferedSlogHandler {
	return &BufferedSlogHandler{buf: &logBuffer{}, t: t}
}

// NewTestLogger creates a logger backed by a BufferedSlogHandler
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	h := NewBufferedSlogHandler(t)
	return slog.New(h), h
}

// Enabled implements slog.Handler
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.buf.mu.Lock()
	h.buf.records = append(h.buf.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	h.buf.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferedSlogHandler{
		buf:   h.buf,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
		t:     h.t,
	}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *BufferedSlogHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of every captured record
func (h *BufferedSlogHandler) Records() []LogRecord {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return append([]LogRecord(nil), h.buf.records...)
}

// Find returns the records whose message contains message
func (h *BufferedSlogHandler) Find(message string) []LogRecord {
	var found []LogRecord
	for _, r := range h.Records() {
		if strings.Contains(r.Message, message) {
			found = append(found, r)
		}
	}
	return found
}

// ByLevel returns the records logged at level
func (h *BufferedSlogHandler) ByLevel(level slog.Level) []LogRecord {
	var found []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			found = append(found, r)
		}
	}
	return found
}

// AssertLogged fails t unless a record at level contains message and
// carries every attribute in attrs
func AssertLogged(t *testing.T, h *BufferedSlogHandler, level slog.Level, message string, attrs map[string]any) {
	t.Helper()

next:
	for _, r := range h.ByLevel(level) {
		if !strings.Contains(r.Message, message) {
			continue
		}
		for k, want := range attrs {
			if got, ok := r.Attrs[k]; !ok || got != want {
				continue next
			}
		}
		return
	}

	t.Errorf("no %s log containing %q with attrs %v", level, message, attrs)
	for _, r := range h.Records() {
		t.Logf("  - [%s] %s %v", r.Level, r.Message, r.Attrs)
	}
}

// AssertNoErrors fails t if anything was logged at error level
func AssertNoErrors(t *testing.T, h *BufferedSlogHandler) {
	t.Helper()
	for _, r := range h.ByLevel(slog.LevelError) {
		t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
	}
}
