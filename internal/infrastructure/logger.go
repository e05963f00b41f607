package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"tiervc/internal/config"
)

var (
	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once

	// globalLogFile is closed by CloseLogFile
	globalLogFile *os.File
	logFileMu     sync.Mutex
)

// InitializeLogger creates the process-wide JSON logger and installs it as
// the slog default. Later calls return the first logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	globalLoggerOnce.Do(func() {
		globalLogger, err = NewLogger(cfg, os.Stdout)
		if globalLogger != nil {
			slog.SetDefault(globalLogger)
		}
	})
	return globalLogger, err
}

// GetLogger returns the global logger, or the slog default before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// NewLogger builds a JSON logger writing to console, a file or both
func NewLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLogLevel(cfg.Level),
	}

	output := console
	if mode := strings.ToLower(cfg.Output); mode == "file" || mode == "both" {
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		setLogFile(file)
		output = file
		if mode == "both" {
			output = io.MultiWriter(console, file)
		}
	}

	return slog.New(&contextHandler{Handler: slog.NewJSONHandler(output, opts)}), nil
}

// contextHandler copies trace_id, span_id and batch_id from the context onto
// each record. Keys already bound through With are not repeated.
type contextHandler struct {
	slog.Handler
	bound map[string]bool
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	add := func(key, value string) {
		if value != "" && !h.bound[key] {
			r.AddAttrs(slog.String(key, value))
		}
	}
	add("trace_id", GetTraceID(ctx))
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		add("span_id", sc.SpanID().String())
	}
	add("batch_id", GetBatchID(ctx))
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]bool, len(h.bound)+len(attrs))
	for k := range h.bound {
		bound[k] = true
	}
	for _, a := range attrs {
		bound[a.Key] = true
	}
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), bound: bound}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), bound: h.bound}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CloseLogFile closes the global log file if open
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if globalLogFile != nil {
		err := globalLogFile.Close()
		globalLogFile = nil
		return err
	}
	return nil
}

// ResetLoggerForTesting resets the global logger state
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	globalLogger = nil
	globalLoggerOnce = sync.Once{}
}

func setLogFile(f *os.File) {
	logFileMu.Lock()
	defer logFileMu.Unlock()
	globalLogFile = f
}

func openLogFile(filePath string) (*os.File, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}
	return file, nil
}
