package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiervc/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("console output is JSON with trace id", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(config.LoggingConfig{Level: "debug", Output: "console"}, &buf)
		require.NoError(t, err)

		ctx := WithTraceID(context.Background(), "trace-123")
		logger.InfoContext(ctx, "hello", "key", "value")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "value", entry["key"])
		assert.Equal(t, "trace-123", entry["trace_id"])
	})

	t.Run("batch id from context is not duplicated", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "console"}, &buf)
		require.NoError(t, err)

		ctx := WithBatchID(context.Background(), "batch-7")
		logger.InfoContext(ctx, "from context")
		logger.With("batch_id", "batch-7").InfoContext(ctx, "bound")

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 2)
		for _, line := range lines {
			assert.Equal(t, 1, bytes.Count(line, []byte(`"batch_id"`)), string(line))
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(config.LoggingConfig{Level: "warn", Output: "console"}, &buf)
		require.NoError(t, err)
		logger.Info("dropped")
		assert.Zero(t, buf.Len())
	})

	t.Run("both writes to file", func(t *testing.T) {
		defer ResetLoggerForTesting()
		path := filepath.Join(t.TempDir(), "nested", "tiervc.log")

		var buf bytes.Buffer
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "both", FilePath: path}, &buf)
		require.NoError(t, err)
		logger.Info("to both")
		require.NoError(t, CloseLogFile())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to both")
		assert.Contains(t, buf.String(), "to both")
	})
}

func TestInitializeLoggerOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, GetLogger())
}

func TestTraceIDHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = EnsureTraceID(ctx)
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
}

func TestCreateBusinessMetricsNoop(t *testing.T) {
	m, err := CreateBusinessMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m.RecordsTotal)
	m.RecordsTotal.Add(context.Background(), 1)
}

func TestInitializeOTelWithoutExporters(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "tiervc-test",
		ServiceVersion: "test",
		TraceExporter:  "none",
		MetricExporter: "none",
		SampleRatio:    1,
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.Nil(t, providers.PrometheusHTTP)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTelRejectsUnknownExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "carrier", MetricExporter: "none"}, nil)
	assert.Error(t, err)
}

func TestCollectRuntimeStats(t *testing.T) {
	stats := CollectRuntimeStats()
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.CPUCount)
}
