package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "", want: slog.LevelInfo},
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

//nolint:paralleltest // changes the process log level
func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { logLevel.Set(slog.LevelInfo) })

	setLogLevel("error", false)
	assert.Equal(t, slog.LevelError, logLevel.Level())

	setLogLevel("error", true)
	assert.Equal(t, slog.LevelDebug, logLevel.Level(), "--debug overrides the level name")
}

func TestTraceHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(&traceHandler{Handler: inner, level: slog.LevelInfo}).With("component", "test")

	logger.Debug("filtered out")
	assert.Empty(t, buf.String())

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	ctx, span := tp.Tracer("test").Start(t.Context(), "lifecycle.create")
	defer span.End()

	logger.InfoContext(ctx, "Operation accepted", "instance", "test-567")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Operation accepted", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestNewLogHandler(t *testing.T) {
	t.Parallel()

	handler, flush, err := NewLogHandler()
	require.NoError(t, err)
	require.NotNil(t, flush)

	assert.True(t, handler.Enabled(t.Context(), slog.LevelError))
	assert.NotPanics(t, func() {
		slog.New(handler).Error("Push failed", "instance", "test-567")
		flush()
	})
}
