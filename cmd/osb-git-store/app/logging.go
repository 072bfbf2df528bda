package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logLevel is shared by every handler built by NewLogHandler so the level
// flags can change it after the handler is installed
var logLevel = new(slog.LevelVar)

// parseLogLevel maps a level name to a slog.Level.
// Invalid names fall back to info with a warning.
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid log level, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

// setLogLevel applies --log-level (or OSB_GIT_STORE_LOG_LEVEL); --debug wins
func setLogLevel(levelStr string, debug bool) {
	if debug {
		logLevel.Set(slog.LevelDebug)
		return
	}
	logLevel.Set(parseLogLevel(levelStr))
}

// traceHandler wraps an slog.Handler to inject OpenTelemetry trace_id and
// span_id into every record logged with a span in its context
type traceHandler struct {
	slog.Handler
	level slog.Leveler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}

// NewLogHandler builds the JSON log handler of the CLI. Records go to stderr
// through zap, keeping stdout clean for command output such as
// "version --format json". The returned function flushes buffered entries.
func NewLogHandler() (slog.Handler, func(), error) {
	zl, err := newZapLogger()
	if err != nil {
		return nil, nil, err
	}
	handler := &traceHandler{
		Handler: logr.ToSlogHandler(zapr.NewLogger(zl)),
		level:   logLevel,
	}
	return handler, func() { _ = zl.Sync() }, nil
}

func newZapLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	// slog debug arrives as logr V(4), which zapr logs at zap level -4.
	// Filtering happens in traceHandler.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(slog.LevelDebug))
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		zapcore.LowercaseLevelEncoder(max(l, zapcore.DebugLevel), enc)
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zl, nil
}
