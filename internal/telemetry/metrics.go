// Package telemetry provides OpenTelemetry instrumentation for the instance store.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RepositoryMetricsMeterName is the name used for the git repository metrics meter
	RepositoryMetricsMeterName = "github.com/stacklok/osb-git-store/repository"

	// OperationMetricsMeterName is the name used for the lifecycle operation metrics meter
	OperationMetricsMeterName = "github.com/stacklok/osb-git-store/lifecycle"
)

// Pull modes recorded by RepositoryMetrics.RecordPull
const (
	PullModeFastForward = "fast-forward"
	PullModeRebase      = "rebase"
)

// RepositoryMetrics holds the OpenTelemetry instruments for git synchronization
type RepositoryMetrics struct {
	pullsTotal  metric.Int64Counter
	pushRetries metric.Int64Counter
}

// NewRepositoryMetrics creates a new RepositoryMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRepositoryMetrics(provider metric.MeterProvider) (*RepositoryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RepositoryMetricsMeterName)

	pullsTotal, err := meter.Int64Counter(
		"osb_git_store_pulls_total",
		metric.WithDescription("Number of pulls from the remote repository by mode and outcome"),
		metric.WithUnit("{pull}"),
	)
	if err != nil {
		return nil, err
	}

	pushRetries, err := meter.Int64Counter(
		"osb_git_store_push_retries_total",
		metric.WithDescription("Number of rejected pushes that triggered a pull and a retry"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	return &RepositoryMetrics{
		pullsTotal:  pullsTotal,
		pushRetries: pushRetries,
	}, nil
}

// RecordPull records one pull attempt in the given mode
func (m *RepositoryMetrics) RecordPull(ctx context.Context, mode string, success bool) {
	if m == nil || m.pullsTotal == nil {
		return
	}

	m.pullsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	))
}

// RecordPushRetry records a rejected push that is about to be retried
func (m *RepositoryMetrics) RecordPushRetry(ctx context.Context) {
	if m == nil || m.pushRetries == nil {
		return
	}

	m.pushRetries.Add(ctx, 1)
}

// OperationMetrics holds the OpenTelemetry instruments for lifecycle operations
type OperationMetrics struct {
	operationDuration metric.Float64Histogram
}

// NewOperationMetrics creates a new OperationMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewOperationMetrics(provider metric.MeterProvider) (*OperationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(OperationMetricsMeterName)

	operationDuration, err := meter.Float64Histogram(
		"osb_git_store_operation_duration_seconds",
		metric.WithDescription("Duration of mutating instance operations including git round trips"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	return &OperationMetrics{
		operationDuration: operationDuration,
	}, nil
}

// RecordOperation records the duration of a mutating operation
func (m *OperationMetrics) RecordOperation(ctx context.Context, operation string, duration time.Duration, success bool) {
	if m == nil || m.operationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	}

	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
