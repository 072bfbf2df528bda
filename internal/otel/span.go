// Package otel holds tracing helpers shared by the store packages.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Attribute keys recorded on store spans
const (
	AttrInstanceID    = attribute.Key("osb.instance.id")
	AttrBindingID     = attribute.Key("osb.binding.id")
	AttrOperationKind = attribute.Key("osb.operation.kind")
	AttrState         = attribute.Key("osb.operation.state")
	AttrResultCount   = attribute.Key("result.count")
)

// OperationAttributes describes a lifecycle operation on one instance and,
// for binding operations, one binding. An empty bindingID is omitted.
func OperationAttributes(kind, instanceID, bindingID string) trace.SpanStartOption {
	attrs := []attribute.KeyValue{
		AttrOperationKind.String(kind),
		AttrInstanceID.String(instanceID),
	}
	if bindingID != "" {
		attrs = append(attrs, AttrBindingID.String(bindingID))
	}
	return trace.WithAttributes(attrs...)
}

// StartSpan starts a span on tracer, or returns a no-op span when tracer is nil
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks span as failed. The status description stays generic;
// the error itself is attached as a span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}

// EndSpan records err, if any, and ends span
func EndSpan(span trace.Span, err error) {
	RecordError(span, err)
	span.End()
}
