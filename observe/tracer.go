package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CacheOp describes a cache operation for telemetry purposes.
type CacheOp struct {
	Name       string // lookup|store|invalidate|clear|flush
	EntityType string // optional
	Key        string // optional; omitted from metric attributes
}

// SpanName returns the deterministic span name for the operation.
// Format: cache.<op>.<entity> or cache.<op>
func (o CacheOp) SpanName() string {
	if o.EntityType != "" {
		return "cache." + o.Name + "." + o.EntityType
	}
	return "cache." + o.Name
}

// Fields returns the operation as log fields.
func (o CacheOp) Fields() []Field {
	fields := []Field{{Key: "op", Value: o.Name}}
	if o.EntityType != "" {
		fields = append(fields, Field{Key: "entity_type", Value: o.EntityType})
	}
	if o.Key != "" {
		fields = append(fields, Field{Key: "key", Value: o.Key})
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with cache-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a cache operation.
	StartSpan(ctx context.Context, op CacheOp) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer. A nil tracer yields a no-op.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op CacheOp) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.op", op.Name),
		attribute.Bool("cache.error", false),
	}
	if op.EntityType != "" {
		attrs = append(attrs, attribute.String("cache.entity_type", op.EntityType))
	}
	if op.Key != "" {
		attrs = append(attrs, attribute.String("cache.key", op.Key))
	}

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
