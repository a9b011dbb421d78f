package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation describes one instrumented unit of work for telemetry purposes.
type Operation struct {
	Component  string               // Emitting package, e.g. "icon" or "avatar"
	Name       string               // Operation name, e.g. "load" (required)
	Attributes []attribute.KeyValue // Extra span/metric attributes (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: listicons.<component>.<name> or listicons.<name>
func (o Operation) SpanName() string {
	if o.Component != "" {
		return "listicons." + o.Component + "." + o.Name
	}
	return "listicons." + o.Name
}

// ID returns the dotted component.name identifier.
func (o Operation) ID() string {
	if o.Component != "" {
		return o.Component + "." + o.Name
	}
	return o.Name
}

// With returns a copy of the operation with extra attributes appended.
func (o Operation) With(attrs ...attribute.KeyValue) Operation {
	merged := make([]attribute.KeyValue, 0, len(o.Attributes)+len(attrs))
	merged = append(merged, o.Attributes...)
	merged = append(merged, attrs...)
	o.Attributes = merged
	return o
}

// Tracer wraps OpenTelemetry tracing with operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for the operation.
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("op.id", op.ID()),
		attribute.Bool("op.error", false), // Updated in EndSpan
	}
	if op.Component != "" {
		attrs = append(attrs, attribute.String("op.component", op.Component))
	}
	attrs = append(attrs, op.Attributes...)

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
