package observe

import (
	"context"
	"time"
)

// OperationFunc is the unit of work that Middleware wraps.
type OperationFunc func(ctx context.Context) error

// Middleware wraps operations with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe function.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
//     An operation without a name fails with ErrMissingOperationName.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps fn with tracing, metrics, and logging for op.
func (m *Middleware) Wrap(op Operation, fn OperationFunc) OperationFunc {
	return func(ctx context.Context) error {
		if op.Name == "" {
			return ErrMissingOperationName
		}
		ctx, span := m.tracer.StartSpan(ctx, op)
		start := time.Now()

		err := fn(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordOperation(ctx, op, duration, err)

		fields := []Field{
			F("op", op.ID()),
			F("duration_ms", float64(duration.Microseconds())/1000),
		}
		if err != nil {
			fields = append(fields, Err(err))
			m.logger.Error(ctx, "operation failed", fields...)
		} else {
			m.logger.Debug(ctx, "operation completed", fields...)
		}

		return err
	}
}

// Run is shorthand for m.Wrap(op, fn)(ctx).
func (m *Middleware) Run(ctx context.Context, op Operation, fn OperationFunc) error {
	return m.Wrap(op, fn)(ctx)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
