package observe

import (
	"context"
	"time"
)

// Instrumentation bundles the tracer, metrics and logger used around cache
// operations.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: Run propagates the span context into fn.
//   - Errors: errors from fn are recorded and returned unchanged.
type Instrumentation struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumentation creates an Instrumentation. Nil components become no-ops.
func NewInstrumentation(tracer Tracer, metrics Metrics, logger Logger) *Instrumentation {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Instrumentation{tracer: tracer, metrics: metrics, logger: logger}
}

// InstrumentationFromObserver builds an Instrumentation from an Observer.
func InstrumentationFromObserver(obs Observer) (*Instrumentation, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstrumentation(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Nop returns an Instrumentation that records nothing.
func Nop() *Instrumentation {
	return NewInstrumentation(nil, nil, nil)
}

// Metrics returns the cache instruments.
func (i *Instrumentation) Metrics() Metrics { return i.metrics }

// Logger returns the logger.
func (i *Instrumentation) Logger() Logger { return i.logger }

// Run executes fn inside a span for op. Failures are logged at warn level
// and counted; successes are logged at debug level.
func (i *Instrumentation) Run(ctx context.Context, op CacheOp, fn func(ctx context.Context) error) error {
	ctx, span := i.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	i.tracer.EndSpan(span, err)

	fields := append(op.Fields(), Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
	if err != nil {
		i.metrics.RecordError(ctx, op)
		i.logger.Warn(ctx, "cache operation failed", append(fields, Err(err))...)
	} else {
		i.logger.Debug(ctx, "cache operation completed", fields...)
	}
	return err
}
