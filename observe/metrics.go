package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache instruments.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records a cache read and whether it was a hit.
	RecordLookup(ctx context.Context, entityType string, hit bool, d time.Duration)

	// RecordInvalidation records the number of keys removed by an invalidation.
	RecordInvalidation(ctx context.Context, entityType string, removed int64)

	// RecordError records a failed store interaction.
	RecordError(ctx context.Context, op CacheOp)
}

type metricsImpl struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	invalidations metric.Int64Counter
	errors        metric.Int64Counter
	latency       metric.Float64Histogram
}

// NewMetrics creates cache instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Cache lookups served from the store"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Cache lookups that fell through to the fetcher"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"cache.invalidations",
		metric.WithDescription("Keys removed by invalidation"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"cache.errors",
		metric.WithDescription("Failed store interactions"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram(
		"cache.latency_ms",
		metric.WithDescription("Cache lookup latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		hits:          hits,
		misses:        misses,
		invalidations: invalidations,
		errors:        errs,
		latency:       latency,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, entityType string, hit bool, d time.Duration) {
	opt := metric.WithAttributes(attribute.String("cache.entity_type", entityType))
	if hit {
		m.hits.Add(ctx, 1, opt)
	} else {
		m.misses.Add(ctx, 1, opt)
	}
	m.latency.Record(ctx, float64(d.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordInvalidation(ctx context.Context, entityType string, removed int64) {
	m.invalidations.Add(ctx, removed, metric.WithAttributes(attribute.String("cache.entity_type", entityType)))
}

func (m *metricsImpl) RecordError(ctx context.Context, op CacheOp) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.op", op.Name),
		attribute.String("cache.entity_type", op.EntityType),
	))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordLookup(context.Context, string, bool, time.Duration) {}
func (noopMetrics) RecordInvalidation(context.Context, string, int64)        {}
func (noopMetrics) RecordError(context.Context, CacheOp)                     {}
