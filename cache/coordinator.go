package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/entitycache/health"
	"github.com/jonwraymond/entitycache/metrics"
	"github.com/jonwraymond/entitycache/observe"
	"github.com/jonwraymond/entitycache/policy"
	"github.com/jonwraymond/entitycache/resilience"
	"github.com/jonwraymond/entitycache/store"
)

// Config configures a Coordinator.
type Config struct {
	// Registry resolves entity policies. Default: built-in policies
	Registry *policy.Registry

	// PersistTags mirrors the tag index to store-side sets. Default: false
	PersistTags bool

	// TagKeyPrefix prefixes store-side tag sets. Default: "entitycache:tags:"
	TagKeyPrefix string

	// Metrics configures the collector.
	Metrics metrics.Config

	// HealthSlowThreshold marks the store degraded above this PING latency.
	// Default: 100 milliseconds
	HealthSlowThreshold time.Duration
}

// CoordinatorOption configures optional Coordinator collaborators.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l observe.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithInstrumentation sets the tracer and OpenTelemetry instruments.
func WithInstrumentation(inst *observe.Instrumentation) CoordinatorOption {
	return func(c *Coordinator) {
		if inst != nil {
			c.inst = inst
		}
	}
}

// WithHealthChecker registers an extra checker reported by Health.
func WithHealthChecker(name string, checker health.Checker) CoordinatorOption {
	return func(c *Coordinator) {
		c.health.Register(name, checker)
	}
}

// Coordinator is the single owner of cache state for a process.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Lifecycle: Start recovers durable metrics and starts the flusher;
// Close stops the flusher after a final flush. Both may be called again.
// - Errors: helper operations return classified *Error values.
type Coordinator struct {
	registry  *policy.Registry
	gw        store.Gateway
	tags      *TagIndex
	collector *metrics.Collector
	logger    observe.Logger
	inst      *observe.Instrumentation
	health    *health.Aggregator
}

// New builds a Coordinator over gw.
func New(gw store.Gateway, cfg Config, opts ...CoordinatorOption) (*Coordinator, error) {
	if gw == nil {
		return nil, ErrNilGateway
	}
	if cfg.Registry == nil {
		cfg.Registry = policy.NewRegistry(nil)
	}

	c := &Coordinator{
		registry: cfg.Registry,
		gw:       gw,
		logger:   observe.NopLogger(),
		inst:     observe.Nop(),
		health:   health.NewAggregator(),
	}
	for _, opt := range opts {
		opt(c)
	}

	collector, err := metrics.NewCollector(gw, cfg.Metrics,
		metrics.WithLogger(c.logger),
		metrics.WithInstruments(c.inst.Metrics()),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: metrics collector: %w", err)
	}
	c.collector = collector
	c.tags = NewTagIndex(gw, cfg.PersistTags, cfg.TagKeyPrefix, c.logger)
	c.health.Register("store", health.NewStoreChecker(gw, health.StoreCheckerConfig{
		SlowThreshold: cfg.HealthSlowThreshold,
	}))
	if g, ok := gw.(interface{ Guard() *resilience.Guard }); ok && g.Guard() != nil {
		c.health.Register("breaker", health.NewBreakerChecker(g.Guard()))
	}
	return c, nil
}

// Registry returns the policy registry.
func (c *Coordinator) Registry() *policy.Registry { return c.registry }

// Gateway returns the store gateway.
func (c *Coordinator) Gateway() store.Gateway { return c.gw }

// Tags returns the tag index.
func (c *Coordinator) Tags() *TagIndex { return c.tags }

// Collector returns the metrics collector.
func (c *Coordinator) Collector() *metrics.Collector { return c.collector }

// Logger returns the logger.
func (c *Coordinator) Logger() observe.Logger { return c.logger }

// Start recovers persisted metrics and starts the periodic flusher.
// A recovery failure is logged and does not prevent the flusher from
// starting.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.collector.Recover(ctx); err != nil {
		c.logger.Warn(ctx, "metrics recovery failed", observe.Err(err))
	}
	if err := c.collector.Start(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, metrics.ErrAlreadyRunning) {
		return err
	}
	return nil
}

// Close stops the flusher and waits for its final flush.
func (c *Coordinator) Close(ctx context.Context) error {
	return c.collector.Stop(ctx)
}

// Key builds the key for identifier under et.
func (c *Coordinator) Key(et policy.EntityType, identifier any) (string, error) {
	key, err := c.registry.BuildKey(et, identifier)
	if err != nil {
		return "", NewError(KindSerialization, "key", "", err)
	}
	if err := ValidateKey(key); err != nil {
		return "", NewError(KindInvalidArgument, "key", "", err)
	}
	return key, nil
}

// Lookup reads key from the store. ok is false on a miss.
func (c *Coordinator) Lookup(ctx context.Context, et policy.EntityType, key string) (raw []byte, ok bool, err error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, NewError(KindInvalidArgument, "lookup", key, err)
	}
	runErr := c.inst.Run(ctx, observe.CacheOp{Name: "lookup", EntityType: string(et), Key: key}, func(ctx context.Context) error {
		var gerr error
		raw, ok, gerr = c.gw.Get(ctx, key)
		return gerr
	})
	if runErr != nil {
		return nil, false, NewError(KindGateway, "lookup", key, runErr)
	}
	return raw, ok, nil
}

// Store encodes value and writes it under key with ttl, then tracks key
// under tags. A non-positive ttl uses et's policy TTL.
func (c *Coordinator) Store(ctx context.Context, et policy.EntityType, key string, value any, ttl time.Duration, tags ...string) error {
	if err := ValidateKey(key); err != nil {
		return NewError(KindInvalidArgument, "store", key, err)
	}
	raw, err := store.Encode(value)
	if err != nil {
		return NewError(KindSerialization, "store", key, err)
	}
	ttl = c.registry.Resolve(et).EffectiveTTL(ttl)

	err = c.inst.Run(ctx, observe.CacheOp{Name: "store", EntityType: string(et), Key: key}, func(ctx context.Context) error {
		return c.gw.SetWithTTL(ctx, key, raw, ttl)
	})
	if err != nil {
		return NewError(KindGateway, "store", key, err)
	}
	if err := c.tags.Track(ctx, key, tags...); err != nil {
		return NewError(KindGateway, "track", key, err)
	}
	return nil
}

// InvalidateKeys deletes keys and returns how many existed.
func (c *Coordinator) InvalidateKeys(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var n int64
	err := c.inst.Run(ctx, observe.CacheOp{Name: "invalidate"}, func(ctx context.Context) error {
		var derr error
		n, derr = c.gw.Delete(ctx, keys...)
		return derr
	})
	if err != nil {
		return 0, NewError(KindInvalidation, "invalidate", "", err)
	}
	c.inst.Metrics().RecordInvalidation(ctx, "", n)
	return n, nil
}

// InvalidatePattern deletes every key matching a glob pattern.
func (c *Coordinator) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		return 0, NewError(KindInvalidArgument, "invalidate_pattern", "", ErrEmptyPattern)
	}
	var n int64
	err := c.inst.Run(ctx, observe.CacheOp{Name: "invalidate_pattern", Key: pattern}, func(ctx context.Context) error {
		var derr error
		n, derr = c.deletePattern(ctx, pattern)
		return derr
	})
	if err != nil {
		return n, NewError(KindInvalidation, "invalidate_pattern", pattern, err)
	}
	c.inst.Metrics().RecordInvalidation(ctx, "", n)
	return n, nil
}

// deletePattern deletes the keys matching pattern outside the reserved
// namespace. Patterns that cannot reach that namespace go straight to the
// store; the others are scanned and filtered first.
func (c *Coordinator) deletePattern(ctx context.Context, pattern string) (int64, error) {
	if !reachesReserved(pattern) {
		return c.gw.DeleteByPattern(ctx, pattern)
	}
	keys, err := c.gw.Scan(ctx, pattern, 0)
	if err != nil {
		return 0, err
	}
	kept := keys[:0]
	for _, k := range keys {
		if !strings.HasPrefix(k, policy.ReservedPrefix) {
			kept = append(kept, k)
		}
	}
	return c.gw.Delete(ctx, kept...)
}

// reachesReserved reports whether pattern may match a key under
// policy.ReservedPrefix.
func reachesReserved(pattern string) bool {
	literal := pattern
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		literal = pattern[:i]
	}
	return strings.HasPrefix(literal, policy.ReservedPrefix) ||
		(literal != pattern && strings.HasPrefix(policy.ReservedPrefix, literal))
}

// InvalidateTags deletes every key tracked under the tags.
func (c *Coordinator) InvalidateTags(ctx context.Context, tags ...string) (int64, error) {
	var n int64
	err := c.inst.Run(ctx, observe.CacheOp{Name: "invalidate_tags"}, func(ctx context.Context) error {
		var terr error
		n, terr = c.tags.Invalidate(ctx, tags...)
		return terr
	})
	c.inst.Metrics().RecordInvalidation(ctx, "", n)
	if err != nil {
		return n, NewError(KindInvalidation, "invalidate_tags", "", err)
	}
	return n, nil
}

// InvalidateEntities invalidates the tags of each entity type and every
// key under its prefix.
func (c *Coordinator) InvalidateEntities(ctx context.Context, ets ...policy.EntityType) (int64, error) {
	var (
		total int64
		errs  []error
	)
	for _, et := range ets {
		p := c.registry.Resolve(et)
		n, err := c.InvalidateTags(ctx, p.Tags...)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
		n, err = c.InvalidatePattern(ctx, p.KeyPrefix+"*")
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// Clear deletes every key matching pattern. It is the admin form of
// InvalidatePattern and requires a non-empty pattern.
func (c *Coordinator) Clear(ctx context.Context, pattern string) (int64, error) {
	n, err := c.InvalidatePattern(ctx, pattern)
	if err == nil {
		c.logger.Info(ctx, "cache cleared", observe.F("pattern", pattern), observe.F("deleted", n))
	}
	return n, err
}

// KeyInfo describes one stored key.
type KeyInfo struct {
	Key        string `json:"key"`
	TTLSeconds int64  `json:"ttl"`
}

// Keys lists up to limit keys starting with prefix, with their remaining
// TTL in seconds (-1 without expiry). A failed TTL read reports -2.
func (c *Coordinator) Keys(ctx context.Context, prefix string, limit int) ([]KeyInfo, error) {
	keys, err := c.gw.Scan(ctx, prefix+"*", limit)
	if err != nil {
		return nil, NewError(KindGateway, "keys", prefix, err)
	}
	out := make([]KeyInfo, 0, len(keys))
	for _, k := range keys {
		info := KeyInfo{Key: k, TTLSeconds: -2}
		ttl, err := c.gw.TTL(ctx, k)
		switch {
		case err != nil:
		case ttl == store.TTLPersistent:
			info.TTLSeconds = -1
		case ttl == store.TTLMissing:
			continue
		default:
			info.TTLSeconds = int64(ttl.Round(time.Second) / time.Second)
		}
		out = append(out, info)
	}
	return out, nil
}

// Checks returns the health aggregator behind Health.
func (c *Coordinator) Checks() *health.Aggregator {
	return c.health
}

// Health runs the store check, the breaker check when gw is guarded and any
// extra registered checkers.
func (c *Coordinator) Health(ctx context.Context) health.Report {
	return c.health.Report(ctx)
}

// tagsFor merges et's static tags with extra tags.
func (c *Coordinator) tagsFor(et policy.EntityType, extra []string) []string {
	return dedupe(append(c.registry.Tags(et), extra...))
}

// warn logs a swallowed failure.
func (c *Coordinator) warn(ctx context.Context, msg string, et policy.EntityType, key string, err error) {
	c.logger.Warn(ctx, msg,
		observe.F("entity_type", string(et)),
		observe.F("key", key),
		observe.F("store_unavailable", resilience.IsUnavailable(err)),
		observe.Err(err),
	)
}
