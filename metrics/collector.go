package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/entitycache/observe"
	"github.com/jonwraymond/entitycache/policy"
	"github.com/jonwraymond/entitycache/store"
)

// Durable field names of the per-entity hash.
const (
	FieldHits           = "hits"
	FieldMisses         = "misses"
	FieldTotalLatencyMs = "total_latency_ms"
	FieldRequestCount   = "request_count"
	FieldUpdatedAt      = "updated_at"
	FieldInstance       = "instance"
	FieldLastReset      = "last_reset"
)

// Config configures a Collector.
type Config struct {
	// FlushInterval is the period between flushes. Default: 60 seconds
	FlushInterval time.Duration

	// Expiry is the TTL applied to durable metric keys. Default: 24 hours
	Expiry time.Duration

	// KeyPrefix prefixes per-entity durable keys. Default: "entitycache:metrics:"
	KeyPrefix string

	// MetaKey holds collector-wide state such as the last reset time.
	// Default: "entitycache:metrics_meta"
	MetaKey string

	// Instance identifies this process in durable records. Default: random UUID
	Instance string

	// RecoverConcurrency bounds parallel reads during Recover. Default: 8
	RecoverConcurrency int

	// FlushTimeout bounds the final flush on shutdown. Default: 5 seconds
	FlushTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.FlushInterval <= 0 {
		c.FlushInterval = 60 * time.Second
	}
	if c.Expiry <= 0 {
		c.Expiry = 24 * time.Hour
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = policy.ReservedPrefix + "metrics:"
	}
	if c.MetaKey == "" {
		c.MetaKey = policy.ReservedPrefix + "metrics_meta"
	}
	if c.Instance == "" {
		c.Instance = uuid.NewString()
	}
	if c.RecoverConcurrency <= 0 {
		c.RecoverConcurrency = 8
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 5 * time.Second
	}
	return c
}

// Option configures optional Collector collaborators.
type Option func(*Collector)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l observe.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithInstruments mirrors every recorded lookup to OpenTelemetry instruments.
func WithInstruments(m observe.Metrics) Option {
	return func(c *Collector) {
		if m != nil {
			c.instruments = m
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// Collector accumulates cache statistics per entity type.
//
// Contract:
// - Concurrency: all methods are safe for concurrent use.
// - Errors: RecordHit and RecordMiss never fail; persistence errors are
// returned by Flush, Recover and Reset and logged elsewhere.
// - Lifecycle: Start/Stop (or Serve) may be repeated; Stop always performs
// a final flush after the ticker has stopped.
type Collector struct {
	gw          store.Gateway
	cfg         Config
	logger      observe.Logger
	instruments observe.Metrics
	now         func() time.Time

	mu        sync.RWMutex
	buckets   map[policy.EntityType]*bucket
	lastReset time.Time

	// persistMu orders Flush and Reset so a flush never writes counts
	// taken before a reset over the reset's delete.
	persistMu sync.Mutex

	recoverOnce sync.Once
	recoverErr  error

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCollector creates a Collector backed by gw.
func NewCollector(gw store.Gateway, cfg Config, opts ...Option) (*Collector, error) {
	if gw == nil {
		return nil, ErrNilGateway
	}
	c := &Collector{
		gw:          gw,
		cfg:         cfg.withDefaults(),
		logger:      observe.NopLogger(),
		instruments: observe.NopMetrics(),
		now:         time.Now,
		buckets:     make(map[policy.EntityType]*bucket),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastReset = c.now()
	return c, nil
}

// Config returns the effective configuration.
func (c *Collector) Config() Config {
	return c.cfg
}

// RecordHit records a cache hit for et.
func (c *Collector) RecordHit(ctx context.Context, et policy.EntityType, latency time.Duration) {
	c.bucket(et).record(true, latency)
	c.instruments.RecordLookup(ctx, string(et), true, latency)
}

// RecordMiss records a cache miss for et.
func (c *Collector) RecordMiss(ctx context.Context, et policy.EntityType, latency time.Duration) {
	c.bucket(et).record(false, latency)
	c.instruments.RecordLookup(ctx, string(et), false, latency)
}

// bucket returns the bucket for et, creating it on first use.
func (c *Collector) bucket(et policy.EntityType) *bucket {
	c.mu.RLock()
	b, ok := c.buckets[et]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok = c.buckets[et]; !ok {
		b = &bucket{}
		c.buckets[et] = b
	}
	return b
}

// Entity returns the metrics for et. An entity type with no recorded
// traffic yields zero values.
func (c *Collector) Entity(et policy.EntityType) EntityMetrics {
	c.mu.RLock()
	b, ok := c.buckets[et]
	c.mu.RUnlock()
	if !ok {
		return EntityMetrics{}
	}
	return b.snapshot().entity()
}

// StoreStats summarises the store's INFO output.
type StoreStats struct {
	MemoryUsed       string `json:"memoryUsed"`
	MemoryBytes      int64  `json:"memoryBytes"`
	ConnectedClients int64  `json:"connectedClients"`
	UptimeSeconds    int64  `json:"uptimeSeconds"`
}

// Aggregated is the collector-wide view returned by Aggregated.
type Aggregated struct {
	Hits          int64                                `json:"hits"`
	Misses        int64                                `json:"misses"`
	TotalRequests int64                                `json:"totalRequests"`
	HitRate       float64                              `json:"hitRate"`
	AvgLatencyMs  float64                              `json:"avgLatencyMs"`
	ByEntity      map[policy.EntityType]EntityMetrics `json:"byEntityType"`
	Store         StoreStats                           `json:"store"`
	LastReset     time.Time                            `json:"lastReset"`
}

// Aggregated sums every bucket and attaches store statistics. A failing
// INFO call degrades the store section to zero values.
func (c *Collector) Aggregated(ctx context.Context) Aggregated {
	c.mu.RLock()
	snaps := make(map[policy.EntityType]snapshot, len(c.buckets))
	for et, b := range c.buckets {
		snaps[et] = b.snapshot()
	}
	lastReset := c.lastReset
	c.mu.RUnlock()

	var total snapshot
	agg := Aggregated{
		ByEntity:  make(map[policy.EntityType]EntityMetrics, len(snaps)),
		LastReset: lastReset,
	}
	for et, s := range snaps {
		agg.ByEntity[et] = s.entity()
		total.hits += s.hits
		total.misses += s.misses
		total.totalLatencyMs += s.totalLatencyMs
		total.requestCount += s.requestCount
	}
	sum := total.entity()
	agg.Hits = sum.Hits
	agg.Misses = sum.Misses
	agg.TotalRequests = sum.TotalRequests
	agg.HitRate = sum.HitRate
	agg.AvgLatencyMs = sum.AvgLatencyMs

	info, err := c.gw.Info(ctx)
	if err != nil {
		c.logger.Warn(ctx, "store info unavailable", observe.Err(err))
		return agg
	}
	agg.Store = StoreStats{
		MemoryUsed:       info["used_memory_human"],
		MemoryBytes:      parseInt(info["used_memory"]),
		ConnectedClients: parseInt(info["connected_clients"]),
		UptimeSeconds:    parseInt(info["uptime_in_seconds"]),
	}
	return agg
}

// LastReset returns the time of the last reset, or the collector's
// creation time if it was never reset.
func (c *Collector) LastReset() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastReset
}

// Reset clears all in-memory counters and records the reset time. The
// durable records are removed and the reset time is persisted on a
// best-effort basis; the in-memory reset always takes effect.
//
// Buckets are zeroed in place, so a lookup recorded through a bucket
// fetched before the reset still counts afterwards.
func (c *Collector) Reset(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	now := c.now()
	c.mu.Lock()
	for _, b := range c.buckets {
		b.reset()
	}
	c.lastReset = now
	c.mu.Unlock()

	var errs []error
	if _, err := c.gw.DeleteByPattern(ctx, c.cfg.KeyPrefix+"*"); err != nil {
		errs = append(errs, fmt.Errorf("delete durable metrics: %w", err))
	}
	if err := c.gw.HSet(ctx, c.cfg.MetaKey, map[string]string{
		FieldLastReset: now.UTC().Format(time.RFC3339Nano),
		FieldInstance:  c.cfg.Instance,
	}); err != nil {
		errs = append(errs, fmt.Errorf("persist reset time: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		c.logger.Warn(ctx, "metrics reset not persisted", observe.Err(err))
	}
	return err
}

// Flush writes every bucket to the store and refreshes the expiry of each
// durable key.
func (c *Collector) Flush(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	snaps := make(map[policy.EntityType]snapshot, len(c.buckets))
	for et, b := range c.buckets {
		snaps[et] = b.snapshot()
	}
	c.mu.RUnlock()

	ets := make([]string, 0, len(snaps))
	for et := range snaps {
		ets = append(ets, string(et))
	}
	sort.Strings(ets)

	updated := c.now().UTC().Format(time.RFC3339Nano)
	var errs []error
	for _, et := range ets {
		s := snaps[policy.EntityType(et)]
		key := c.cfg.KeyPrefix + et
		err := c.gw.HSet(ctx, key, map[string]string{
			FieldHits:           strconv.FormatInt(s.hits, 10),
			FieldMisses:         strconv.FormatInt(s.misses, 10),
			FieldTotalLatencyMs: strconv.FormatFloat(s.totalLatencyMs, 'f', -1, 64),
			FieldRequestCount:   strconv.FormatInt(s.requestCount, 10),
			FieldUpdatedAt:      updated,
			FieldInstance:       c.cfg.Instance,
		})
		if err == nil {
			err = c.gw.Expire(ctx, key, c.cfg.Expiry)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", et, err))
		}
	}
	return errors.Join(errs...)
}

// Recover loads durable metrics written by a previous process and adds
// them to the in-memory counters. It runs at most once per Collector;
// later calls return the first result.
func (c *Collector) Recover(ctx context.Context) error {
	c.recoverOnce.Do(func() {
		c.recoverErr = c.recover(ctx)
	})
	return c.recoverErr
}

func (c *Collector) recover(ctx context.Context) error {
	keys, err := c.gw.Scan(ctx, c.cfg.KeyPrefix+"*", 0)
	if err != nil {
		return fmt.Errorf("scan durable metrics: %w", err)
	}

	var (
		mu    sync.Mutex
		found = make(map[policy.EntityType]snapshot, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.RecoverConcurrency)
	for _, key := range keys {
		et := policy.EntityType(strings.TrimPrefix(key, c.cfg.KeyPrefix))
		if et == "" {
			continue
		}
		g.Go(func() error {
			fields, err := c.gw.HGetAll(gctx, key)
			if err != nil {
				return fmt.Errorf("read %s: %w", key, err)
			}
			mu.Lock()
			found[et] = snapshotFromFields(fields)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for et, s := range found {
		c.bucket(et).add(s)
	}

	if meta, err := c.gw.HGetAll(ctx, c.cfg.MetaKey); err == nil {
		if ts, perr := time.Parse(time.RFC3339Nano, meta[FieldLastReset]); perr == nil {
			c.mu.Lock()
			c.lastReset = ts
			c.mu.Unlock()
		}
	}

	c.logger.Info(ctx, "recovered cache metrics", observe.F("entity_types", len(found)))
	return nil
}

// snapshotFromFields parses a durable hash. Missing or malformed fields
// count as zero; requestCount never drops below hits+misses.
func snapshotFromFields(fields map[string]string) snapshot {
	s := snapshot{
		hits:         parseInt(fields[FieldHits]),
		misses:       parseInt(fields[FieldMisses]),
		requestCount: parseInt(fields[FieldRequestCount]),
	}
	if v, err := strconv.ParseFloat(fields[FieldTotalLatencyMs], 64); err == nil && v > 0 {
		s.totalLatencyMs = v
	}
	if s.hits < 0 {
		s.hits = 0
	}
	if s.misses < 0 {
		s.misses = 0
	}
	if s.requestCount < s.hits+s.misses {
		s.requestCount = s.hits + s.misses
	}
	return s
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
