package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/entitycache/policy"
	"github.com/jonwraymond/entitycache/store"
)

func newTestCollector(t *testing.T, gw store.Gateway, cfg Config) *Collector {
	t.Helper()
	c, err := NewCollector(gw, cfg)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	return c
}

// failingGateway fails every call.
type failingGateway struct {
	*store.MemoryGateway
}

var errDown = errors.New("store down")

func (failingGateway) Info(context.Context) (map[string]string, error) { return nil, errDown }
func (failingGateway) HSet(context.Context, string, map[string]string) error {
	return errDown
}
func (failingGateway) DeleteByPattern(context.Context, string) (int64, error) { return 0, errDown }
func (failingGateway) Scan(context.Context, string, int) ([]string, error)   { return nil, errDown }

func TestNewCollector_NilGateway(t *testing.T) {
	if _, err := NewCollector(nil, Config{}); !errors.Is(err, ErrNilGateway) {
		t.Errorf("NewCollector(nil) error = %v, want ErrNilGateway", err)
	}
}

func TestConfig_Defaults(t *testing.T) {
	c := newTestCollector(t, store.NewMemoryGateway(), Config{})
	cfg := c.Config()
	if cfg.FlushInterval != 60*time.Second {
		t.Errorf("FlushInterval = %v, want 60s", cfg.FlushInterval)
	}
	if cfg.Expiry != 24*time.Hour {
		t.Errorf("Expiry = %v, want 24h", cfg.Expiry)
	}
	if cfg.KeyPrefix != "entitycache:metrics:" {
		t.Errorf("KeyPrefix = %q", cfg.KeyPrefix)
	}
	if cfg.Instance == "" {
		t.Error("Instance should default to a generated id")
	}
}

func TestCollector_EntityMetrics(t *testing.T) {
	c := newTestCollector(t, store.NewMemoryGateway(), Config{})
	ctx := context.Background()

	c.RecordHit(ctx, policy.Dossier, 2*time.Millisecond)
	c.RecordHit(ctx, policy.Dossier, 4*time.Millisecond)
	c.RecordHit(ctx, policy.Dossier, 2*time.Millisecond)
	c.RecordMiss(ctx, policy.Dossier, 12*time.Millisecond)

	m := c.Entity(policy.Dossier)
	if m.Hits != 3 || m.Misses != 1 || m.TotalRequests != 4 {
		t.Errorf("Entity() = %+v, want 3 hits, 1 miss, 4 total", m)
	}
	if m.HitRate != 75 {
		t.Errorf("HitRate = %v, want 75", m.HitRate)
	}
	if m.AvgLatencyMs != 5 {
		t.Errorf("AvgLatencyMs = %v, want 5", m.AvgLatencyMs)
	}
}

func TestCollector_UnknownEntityIsZero(t *testing.T) {
	c := newTestCollector(t, store.NewMemoryGateway(), Config{})
	m := c.Entity(policy.Session)
	if m != (EntityMetrics{}) {
		t.Errorf("Entity(untouched) = %+v, want zero", m)
	}
}

func TestCollector_ConcurrentHits(t *testing.T) {
	c := newTestCollector(t, store.NewMemoryGateway(), Config{})
	ctx := context.Background()
	const n = 1000

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordHit(ctx, policy.User, time.Millisecond)
		}()
	}
	wg.Wait()

	m := c.Entity(policy.User)
	if m.Hits != n {
		t.Errorf("Hits = %d, want %d", m.Hits, n)
	}
	if m.TotalRequests != m.Hits+m.Misses {
		t.Errorf("TotalRequests = %d, want Hits+Misses = %d", m.TotalRequests, m.Hits+m.Misses)
	}
}

func TestCollector_InvariantUnderConcurrentReads(t *testing.T) {
	c := newTestCollector(t, store.NewMemoryGateway(), Config{})
	ctx := context.Background()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			if i%3 == 0 {
				c.RecordMiss(ctx, policy.Search, time.Millisecond)
			} else {
				c.RecordHit(ctx, policy.Search, time.Millisecond)
			}
		}
	}()

	for {
		m := c.Entity(policy.Search)
		if m.TotalRequests != m.Hits+m.Misses {
			t.Fatalf("snapshot %+v breaks TotalRequests == Hits+Misses", m)
		}
		if m.HitRate < 0 || m.HitRate > 100 {
			t.Fatalf("HitRate = %v out of range", m.HitRate)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestCollector_ResetClearsCounters(t *testing.T) {
	gw := store.NewMemoryGateway()
	c := newTestCollector(t, gw, Config{})
	ctx := context.Background()

	c.RecordHit(ctx, policy.Dossier, time.Millisecond)
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	before := c.LastReset()

	if err := c.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	agg := c.Aggregated(ctx)
	if agg.TotalRequests != 0 || agg.HitRate != 0 {
		t.Errorf("after Reset Aggregated = %+v, want zero counters", agg)
	}
	if !c.LastReset().After(before) && !c.LastReset().Equal(before) {
		t.Errorf("LastReset did not advance")
	}
	if ok, _ := gw.Exists(ctx, "entitycache:metrics:dossier"); ok {
		t.Error("durable metrics should be removed on reset")
	}
	meta, _ := gw.HGetAll(ctx, "entitycache:metrics_meta")
	if meta[FieldLastReset] == "" {
		t.Error("reset time should be persisted")
	}
}

func TestCollector_ResetStoreFailureStillResetsMemory(t *testing.T) {
	c := newTestCollector(t, failingGateway{store.NewMemoryGateway()}, Config{})
	ctx := context.Background()
	c.RecordHit(ctx, policy.User, 0)

	if err := c.Reset(ctx); !errors.Is(err, errDown) {
		t.Errorf("Reset() error = %v, want errDown", err)
	}
	if got := c.Entity(policy.User).TotalRequests; got != 0 {
		t.Errorf("TotalRequests = %d, want 0", got)
	}
}

func TestCollector_ResetKeepsHeldBucket(t *testing.T) {
	c := newTestCollector(t, store.NewMemoryGateway(), Config{})
	ctx := context.Background()
	c.RecordHit(ctx, policy.User, 0)
	held := c.bucket(policy.User)

	if err := c.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	held.record(true, 0)

	if got := c.Entity(policy.User).Hits; got != 1 {
		t.Errorf("Hits = %d, want 1", got)
	}
}

func TestCollector_FlushNeverRestoresResetCounts(t *testing.T) {
	gw := store.NewMemoryGateway()
	c := newTestCollector(t, gw, Config{})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		for j := 0; j < 3; j++ {
			c.RecordHit(ctx, policy.Dossier, time.Millisecond)
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Flush(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = c.Reset(ctx)
		}()
		wg.Wait()

		fields, err := gw.HGetAll(ctx, "entitycache:metrics:dossier")
		if err != nil {
			t.Fatalf("HGetAll() error = %v", err)
		}
		if hits := fields[FieldHits]; hits != "" && hits != "0" {
			t.Fatalf("iteration %d: durable hits = %q after reset, want none or 0", i, hits)
		}
	}
}

func TestCollector_Aggregated(t *testing.T) {
	c := newTestCollector(t, store.NewMemoryGateway(), Config{})
	ctx := context.Background()

	c.RecordHit(ctx, policy.Dossier, 2*time.Millisecond)
	c.RecordMiss(ctx, policy.User, 6*time.Millisecond)

	agg := c.Aggregated(ctx)
	if agg.Hits != 1 || agg.Misses != 1 || agg.TotalRequests != 2 {
		t.Errorf("Aggregated = %+v", agg)
	}
	if agg.HitRate != 50 {
		t.Errorf("HitRate = %v, want 50", agg.HitRate)
	}
	if agg.AvgLatencyMs != 4 {
		t.Errorf("AvgLatencyMs = %v, want 4", agg.AvgLatencyMs)
	}
	if len(agg.ByEntity) != 2 {
		t.Errorf("ByEntity has %d entries, want 2", len(agg.ByEntity))
	}
	if agg.Store.ConnectedClients != 1 {
		t.Errorf("Store.ConnectedClients = %d, want 1", agg.Store.ConnectedClients)
	}
}

func TestCollector_AggregatedDegradesWithoutInfo(t *testing.T) {
	c := newTestCollector(t, failingGateway{store.NewMemoryGateway()}, Config{})
	c.RecordHit(context.Background(), policy.Dossier, 0)

	agg := c.Aggregated(context.Background())
	if agg.Hits != 1 {
		t.Errorf("Hits = %d, want 1", agg.Hits)
	}
	if agg.Store != (StoreStats{}) {
		t.Errorf("Store = %+v, want zero values", agg.Store)
	}
}

func TestCollector_FlushWritesDurableHash(t *testing.T) {
	gw := store.NewMemoryGateway()
	c := newTestCollector(t, gw, Config{Instance: "node-1", Expiry: time.Hour})
	ctx := context.Background()

	c.RecordHit(ctx, policy.Dossier, 3*time.Millisecond)
	c.RecordMiss(ctx, policy.Dossier, time.Millisecond)

	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	fields, err := gw.HGetAll(ctx, "entitycache:metrics:dossier")
	if err != nil {
		t.Fatalf("HGetAll() error = %v", err)
	}
	want := map[string]string{
		FieldHits:           "1",
		FieldMisses:         "1",
		FieldRequestCount:   "2",
		FieldTotalLatencyMs: "4",
		FieldInstance:       "node-1",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("%s = %q, want %q", k, fields[k], v)
		}
	}
	if fields[FieldUpdatedAt] == "" {
		t.Error("updated_at should be set")
	}
	ttl, _ := gw.TTL(ctx, "entitycache:metrics:dossier")
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v, want within 1h", ttl)
	}
}

func TestCollector_FlushError(t *testing.T) {
	c := newTestCollector(t, failingGateway{store.NewMemoryGateway()}, Config{})
	c.RecordHit(context.Background(), policy.Dossier, 0)
	if err := c.Flush(context.Background()); !errors.Is(err, errDown) {
		t.Errorf("Flush() error = %v, want errDown", err)
	}
}

func TestCollector_RecoverIsAdditiveAndOnce(t *testing.T) {
	gw := store.NewMemoryGateway()
	ctx := context.Background()
	_ = gw.HSet(ctx, "entitycache:metrics:user", map[string]string{
		FieldHits:           "10",
		FieldMisses:         "5",
		FieldTotalLatencyMs: "30",
		FieldRequestCount:   "15",
	})
	resetAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	_ = gw.HSet(ctx, "entitycache:metrics_meta", map[string]string{FieldLastReset: resetAt.Format(time.RFC3339Nano)})

	c := newTestCollector(t, gw, Config{})
	c.RecordHit(ctx, policy.User, 0)

	if err := c.Recover(ctx); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if err := c.Recover(ctx); err != nil {
		t.Fatalf("second Recover() error = %v", err)
	}

	m := c.Entity(policy.User)
	if m.Hits != 11 || m.Misses != 5 || m.TotalRequests != 16 {
		t.Errorf("Entity() = %+v, want 11 hits, 5 misses", m)
	}
	if !c.LastReset().Equal(resetAt) {
		t.Errorf("LastReset() = %v, want %v", c.LastReset(), resetAt)
	}
}

func TestCollector_RecoverScanError(t *testing.T) {
	c := newTestCollector(t, failingGateway{store.NewMemoryGateway()}, Config{})
	if err := c.Recover(context.Background()); !errors.Is(err, errDown) {
		t.Errorf("Recover() error = %v, want errDown", err)
	}
}

func TestCollector_FlushRecoverRoundTrip(t *testing.T) {
	gw := store.NewMemoryGateway()
	ctx := context.Background()

	first := newTestCollector(t, gw, Config{})
	for i := 0; i < 7; i++ {
		first.RecordHit(ctx, policy.Translation, time.Millisecond)
	}
	first.RecordMiss(ctx, policy.Translation, time.Millisecond)
	if err := first.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	second := newTestCollector(t, gw, Config{})
	if err := second.Recover(ctx); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if got, want := second.Entity(policy.Translation), first.Entity(policy.Translation); got != want {
		t.Errorf("recovered %+v, want %+v", got, want)
	}
}

func TestSnapshotFromFields_Malformed(t *testing.T) {
	s := snapshotFromFields(map[string]string{
		FieldHits:         "x",
		FieldMisses:       "-3",
		FieldRequestCount: "0",
	})
	if s.hits != 0 || s.misses != 0 || s.requestCount != 0 {
		t.Errorf("snapshot = %+v, want zeros", s)
	}

	s = snapshotFromFields(map[string]string{FieldHits: "4", FieldMisses: "1"})
	if s.requestCount != 5 {
		t.Errorf("requestCount = %d, want 5", s.requestCount)
	}
}

func TestParseInt(t *testing.T) {
	for in, want := range map[string]int64{"42": 42, " 7 ": 7, "": 0, "abc": 0} {
		if got := parseInt(in); got != want {
			t.Errorf("parseInt(%q) = %d, want %d", in, got, want)
		}
	}
}
