package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonwraymond/entitycache/policy"
	"github.com/jonwraymond/entitycache/resilience"
	"github.com/jonwraymond/entitycache/store"
)

func TestCacheable_ReadThrough(t *testing.T) {
	ctx := context.Background()
	c, gw := newTestCoordinator(t, Config{})
	var cnt counter
	get := Cacheable(c, policy.Dossier, cnt.fetchDossier)

	first, err := get(ctx, "abc")
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	second, err := get(ctx, "abc")
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if cnt.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", cnt.calls)
	}
	if *first != *second {
		t.Errorf("cached value = %+v, want %+v", second, first)
	}

	ttl, err := gw.TTL(ctx, "dossier:abc")
	if err != nil || ttl <= 299*time.Second || ttl > 300*time.Second {
		t.Errorf("TTL(dossier:abc) = %v, %v; want ~300s", ttl, err)
	}
	if got := c.Tags().Keys("dossiers"); len(got) != 1 || got[0] != "dossier:abc" {
		t.Errorf("Keys(dossiers) = %v, want [dossier:abc]", got)
	}

	m := c.Collector().Entity(policy.Dossier)
	if m.Hits != 1 || m.Misses != 1 {
		t.Errorf("metrics = %+v, want 1 hit and 1 miss", m)
	}
}

func TestCacheable_GatewayReadFailureFallsThrough(t *testing.T) {
	gw := &brokenGateway{MemoryGateway: store.NewMemoryGateway(), getErr: resilience.ErrTimeout}
	c := newBrokenCoordinator(t, gw)
	var cnt counter
	get := Cacheable(c, policy.Dossier, cnt.fetchDossier)

	d, err := get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("error = %v, want fall-through to fetcher", err)
	}
	if d == nil || d.ID != "abc" {
		t.Errorf("result = %+v, want dossier abc", d)
	}
	if cnt.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", cnt.calls)
	}
}

func TestCacheable_FetcherErrorPropagates(t *testing.T) {
	errNotFound := errors.New("not found")
	c, gw := newTestCoordinator(t, Config{})
	get := Cacheable(c, policy.User, func(context.Context, string) (string, error) {
		return "", errNotFound
	})

	_, err := get(context.Background(), "1")
	if !errors.Is(err, errNotFound) {
		t.Errorf("error = %v, want errNotFound", err)
	}
	if KindOf(err) != KindFetcher {
		t.Errorf("KindOf() = %v, want fetcher", KindOf(err))
	}
	mustExist(t, gw, "user:1", false)
}

func TestCacheable_FailClosed(t *testing.T) {
	gw := &brokenGateway{MemoryGateway: store.NewMemoryGateway(), getErr: errDown}
	c := newBrokenCoordinator(t, gw)
	var cnt counter
	get := Cacheable(c, policy.Dossier, cnt.fetchDossier, FailClosed())

	_, err := get(context.Background(), "abc")
	if KindOf(err) != KindGateway || !errors.Is(err, errDown) {
		t.Errorf("error = %v, want gateway error", err)
	}
	if cnt.calls != 0 {
		t.Errorf("fetcher calls = %d, want 0", cnt.calls)
	}
}

func TestCacheable_SkipOnError(t *testing.T) {
	c, gw := newTestCoordinator(t, Config{})
	calls := 0
	get := Cacheable(c, policy.User, func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errDown
		}
		return "ok", nil
	}, SkipOnError())

	v, err := get(context.Background(), "1")
	if err != nil || v != "ok" {
		t.Errorf("result = %q, %v; want ok", v, err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	mustExist(t, gw, "user:1", false)
}

func TestCacheable_Condition(t *testing.T) {
	c, gw := newTestCoordinator(t, Config{})
	var cnt counter
	get := Cacheable(c, policy.Dossier, cnt.fetchDossier,
		WithCondition(func(id string) bool { return id != "draft" }))

	for range 2 {
		if _, err := get(context.Background(), "draft"); err != nil {
			t.Fatalf("error = %v", err)
		}
	}
	if cnt.calls != 2 {
		t.Errorf("fetcher calls = %d, want 2 with caching bypassed", cnt.calls)
	}
	mustExist(t, gw, "dossier:draft", false)
}

func TestCacheable_WithKeyAndTags(t *testing.T) {
	type query struct {
		Term string
		Page int
	}
	ctx := context.Background()
	c, gw := newTestCoordinator(t, Config{})
	get := Cacheable(c, policy.Search, func(_ context.Context, q query) ([]string, error) {
		return []string{q.Term}, nil
	}, WithKey(func(q query) any { return fmt.Sprintf("%s:p%d", q.Term, q.Page) }), WithTags("user:7"))

	if _, err := get(ctx, query{Term: "go", Page: 1}); err != nil {
		t.Fatalf("error = %v", err)
	}
	mustExist(t, gw, "search:go:p1", true)
	if got := c.Tags().Keys("user:7"); len(got) != 1 {
		t.Errorf("Keys(user:7) = %v, want one key", got)
	}
	if got := c.Tags().Keys("search"); len(got) != 1 {
		t.Errorf("Keys(search) = %v, want one key", got)
	}
}

func TestCacheable_TTLOverride(t *testing.T) {
	ctx := context.Background()
	c, gw := newTestCoordinator(t, Config{})
	get := Cacheable(c, policy.AIResponse, func(context.Context, string) (string, error) {
		return "answer", nil
	}, WithTTL(30*time.Second))

	if _, err := get(ctx, "prompt"); err != nil {
		t.Fatalf("error = %v", err)
	}
	if ttl, _ := gw.TTL(ctx, "ai:prompt"); ttl > 30*time.Second {
		t.Errorf("TTL = %v, want <= 30s", ttl)
	}
}

func TestCacheable_Transform(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(t, Config{})
	var cnt counter
	get := Cacheable(c, policy.Dossier, cnt.fetchDossier,
		WithTransform(func(d *dossier) any { return dossier{ID: d.ID} }))

	first, _ := get(ctx, "abc")
	if first.Title != "title abc" {
		t.Errorf("caller result = %+v, want untransformed", first)
	}
	second, _ := get(ctx, "abc")
	if second.Title != "" {
		t.Errorf("cached result = %+v, want stored form", second)
	}
	if cnt.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", cnt.calls)
	}
}

func TestCacheable_NilResultNotCached(t *testing.T) {
	c, gw := newTestCoordinator(t, Config{})
	calls := 0
	get := Cacheable(c, policy.Dossier, func(context.Context, string) (*dossier, error) {
		calls++
		return nil, nil
	})

	for range 2 {
		if d, err := get(context.Background(), "gone"); d != nil || err != nil {
			t.Fatalf("result = %v, %v; want nil, nil", d, err)
		}
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	mustExist(t, gw, "dossier:gone", false)
}

func TestCacheable_RawStringFallback(t *testing.T) {
	ctx := context.Background()
	c, gw := newTestCoordinator(t, Config{})
	if err := gw.SetWithTTL(ctx, "translation:hello", []byte("bonjour"), time.Minute); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	get := Cacheable(c, policy.Translation, func(context.Context, string) (string, error) {
		t.Error("fetcher should not be called on a hit")
		return "", nil
	})

	if v, err := get(ctx, "hello"); err != nil || v != "bonjour" {
		t.Errorf("result = %q, %v; want bonjour", v, err)
	}
}

func TestCacheable_UndecodableRefetches(t *testing.T) {
	ctx := context.Background()
	c, gw := newTestCoordinator(t, Config{})
	if err := gw.SetWithTTL(ctx, "dossier:abc", []byte("not json"), time.Minute); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	var cnt counter
	get := Cacheable(c, policy.Dossier, cnt.fetchDossier)

	d, err := get(ctx, "abc")
	if err != nil || d.ID != "abc" {
		t.Errorf("result = %+v, %v", d, err)
	}
	if cnt.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", cnt.calls)
	}
}

func TestCacheable_WriteFailureStillReturns(t *testing.T) {
	gw := &brokenGateway{MemoryGateway: store.NewMemoryGateway(), setErr: errDown}
	c := newBrokenCoordinator(t, gw)
	var cnt counter
	get := Cacheable(c, policy.Dossier, cnt.fetchDossier)

	if d, err := get(context.Background(), "abc"); err != nil || d == nil {
		t.Errorf("result = %v, %v; want value despite write failure", d, err)
	}
}

func TestCacheable_NilCoordinator(t *testing.T) {
	var cnt counter
	get := Cacheable(nil, policy.Dossier, cnt.fetchDossier)
	if _, err := get(context.Background(), "abc"); err != nil {
		t.Fatalf("error = %v", err)
	}
	if cnt.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", cnt.calls)
	}
}
