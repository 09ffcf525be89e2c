package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/entitycache/cache"
	"github.com/jonwraymond/entitycache/policy"
	"github.com/jonwraymond/entitycache/store"
)

func newTestBase(t *testing.T) (*Base[string], *cache.Coordinator, *store.MemoryGateway) {
	t.Helper()
	gw := store.NewMemoryGateway()
	c, err := cache.New(gw, cache.Config{})
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	return NewBase[string](c, policy.Dossier), c, gw
}

func exists(t *testing.T, gw store.Gateway, key string) bool {
	t.Helper()
	ok, err := gw.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("Exists(%q) error = %v", key, err)
	}
	return ok
}

func TestBase_GetByID(t *testing.T) {
	ctx := context.Background()
	b, _, gw := newTestBase(t)
	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for range 3 {
		v, err := b.GetByID(ctx, "abc", fetch)
		if err != nil || v != "value" {
			t.Fatalf("GetByID() = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
	ttl, _ := gw.TTL(ctx, "dossier:abc")
	if ttl <= 299*time.Second || ttl > 300*time.Second {
		t.Errorf("TTL = %v, want ~300s", ttl)
	}
}

func TestBase_CallOptions(t *testing.T) {
	ctx := context.Background()
	b, _, gw := newTestBase(t)
	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}

	if _, err := b.GetByID(ctx, "skip", fetch, SkipCache()); err != nil {
		t.Fatalf("GetByID(SkipCache) error = %v", err)
	}
	if exists(t, gw, "dossier:skip") {
		t.Error("SkipCache should not store")
	}

	_, _ = b.GetByID(ctx, "abc", fetch)
	_, _ = b.GetByID(ctx, "abc", fetch, ForceRefresh(), TTL(5*time.Second), Tags("extra"))
	if calls != 3 {
		t.Errorf("fetch calls = %d, want 3", calls)
	}
	if ttl, _ := gw.TTL(ctx, "dossier:abc"); ttl > 5*time.Second {
		t.Errorf("TTL after ForceRefresh = %v, want <= 5s", ttl)
	}
}

func TestBase_ForceRefreshError(t *testing.T) {
	b, _, _ := newTestBase(t)
	errRepo := errors.New("repo down")
	_, err := b.GetByID(context.Background(), "abc", func(context.Context) (string, error) {
		return "", errRepo
	}, ForceRefresh())
	if !errors.Is(err, errRepo) || cache.KindOf(err) != cache.KindFetcher {
		t.Errorf("error = %v, want fetcher error wrapping errRepo", err)
	}
}

func TestBase_GetList(t *testing.T) {
	ctx := context.Background()
	b, _, gw := newTestBase(t)
	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	params := map[string]any{"status": "open", "page": 1}
	if _, err := b.GetList(ctx, params, fetch); err != nil {
		t.Fatalf("GetList() error = %v", err)
	}
	reordered := map[string]any{"page": 1, "status": "open"}
	got, err := b.GetList(ctx, reordered, fetch)
	if err != nil || len(got) != 2 {
		t.Fatalf("GetList() = %v, %v", got, err)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}

	keys, _ := gw.Scan(ctx, "dossier:list:*", 0)
	if len(keys) != 1 {
		t.Errorf("list keys = %v, want one", keys)
	}
}

func TestBase_Hooks(t *testing.T) {
	ctx := context.Background()
	b, c, gw := newTestBase(t)
	seedList := func() {
		t.Helper()
		if err := gw.SetWithTTL(ctx, "dossier:list:x", []byte(`[]`), time.Minute); err != nil {
			t.Fatalf("SetWithTTL() error = %v", err)
		}
	}

	seedList()
	b.OnCreated(ctx)
	if exists(t, gw, "dossier:list:x") {
		t.Error("OnCreated should clear list caches")
	}

	seedList()
	b.OnUpdated(ctx, "abc", "new")
	raw, ok, _ := gw.Get(ctx, "dossier:abc")
	if !ok || string(raw) != `"new"` {
		t.Errorf("dossier:abc = %s, %v; want \"new\"", raw, ok)
	}
	if exists(t, gw, "dossier:list:x") {
		t.Error("OnUpdated should clear list caches")
	}
	if got := c.Tags().Keys("dossiers"); len(got) != 1 {
		t.Errorf("Keys(dossiers) = %v, want dossier:abc", got)
	}

	seedList()
	b.OnDeleted(ctx, "abc")
	if exists(t, gw, "dossier:abc") || exists(t, gw, "dossier:list:x") {
		t.Error("OnDeleted should remove the entry and list caches")
	}
}

func TestBase_NilCoordinator(t *testing.T) {
	b := NewBase[string](nil, policy.User)
	v, err := b.GetByID(context.Background(), "1", func(context.Context) (string, error) { return "v", nil })
	if err != nil || v != "v" {
		t.Errorf("GetByID() = %q, %v", v, err)
	}
	b.OnCreated(context.Background())
	b.OnUpdated(context.Background(), "1", "v")
	b.OnDeleted(context.Background(), "1")
}
