package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/entitycache/store"
)

var errDown = errors.New("store down")

func newTestCoordinator(t *testing.T, cfg Config) (*Coordinator, *store.MemoryGateway) {
	t.Helper()
	gw := store.NewMemoryGateway()
	c, err := New(gw, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, gw
}

// brokenGateway fails reads and writes of plain values.
type brokenGateway struct {
	*store.MemoryGateway
	getErr error
	setErr error
	delErr error
}

func (g *brokenGateway) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if g.getErr != nil {
		return nil, false, g.getErr
	}
	return g.MemoryGateway.Get(ctx, key)
}

func (g *brokenGateway) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if g.setErr != nil {
		return g.setErr
	}
	return g.MemoryGateway.SetWithTTL(ctx, key, value, ttl)
}

func (g *brokenGateway) Delete(ctx context.Context, keys ...string) (int64, error) {
	if g.delErr != nil {
		return 0, g.delErr
	}
	return g.MemoryGateway.Delete(ctx, keys...)
}

func newBrokenCoordinator(t *testing.T, gw *brokenGateway) *Coordinator {
	t.Helper()
	c, err := New(gw, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func mustExist(t *testing.T, gw store.Gateway, key string, want bool) {
	t.Helper()
	ok, err := gw.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("Exists(%q) error = %v", key, err)
	}
	if ok != want {
		t.Errorf("Exists(%q) = %v, want %v", key, ok, want)
	}
}

// counter counts calls of a fetcher.
type counter struct {
	calls int
}

type dossier struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (c *counter) fetchDossier(_ context.Context, id string) (*dossier, error) {
	c.calls++
	return &dossier{ID: id, Title: "title " + id}, nil
}
