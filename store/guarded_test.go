package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/entitycache/resilience"
)

// slowGateway blocks every Get until ctx is done.
type slowGateway struct {
	*MemoryGateway
}

func (s slowGateway) Get(ctx context.Context, key string) ([]byte, bool, error) {
	<-ctx.Done()
	return nil, false, ctx.Err()
}

func TestGuarded_PassThrough(t *testing.T) {
	g := Guarded(NewMemoryGateway(), resilience.NewGuard(resilience.GuardConfig{Name: "test"}))
	ctx := context.Background()

	if err := g.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	got, ok, err := g.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}
	if _, ok, _ := g.Get(ctx, "missing"); ok {
		t.Error("expected miss")
	}
	if n, err := g.Delete(ctx, "k"); err != nil || n != 1 {
		t.Errorf("Delete() = %d, %v", n, err)
	}
}

func TestGuarded_TimeoutThenOpen(t *testing.T) {
	guard := resilience.NewGuard(resilience.GuardConfig{
		Name:         "slow",
		Timeout:      10 * time.Millisecond,
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	g := Guarded(slowGateway{NewMemoryGateway()}, guard)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, err := g.Get(ctx, "k"); !errors.Is(err, resilience.ErrTimeout) {
			t.Fatalf("Get() #%d error = %v, want ErrTimeout", i, err)
		}
	}
	if _, _, err := g.Get(ctx, "k"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Get() error = %v, want ErrCircuitOpen", err)
	}
	if guard.State() != resilience.StateOpen {
		t.Errorf("State() = %v, want open", guard.State())
	}
}

func TestGuarded_NilGuard(t *testing.T) {
	g := Guarded(NewMemoryGateway(), nil)
	if err := g.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if g.Unwrap() == nil {
		t.Error("Unwrap() returned nil")
	}
}
