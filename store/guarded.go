package store

import (
	"context"
	"time"

	"github.com/jonwraymond/entitycache/resilience"
)

// GuardedGateway runs every call of an inner Gateway through a
// resilience.Guard.
type GuardedGateway struct {
	inner Gateway
	guard *resilience.Guard
}

// Guarded wraps gw with guard. A nil guard yields a pass-through wrapper.
func Guarded(gw Gateway, guard *resilience.Guard) *GuardedGateway {
	return &GuardedGateway{inner: gw, guard: guard}
}

// Guard returns the guard in use.
func (g *GuardedGateway) Guard() *resilience.Guard {
	return g.guard
}

// Unwrap returns the inner gateway.
func (g *GuardedGateway) Unwrap() Gateway {
	return g.inner
}

type getResult struct {
	value []byte
	ok    bool
}

func (g *GuardedGateway) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := resilience.Do(ctx, g.guard, func(ctx context.Context) (getResult, error) {
		v, ok, err := g.inner.Get(ctx, key)
		return getResult{value: v, ok: ok}, err
	})
	return r.value, r.ok, err
}

func (g *GuardedGateway) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.exec(ctx, func(ctx context.Context) error {
		return g.inner.SetWithTTL(ctx, key, value, ttl)
	})
}

func (g *GuardedGateway) Delete(ctx context.Context, keys ...string) (int64, error) {
	return resilience.Do(ctx, g.guard, func(ctx context.Context) (int64, error) {
		return g.inner.Delete(ctx, keys...)
	})
}

func (g *GuardedGateway) Exists(ctx context.Context, key string) (bool, error) {
	return resilience.Do(ctx, g.guard, func(ctx context.Context) (bool, error) {
		return g.inner.Exists(ctx, key)
	})
}

func (g *GuardedGateway) Scan(ctx context.Context, pattern string, limit int) ([]string, error) {
	return resilience.Do(ctx, g.guard, func(ctx context.Context) ([]string, error) {
		return g.inner.Scan(ctx, pattern, limit)
	})
}

func (g *GuardedGateway) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	return resilience.Do(ctx, g.guard, func(ctx context.Context) (int64, error) {
		return g.inner.DeleteByPattern(ctx, pattern)
	})
}

func (g *GuardedGateway) TTL(ctx context.Context, key string) (time.Duration, error) {
	return resilience.Do(ctx, g.guard, func(ctx context.Context) (time.Duration, error) {
		return g.inner.TTL(ctx, key)
	})
}

func (g *GuardedGateway) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return g.exec(ctx, func(ctx context.Context) error {
		return g.inner.Expire(ctx, key, ttl)
	})
}

func (g *GuardedGateway) HSet(ctx context.Context, key string, fields map[string]string) error {
	return g.exec(ctx, func(ctx context.Context) error {
		return g.inner.HSet(ctx, key, fields)
	})
}

func (g *GuardedGateway) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return resilience.Do(ctx, g.guard, func(ctx context.Context) (map[string]string, error) {
		return g.inner.HGetAll(ctx, key)
	})
}

func (g *GuardedGateway) SAdd(ctx context.Context, key string, members ...string) error {
	return g.exec(ctx, func(ctx context.Context) error {
		return g.inner.SAdd(ctx, key, members...)
	})
}

func (g *GuardedGateway) SMembers(ctx context.Context, key string) ([]string, error) {
	return resilience.Do(ctx, g.guard, func(ctx context.Context) ([]string, error) {
		return g.inner.SMembers(ctx, key)
	})
}

func (g *GuardedGateway) Info(ctx context.Context) (map[string]string, error) {
	return resilience.Do(ctx, g.guard, g.inner.Info)
}

func (g *GuardedGateway) Ping(ctx context.Context) error {
	return g.exec(ctx, g.inner.Ping)
}

func (g *GuardedGateway) DBSize(ctx context.Context) (int64, error) {
	return resilience.Do(ctx, g.guard, g.inner.DBSize)
}

func (g *GuardedGateway) exec(ctx context.Context, op func(context.Context) error) error {
	if g.guard == nil {
		return op(ctx)
	}
	return g.guard.Execute(ctx, op)
}

var _ Gateway = (*GuardedGateway)(nil)
