package service

import (
	"context"
	"errors"

	"github.com/jonwraymond/entitycache/cache"
	"github.com/jonwraymond/entitycache/observe"
	"github.com/jonwraymond/entitycache/policy"
)

// listPattern matches every list entry under an entity prefix.
const listPattern = "*list*"

// Base is the cache-aware base for services of one entity type.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: reads return fetcher errors classified as cache.KindFetcher;
// lifecycle hooks never fail, cache failures are logged.
// - Nil coordinator: every read calls the fetcher and hooks do nothing.
type Base[T any] struct {
	c     *cache.Coordinator
	et    policy.EntityType
	keyer *policy.Keyer
}

// NewBase creates a Base for et.
func NewBase[T any](c *cache.Coordinator, et policy.EntityType) *Base[T] {
	return &Base[T]{c: c, et: et, keyer: policy.NewKeyer()}
}

// EntityType returns the entity type the base caches.
func (b *Base[T]) EntityType() policy.EntityType {
	return b.et
}

// GetByID reads the entry for id through the cache, calling fetch on a miss.
func (b *Base[T]) GetByID(ctx context.Context, id string, fetch func(ctx context.Context) (T, error), opts ...CallOption) (T, error) {
	return read(ctx, b.c, b.et, id, fetch, buildCallOptions(opts))
}

// GetList reads a list keyed by a hash of params through the cache. Params
// that cannot be hashed bypass the cache.
func (b *Base[T]) GetList(ctx context.Context, params any, fetch func(ctx context.Context) ([]T, error), opts ...CallOption) ([]T, error) {
	hash, err := b.keyer.Hash(params)
	if err != nil {
		b.logger().Warn(ctx, "list params not hashable", observe.F("entity_type", string(b.et)), observe.Err(err))
		return fetch(ctx)
	}
	return read(ctx, b.c, b.et, "list:"+hash, fetch, buildCallOptions(opts))
}

// OnCreated clears the list caches. A new entity has no cached image yet.
func (b *Base[T]) OnCreated(ctx context.Context) {
	if b.c == nil {
		return
	}
	b.invalidateLists(ctx)
}

// OnUpdated overwrites the entry for id with value and clears the list
// caches.
func (b *Base[T]) OnUpdated(ctx context.Context, id string, value T) {
	if b.c == nil {
		return
	}
	key, err := b.c.Key(b.et, id)
	if err == nil {
		err = b.c.Store(ctx, b.et, key, value, 0, b.c.Registry().Tags(b.et)...)
	}
	if err != nil {
		b.logger().Warn(ctx, "cache refresh failed",
			observe.F("entity_type", string(b.et)), observe.F("id", id), observe.Err(err))
	}
	b.invalidateLists(ctx)
}

// OnDeleted removes the entry for id and clears the list caches.
func (b *Base[T]) OnDeleted(ctx context.Context, id string) {
	if b.c == nil {
		return
	}
	key, err := b.c.Key(b.et, id)
	if err == nil {
		_, err = b.c.InvalidateKeys(ctx, key)
	}
	if err != nil {
		b.logger().Warn(ctx, "cache delete failed",
			observe.F("entity_type", string(b.et)), observe.F("id", id), observe.Err(err))
	}
	b.invalidateLists(ctx)
}

func (b *Base[T]) invalidateLists(ctx context.Context) {
	pattern := b.c.Registry().Pattern(b.et, listPattern)
	if _, err := b.c.InvalidatePattern(ctx, pattern); err != nil {
		b.logger().Warn(ctx, "list invalidation failed",
			observe.F("entity_type", string(b.et)), observe.F("pattern", pattern), observe.Err(err))
	}
}

func (b *Base[T]) logger() observe.Logger {
	if b.c == nil {
		return observe.NopLogger()
	}
	return b.c.Logger()
}

// read routes one call through the wrapper the options select.
func read[V any](ctx context.Context, c *cache.Coordinator, et policy.EntityType, id string, fetch func(context.Context) (V, error), o callOptions) (V, error) {
	if o.skipCache || c == nil {
		return fetch(ctx)
	}
	fn := func(ctx context.Context, _ string) (V, error) { return fetch(ctx) }
	opts := []cache.Option{cache.WithTTL(o.ttl), cache.WithTags(o.tags...)}
	if o.forceRefresh {
		v, err := cache.CachePut(c, et, fn, opts...)(ctx, id)
		if err != nil {
			return v, classifyFetch(id, err)
		}
		return v, nil
	}
	return cache.Cacheable(c, et, fn, opts...)(ctx, id)
}

// classifyFetch keeps ForceRefresh errors consistent with cached reads.
func classifyFetch(id string, err error) error {
	var ce *cache.Error
	if errors.As(err, &ce) {
		return err
	}
	return cache.NewError(cache.KindFetcher, "fetch", id, err)
}
