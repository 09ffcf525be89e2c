package cache

import (
	"context"
	"reflect"
	"time"

	"github.com/jonwraymond/entitycache/policy"
	"github.com/jonwraymond/entitycache/store"
)

// Cacheable wraps fn with read-through caching for et.
//
// On a hit the stored value is decoded and returned without calling fn.
// On a miss fn runs, and a successful non-nil result is stored under the
// entity key with the policy TTL and tags. Store failures fall through to
// fn unless FailClosed is set. Errors from fn propagate as *Error with
// KindFetcher and are never cached.
func Cacheable[A, T any](c *Coordinator, et policy.EntityType, fn Func[A, T], opts ...Option) Func[A, T] {
	o := buildOptions(opts)
	return func(ctx context.Context, arg A) (T, error) {
		if c == nil {
			return fn(ctx, arg)
		}
		if o.condition != nil && !o.condition(arg) {
			return fn(ctx, arg)
		}

		v, err := cacheableCall(ctx, c, et, fn, arg, o)
		if err != nil && o.skipOnErr {
			c.warn(ctx, "cached call failed, calling through", et, "", err)
			return fn(ctx, arg)
		}
		return v, err
	}
}

func cacheableCall[A, T any](ctx context.Context, c *Coordinator, et policy.EntityType, fn Func[A, T], arg A, o options) (T, error) {
	var zero T
	start := time.Now()

	key, err := c.keyFor(et, o, arg)
	if err != nil {
		c.warn(ctx, "cache key unavailable", et, "", err)
		return fetch(ctx, fn, arg, "")
	}

	raw, ok, err := c.Lookup(ctx, et, key)
	switch {
	case err != nil && o.failClosed:
		c.collector.RecordMiss(ctx, et, time.Since(start))
		return zero, err
	case err != nil:
		c.warn(ctx, "cache read failed", et, key, err)
	case ok:
		cached, derr := decodeAs[T](raw)
		if derr == nil {
			c.collector.RecordHit(ctx, et, time.Since(start))
			return cached, nil
		}
		c.warn(ctx, "cached value undecodable", et, key, derr)
	}

	v, err := fetch(ctx, fn, arg, key)
	c.collector.RecordMiss(ctx, et, time.Since(start))
	if err != nil {
		return zero, err
	}
	if isNil(v) {
		return v, nil
	}

	var stored any = v
	if o.transform != nil {
		stored = o.transform(v)
	}
	if err := c.Store(ctx, et, key, stored, o.ttl, c.tagsFor(et, o.tags)...); err != nil {
		c.warn(ctx, "cache write failed", et, key, err)
	}
	return v, nil
}

// fetch runs fn and classifies its error.
func fetch[A, T any](ctx context.Context, fn Func[A, T], arg A, key string) (T, error) {
	v, err := fn(ctx, arg)
	if err != nil {
		var zero T
		return zero, NewError(KindFetcher, "fetch", key, err)
	}
	return v, nil
}

// keyFor builds the key for arg using the WithKey function when set.
func (c *Coordinator) keyFor(et policy.EntityType, o options, arg any) (string, error) {
	id := arg
	if o.key != nil {
		if k, ok := o.key(arg); ok {
			id = k
		}
	}
	return c.Key(et, id)
}

// decodeAs decodes raw into T. For string results, bytes that are not a
// JSON string are returned verbatim.
func decodeAs[T any](raw []byte) (T, error) {
	v, err := store.Decode[T](raw)
	if err == nil {
		return v, nil
	}
	if s, ok := any(string(raw)).(T); ok {
		return s, nil
	}
	return v, NewError(KindSerialization, "decode", "", err)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
