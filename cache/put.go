package cache

import (
	"context"

	"github.com/jonwraymond/entitycache/policy"
)

// CachePut wraps a write so that its successful, non-nil result is stored
// under the entity key. The key comes from WithResultKey when set,
// otherwise from WithKey or the argument. Store failures are logged and
// never change fn's outcome.
func CachePut[A, T any](c *Coordinator, et policy.EntityType, fn Func[A, T], opts ...Option) Func[A, T] {
	o := buildOptions(opts)
	return func(ctx context.Context, arg A) (T, error) {
		v, err := fn(ctx, arg)
		if err != nil || c == nil || isNil(v) {
			return v, err
		}

		key, kerr := c.putKey(et, o, arg, v)
		if kerr != nil {
			c.warn(ctx, "cache key unavailable", et, "", kerr)
			return v, nil
		}

		var stored any = v
		if o.transform != nil {
			stored = o.transform(v)
		}
		if serr := c.Store(ctx, et, key, stored, o.ttl, c.tagsFor(et, o.tags)...); serr != nil {
			c.warn(ctx, "cache write failed", et, key, serr)
		}
		return v, nil
	}
}

func (c *Coordinator) putKey(et policy.EntityType, o options, arg, result any) (string, error) {
	if o.resultKey != nil {
		if id, ok := o.resultKey(result); ok {
			return c.Key(et, id)
		}
	}
	return c.keyFor(et, o, arg)
}
