package cache

import (
	"context"
	"errors"

	"github.com/jonwraymond/entitycache/policy"
)

// InvalidateOnWrite wraps a write so that cached entries for et are
// removed around it. The sources run in this order:
//
//   - InvalidateKeys: identifiers derived from the argument
//   - InvalidatePattern: glob patterns under the entity prefix
//   - the entity type's policy tags (unless SkipOwnTags) and WithTags extras
//   - InvalidateRelated: the policy tags of related entity types
//
// With the default After timing invalidation only runs when fn succeeds.
// Invalidation failures are logged and never change fn's outcome.
func InvalidateOnWrite[A, T any](c *Coordinator, et policy.EntityType, fn Func[A, T], opts ...Option) Func[A, T] {
	o := buildOptions(opts)
	return func(ctx context.Context, arg A) (T, error) {
		if c == nil {
			return fn(ctx, arg)
		}
		if o.timing == Before {
			c.invalidateFor(ctx, et, o, arg)
		}
		v, err := fn(ctx, arg)
		if err != nil {
			return v, err
		}
		if o.timing == After {
			c.invalidateFor(ctx, et, o, arg)
		}
		return v, nil
	}
}

// invalidateFor runs every invalidation source in o and logs failures.
func (c *Coordinator) invalidateFor(ctx context.Context, et policy.EntityType, o options, arg any) {
	var errs []error

	if o.invalidateKeys != nil {
		var keys []string
		for _, id := range o.invalidateKeys(arg) {
			key, err := c.Key(et, id)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			keys = append(keys, key)
		}
		if _, err := c.InvalidateKeys(ctx, keys...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, p := range o.patterns {
		if _, err := c.InvalidatePattern(ctx, c.registry.Pattern(et, p)); err != nil {
			errs = append(errs, err)
		}
	}

	var tags []string
	if !o.skipOwnTags {
		tags = append(tags, c.registry.Tags(et)...)
	}
	tags = append(tags, o.tags...)
	for _, rel := range o.related {
		tags = append(tags, c.registry.Tags(rel)...)
	}
	if len(tags) > 0 {
		if _, err := c.InvalidateTags(ctx, dedupe(tags)...); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		c.warn(ctx, "invalidation failed", et, "", err)
	}
}
