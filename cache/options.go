package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/entitycache/policy"
)

// Func is the signature the wrappers accept and return. Functions with
// several arguments bundle them in a struct.
type Func[A, T any] func(ctx context.Context, arg A) (T, error)

// Timing selects when InvalidateOnWrite invalidates.
type Timing int

const (
	// After invalidates once the write succeeded. Default.
	After Timing = iota
	// Before invalidates before the write runs, regardless of its outcome.
	Before
)

// options is shared by all wrappers; each wrapper reads the fields it
// understands and ignores the rest.
type options struct {
	key        func(arg any) (any, bool)
	resultKey  func(result any) (any, bool)
	condition  func(arg any) bool
	transform  func(result any) any
	ttl        time.Duration
	tags       []string
	skipOnErr  bool
	failClosed bool

	invalidateKeys func(arg any) []any
	patterns       []string
	skipOwnTags    bool
	related        []policy.EntityType
	timing         Timing
}

// Option configures a wrapper.
type Option func(*options)

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithKey derives the key identifier from the call argument. The
// coordinator adds the entity prefix. Without it the argument itself is
// the identifier. Honored by Cacheable and CachePut.
func WithKey[A any](fn func(arg A) any) Option {
	return func(o *options) {
		o.key = func(arg any) (any, bool) {
			a, ok := arg.(A)
			if !ok {
				return nil, false
			}
			return fn(a), true
		}
	}
}

// WithResultKey derives the key identifier from the result of the wrapped
// function. Honored by CachePut, where it takes precedence over WithKey.
func WithResultKey[T any](fn func(result T) any) Option {
	return func(o *options) {
		o.resultKey = func(result any) (any, bool) {
			r, ok := result.(T)
			if !ok {
				return nil, false
			}
			return fn(r), true
		}
	}
}

// WithCondition bypasses the cache entirely when fn returns false.
// Honored by Cacheable.
func WithCondition[A any](fn func(arg A) bool) Option {
	return func(o *options) {
		o.condition = func(arg any) bool {
			a, ok := arg.(A)
			return ok && fn(a)
		}
	}
}

// WithTransform maps the result before it is stored. The caller still
// receives the untransformed result; later hits decode the stored form.
// Honored by Cacheable and CachePut.
func WithTransform[T any](fn func(result T) any) Option {
	return func(o *options) {
		o.transform = func(result any) any {
			r, ok := result.(T)
			if !ok {
				return result
			}
			return fn(r)
		}
	}
}

// WithTTL overrides the policy TTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithTags adds tags. Cacheable and CachePut track stored keys under them
// in addition to the policy tags; InvalidateOnWrite invalidates them.
func WithTags(tags ...string) Option {
	return func(o *options) { o.tags = append(o.tags, tags...) }
}

// SkipOnError retries the wrapped function once, outside the cache, when
// the cached path fails. The retry's result is not stored.
func SkipOnError() Option {
	return func(o *options) { o.skipOnErr = true }
}

// FailClosed returns store read failures to the caller instead of falling
// through to the wrapped function.
func FailClosed() Option {
	return func(o *options) { o.failClosed = true }
}

// InvalidateKeys derives identifiers to delete from the call argument.
func InvalidateKeys[A any](fn func(arg A) []any) Option {
	return func(o *options) {
		o.invalidateKeys = func(arg any) []any {
			a, ok := arg.(A)
			if !ok {
				return nil
			}
			return fn(a)
		}
	}
}

// InvalidatePattern deletes keys matching pattern, relative to the entity
// prefix ("*list*" under dossier clears "dossier:*list*").
func InvalidatePattern(pattern string) Option {
	return func(o *options) { o.patterns = append(o.patterns, pattern) }
}

// SkipOwnTags keeps InvalidateOnWrite from invalidating the entity type's
// policy tags, which it does by default.
func SkipOwnTags() Option {
	return func(o *options) { o.skipOwnTags = true }
}

// InvalidateRelated invalidates the policy tags of related entity types.
func InvalidateRelated(ets ...policy.EntityType) Option {
	return func(o *options) { o.related = append(o.related, ets...) }
}

// WithTiming selects whether invalidation runs before or after the write.
func WithTiming(t Timing) Option {
	return func(o *options) { o.timing = t }
}
