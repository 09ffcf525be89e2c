package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/entitycache/observe"
	"github.com/jonwraymond/entitycache/policy"
	"github.com/jonwraymond/entitycache/store"
)

// DefaultTagKeyPrefix prefixes store-side tag sets when tag persistence is on.
const DefaultTagKeyPrefix = policy.ReservedPrefix + "tags:"

// TagIndex maps semantic tags to the cache keys stored under them.
//
// The index is process-local by default and lost on restart. With
// persistence enabled every tracked key is also added to the store set
// "<prefix><tag>", and invalidation removes the members of that set too,
// so tags written by earlier processes are honored.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Invalidate always clears the local set for each tag, even
// when the store delete fails; failures are joined and returned, never retried.
type TagIndex struct {
	gw      store.Gateway
	persist bool
	prefix  string
	logger  observe.Logger

	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

// NewTagIndex creates a tag index over gw.
func NewTagIndex(gw store.Gateway, persist bool, prefix string, logger observe.Logger) *TagIndex {
	if prefix == "" {
		prefix = DefaultTagKeyPrefix
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &TagIndex{
		gw:      gw,
		persist: persist,
		prefix:  prefix,
		logger:  logger,
		tags:    make(map[string]map[string]struct{}),
	}
}

// Persistent reports whether tags are mirrored to the store.
func (t *TagIndex) Persistent() bool {
	return t.persist
}

// Track associates key with every tag. Tracking the same pair twice has
// no further effect. Only store mirroring can fail.
func (t *TagIndex) Track(ctx context.Context, key string, tags ...string) error {
	if key == "" || len(tags) == 0 {
		return nil
	}
	t.mu.Lock()
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		set, ok := t.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			t.tags[tag] = set
		}
		set[key] = struct{}{}
	}
	t.mu.Unlock()

	if !t.persist {
		return nil
	}
	var errs []error
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if err := t.gw.SAdd(ctx, t.prefix+tag, key); err != nil {
			errs = append(errs, fmt.Errorf("mirror tag %s: %w", tag, err))
		}
	}
	return errors.Join(errs...)
}

// Keys returns the keys tracked locally under tag, sorted.
func (t *TagIndex) Keys(tag string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.tags[tag]))
	for k := range t.tags[tag] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tags returns every tag with at least one tracked key, sorted.
func (t *TagIndex) Tags() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	tags := make([]string, 0, len(t.tags))
	for tag, set := range t.tags {
		if len(set) > 0 {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// Invalidate deletes every key tracked under each tag with one multi-key
// delete per tag, then clears the tag. It returns the number of keys
// removed from the store.
func (t *TagIndex) Invalidate(ctx context.Context, tags ...string) (int64, error) {
	var (
		removed int64
		errs    []error
	)
	for _, tag := range dedupe(tags) {
		n, err := t.invalidate(ctx, tag)
		removed += n
		if err != nil {
			errs = append(errs, err)
			t.logger.Warn(ctx, "tag invalidation failed", observe.F("tag", tag), observe.Err(err))
		}
	}
	return removed, errors.Join(errs...)
}

func (t *TagIndex) invalidate(ctx context.Context, tag string) (int64, error) {
	t.mu.Lock()
	set := t.tags[tag]
	delete(t.tags, tag)
	t.mu.Unlock()

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}

	var errs []error
	if t.persist {
		members, err := t.gw.SMembers(ctx, t.prefix+tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("read tag set %s: %w", tag, err))
		}
		for _, m := range members {
			if _, ok := set[m]; !ok {
				keys = append(keys, m)
			}
		}
		if _, err := t.gw.Delete(ctx, t.prefix+tag); err != nil {
			errs = append(errs, fmt.Errorf("delete tag set %s: %w", tag, err))
		}
	}
	if len(keys) == 0 {
		return 0, errors.Join(errs...)
	}

	sort.Strings(keys)
	n, err := t.gw.Delete(ctx, keys...)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete tag %s: %w", tag, err))
	}
	return n, errors.Join(errs...)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
