// Package cache coordinates entity caching on top of a key-value store.
//
// A Coordinator owns the policy registry, the store gateway, the tag
// index and the metrics collector for one process. The generic wrappers
// turn ordinary functions into cache-aware ones without changing their
// signature:
//
//   - Cacheable reads through the cache and stores the result on a miss.
//   - InvalidateOnWrite removes keys, patterns and tags around a write.
//   - CachePut runs a write and stores its result under the entity key.
//
// The cache is best-effort. Store failures on the read path fall through
// to the wrapped function unless FailClosed is set; store failures on the
// write path are logged and never turn a successful call into a failure.
// Errors returned by the wrapped function always propagate.
//
//	c, _ := cache.New(gw, cache.Config{})
//	getDossier := cache.Cacheable(c, policy.Dossier, repo.FindByID)
//	d, err := getDossier(ctx, "abc") // stored under "dossier:abc" for 300s
package cache
