// Package observe provides observability primitives for the cache layer.
//
// It bundles an OpenTelemetry tracer and meter, a zerolog-backed structured
// logger, cache-specific instruments (hits, misses, latency, invalidations)
// and an optional Prometheus registry for scraping. It performs no cache
// work itself; the cache, metrics and admin packages consume it.
package observe
