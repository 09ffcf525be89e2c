// Package metrics tracks per-entity-type cache hit, miss and latency
// statistics, persists them periodically to the store and recovers them
// after a restart.
//
// Counters live in memory, one bucket per entity type, each guarded by its
// own mutex so the invariant TotalRequests == Hits + Misses holds for every
// snapshot. A Collector flushes its buckets to the hash
// "entitycache:metrics:<entityType>" on an interval and once more on shutdown;
// Recover adds the persisted counts back into memory once per Collector.
//
// Store failures never reach callers of RecordHit or RecordMiss: metrics
// are best-effort.
package metrics
