// Package store provides the key-value gateway the cache layer talks to.
//
// The Gateway interface is the only view of the external store: string
// values with a TTL, key enumeration by glob pattern, hashes and sets for
// durable metrics and tag mirrors, and server statistics. Two
// implementations are provided: RedisGateway over go-redis, and
// MemoryGateway, an in-process store with Redis-compatible semantics used
// by the memory backend and by tests.
//
// Guarded wraps any Gateway so that every call is bounded by a timeout and
// a circuit breaker; when the store is unreachable calls fail fast with
// resilience.ErrTimeout or resilience.ErrCircuitOpen.
//
// Values are JSON text. Encode and Decode handle the codec; DecodeAny
// returns the raw string when stored bytes are not valid JSON.
package store
