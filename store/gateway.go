package store

import (
	"context"
	"time"
)

// Sentinel TTL values returned by Gateway.TTL, mirroring Redis.
const (
	// TTLPersistent means the key exists and has no expiry.
	TTLPersistent time.Duration = -1

	// TTLMissing means the key does not exist.
	TTLMissing time.Duration = -2
)

// Gateway is the thin abstraction over the external key-value store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: every method honors cancellation and deadlines.
// - Errors: each call may fail independently; a missing key is not an error
// (Get reports it through the bool).
// - Scan must not block the store (SCAN, never KEYS).
type Gateway interface {
	// Get returns the value stored at key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// SetWithTTL stores value at key with the given expiry.
	// A non-positive ttl stores the key without expiry.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys and returns how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)

	// Exists reports whether key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Scan returns keys matching a glob pattern. limit <= 0 means no limit.
	Scan(ctx context.Context, pattern string, limit int) ([]string, error)

	// DeleteByPattern removes every key matching pattern and returns the count.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	// TTL returns the remaining time to live of key, TTLPersistent or TTLMissing.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Expire sets an expiry on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// HSet sets hash fields.
	HSet(ctx context.Context, key string, fields map[string]string) error

	// HGetAll returns all hash fields; a missing key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// SAdd adds members to a set.
	SAdd(ctx context.Context, key string, members ...string) error

	// SMembers returns the members of a set; a missing key yields an empty slice.
	SMembers(ctx context.Context, key string) ([]string, error)

	// Info returns server statistics as key/value pairs.
	Info(ctx context.Context) (map[string]string, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// DBSize returns the number of keys in the current database.
	DBSize(ctx context.Context) (int64, error)
}
