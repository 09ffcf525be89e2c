// Package policy maps entity types to cache freshness policies.
//
// A Registry is a static lookup table: every entity type resolves to exactly
// one Policy (TTL, key prefix, invalidation tags), and unknown types resolve
// to the default policy. The registry also builds cache keys, either from a
// caller-supplied identifier or from a deterministic hash of a structured
// lookup value.
package policy
