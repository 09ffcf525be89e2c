// Package admin serves the operator HTTP surface of the cache.
//
// Routes under /cache require an authenticated identity with the admin
// role:
//
//	GET    /cache/metrics               aggregated metrics and the policy table
//	GET    /cache/metrics/{entityType}  one entity type's metrics and policy
//	POST   /cache/reset                 reset counters and durable copies
//	GET    /cache/health                store latency, key count and checks
//	DELETE /cache/clear/{pattern}       delete keys matching a glob pattern
//	GET    /cache/keys/{prefix}?limit=N list keys with their TTL
//
// /healthz, /readyz and /metrics (Prometheus) are unauthenticated.
// Responses under /cache use the envelope {status, data, error, metadata}.
package admin
