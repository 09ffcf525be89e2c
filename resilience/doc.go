// Package resilience guards calls to the external key-value store.
//
// A Guard composes two patterns around every store operation:
//
//   - Timeout: a call that does not return within the configured duration
//     fails with ErrTimeout, even when the operation ignores its context.
//     Readers treat that as a cache miss instead of blocking a request.
//
//   - Circuit Breaker: after repeated consecutive failures the breaker opens
//     and calls fail fast with ErrCircuitOpen until the reset timeout
//     elapses and a probe succeeds.
//
// # Usage
//
//	g := resilience.NewGuard(resilience.GuardConfig{
//	    Name:    "redis",
//	    Timeout: 250 * time.Millisecond,
//	})
//
//	err := g.Execute(ctx, func(ctx context.Context) error {
//	    return client.Ping(ctx).Err()
//	})
package resilience
