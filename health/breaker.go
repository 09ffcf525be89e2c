package health

import (
	"context"

	"github.com/jonwraymond/entitycache/resilience"
)

// Breaker exposes the counters of a circuit breaker, such as a
// resilience.Guard in front of the store.
type Breaker interface {
	Metrics() resilience.CircuitBreakerMetrics
}

// BreakerChecker reports the circuit state of the guarded store. An open
// circuit means every cache call is failing fast and is unhealthy.
type BreakerChecker struct {
	breaker Breaker
}

func NewBreakerChecker(b Breaker) *BreakerChecker {
	return &BreakerChecker{breaker: b}
}

func (b *BreakerChecker) Name() string { return "breaker" }

func (b *BreakerChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}
	m := b.breaker.Metrics()
	details := map[string]any{
		"state":                m.State.String(),
		"consecutive_failures": m.ConsecutiveFailures,
	}
	switch m.State {
	case resilience.StateOpen:
		return Unhealthy("store circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("store circuit half-open").WithDetails(details)
	default:
		return Healthy("store circuit closed").WithDetails(details)
	}
}
