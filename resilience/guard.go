package resilience

import (
	"context"
	"time"
)

// GuardConfig configures a Guard.
type GuardConfig struct {
	// Name identifies the guarded dependency.
	Name string

	// Timeout bounds every call. Default: 2 seconds
	Timeout time.Duration

	// MaxFailures is the consecutive failure count that opens the circuit.
	// Default: 5
	MaxFailures uint32

	// ResetTimeout is how long the circuit stays open. Default: 30 seconds
	ResetTimeout time.Duration

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)
}

// Guard composes a circuit breaker (outer) and a timeout (inner).
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every call is bounded by Timeout; cancellation of ctx is honored.
// - Errors: returns ErrCircuitOpen, ErrTimeout, or the operation's own error.
type Guard struct {
	breaker *CircuitBreaker
	timeout *Timeout
}

// NewGuard creates a guard.
func NewGuard(config GuardConfig) *Guard {
	return &Guard{
		breaker: NewCircuitBreaker(CircuitBreakerConfig{
			Name:          config.Name,
			MaxFailures:   config.MaxFailures,
			ResetTimeout:  config.ResetTimeout,
			OnStateChange: config.OnStateChange,
		}),
		timeout: NewTimeout(config.Timeout),
	}
}

// Execute runs op through the breaker and the timeout.
func (g *Guard) Execute(ctx context.Context, op func(context.Context) error) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.timeout.Execute(ctx, op)
	})
}

// State returns the breaker state.
func (g *Guard) State() State {
	return g.breaker.State()
}

// Metrics returns the breaker metrics.
func (g *Guard) Metrics() CircuitBreakerMetrics {
	return g.breaker.Metrics()
}

// Do runs op through g and returns its value. A nil guard runs op directly.
func Do[T any](ctx context.Context, g *Guard, op func(context.Context) (T, error)) (T, error) {
	if g == nil {
		return op(ctx)
	}
	out := make(chan T, 1)
	err := g.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out <- v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-out, nil
}
