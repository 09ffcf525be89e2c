package resilience

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// State is the circuit state of a guarded store as reported to
// OnStateChange callbacks and the admin health details.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func fromBreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// CircuitBreakerConfig configures a CircuitBreaker. Zero values take the
// defaults noted on each field.
type CircuitBreakerConfig struct {
	Name string

	// MaxFailures consecutive failures open the circuit. Default: 5
	MaxFailures uint32

	// ResetTimeout is how long an open circuit rejects calls before a probe.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests bounds the probes let through. Default: 1
	HalfOpenMaxRequests uint32

	OnStateChange func(from, to State)
}

// CircuitBreaker stops calling a failing dependency after repeated failures.
type CircuitBreaker struct {
	config  CircuitBreakerConfig
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures == 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests == 0 {
		config.HalfOpenMaxRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.HalfOpenMaxRequests,
		Timeout:     config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about the dependency's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if config.OnStateChange != nil {
		onChange := config.OnStateChange
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			onChange(fromBreakerState(from), fromBreakerState(to))
		}
	}

	return &CircuitBreaker{
		config:  config,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := cb.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	return fromBreakerState(cb.breaker.State())
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	counts := cb.breaker.Counts()
	return CircuitBreakerMetrics{
		State:               cb.State(),
		Requests:            counts.Requests,
		ConsecutiveFailures: counts.ConsecutiveFailures,
		TotalFailures:       counts.TotalFailures,
		TotalSuccesses:      counts.TotalSuccesses,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics for the current interval.
type CircuitBreakerMetrics struct {
	State               State
	Requests            uint32
	ConsecutiveFailures uint32
	TotalFailures       uint32
	TotalSuccesses      uint32
}
