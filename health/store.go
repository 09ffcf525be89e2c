package health

import (
	"context"
	"fmt"
	"time"
)

// Pinger is the subset of a key-value gateway StoreChecker needs.
type Pinger interface {
	Ping(ctx context.Context) error
	DBSize(ctx context.Context) (int64, error)
}

// StoreCheckerConfig configures a StoreChecker.
type StoreCheckerConfig struct {
	// Name is reported by Name(). Default: "store"
	Name string

	// SlowThreshold marks the store degraded when PING takes longer.
	// Default: 100 milliseconds
	SlowThreshold time.Duration
}

// StoreChecker checks connectivity and latency of the key-value store.
type StoreChecker struct {
	store  Pinger
	config StoreCheckerConfig
}

// NewStoreChecker creates a store checker.
func NewStoreChecker(store Pinger, config StoreCheckerConfig) *StoreChecker {
	if config.Name == "" {
		config.Name = "store"
	}
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = 100 * time.Millisecond
	}
	return &StoreChecker{store: store, config: config}
}

// Name returns the name of this checker.
func (s *StoreChecker) Name() string {
	return s.config.Name
}

// Check pings the store and counts its keys. A failed PING is unhealthy;
// a slow PING or a failed key count is degraded.
func (s *StoreChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := s.store.Ping(ctx); err != nil {
		return Unhealthy("store unreachable", err).WithDuration(time.Since(start))
	}
	latency := time.Since(start)

	details := map[string]any{
		"latency_ms": float64(latency.Microseconds()) / 1000,
	}

	keys, err := s.store.DBSize(ctx)
	if err != nil {
		r := Degraded("key count unavailable").WithDetails(details).WithDuration(latency)
		r.Error = err
		return r
	}
	details["keys"] = keys

	if latency > s.config.SlowThreshold {
		r := Degraded(fmt.Sprintf("store slow: %s", latency)).WithDetails(details).WithDuration(latency)
		r.Error = ErrSlowResponse
		return r
	}
	return Healthy("store reachable").WithDetails(details).WithDuration(latency)
}
