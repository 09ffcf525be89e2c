package resilience

import (
	"context"
	"time"
)

// DefaultTimeout bounds a call when no timeout is configured.
const DefaultTimeout = 2 * time.Second

// Timeout bounds each call by a fixed duration.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a Timeout. Non-positive durations use DefaultTimeout.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &Timeout{d: d}
}

// Duration returns the per-call bound.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a deadline. The caller is released with ErrTimeout
// once the deadline passes, even when op ignores its context; op's late
// result is discarded. When the parent context ends first its error is
// returned instead.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(callCtx) }()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrTimeout
	}
}
