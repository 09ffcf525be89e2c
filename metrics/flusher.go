package metrics

import (
	"context"
	"time"

	"github.com/jonwraymond/entitycache/observe"
)

// Serve flushes on every FlushInterval tick until ctx is canceled, then
// performs one final flush. It returns ctx.Err() so it can run as a
// supervised service.
func (c *Collector) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.finalFlush(ctx)
			return ctx.Err()
		case <-ticker.C:
			if err := c.Flush(ctx); err != nil {
				c.logger.Warn(ctx, "metrics flush failed", observe.Err(err))
			}
		}
	}
}

// String identifies the flusher in supervisor logs.
func (c *Collector) String() string {
	return "metrics-flusher"
}

func (c *Collector) finalFlush(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.cfg.FlushTimeout)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		c.logger.Warn(ctx, "final metrics flush failed", observe.Err(err))
	}
}

// Start runs Serve in a background goroutine.
func (c *Collector) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)
		_ = c.Serve(ctx)
	}()
	return nil
}

// Stop cancels the flusher started by Start and waits for its final flush.
// Calling Stop when the flusher is not running is a no-op.
func (c *Collector) Stop(ctx context.Context) error {
	c.runMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the flusher started by Start is active.
func (c *Collector) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.cancel != nil
}
