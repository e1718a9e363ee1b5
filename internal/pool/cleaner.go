package pool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Cleaner is the background sweep loop. On a fixed interval it evicts
// slots idle beyond the pool's idle timeout; on shutdown it drains the
// pool exactly once.
type Cleaner struct {
	pool     *Pool
	interval time.Duration
	logger   *slog.Logger

	started   atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
	drainOnce sync.Once
	done      chan struct{}
}

// NewCleaner creates a cleaner for pool sweeping at the given interval
// (default: 5m).
func NewCleaner(pool *Pool, interval time.Duration, logger *slog.Logger) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		pool:     pool,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run starts the sweep loop. It blocks until the context is cancelled or
// Shutdown is called.
func (c *Cleaner) Run(ctx context.Context) {
	c.started.Store(true)
	defer close(c.done)

	c.logger.Info("cleaner_started", "interval", c.interval.String())

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("cleaner_stopped", "reason", "context_cancelled")
			return
		case <-c.stop:
			c.logger.Debug("cleaner_stopped", "reason", "shutdown")
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one idle sweep immediately. Exposed as the pool's
// out-of-band manual cleanup trigger.
func (c *Cleaner) Sweep(ctx context.Context) int {
	evicted := c.pool.SweepIdle(ctx)
	if evicted > 0 {
		c.logger.Info("sweep_completed",
			"evicted", evicted,
			"occupancy", c.pool.Len(),
		)
	}
	return evicted
}

// Shutdown stops the sweep loop and drains the pool. The drain happens
// exactly once no matter how many times Shutdown is called or whether
// Run already exited.
func (c *Cleaner) Shutdown(ctx context.Context) {
	c.stopOnce.Do(func() { close(c.stop) })

	// Wait for the loop to exit so a sweep cannot race the drain.
	if c.started.Load() {
		select {
		case <-c.done:
		case <-ctx.Done():
		}
	}

	c.drainOnce.Do(func() {
		c.pool.DrainAll(ctx)
	})
}
