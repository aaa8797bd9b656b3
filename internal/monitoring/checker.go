// Package monitoring watches backing services in the background.
package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is anything with a liveness probe, such as store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the latest probe result.
type Status struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Checker pings a dependency on an interval and keeps the latest Status.
type Checker struct {
	target   Pinger
	interval time.Duration
	timeout  time.Duration
	onResult func(healthy bool)

	mu     sync.RWMutex
	status Status
}

// NewChecker returns a Checker for target. A non-positive interval falls
// back to 30s. onResult may be nil.
func NewChecker(target Pinger, interval time.Duration, onResult func(healthy bool)) *Checker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Checker{
		target:   target,
		interval: interval,
		timeout:  5 * time.Second,
		onResult: onResult,
	}
}

// Run checks once immediately and then on every tick until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting health checker", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("health checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check probes the target once and records the result.
func (c *Checker) Check(ctx context.Context) Status {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.target.Ping(pctx)
	st := Status{Healthy: err == nil, CheckedAt: time.Now().UTC()}
	if err != nil {
		st.Error = err.Error()
		zap.L().Warn("monitoring: ping failed", zap.Error(err))
	}

	c.mu.Lock()
	changed := c.status.Healthy != st.Healthy || c.status.CheckedAt.IsZero()
	c.status = st
	c.mu.Unlock()

	if changed {
		zap.L().Info("monitoring: health changed", zap.Bool("healthy", st.Healthy))
	}
	if c.onResult != nil {
		c.onResult(st.Healthy)
	}
	return st
}

// Status returns the latest result. Before the first check it reports
// unhealthy with a zero CheckedAt.
func (c *Checker) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
