// Package timeouts provides centralized timeout values for upstream calls and
// for handlers that wait on a dashboard fetch cycle.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultUpstream = 15 * time.Second
	DefaultProbe    = 5 * time.Second
	DefaultSettle   = 20 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	upstream = DefaultUpstream
	probe    = DefaultProbe
	settle   = DefaultSettle
)

// Upstream returns the timeout for one request to the statistics API.
func Upstream() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return upstream
}

// Probe returns the timeout for the upstream reachability probe.
func Probe() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return probe
}

// Settle returns how long a handler may wait for a fetch cycle to finish.
func Settle() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return settle
}

// Config holds timeout configuration values. Zero fields keep the current value.
type Config struct {
	Upstream time.Duration
	Probe    time.Duration
	Settle   time.Duration
}

// Configure sets custom timeout values.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Upstream > 0 {
		upstream = cfg.Upstream
	}
	if cfg.Probe > 0 {
		probe = cfg.Probe
	}
	if cfg.Settle > 0 {
		settle = cfg.Settle
	}
}

// Reset restores all timeouts to defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	upstream = DefaultUpstream
	probe = DefaultProbe
	settle = DefaultSettle
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Upstream: upstream, Probe: probe, Settle: settle}
}

// WithTimeout creates a context with timeout and logs when the deadline was
// the reason the operation ended.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
