// internal/app/system/timeouts/timeouts.go
// Package timeouts provides centralized timeout values for handlers, fetches
// and refresh runs.
package timeouts

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing    = 2 * time.Second
	DefaultRequest = 10 * time.Second
	DefaultFetch   = 15 * time.Second
	DefaultRefresh = 30 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping    = DefaultPing
	request = DefaultRequest
	fetch   = DefaultFetch
	refresh = DefaultRefresh
)

func get(v *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *v
}

// Ping returns the timeout for health checks.
func Ping() time.Duration { return get(&ping) }

// Request returns the timeout for an ordinary API request.
func Request() time.Duration { return get(&request) }

// Fetch returns the timeout for one domain fetch.
func Fetch() time.Duration { return get(&fetch) }

// Refresh returns the timeout for a full refresh run.
func Refresh() time.Duration { return get(&refresh) }

// Config holds timeout configuration values. Zero fields are left unchanged.
type Config struct {
	Ping    time.Duration
	Request time.Duration
	Fetch   time.Duration
	Refresh time.Duration
}

// Configure sets custom timeout values.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, s := range []struct {
		dst *time.Duration
		v   time.Duration
	}{
		{&ping, cfg.Ping},
		{&request, cfg.Request},
		{&fetch, cfg.Fetch},
		{&refresh, cfg.Refresh},
	} {
		if s.v > 0 {
			*s.dst = s.v
		}
	}
}

// Reset restores all timeouts to defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	request = DefaultRequest
	fetch = DefaultFetch
	refresh = DefaultRefresh
}

// ConfigureFromEnv reads <prefix>_TIMEOUT_{PING,REQUEST,FETCH,REFRESH}.
// Unparseable or non-positive values are ignored. It returns how many were applied.
func ConfigureFromEnv(prefix string) int {
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	var cfg Config
	configured := 0
	for _, s := range []struct {
		name string
		dst  *time.Duration
	}{
		{"PING", &cfg.Ping},
		{"REQUEST", &cfg.Request},
		{"FETCH", &cfg.Fetch},
		{"REFRESH", &cfg.Refresh},
	} {
		v := os.Getenv(prefix + "TIMEOUT_" + s.name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*s.dst = d
			configured++
		}
	}
	Configure(cfg)
	return configured
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Request: request, Fetch: fetch, Refresh: refresh}
}

// WithTimeout creates a context with timeout and logs when the deadline was hit.
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
