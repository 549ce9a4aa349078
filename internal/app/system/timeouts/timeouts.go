// Package timeouts holds the deadlines used for handler I/O.
//
//   - Ping: health probes
//   - Short: single-document reads and writes
//   - Medium: settings saves, OAuth exchanges, multi-step reads
//   - Logout: one whole logout attempt (revoke, settings, redirect)
//
// Values start at the defaults and may be changed once at startup with
// Configure and ConfigureFromEnv.
package timeouts

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLogout = 10 * time.Second
)

// Config holds timeout values. Zero fields are ignored by Configure.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Logout time.Duration
}

var defaults = Config{
	Ping:   DefaultPing,
	Short:  DefaultShort,
	Medium: DefaultMedium,
	Logout: DefaultLogout,
}

var (
	mu  sync.RWMutex
	cur = defaults
)

func get(f func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return f(cur)
}

// Ping bounds health checks.
func Ping() time.Duration { return get(func(c Config) time.Duration { return c.Ping }) }

// Short bounds single lookups such as a user by name or the settings document.
func Short() time.Duration { return get(func(c Config) time.Duration { return c.Short }) }

// Medium bounds settings saves and the OAuth code exchange.
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }

// Logout bounds a whole logout attempt. When it elapses the attempt fails
// and the user stays on the logout page.
func Logout() time.Duration { return get(func(c Config) time.Duration { return c.Logout }) }

// fields lists every timeout with its environment override.
func fields(c *Config) []struct {
	env string
	ptr *time.Duration
} {
	return []struct {
		env string
		ptr *time.Duration
	}{
		{"TIMEOUT_PING", &c.Ping},
		{"TIMEOUT_SHORT", &c.Short},
		{"TIMEOUT_MEDIUM", &c.Medium},
		{"TIMEOUT_LOGOUT", &c.Logout},
	}
}

// Configure overrides the non-zero fields of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	in := fields(&cfg)
	for i, f := range fields(&cur) {
		if d := *in[i].ptr; d > 0 {
			*f.ptr = d
		}
	}
}

// Reset restores the defaults. Tests call it in t.Cleanup.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults
}

// ConfigureFromEnv applies TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM and
// TIMEOUT_LOGOUT (Go durations such as "3s"). Unset, invalid and
// non-positive values are skipped. It returns how many were applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	n := 0
	for _, f := range fields(&cur) {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*f.ptr = d
			n++
		}
	}
	return n
}

// Current returns the values in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// WithTimeout is context.WithTimeout whose cancel logs a warning when the
// deadline was hit.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
