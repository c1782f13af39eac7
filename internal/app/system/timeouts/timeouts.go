// Package timeouts provides the context deadlines used by handlers and workers.
//
// Values are set once at startup with Configure; until then the defaults apply.
//   - Ping: health checks
//   - Short: single-document reads and status flips
//   - Medium: list queries, promotion, replace and delete
//   - Upload: requests that stream attachments into GridFS
//   - Export: building a spreadsheet of the whole registry
package timeouts

import (
	"sync"
	"time"
)

// Defaults.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultUpload = 30 * time.Second
	DefaultExport = 60 * time.Second
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Upload time.Duration
	Export time.Duration
}

var (
	mu      sync.RWMutex
	current = defaults()
)

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Upload: DefaultUpload,
		Export: DefaultExport,
	}
}

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(current)
}

// Ping returns the health check timeout.
func Ping() time.Duration { return get(func(c Config) time.Duration { return c.Ping }) }

// Short returns the timeout for single-document operations.
func Short() time.Duration { return get(func(c Config) time.Duration { return c.Short }) }

// Medium returns the timeout for list queries and multi-step writes.
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }

// Upload returns the timeout for requests that store attachments.
func Upload() time.Duration { return get(func(c Config) time.Duration { return c.Upload }) }

// Export returns the timeout for spreadsheet generation.
func Export() time.Duration { return get(func(c Config) time.Duration { return c.Export }) }

// Configure overrides timeouts. Zero values in cfg are ignored.
// Call during startup before handlers are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		current.Ping = cfg.Ping
	}
	if cfg.Short > 0 {
		current.Short = cfg.Short
	}
	if cfg.Medium > 0 {
		current.Medium = cfg.Medium
	}
	if cfg.Upload > 0 {
		current.Upload = cfg.Upload
	}
	if cfg.Export > 0 {
		current.Export = cfg.Export
	}
}

// Reset restores the defaults. Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults()
}

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
