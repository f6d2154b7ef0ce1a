// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text, json or tint output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Storage selects the document store: sqlite or memory.
	Storage string `koanf:"storage"`

	// DBPath is the SQLite file used when Storage is sqlite.
	DBPath string `koanf:"db_path"`

	// QueueSize bounds the in-memory recompute queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize caps the number of scopes with a pending recompute mark.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /scopes/{scope}/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// StreamBuffer is the number of pending snapshots kept per stream subscriber.
	StreamBuffer int `koanf:"stream_buffer"`

	// RecomputeInterval triggers a recompute of every scope; 0 disables it.
	RecomputeInterval time.Duration `koanf:"recompute_interval"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Storage:             StorageSQLite,
		DBPath:              "teampulse.db",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          10_000,
		MaxLeaderboardLimit: 100,
		StreamBuffer:        1,
		RecomputeInterval:   0,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Storage != StorageSQLite && c.Storage != StorageMemory:
		return fmt.Errorf("%w: storage must be %q or %q, got %q", ErrInvalidConfig, StorageSQLite, StorageMemory, c.Storage)
	case c.Storage == StorageSQLite && strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path is required for sqlite storage", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.StreamBuffer < 1:
		return fmt.Errorf("%w: stream_buffer must be positive", ErrInvalidConfig)
	case c.RecomputeInterval < 0:
		return fmt.Errorf("%w: recompute_interval must not be negative", ErrInvalidConfig)
	}
	return nil
}
