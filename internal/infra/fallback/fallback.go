// Package fallback stores last-known-good responses per endpoint for
// the cached-fallback recovery strategy. Two backends exist: an
// in-process otter cache (default) and a shared Redis store.
package fallback

import (
	"context"
	"time"
)

// Store holds last-known-good values keyed by endpoint. Reads are
// best-effort: a miss and a backend error look the same to callers.
type Store interface {
	// Put records value as the latest good response for key.
	Put(ctx context.Context, key string, value any) error

	// Get returns the stored value for key, if present.
	Get(ctx context.Context, key string) (any, bool)

	// Remove drops the stored value for key.
	Remove(ctx context.Context, key string)

	// Close releases backend resources.
	Close() error
}

// Config holds fallback store configuration.
type Config struct {
	Backend string        `yaml:"backend"`
	MaxSize int           `yaml:"max_size"`
	TTL     time.Duration `yaml:"ttl"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	Backend: "memory",
	MaxSize: 512,
	TTL:     10 * time.Minute,
}
