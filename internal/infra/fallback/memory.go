package fallback

import (
	"context"
	"fmt"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

// MemoryStore is the in-process fallback store backed by otter.
type MemoryStore struct {
	cache *otter.Cache[string, any]
}

// NewMemoryStore creates a memory store, falling back to defaults for
// unset config fields.
func NewMemoryStore(cfg Config) (*MemoryStore, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig.MaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig.TTL
	}

	opts := &otter.Options[string, any]{
		MaximumSize:      cfg.MaxSize,
		StatsRecorder:    stats.NewCounter(),
		ExpiryCalculator: otter.ExpiryWriting[string, any](cfg.TTL),
	}

	cache, err := otter.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build otter cache: %w", err)
	}

	return &MemoryStore{cache: cache}, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value any) error {
	s.cache.Set(key, value)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (any, bool) {
	return s.cache.GetIfPresent(key)
}

func (s *MemoryStore) Remove(ctx context.Context, key string) {
	s.cache.Invalidate(key)
}

func (s *MemoryStore) Close() error {
	s.cache.StopAllGoroutines()
	return nil
}
