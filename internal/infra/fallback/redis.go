package fallback

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ledgerdesk/aegis/internal/infra/redis"
)

// RedisStore is the shared fallback store backed by Redis. Values are
// stored as JSON, so cross-process readers see plain decoded data.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store on an existing client.
func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig.TTL
	}
	return &RedisStore{client: client, ttl: cfg.TTL}
}

func (s *RedisStore) Put(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.SetSnapshot(ctx, key, payload, s.ttl)
}

func (s *RedisStore) Get(ctx context.Context, key string) (any, bool) {
	payload, ok, err := s.client.GetSnapshot(ctx, key)
	if err != nil {
		slog.Debug("Fallback read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		slog.Debug("Fallback payload corrupt", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

func (s *RedisStore) Remove(ctx context.Context, key string) {
	if err := s.client.DeleteSnapshot(ctx, key); err != nil {
		slog.Debug("Fallback delete failed", "key", key, "error", err)
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
