package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the shared fallback snapshot store.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func snapshotKey(endpoint string) string {
	return fmt.Sprintf("aegis:fallback:%s", endpoint)
}

// SetSnapshot stores the last-known-good payload for an endpoint.
func (c *Client) SetSnapshot(
	ctx context.Context,
	endpoint string,
	payload []byte,
	ttl time.Duration,
) error {
	if err := c.rdb.Set(ctx, snapshotKey(endpoint), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// GetSnapshot returns the stored payload for an endpoint, if any.
func (c *Client) GetSnapshot(ctx context.Context, endpoint string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, snapshotKey(endpoint)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}
	return val, true, nil
}

// DeleteSnapshot removes the stored payload for an endpoint.
func (c *Client) DeleteSnapshot(ctx context.Context, endpoint string) error {
	return c.rdb.Del(ctx, snapshotKey(endpoint)).Err()
}
