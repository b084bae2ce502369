package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a Redis instance.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache creates a Redis-backed cache and verifies connectivity,
// failing fast on startup.
func NewRedisCache(ctx context.Context, host string, port int, password string) (*RedisCache, error) {
	if host == "" {
		return nil, fmt.Errorf("redis host missing")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password, // empty string if no password
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger := slog.Default().With("component", "redis")
	logger.Info("redis cache connected", "addr", addr)

	return &RedisCache{client: client, logger: logger}, nil
}

// Get retrieves a cached value. A miss returns found=false, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed for key %s: %w", key, err)
	}
	c.logger.Debug("cache hit", "key", key)
	return val, true, nil
}

// Set stores a value with the given TTL (DefaultTTL when zero).
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed for key %s: %w", key, err)
	}
	c.logger.Debug("cache set", "key", key, "ttl", ttl)
	return nil
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	c.logger.Info("redis cache closed")
	return nil
}
