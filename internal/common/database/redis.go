// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"research-assistant/internal/common/config"
	"research-assistant/internal/history"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client backing conversation history.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a pooled client and verifies it with a ping.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	c := &RedisClient{Client: rdb}
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

// OpenHistory returns a history store on this connection using the
// retention settings from the history section.
func (c *RedisClient) OpenHistory(cfg config.HistoryConfig) *history.RedisStore {
	return history.NewRedisStore(c.Client, history.Options{
		TTL:         config.GetDuration(cfg.TTL),
		MaxMessages: cfg.MaxMessages,
	})
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
