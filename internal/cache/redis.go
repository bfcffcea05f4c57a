// Package cache provides the Redis cache access layer for posts and
// request throttling.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Cache wraps a Redis client shared by the post cache, the write limiter
// and the event stream.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New dials redisURL and verifies the connection. A zero ttl falls back
// to DefaultPostTTL.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	tunePool(opt)

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opt.Addr, err)
	}

	return NewWithClient(client, ttl), nil
}

// tunePool applies pool defaults unless the URL already set them.
func tunePool(opt *redis.Options) {
	if opt.PoolSize == 0 {
		opt.PoolSize = 10
	}
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = 2
	}
	if opt.PoolTimeout == 0 {
		opt.PoolTimeout = 4 * time.Second
	}
	if opt.ConnMaxIdleTime == 0 {
		opt.ConnMaxIdleTime = 5 * time.Minute
	}
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultPostTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// TTL reports how long cached posts live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the connection for the event stream and test fixtures.
func (c *Cache) Client() *redis.Client {
	return c.client
}
