// Package rediscounter backs the key pool's selection counter with Redis
// INCR: one atomic, externally durable operation shared by every process
// instance. Only the integer crosses the process boundary.
package rediscounter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"passlink/go-backend/internal/nearkey"
)

// Client adapts a Redis connection onto the pool's Counter interface.
type Client struct {
	rdb *redis.Client
}

var _ nearkey.Counter = (*Client)(nil)

// NewFromURL connects using a redis:// or rediss:// URL. The connection is
// lazy; nothing is dialed until the first increment.
func NewFromURL(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("rediscounter: parse url: %w", err)
	}
	return &Client{rdb: redis.NewClient(opts)}, nil
}

func New(addr, password string, db int) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Increment returns the post-increment value of key. Redis executes INCR
// atomically, so concurrent callers never observe the same value.
func (c *Client) Increment(ctx context.Context, key string) (int64, error) {
	value, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("rediscounter: incr %q: %w", key, err)
	}
	return value, nil
}

// Ping verifies the connection, for startup health checks that opt in.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
