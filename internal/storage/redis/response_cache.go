// Package redis provides the edge cache backend: whole responses stored by
// URL with a native TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkusaka/hinichi/internal/cache"
)

type ResponseCache struct {
	client *redis.Client
}

// New connects to redis and verifies the connection with a ping.
func New(ctx context.Context, url string) (*ResponseCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &ResponseCache{client: client}, nil
}

func (c *ResponseCache) Match(ctx context.Context, key string) (*cache.CachedResponse, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var resp cache.CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		// Unreadable envelope: drop and miss.
		_ = c.client.Del(ctx, key).Err()
		return nil, nil
	}
	return &resp, nil
}

func (c *ResponseCache) Put(ctx context.Context, key string, resp *cache.CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *ResponseCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *ResponseCache) Close() error {
	return c.client.Close()
}
