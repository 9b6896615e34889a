package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is a fixed-window counter store.
type Counter interface {
	// Incr adds one hit to key, opening a window of the given length on the first hit.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
	// Get returns the current count and remaining window; missing keys are zero.
	Get(ctx context.Context, key string) (count int64, remaining time.Duration, err error)
	// Reset drops keys.
	Reset(ctx context.Context, keys ...string) error
}

// RedisCounter implements Counter with INCR + EXPIRE.
type RedisCounter struct {
	rdb redis.UniversalClient
}

// NewRedisCounter wraps a go-redis client.
func NewRedisCounter(rdb redis.UniversalClient) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed window: the TTL is set by the first hit only.
	if count == 1 {
		if err := c.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return count, window, nil
	}

	ttl, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, max(ttl, 0), nil
}

func (c *RedisCounter) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ttl, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, max(ttl, 0), nil
}

func (c *RedisCounter) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter implements Counter in process memory.
type MemoryCounter struct {
	mu  sync.Mutex
	now func() time.Time
	m   map[string]window
}

// NewMemoryCounter returns a MemoryCounter using now as its clock (time.Now when nil).
func NewMemoryCounter(now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{now: now, m: make(map[string]window)}
}

func (c *MemoryCounter) Incr(ctx context.Context, key string, length time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.m[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(length)}
	}
	w.count++
	c.m[key] = w
	return w.count, w.resetAt.Sub(now), nil
}

func (c *MemoryCounter) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.m[key]
	if !ok || !now.Before(w.resetAt) {
		delete(c.m, key)
		return 0, 0, nil
	}
	return w.count, w.resetAt.Sub(now), nil
}

func (c *MemoryCounter) Reset(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.m, k)
	}
	return nil
}
