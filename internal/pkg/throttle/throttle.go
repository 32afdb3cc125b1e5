// Package throttle limits repeated failed logins per key.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts failures of a key inside a fixed window
type Limiter interface {
	// Blocked reports whether key has reached the failure limit
	Blocked(ctx context.Context, key string) (bool, error)
	// Fail records one failure and returns the count inside the window
	Fail(ctx context.Context, key string) (int64, error)
	// Reset clears the failures of key
	Reset(ctx context.Context, key string) error
}

// RedisLimiter shares counters between API instances
type RedisLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: int64(max), window: window, prefix: "login-fail:"}
}

func (l *RedisLimiter) Blocked(ctx context.Context, key string) (bool, error) {
	value, err := l.client.Get(ctx, l.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read login failures: %w", err)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse login failures: %w", err)
	}
	return n >= l.max, nil
}

func (l *RedisLimiter) Fail(ctx context.Context, key string) (int64, error) {
	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return n, fmt.Errorf("set login failure window: %w", err)
		}
	}
	return n, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

type entry struct {
	count   int64
	expires time.Time
}

// MemoryLimiter is the single-instance fallback when no redis is configured
type MemoryLimiter struct {
	mu        sync.Mutex
	entries   map[string]entry
	max       int64
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]entry),
		max:     int64(max),
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) current(key string) entry {
	e, ok := l.entries[key]
	if ok && !l.now().Before(e.expires) {
		delete(l.entries, key)
		return entry{}
	}
	return e
}

// sweep drops expired entries, at most once per window
func (l *MemoryLimiter) sweep() {
	now := l.now()
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, e := range l.entries {
		if !now.Before(e.expires) {
			delete(l.entries, key)
		}
	}
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MemoryLimiter) Blocked(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current(key).count >= l.max, nil
}

func (l *MemoryLimiter) Fail(_ context.Context, key string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep()
	e := l.current(key)
	if e.count == 0 {
		e.expires = l.now().Add(l.window)
	}
	e.count++
	l.entries[key] = e
	return e.count, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}
