package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter allows at most Limit calls per key within Window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New returns a Redis fixed-window limiter, or an in-process sliding window when rdb is nil.
func New(rdb *redis.Client, limit int, window time.Duration) Limiter {
	if rdb == nil {
		return NewMemory(limit, window)
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window}
}

// RedisLimiter counts calls with INCR on a key that expires after the window.
// Shared across API instances.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	key = "ratelimit:" + key

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
	}
	return count <= int64(l.limit), nil
}

// MemoryLimiter keeps per-key call timestamps in process memory.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  map[string][]time.Time
	now    func() time.Time
}

func NewMemory(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		calls:  make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.calls[key]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.limit {
		l.calls[key] = kept
		return false, nil
	}

	l.calls[key] = append(kept, now)
	return true, nil
}
