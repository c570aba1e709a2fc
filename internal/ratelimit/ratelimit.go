package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limiter is a fixed-window counter per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ======================================================
// In-process
// ======================================================

type window struct {
	start time.Time
	count int
}

type MemoryLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		if len(l.windows) > 10000 {
			l.evict(now)
		}
		w = &window{start: now}
		l.windows[key] = w
	}

	w.count++
	return w.count <= l.limit, nil
}

func (l *MemoryLimiter) evict(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.period {
			delete(l.windows, k)
		}
	}
}

// ======================================================
// Redis
// ======================================================

type RedisLimiter struct {
	client *redis.Client
	limit  int
	period time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		period: period,
		prefix: "club-calendar:rate:",
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	// First hit opens the window.
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.period).Err(); err != nil {
			return false, err
		}
	}

	return n <= int64(l.limit), nil
}
