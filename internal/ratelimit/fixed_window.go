package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Limiter decides whether one more request for key fits the quota.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RedisFixedWindowLimiter counts requests per key and window slot in Redis,
// so every instance of the service shares one quota.
type RedisFixedWindowLimiter struct {
	limit  int
	window time.Duration
	client *redis.Client
	prefix string
}

// NewRedisFixedWindowLimiter creates a Redis-backed distributed limiter.
func NewRedisFixedWindowLimiter(addr, password, prefix string, limit int, window time.Duration) (*RedisFixedWindowLimiter, error) {
	if err := checkQuota(limit, window); err != nil {
		return nil, err
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rentbook:ratelimit"
	}
	return &RedisFixedWindowLimiter{
		limit:  limit,
		window: window,
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		prefix: prefix,
	}, nil
}

// Allow fails closed: a Redis error denies the request.
func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return false
	}
	windowMs := l.window.Milliseconds()
	slot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, normalizeKey(key), slot)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false
	}
	return count <= int64(l.limit)
}

// Close releases the Redis connection pool.
func (l *RedisFixedWindowLimiter) Close() error {
	return l.client.Close()
}

// MemoryFixedWindowLimiter is the single-instance limiter used with the
// in-memory backend.
type MemoryFixedWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	slot   int64
	counts map[string]int
}

// NewMemoryFixedWindowLimiter creates an in-process limiter.
func NewMemoryFixedWindowLimiter(limit int, window time.Duration) (*MemoryFixedWindowLimiter, error) {
	if err := checkQuota(limit, window); err != nil {
		return nil, err
	}
	return &MemoryFixedWindowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		counts: make(map[string]int),
	}, nil
}

// Allow counts the request against the current window.
func (l *MemoryFixedWindowLimiter) Allow(_ context.Context, key string) bool {
	slot := l.now().UTC().UnixMilli() / l.window.Milliseconds()
	key = normalizeKey(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	if slot != l.slot {
		l.slot = slot
		clear(l.counts)
	}
	l.counts[key]++
	return l.counts[key] <= l.limit
}

func checkQuota(limit int, window time.Duration) error {
	if limit <= 0 || window < time.Millisecond {
		return errors.New("rate limiter requires positive limit and window")
	}
	return nil
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "unknown"
	}
	return key
}
