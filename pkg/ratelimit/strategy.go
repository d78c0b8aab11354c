package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type Logger interface {
	Error(msg string, args ...interface{})
}

// RateLimiter decides whether a client key has exhausted its budget.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(ctx context.Context, key string) (bool, error)
	Close() error
}

// Unlimited never limits. Registering it on a route exempts that route from
// the global limiter.
type Unlimited struct{}

func (Unlimited) GetLimitDetails() (int, time.Duration)           { return 0, 0 }
func (Unlimited) IsLimited(context.Context, string) (bool, error) { return false, nil }
func (Unlimited) Close() error                                    { return nil }

// IsUnlimited reports whether l applies no limit at all.
func IsUnlimited(l RateLimiter) bool {
	_, ok := l.(Unlimited)
	return ok
}

// InMemoryRateLimiter is a per-key token bucket for a single instance.
// The bucket holds Requests tokens and refills one every Window/Requests.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	ops      uint64
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		limiters: make(map[string]*keyedLimiter),
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = "__empty__"
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.limiters[key]
	if !ok {
		rps := float64(r.requests) / r.window.Seconds()
		k = &keyedLimiter{
			limiter:  rate.NewLimiter(rate.Limit(rps), r.requests),
			lastSeen: now,
		}
		r.limiters[key] = k
	} else {
		k.lastSeen = now
	}

	// Sweep idle keys every 1024 calls.
	r.ops++
	if r.ops%1024 == 0 {
		cutoff := now.Add(-2 * r.window)
		for kKey, kVal := range r.limiters {
			if kVal.lastSeen.Before(cutoff) {
				delete(r.limiters, kKey)
			}
		}
	}

	return !k.limiter.AllowN(now, 1), nil
}

// Size reports how many client keys are tracked.
func (r *InMemoryRateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

// Atomic sliding window over a sorted set scored in milliseconds.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local expire = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

if redis.call('ZCARD', key) >= limit then
	return 1
end

redis.call('ZADD', key, now, member)
redis.call('EXPIRE', key, expire)
return 0
`)

// RedisRateLimiter is a sliding window limiter shared by every instance.
type RedisRateLimiter struct {
	client    *redis.Client
	requests  int
	window    time.Duration
	keyPrefix string
	logger    Logger
}

// NewRedisRateLimiter builds a limiter whose keys live under
// "ratelimit:<scope>:". Distinct scopes keep separate budgets.
func NewRedisRateLimiter(client *redis.Client, scope string, requests int, window time.Duration, logger Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		requests:  requests,
		window:    window,
		keyPrefix: keyPrefixFor(scope),
		logger:    logger,
	}
}

func keyPrefixFor(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "global"
	}
	return "ratelimit:" + scope + ":"
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisRateLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	fullKey := r.keyPrefix + key
	now := time.Now().UnixMilli()
	expire := int64((r.window * 2).Seconds())
	if expire < 1 {
		expire = 1
	}

	result, err := slidingWindowScript.Run(ctx, r.client, []string{fullKey},
		now, r.window.Milliseconds(), r.requests, expire, uuid.NewString()).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script execution failed", "key", fullKey, "error", err)
		}
		return false, fmt.Errorf("rate limiter Redis error: %w", err)
	}
	return result == 1, nil
}

// Close is a no-op; the Redis client belongs to the application cache.
func (r *RedisRateLimiter) Close() error {
	return nil
}

type RateLimitConfig struct {
	// Scope namespaces Redis keys so overrides do not share a budget.
	Scope    string
	Requests int
	Window   time.Duration
	Redis    *redis.Client // nil selects the in-memory limiter
	Logger   Logger
}

func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		return NewRedisRateLimiter(config.Redis, config.Scope, config.Requests, config.Window, config.Logger)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}
