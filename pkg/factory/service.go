// Package factory builds per-route rate limiters that share the application cache.
package factory

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/akeren/waitlist-signup/pkg/ratelimit"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RateLimitConfig struct {
	Scope    string
	Requests int
	Window   time.Duration
}

type RateLimiterFactory interface {
	CreateRateLimiter(cfg RateLimitConfig) ratelimit.RateLimiter
}

// DefaultRateLimiterFactory hands out Redis limiters when the cache is Redis
// and reachable, in-memory limiters otherwise.
type DefaultRateLimiterFactory struct {
	redis  *redis.Client
	logger ratelimit.Logger
}

func NewDefaultRateLimiterFactory(cache Cache, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	var redisClient *redis.Client
	if cache != nil {
		if provider, ok := cache.(RedisClientProvider); ok {
			redisClient = provider.GetClient()
		}
	}

	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			if logger != nil {
				logger.Error("Redis unreachable for rate limiting, using in-memory limiters", "error", err)
			}
			redisClient = nil
		}
	}

	return &DefaultRateLimiterFactory{redis: redisClient, logger: logger}
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter(cfg RateLimitConfig) ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Scope:    cfg.Scope,
		Requests: cfg.Requests,
		Window:   cfg.Window,
		Redis:    f.redis,
		Logger:   f.logger,
	})
}

// Distributed reports whether limiters share state across instances.
func (f *DefaultRateLimiterFactory) Distributed() bool {
	return f.redis != nil
}
