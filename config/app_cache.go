package config

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/akeren/waitlist-signup/internal/log"
	pkgredis "github.com/akeren/waitlist-signup/pkg/redis"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

// Cache backs the signup count cache, the distributed limiters and the
// per-email lock. It is optional; every consumer has an in-process fallback.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	// Set uses ttl=0 for no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// RedisClientProvider is implemented by caches that expose their Redis client
// for Lua-scripted limiters, locks and streams.
type RedisClientProvider interface {
	GetClient() *redis.Client
}

var ErrCacheNotConfigured = errors.New("cache host is not configured")

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		Host:     utils.GetEnvTrimmed("REDIS_HOST"),
		Port:     utils.GetEnvTrimmedOrDefault("REDIS_PORT", "6379"),
		Password: sanitizeEnv(GetValueFromEnvironmentVariable("REDIS_PASSWORD", "")),
		DB:       utils.GetEnvPositiveInt("REDIS_DB", 0),
	}
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.Host != ""
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{
		Host:     cc.Host,
		Port:     cc.Port,
		Password: cc.Password,
		DB:       cc.DB,
	})
	if err != nil {
		logger.Error("Failed to connect to Redis", "host", cc.Host, "port", cc.Port, "error", err)
		return nil, err
	}

	logger.Info("Cache (Redis) connected", "host", cc.Host, "port", cc.Port, "db", cc.DB)
	return cache, nil
}

// NewCacheOrNil degrades to no cache when Redis is absent or unreachable.
func (cc *CacheConfig) NewCacheOrNil(logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("Cache (Redis) is not configured; falling back to in-process limiters and locks")
		return nil
	}

	cache, err := cc.NewCache(logger)
	if err != nil {
		logger.Warn("Continuing without Redis", "error", err)
		return nil
	}
	return cache
}

func GetRedisClient(cache Cache) *redis.Client {
	if provider, ok := cache.(RedisClientProvider); ok && provider != nil {
		return provider.GetClient()
	}
	return nil
}

func CloseCache(cache Cache, logger *log.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Close(); err != nil {
		logger.Error("Failed to close cache", "error", err)
		return
	}
	logger.Info("Cache connection closed")
}
