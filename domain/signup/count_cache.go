package signup

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/circuitbreaker"
	"github.com/akeren/waitlist-signup/pkg/constants"
)

const (
	countCacheKey      = "signups:count"
	countGenerationKey = "signups:count:generation"
)

// Cache is the subset of the application cache the count endpoint needs.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// countCache is a read-through cache for the signup count. All methods are
// no-ops on a nil receiver.
//
// Cached counts are tagged with the generation read before counting, and
// invalidate rotates the generation. A count computed before a write but
// stored after its invalidation therefore never matches again.
type countCache struct {
	cache   Cache
	ttl     time.Duration
	breaker circuitbreaker.CircuitBreaker
	logger  *log.Logger
}

func newCountCache(cache Cache, ttl time.Duration, logger *log.Logger) *countCache {
	if cache == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = constants.DefaultCountCacheTTL
	}
	return &countCache{
		cache: cache,
		ttl:   ttl,
		breaker: circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			Name:             "signup-count-cache",
			FailureThreshold: 3,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 1,
			OnStateChange: func(name string, from, to circuitbreaker.CircuitState) {
				logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		logger: logger,
	}
}

// get returns the cached count when it belongs to the current generation.
// gen is the current generation and is valid for a later set even on a miss.
func (c *countCache) get(ctx context.Context) (n int, gen string, ok bool) {
	if c == nil {
		return 0, "", false
	}

	var raw string
	err := c.breaker.Call(func() error {
		var err error
		if gen, err = c.cache.Get(ctx, countGenerationKey); err != nil {
			return err
		}
		raw, err = c.cache.Get(ctx, countCacheKey)
		return err
	})
	if err != nil {
		c.logger.Warn("Count cache read failed", "error", err)
		return 0, gen, false
	}

	tag, value, found := strings.Cut(raw, ":")
	if !found || tag != gen {
		return 0, gen, false
	}
	n, err = strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, gen, false
	}
	return n, gen, true
}

func (c *countCache) set(ctx context.Context, gen string, n int) {
	if c == nil {
		return
	}
	err := c.breaker.Call(func() error {
		return c.cache.Set(ctx, countCacheKey, gen+":"+strconv.Itoa(n), c.ttl)
	})
	if err != nil {
		c.logger.Warn("Count cache write failed", "error", err)
	}
}

func (c *countCache) invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	err := c.breaker.Call(func() error {
		if err := c.cache.Set(ctx, countGenerationKey, uuid.NewString(), 0); err != nil {
			return err
		}
		return c.cache.Delete(ctx, countCacheKey)
	})
	if err != nil {
		c.logger.Warn("Count cache invalidation failed", "error", err)
	}
}
