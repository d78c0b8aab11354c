package config

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeren/waitlist-signup/internal/log"
)

func TestCacheConfig_NotConfigured(t *testing.T) {
	cc := &CacheConfig{}
	assert.False(t, cc.IsConfigured())

	_, err := cc.NewCache(log.NewNopLogger())
	assert.ErrorIs(t, err, ErrCacheNotConfigured)
	assert.Nil(t, cc.NewCacheOrNil(log.NewNopLogger()))
	assert.Nil(t, GetRedisClient(nil))
}

func TestCacheConfig_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_DB", "")

	logger := log.NewNopLogger()
	cache := NewCacheConfig().NewCacheOrNil(logger)
	require.NotNil(t, cache)
	defer CloseCache(cache, logger)

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "signups:count", "4", 0))
	got, err := cache.Get(ctx, "signups:count")
	require.NoError(t, err)
	assert.Equal(t, "4", got)

	missing, err := cache.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.NotNil(t, GetRedisClient(cache))
}

func TestCacheConfig_UnreachableDegradesToNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addrHost, addrPort := mr.Host(), mr.Port()
	mr.Close()

	cc := &CacheConfig{Host: addrHost, Port: addrPort}
	assert.Nil(t, cc.NewCacheOrNil(log.NewNopLogger()))
}
