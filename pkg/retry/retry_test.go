package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("dial tcp 127.0.0.1:5672: connect: connection refused")

func fastConfig(attempts int) *Config {
	return &Config{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestExponentialBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := NewExponentialBackoff(fastConfig(3)).Execute(func() error {
		calls++
		if calls < 3 {
			return errRefused
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExponentialBackoff_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := NewExponentialBackoff(fastConfig(2)).Execute(func() error {
		calls++
		return errRefused
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, IsMaxRetriesExceeded(err))
	assert.ErrorIs(t, err, errRefused)
}

func TestFixedDelay_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("invalid credentials")
	calls := 0
	err := NewFixedDelay(fastConfig(5)).Execute(func() error {
		calls++
		return permanent
	})

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestCustomClassifier(t *testing.T) {
	cfg := fastConfig(3)
	cfg.Retryable = func(error) bool { return true }

	calls := 0
	err := NewFixedDelay(cfg).Execute(func() error {
		calls++
		return errors.New("anything")
	})

	assert.True(t, IsMaxRetriesExceeded(err))
	assert.Equal(t, 3, calls)
}

func TestExecuteContext_CancelStopsWaiting(t *testing.T) {
	cfg := &Config{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	err := NewExponentialBackoff(cfg).ExecuteContext(ctx, func() error {
		calls++
		return errRefused
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDelayIsCapped(t *testing.T) {
	eb := NewExponentialBackoff(&Config{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2})

	assert.Equal(t, time.Second, eb.calculateDelay(1))
	assert.Equal(t, 2*time.Second, eb.calculateDelay(2))
	assert.Equal(t, 3*time.Second, eb.calculateDelay(5))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errRefused))
	assert.True(t, IsTransient(errors.New("database is locked")))
	assert.False(t, IsTransient(errors.New("syntax error")))
	assert.False(t, IsTransient(nil))
}
