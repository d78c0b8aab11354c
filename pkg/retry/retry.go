// Package retry re-runs startup connection attempts (store, broker, cache)
// until they succeed or the attempt budget is spent.
package retry

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

type RetryPolicy interface {
	Execute(func() error) error
}

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Retryable overrides the default transient-error classifier.
	Retryable func(error) bool
}

// DefaultConfig returns conservative defaults for backoff retries.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// StartupConfig is the policy used while dialing dependencies at boot.
func StartupConfig() *Config {
	return &Config{
		MaxAttempts: 5,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

func (c *Config) retryable(err error) bool {
	if c.Retryable != nil {
		return c.Retryable(err)
	}
	return IsTransient(err)
}

// ExponentialBackoff retries with exponential delay between attempts.
type ExponentialBackoff struct {
	config *Config
}

// NewExponentialBackoff applies defaults when config is nil.
func NewExponentialBackoff(config *Config) *ExponentialBackoff {
	if config == nil {
		config = DefaultConfig()
	}
	return &ExponentialBackoff{config: config}
}

func (eb *ExponentialBackoff) Execute(fn func() error) error {
	return eb.ExecuteContext(context.Background(), fn)
}

// ExecuteContext stops waiting between attempts once ctx is done.
func (eb *ExponentialBackoff) ExecuteContext(ctx context.Context, fn func() error) error {
	return run(ctx, eb.config, fn, eb.calculateDelay)
}

func (eb *ExponentialBackoff) calculateDelay(attempt int) time.Duration {
	delay := float64(eb.config.BaseDelay) * math.Pow(eb.config.Multiplier, float64(attempt-1))
	if eb.config.MaxDelay > 0 && delay > float64(eb.config.MaxDelay) {
		delay = float64(eb.config.MaxDelay)
	}

	return time.Duration(delay)
}

// FixedDelay retries with a constant delay between attempts.
type FixedDelay struct {
	config *Config
}

// NewFixedDelay applies defaults when config is nil.
func NewFixedDelay(config *Config) *FixedDelay {
	if config == nil {
		config = DefaultConfig()
	}
	return &FixedDelay{config: config}
}

func (fd *FixedDelay) Execute(fn func() error) error {
	return fd.ExecuteContext(context.Background(), fn)
}

func (fd *FixedDelay) ExecuteContext(ctx context.Context, fn func() error) error {
	return run(ctx, fd.config, fn, func(int) time.Duration { return fd.config.BaseDelay })
}

func run(ctx context.Context, cfg *Config, fn func() error, delayFor func(attempt int) time.Duration) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		if !cfg.retryable(err) {
			return err
		}

		timer := time.NewTimer(delayFor(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return &MaxRetriesExceededError{
		LastError:   lastErr,
		MaxAttempts: cfg.MaxAttempts,
	}
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"no such host",
	"broken pipe",
	"database is locked",
}

// IsTransient reports whether err looks like a network or contention blip.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// MaxRetriesExceededError indicates that all retry attempts were exhausted.
type MaxRetriesExceededError struct {
	LastError   error
	MaxAttempts int
}

func (e *MaxRetriesExceededError) Error() string {
	if e.LastError == nil {
		return "max retries exceeded"
	}
	return "max retries exceeded: " + e.LastError.Error()
}

func (e *MaxRetriesExceededError) Unwrap() error {
	return e.LastError
}

// IsMaxRetriesExceeded reports whether err is a MaxRetriesExceededError.
func IsMaxRetriesExceeded(err error) bool {
	var maxRetriesErr *MaxRetriesExceededError
	return errors.As(err, &maxRetriesErr)
}
