// Package circuitbreaker stops calling an optional dependency (cache, broker)
// after repeated failures so request latency does not follow it down.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState int

const (
	Closed CircuitState = iota
	Open
	// HalfOpen lets calls through until SuccessThreshold of them succeed or
	// one fails.
	HalfOpen
)

var stateNames = [...]string{Closed: "closed", Open: "open", HalfOpen: "half_open"}

func (s CircuitState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

type CircuitBreaker interface {
	Call(func() error) error
	State() CircuitState
	Metrics() CircuitBreakerMetrics
	Reset()
}

type Config struct {
	Name string
	// FailureThreshold consecutive failures open a closed circuit.
	FailureThreshold int
	// RecoveryTimeout is how long an open circuit rejects calls.
	RecoveryTimeout  time.Duration
	SuccessThreshold int
	// OnStateChange runs after a transition, outside the breaker lock.
	OnStateChange func(name string, from, to CircuitState)
}

func DefaultConfig() *Config {
	return &Config{FailureThreshold: 5, RecoveryTimeout: time.Minute, SuccessThreshold: 3}
}

type CircuitBreakerMetrics struct {
	Name         string
	State        CircuitState
	FailureCount int
	SuccessCount int
	LastFailure  time.Time
	NextAttempt  time.Time
}

type circuitBreaker struct {
	config *Config
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
	nextAttempt time.Time
}

// NewCircuitBreaker starts closed. A nil config uses DefaultConfig.
func NewCircuitBreaker(config *Config) CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	return &circuitBreaker{config: config, now: time.Now}
}

// Call runs fn unless the circuit is open. fn runs without the lock held.
func (cb *circuitBreaker) Call(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *circuitBreaker) admit() bool {
	cb.mu.Lock()
	from := cb.state
	if cb.state == Open && cb.now().After(cb.nextAttempt) {
		cb.state = HalfOpen
		cb.successes = 0
	}
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return to != Open
}

func (cb *circuitBreaker) record(err error) {
	cb.mu.Lock()
	from := cb.state
	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == HalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = Open
			cb.nextAttempt = cb.lastFailure.Add(cb.config.RecoveryTimeout)
		}
	} else {
		cb.failures = 0
		if cb.state == HalfOpen {
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.state = Closed
				cb.successes = 0
			}
		}
	}
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
}

func (cb *circuitBreaker) notify(from, to CircuitState) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = Closed
	cb.failures = 0
	cb.successes = 0
}

func (cb *circuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerMetrics{
		Name:         cb.config.Name,
		State:        cb.state,
		FailureCount: cb.failures,
		SuccessCount: cb.successes,
		LastFailure:  cb.lastFailure,
		NextAttempt:  cb.nextAttempt,
	}
}
