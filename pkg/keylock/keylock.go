// Package keylock serializes work per key, in process or across processes via Redis.
package keylock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker hands out exclusive locks keyed by an arbitrary string.
type Locker interface {
	// Lock blocks until the key is acquired or ctx is done. The returned
	// function releases the lock and is safe to call more than once.
	Lock(ctx context.Context, key string) (func(), error)
}

// NewLocker returns a Redis-backed locker when client is non-nil and an
// in-memory one otherwise.
func NewLocker(client *redis.Client, ttl time.Duration) Locker {
	if client != nil {
		return NewRedisLocker(client, ttl)
	}
	return NewMemoryLocker()
}

// MemoryLocker keeps one mutex per active key and frees it when the last
// holder or waiter is done.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryLock
}

type memoryLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*memoryLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &memoryLock{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, entry, true) })
	}, nil
}

func (l *MemoryLocker) release(key string, entry *memoryLock, held bool) {
	if held {
		<-entry.ch
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

// Size reports how many keys currently have holders or waiters.
func (l *MemoryLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockTimeout is returned when the Redis lock could not be acquired before ctx expired.
var ErrLockTimeout = errors.New("keylock: timed out waiting for lock")

// RedisLocker implements Locker with SET NX PX and a token-checked release.
// The TTL bounds how long a crashed holder can block others.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	retry     time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client:    client,
		ttl:       ttl,
		keyPrefix: "lock:",
		retry:     25 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("keylock: redis setnx: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release on a fresh context so a cancelled request still frees the key.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
		})
	}, nil
}
