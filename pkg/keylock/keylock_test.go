package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocker_PicksImplementation(t *testing.T) {
	_, ok := NewLocker(nil, time.Second).(*MemoryLocker)
	assert.True(t, ok)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, ok = NewLocker(client, time.Second).(*RedisLocker)
	assert.True(t, ok)
}

func TestMemoryLocker_SerializesSameKey(t *testing.T) {
	locker := NewMemoryLocker()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "a@x.com")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locker.Size())
}

func TestMemoryLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locker := NewMemoryLocker()

	unlockA, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	unlockB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestMemoryLocker_ContextCancelWhileWaiting(t *testing.T) {
	locker := NewMemoryLocker()

	unlock, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "a")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	unlock()
	unlock()
	assert.Equal(t, 0, locker.Size())
}

func TestRedisLocker_AcquireReleaseAndContention(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewRedisLocker(client, 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:a@x.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, mr.Exists("lock:a@x.com"))

	unlock2, err := locker.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ReleaseDoesNotDeleteForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewRedisLocker(client, time.Second)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry and takeover by another holder.
	require.NoError(t, mr.Set("lock:k", "someone-else"))
	unlock()

	value, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}
