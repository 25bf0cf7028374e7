package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/lock"
)

type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func newRedis(t *testing.T, cfg lock.RedisConfig) (*lock.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.NewRedis(client, cfg), mr
}

func assertMutualExclusion(t *testing.T, l locker) {
	t.Helper()
	var (
		inside  int32
		overlap int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(context.Background(), "loan-1")
			if !assert.NoError(t, err) {
				return
			}
			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&overlap), "two holders inside the critical section")
}

func TestLocal_MutualExclusion(t *testing.T) {
	assertMutualExclusion(t, lock.NewLocal())
}

func TestLocal_DistinctKeysDoNotBlock(t *testing.T) {
	l := lock.NewLocal()
	release, err := l.Lock(context.Background(), "loan-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	other, err := l.Lock(ctx, "loan-2")
	require.NoError(t, err)
	other()
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := lock.NewLocal()
	release, err := l.Lock(context.Background(), "loan-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "loan-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocal_ReleaseIsIdempotent(t *testing.T) {
	l := lock.NewLocal()
	release, err := l.Lock(context.Background(), "loan-1")
	require.NoError(t, err)
	release()
	release()

	again, err := l.Lock(context.Background(), "loan-1")
	require.NoError(t, err)
	again()
}

func TestRedis_MutualExclusion(t *testing.T) {
	l, _ := newRedis(t, lock.RedisConfig{Interval: time.Millisecond})
	assertMutualExclusion(t, l)
}

func TestRedis_TimesOut(t *testing.T) {
	l, _ := newRedis(t, lock.RedisConfig{Wait: 30 * time.Millisecond, Interval: 5 * time.Millisecond})
	release, err := l.Lock(context.Background(), "loan-1")
	require.NoError(t, err)
	defer release()

	_, err = l.Lock(context.Background(), "loan-1")
	assert.True(t, errors.Is(err, lock.ErrLockTimeout))
}

func TestRedis_ReleaseKeepsForeignLease(t *testing.T) {
	l, mr := newRedis(t, lock.RedisConfig{Prefix: "test:"})
	release, err := l.Lock(context.Background(), "loan-1")
	require.NoError(t, err)

	// The lease expired and another replica took it over.
	require.NoError(t, mr.Set("test:loan-1", "someone-else"))
	release()

	got, err := mr.Get("test:loan-1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_LeaseExpires(t *testing.T) {
	l, mr := newRedis(t, lock.RedisConfig{TTL: time.Second, Wait: 50 * time.Millisecond, Interval: 5 * time.Millisecond})
	_, err := l.Lock(context.Background(), "loan-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	release, err := l.Lock(context.Background(), "loan-1")
	require.NoError(t, err)
	release()
}
