package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	client, err := NewClient(context.Background(), Config{Host: mr.Host(), Port: port}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestNewClient_Unreachable(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	_, err := NewClient(context.Background(), Config{Host: "127.0.0.1", Port: 1}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis at 127.0.0.1:1")
}

func TestLocker_Acquire(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewLocker(client, "", 0)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "migration", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fern:lock:migration", lock.Key())
	assert.True(t, mr.Exists("fern:lock:migration"))

	_, err = locker.Acquire(ctx, "migration", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists("fern:lock:migration"))

	_, err = locker.Acquire(ctx, "migration", time.Minute)
	assert.NoError(t, err)
}

func TestLock_ReleaseAfterExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewLocker(client, "test:", time.Second)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "migration", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
	assert.ErrorIs(t, lock.Extend(ctx, time.Second), ErrLockNotHeld)
}

func TestLock_ReleaseDoesNotTouchOtherHolders(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewLocker(client, "test:", time.Second)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "migration", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	other, err := locker.Acquire(ctx, "migration", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
	assert.True(t, mr.Exists(other.Key()))
}

func TestLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewLocker(client, "test:", time.Second)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "migration", time.Second)
	require.NoError(t, err)

	require.NoError(t, lock.Extend(ctx, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(lock.Key()))
}

func TestLocker_Guard(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewLocker(client, "test:", 40*time.Millisecond)
	ctx := context.Background()

	release, err := locker.Guard(ctx, "migration")
	require.NoError(t, err)

	_, err = locker.Guard(ctx, "migration")
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	// the keepalive resets the TTL while the guard is held
	mr.SetTTL("test:migration", time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL("test:migration") == 40*time.Millisecond
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("test:migration"))

	release, err = locker.Guard(ctx, "migration")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestLocker_WithLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewLocker(client, "test:", time.Minute)
	ctx := context.Background()

	fnErr := errors.New("pass failed")
	err := locker.WithLock(ctx, "migration", func(ctx context.Context) error {
		assert.True(t, mr.Exists("test:migration"))

		_, err := locker.Acquire(ctx, "migration", time.Minute)
		assert.ErrorIs(t, err, ErrLockNotAcquired)
		return fnErr
	})

	assert.ErrorIs(t, err, fnErr)
	assert.False(t, mr.Exists("test:migration"))
}
