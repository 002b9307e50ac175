package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired is returned when another holder owns the lock
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing or extending a lock we no longer own
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held distributed lock
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// Key returns the full redis key of the lock
func (lock *Lock) Key() string {
	return lock.key
}

// Locker hands out migration pass locks. A lock is held for ttl and kept
// alive while the pass runs.
type Locker struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

// NewLocker creates a new Locker
func NewLocker(client *Client, keyPrefix string, ttl time.Duration) *Locker {
	if keyPrefix == "" {
		keyPrefix = "fern:lock:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Acquire takes the lock once, without waiting
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := l.keyPrefix + key
	lockValue := uuid.New().String()

	ok, err := l.client.rdb.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired lock: %s", key)

	return &Lock{
		client: l.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// Release releases the lock if it is still ours
func (lock *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lock.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.client.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}

// Extend resets the lock's TTL if it is still ours
func (lock *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend lock %s: %w", lock.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.ttl = ttl
	return nil
}

// Guard acquires the lock for key and extends it every half TTL until the
// returned release function is called
func (l *Locker) Guard(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.Acquire(ctx, key, l.ttl)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(l.ttl / 2)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := lock.Extend(context.Background(), l.ttl); err != nil {
					l.client.logger.WithError(err).Warnf("Failed to extend lock %s", lock.key)
					return
				}
			}
		}
	}()

	release := func(ctx context.Context) error {
		close(done)
		<-stopped
		return lock.Release(ctx)
	}
	return release, nil
}

// WithLock executes fn while holding the lock for key
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	release, err := l.Guard(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(ctx); err != nil {
			l.client.logger.WithContext(ctx).WithError(err).Warn("Failed to release lock")
		}
	}()

	return fn(ctx)
}
