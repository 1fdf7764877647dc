// Package lock serializes writers to the same activity list across processes.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
)

// Lock is a single non-blocking mutual exclusion region.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

var ErrBusy = errors.New("lock is held by another writer")

// Locker hands out locks by key and waits for them.
type Locker struct {
	New  func(key string) Lock
	Wait time.Duration
	Poll time.Duration
}

// NewLocker prefers Redis when a client is configured, otherwise Postgres
// advisory locks.
func NewLocker(redisClient *redis.Client, db *sql.DB, ttl time.Duration) *Locker {
	l := &Locker{Wait: 5 * time.Second, Poll: 50 * time.Millisecond}
	if redisClient != nil {
		l.New = func(key string) Lock { return NewRedisLock(redisClient, key, ttl) }
	} else {
		l.New = func(key string) Lock { return NewPGAdvisoryLock(db, key) }
	}
	return l
}

// Do runs fn while holding key. It polls until the lock is free or Wait
// elapses, in which case it returns a Conflict error wrapping ErrBusy.
func (l *Locker) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lk := l.New(key)

	waitCtx, cancel := context.WithTimeout(ctx, l.Wait)
	defer cancel()

	ticker := time.NewTicker(l.Poll)
	defer ticker.Stop()

	for {
		ok, err := lk.Acquire(waitCtx)
		if err != nil && waitCtx.Err() == nil {
			return err
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return appErrors.Wrap(appErrors.KindConflict, ErrBusy, "%s is being modified, try again", key)
		case <-ticker.C:
		}
	}

	defer func() {
		// Release must run even when ctx is already cancelled.
		_ = lk.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
