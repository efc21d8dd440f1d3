package mover

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// keyedLock is a set of advisory locks keyed by string. Acquire
// blocks until the key's lock is free, the timeout passes or the
// context is cancelled. It only guards movers within one process;
// the remote compare-and-swap is the cross-process guard.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{
		locks: make(map[string]chan struct{}),
	}
}

func (l *keyedLock) Acquire(ctx context.Context, key string, timeout time.Duration) error {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: key %s after %s", ErrLockTimeout, key, timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: key %s: %w", ErrLockTimeout, key, ctx.Err())
	}
}

func (l *keyedLock) Release(key string) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	l.mu.Unlock()

	if ok {
		select {
		case <-ch:
		default:
			// Releasing an unheld lock is a programming error; do not
			// block on it.
		}
	}
}
