package queue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Key identifies one serialization domain. Deployments for the same
// key enter the critical section one at a time in arrival order;
// different keys never block each other.
type Key struct {
	SubPath     string
	Environment string
}

func (k Key) String() string {
	if k.SubPath == "" {
		return k.Environment
	}
	return k.SubPath + "/" + k.Environment
}

// Coordinator admits deployment requests to their per-key critical
// section in FIFO order. This is the in-process form of the
// serialization contract the external orchestrator must provide
// across processes; the mover's compare-and-swap retries remain the
// safety net if that contract is ever violated.
type Coordinator struct {
	mu     sync.Mutex
	keys   map[Key]*semaphore.Weighted
	logger *zap.Logger
}

func NewCoordinator(logger *zap.Logger) *Coordinator {
	return &Coordinator{
		keys:   make(map[Key]*semaphore.Weighted),
		logger: logger,
	}
}

// Admit blocks until the caller holds the key's critical section.
// The returned release function must be called exactly once.
// Abandoning the request (context cancellation) before admission has
// no side effects.
func (c *Coordinator) Admit(ctx context.Context, key Key) (release func(), err error) {
	c.mu.Lock()
	sem, ok := c.keys[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		c.keys[key] = sem
	}
	c.mu.Unlock()

	if acqErr := sem.Acquire(ctx, 1); acqErr != nil {
		return nil, fmt.Errorf("admission abandoned for %s: %w", key, acqErr)
	}

	c.logger.Debug("request admitted", zap.String("key", key.String()))

	var once sync.Once
	return func() {
		once.Do(func() { sem.Release(1) })
	}, nil
}
