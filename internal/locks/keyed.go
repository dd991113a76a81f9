package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAcquireTimeout is returned when a lock could not be taken within the
// caller's deadline. Nothing has been mutated at that point.
var ErrAcquireTimeout = errors.New("lock acquire timeout")

// Keyed hands out one exclusive lock per key. The unit of mutual exclusion
// is the key (a product id, an order id), never the whole table, so
// unrelated entities proceed in parallel.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]chan struct{})}
}

func (k *Keyed) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		k.slots[key] = s
	}
	return s
}

// Acquire blocks until the key's lock is held, the timeout elapses, or ctx
// is cancelled. On success it returns a release func; callers must invoke it
// exactly once.
func (k *Keyed) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	s := k.slot(key)

	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-t.C:
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
