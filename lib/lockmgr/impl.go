package lockmgr

import (
	"context"
	"errors"
	"sync"
)

// ErrNotOwner is returned when a lock is released by someone not holding it.
var ErrNotOwner = errors.New("lockmgr: lock not held by owner")

type reentrantLock struct {
	mu    sync.Mutex
	sem   chan struct{} // holds one token while the lock is taken
	owner OwnerID
	depth int
}

// NewLockManager creates a free reentrant lock.
func NewLockManager() ILockManager {
	return &reentrantLock{
		sem: make(chan struct{}, 1),
	}
}

func (l *reentrantLock) Acquire(ctx context.Context, owner OwnerID) error {
	l.mu.Lock()
	if l.depth > 0 && l.owner == owner {
		l.depth++
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mu.Lock()
	l.owner = owner
	l.depth = 1
	l.mu.Unlock()
	return nil
}

func (l *reentrantLock) Release(owner OwnerID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.depth == 0 || l.owner != owner {
		return ErrNotOwner
	}
	l.depth--
	if l.depth == 0 {
		l.owner = OwnerID{}
		<-l.sem
	}
	return nil
}

func (l *reentrantLock) Holder() (OwnerID, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner, l.depth
}
