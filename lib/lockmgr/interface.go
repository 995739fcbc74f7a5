package lockmgr

import "context"

// ILockManager defines the interface for a reentrant lock with explicit owners.
type ILockManager interface {
	// Acquire blocks until the lock is free or already held by owner.
	// It returns the context error if ctx ends first.
	Acquire(ctx context.Context, owner OwnerID) (err error)

	// Release undoes one Acquire of owner. The lock is free once every Acquire was released.
	// It returns ErrNotOwner if owner does not hold the lock.
	Release(owner OwnerID) (err error)

	// Holder returns the current owner and the nesting depth. A depth of 0 means the lock is free.
	Holder() (owner OwnerID, depth int)
}
