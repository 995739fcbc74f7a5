// Package lockmgr implements the reentrant lock that serializes access to one
// object store instance.
//
// Go has no notion of a goroutine identity, so reentrancy is expressed through
// explicit owner tokens: every public operation of a store draws a fresh OwnerID
// and passes it down to the helpers it calls. A helper acquiring the lock with the
// token of its caller re-enters the lock instead of deadlocking, any other token
// waits until the lock is released completely.
//
// Core Functionality:
//   - Acquire with ownership tracking and nesting depth
//   - Context aware waiting, so callers can bound how long they wait
//   - Release that verifies the owner before unlocking
//
// Usage:
//
//	owner := lockmgr.NewOwnerID()
//	if err := l.Acquire(ctx, owner); err != nil {
//	    return err
//	}
//	defer l.Release(owner)
//
//	// nested helper, same owner: does not block
//	_ = l.Acquire(ctx, owner)
//	defer l.Release(owner)
//
// Thread Safety:
//
//	A lock is safe for concurrent use. An OwnerID must not be shared between
//	goroutines that run concurrently, otherwise both would hold the lock at once.
package lockmgr
