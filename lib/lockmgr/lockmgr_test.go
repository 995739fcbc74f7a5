package lockmgr

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestReentrantAcquire(t *testing.T) {
	l := NewLockManager()
	owner := NewOwnerID()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := l.Acquire(ctx, owner); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if got, depth := l.Holder(); got != owner || depth != i {
			t.Fatalf("holder after %d acquires = (%v, %d)", i, got, depth)
		}
	}

	for i := 3; i >= 1; i-- {
		if err := l.Release(owner); err != nil {
			t.Fatalf("release: %v", err)
		}
	}
	if _, depth := l.Holder(); depth != 0 {
		t.Fatalf("lock still held with depth %d", depth)
	}
	if err := l.Release(owner); err != ErrNotOwner {
		t.Fatalf("release of free lock = %v, want ErrNotOwner", err)
	}
}

func TestOtherOwnerWaits(t *testing.T) {
	l := NewLockManager()
	a, b := NewOwnerID(), NewOwnerID()

	if err := l.Acquire(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(b); err != ErrNotOwner {
		t.Fatalf("release by other owner = %v, want ErrNotOwner", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx, b); err != context.DeadlineExceeded {
		t.Fatalf("acquire while held = %v, want deadline exceeded", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := l.Acquire(context.Background(), b); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("b acquired the lock while a holds it")
	case <-time.After(10 * time.Millisecond):
	}

	if err := l.Release(a); err != nil {
		t.Fatal(err)
	}
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("b did not acquire the released lock")
	}
}

func TestMutualExclusion(t *testing.T) {
	l := NewLockManager()
	counter := 0
	wg := sync.WaitGroup{}

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				owner := NewOwnerID()
				if err := l.Acquire(context.Background(), owner); err != nil {
					t.Error(err)
					return
				}
				// nested acquire of the same owner
				_ = l.Acquire(context.Background(), owner)
				counter++
				_ = l.Release(owner)
				_ = l.Release(owner)
			}
		}()
	}
	wg.Wait()

	if counter != 8*200 {
		t.Fatalf("counter = %d, want %d", counter, 8*200)
	}
}
