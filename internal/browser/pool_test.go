// internal/browser/pool_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSlotPool_Bounded(t *testing.T) {
	pool := NewSlotPool(2)
	ctx := context.Background()

	if err := pool.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := pool.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if pool.InUse() != 2 {
		t.Errorf("Expected 2 slots in use, got %d", pool.InUse())
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := pool.Acquire(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded on full pool, got %v", err)
	}

	pool.Release()
	if err := pool.Acquire(ctx); err != nil {
		t.Errorf("Expected slot after release, got %v", err)
	}
}

func TestSlotPool_Closed(t *testing.T) {
	pool := NewSlotPool(0)
	if pool.Capacity() != 1 {
		t.Errorf("Expected minimum capacity 1, got %d", pool.Capacity())
	}
	pool.Close()
	if err := pool.Acquire(context.Background()); err == nil {
		t.Error("Expected error acquiring from closed pool")
	}
}
