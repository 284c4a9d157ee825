// internal/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
)

// SlotPool bounds the number of browser processes alive at once. Each
// render still owns its browser; the pool only hands out slots.
type SlotPool struct {
	slots  chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewSlotPool creates a pool with maxSize slots
func NewSlotPool(maxSize int) *SlotPool {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &SlotPool{slots: make(chan struct{}, maxSize)}
}

// Acquire blocks until a slot is free or ctx is done
func (p *SlotPool) Acquire(ctx context.Context) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("pool is closed")
	}

	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire
func (p *SlotPool) Release() {
	select {
	case <-p.slots:
	default:
	}
}

// InUse returns the number of taken slots
func (p *SlotPool) InUse() int { return len(p.slots) }

// Capacity returns the maximum number of slots
func (p *SlotPool) Capacity() int { return cap(p.slots) }

// Close rejects further acquisitions
func (p *SlotPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
