// alloc/budget.go
package alloc

import (
	"fmt"
	"sync"
)

// Budget is an allocator with a fixed number of slots shared by every
// buffer it hands out. It is safe for concurrent use so several containers
// can draw from one budget.
type Budget[T any] struct {
	mu    sync.Mutex
	heap  Heap[T]
	limit int
	inUse int
	peak  int
}

// NewBudget creates an allocator that never has more than limit slots
// outstanding
func NewBudget[T any](limit int) (*Budget[T], error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit %d", ErrInvalidSize, limit)
	}
	return &Budget[T]{limit: limit}, nil
}

// Allocate returns a zeroed buffer if the budget allows it
func (b *Budget[T]) Allocate(n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.charge(n); err != nil {
		return nil, err
	}
	buf, err := b.heap.Allocate(n)
	if err != nil {
		b.inUse -= n
		return nil, err
	}
	return buf, nil
}

// Reallocate charges only the difference between the old and new size
func (b *Budget[T]) Reallocate(buf []T, n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delta := n - len(buf)
	if delta > 0 {
		if err := b.charge(delta); err != nil {
			return nil, err
		}
	}

	next, err := b.heap.Reallocate(buf, n)
	if err != nil {
		if delta > 0 {
			b.inUse -= delta
		}
		return nil, err
	}

	if delta < 0 {
		b.inUse += delta
	}
	return next, nil
}

// Free returns the slots of buf to the budget. Freeing more than was
// handed out drives InUse negative so double frees stay visible.
func (b *Budget[T]) Free(buf []T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inUse -= len(buf)
}

// InUse returns the number of slots currently handed out. A negative value
// means more slots were freed than allocated.
func (b *Budget[T]) InUse() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inUse
}

// Peak returns the highest number of slots ever handed out at once
func (b *Budget[T]) Peak() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peak
}

// Limit returns the configured slot limit
func (b *Budget[T]) Limit() int {
	return b.limit
}

// charge reserves n slots; b.mu must be held
func (b *Budget[T]) charge(n int) error {
	// Over-freed slots do not add headroom beyond the limit.
	available := b.limit - max(b.inUse, 0)
	if n > available {
		return fmt.Errorf("%w: requested %d slots, %d of %d available",
			ErrOutOfMemory, n, available, b.limit)
	}
	b.inUse += n
	if b.inUse > b.peak {
		b.peak = b.inUse
	}
	return nil
}
