// alloc/alloc.go

// Package alloc provides the buffer allocators used by arraylist.
//
// An Allocator hands out zeroed, element-typed buffers. Reallocation never
// touches the caller's buffer when it fails, so a container can keep using
// its old buffer after an out-of-memory report.
package alloc

import (
	"errors"
	"fmt"
	"math"
	"unsafe"
)

var (
	ErrOutOfMemory = errors.New("alloc: out of memory")
	ErrInvalidSize = errors.New("alloc: invalid size")
)

// Allocator provides element buffers to a container
type Allocator[T any] interface {
	// Allocate returns a zeroed buffer of exactly n slots.
	Allocate(n int) ([]T, error)
	// Reallocate returns a buffer of exactly n slots holding the first
	// min(len(buf), n) slots of buf, the rest zeroed. On error buf is
	// left as it was.
	Reallocate(buf []T, n int) ([]T, error)
	// Free gives buf back to the allocator.
	Free(buf []T)
}

// maxHeapBytes is the largest single buffer Heap hands out. It sits below
// the runtime's address-space limit on 64-bit platforms; on 32-bit ones
// math.MaxInt is the tighter bound.
const maxHeapBytes uint64 = 1 << 47

// Heap allocates from the Go heap. Requests larger than the heap can ever
// satisfy report ErrOutOfMemory instead of reaching make.
type Heap[T any] struct{}

// MaxSlots returns the largest buffer, in slots, Heap will try to allocate
func (Heap[T]) MaxSlots() int {
	var zero T
	size := uint64(unsafe.Sizeof(zero))
	if size == 0 {
		return math.MaxInt
	}
	if limit := maxHeapBytes / size; limit < math.MaxInt {
		return int(limit)
	}
	return math.MaxInt
}

func (h Heap[T]) check(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	if limit := h.MaxSlots(); n > limit {
		return fmt.Errorf("%w: %d slots exceeds heap limit of %d", ErrOutOfMemory, n, limit)
	}
	return nil
}

// Allocate returns a zeroed buffer
func (h Heap[T]) Allocate(n int) ([]T, error) {
	if err := h.check(n); err != nil {
		return nil, err
	}
	return make([]T, n), nil
}

// Reallocate copies buf into a new buffer of n slots
func (h Heap[T]) Reallocate(buf []T, n int) ([]T, error) {
	if n == len(buf) {
		return buf, nil
	}
	if err := h.check(n); err != nil {
		return nil, err
	}
	// Shrinking in place would keep the old backing array alive.
	next := make([]T, n)
	copy(next, buf)
	return next, nil
}

// Free is a no-op, the garbage collector reclaims the buffer
func (Heap[T]) Free([]T) {}
