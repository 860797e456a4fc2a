// arraylist/list.go
package arraylist

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/michaelgoldpiano/datastructures/alloc"
)

var (
	ErrInvalidArgument   = errors.New("arraylist: invalid argument")
	ErrAllocationFailure = errors.New("arraylist: allocation failure")
	ErrReleased          = errors.New("arraylist: list released")
	ErrInvalidPolicy     = errors.New("arraylist: invalid policy")
	ErrCorrupt           = errors.New("arraylist: corrupt state")
)

// List is an automatically resizing array. It is not safe for concurrent
// use; exactly one goroutine may own a List at a time.
type List[T any] struct {
	buf      []T
	length   int
	policy   Policy
	alloc    alloc.Allocator[T]
	logger   *zap.Logger
	observer Observer
	stats    Stats
	released bool
}

// Options configures a List. Nil fields take their defaults.
type Options[T any] struct {
	Policy    *Policy
	Allocator alloc.Allocator[T]
	Logger    *zap.Logger
	Observer  Observer
}

// New creates a list holding initialLength zero values
func New[T any](initialLength int, opts *Options[T]) (*List[T], error) {
	if opts == nil {
		opts = &Options[T]{}
	}

	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	if initialLength < 0 || initialLength > policy.MaxCapacity {
		return nil, fmt.Errorf("%w: initial length %d", ErrInvalidArgument, initialLength)
	}

	l := &List[T]{
		policy:   policy,
		alloc:    opts.Allocator,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if l.alloc == nil {
		l.alloc = alloc.Heap[T]{}
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}

	capacity := policy.Target(initialLength)
	buf, err := l.alloc.Allocate(capacity)
	if err != nil {
		return nil, l.allocFailed(capacity, err)
	}

	l.buf = buf
	l.length = initialLength
	l.stats.PeakCapacity = capacity
	return l, nil
}

// Release gives the buffer back to the allocator. Calling it on a nil or
// already released list does nothing.
func (l *List[T]) Release() {
	if l == nil || l.released {
		return
	}
	l.alloc.Free(l.buf)
	l.buf = nil
	l.length = 0
	l.released = true
}

// IsEmpty reports whether the list holds no elements
func (l *List[T]) IsEmpty() bool {
	return l.length == 0
}

// Len returns the number of elements
func (l *List[T]) Len() int {
	return l.length
}

// Cap returns the number of slots in the backing buffer
func (l *List[T]) Cap() int {
	return len(l.buf)
}

// Policy returns the capacity policy of the list
func (l *List[T]) Policy() Policy {
	return l.policy
}

// Stats returns a snapshot of buffer activity
func (l *List[T]) Stats() Stats {
	return l.stats
}

// Clear removes every element, shrinking the buffer per the policy
func (l *List[T]) Clear() error {
	return l.Resize(0)
}

// Get returns the element at index. The boolean is false when index is out
// of range.
func (l *List[T]) Get(index int) (T, bool) {
	if !l.inRange(index) {
		var zero T
		return zero, false
	}
	return l.buf[index], true
}

// Pop removes and returns the element at index, shifting later elements
// down by one. An out of range index yields (zero, false, nil) and leaves
// the list untouched. If shrinking the buffer fails the list is restored
// and the error returned.
func (l *List[T]) Pop(index int) (T, bool, error) {
	var zero T
	if !l.inRange(index) {
		return zero, false, nil
	}

	value := l.buf[index]
	last := l.length - 1
	copy(l.buf[index:last], l.buf[index+1:l.length])

	if err := l.resize(last); err != nil {
		copy(l.buf[index+1:l.length], l.buf[index:last])
		l.buf[index] = value
		return zero, false, err
	}
	return value, true, nil
}

// Set overwrites the element at index, growing the list to index+1 first
// when index is past the end.
func (l *List[T]) Set(index int, value T) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}

	length := l.length
	if index >= length {
		length = index + 1
	}
	if err := l.resize(length); err != nil {
		return err
	}

	l.buf[index] = value
	return nil
}

// Push inserts value at index, shifting elements at index and later up by
// one. An index past the end grows the list to index+1 and leaves the gap
// zero-valued.
func (l *List[T]) Push(index int, value T) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}

	old := l.length
	length := old + 1
	if index >= old {
		length = index + 1
	} else if old >= l.policy.MaxCapacity {
		return fmt.Errorf("%w: length %d at max capacity", ErrInvalidArgument, old)
	}

	if err := l.resize(length); err != nil {
		return err
	}

	if index < old {
		copy(l.buf[index+1:length], l.buf[index:old])
	}
	l.buf[index] = value
	return nil
}

// Append adds value after the last element
func (l *List[T]) Append(value T) error {
	return l.Push(l.length, value)
}

// Reserve reallocates the buffer to exactly capacity slots. Shrinking below
// the current length drops the trailing elements.
func (l *List[T]) Reserve(capacity int) error {
	if l.released {
		return ErrReleased
	}
	if capacity < 0 || capacity > l.policy.MaxCapacity {
		return fmt.Errorf("%w: capacity %d", ErrInvalidArgument, capacity)
	}

	length := min(l.length, capacity)
	if capacity != len(l.buf) {
		if err := l.reallocate(capacity, length, ReasonReserve); err != nil {
			return err
		}
	}
	l.length = length
	return nil
}

// Resize sets the length, reallocating the buffer when the fill ratio
// leaves the policy band. New elements are zero values.
func (l *List[T]) Resize(length int) error {
	if l.released {
		return ErrReleased
	}
	if length < 0 || length > l.policy.MaxCapacity {
		return fmt.Errorf("%w: length %d", ErrInvalidArgument, length)
	}
	return l.resize(length)
}

// Validate checks the structural invariants of the list
func (l *List[T]) Validate() error {
	if l.released {
		return ErrReleased
	}
	if l.length < 0 || l.length > len(l.buf) {
		return fmt.Errorf("%w: length %d, capacity %d", ErrCorrupt, l.length, len(l.buf))
	}
	return nil
}

// resize is the single path every length change goes through. On failure
// the list keeps its previous length and buffer.
func (l *List[T]) resize(length int) error {
	capacity := l.policy.Plan(length, len(l.buf))
	if capacity != len(l.buf) {
		if err := l.reallocate(capacity, length, ReasonFix); err != nil {
			return err
		}
	}

	// Vacated slots are zeroed so later growth exposes zero values.
	if end := min(l.length, len(l.buf)); length < end {
		clear(l.buf[length:end])
	}
	l.length = length
	return nil
}

func (l *List[T]) reallocate(capacity, length int, reason string) error {
	old := len(l.buf)
	buf, err := l.alloc.Reallocate(l.buf, capacity)
	if err != nil {
		return l.allocFailed(capacity, err)
	}
	l.buf = buf

	l.stats.Reallocations++
	if capacity > old {
		l.stats.Grows++
	} else {
		l.stats.Shrinks++
	}
	if capacity > l.stats.PeakCapacity {
		l.stats.PeakCapacity = capacity
	}

	l.logger.Debug("arraylist buffer reallocated",
		zap.String("reason", reason),
		zap.Int("old_capacity", old),
		zap.Int("new_capacity", capacity),
		zap.Int("length", length))

	if l.observer != nil {
		l.observer.ObserveResize(ResizeEvent{
			OldCapacity: old,
			NewCapacity: capacity,
			Length:      length,
			Reason:      reason,
		})
	}
	return nil
}

func (l *List[T]) allocFailed(requested int, err error) error {
	l.stats.AllocFailures++
	l.logger.Warn("arraylist allocation failed",
		zap.Int("requested", requested),
		zap.Int("capacity", len(l.buf)),
		zap.Int("length", l.length),
		zap.Error(err))
	if l.observer != nil {
		l.observer.ObserveAllocFailure(requested, err)
	}
	return fmt.Errorf("%w: %d slots: %w", ErrAllocationFailure, requested, err)
}

func (l *List[T]) checkIndex(index int) error {
	if l.released {
		return ErrReleased
	}
	// index+1 must stay representable as a length.
	if index < 0 || index >= l.policy.MaxCapacity {
		return fmt.Errorf("%w: index %d", ErrInvalidArgument, index)
	}
	return nil
}

func (l *List[T]) inRange(index int) bool {
	return index >= 0 && index < l.length
}
