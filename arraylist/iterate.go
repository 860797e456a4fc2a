package arraylist

import (
	"fmt"
	"iter"
	"slices"
)

// Each calls fn once per element in index order
func (l *List[T]) Each(fn func(T)) {
	for i := 0; i < l.length; i++ {
		fn(l.buf[i])
	}
}

// All returns an iterator over index/element pairs
func (l *List[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < l.length; i++ {
			if !yield(i, l.buf[i]) {
				return
			}
		}
	}
}

// Slice returns a copy of the elements
func (l *List[T]) Slice() []T {
	return slices.Clone(l.buf[:l.length])
}

// Map replaces every element with fn applied to it, writing each result
// through Set. A failure stops the pass and is returned; elements before
// the failing index stay transformed.
func (l *List[T]) Map(fn func(T) T) error {
	if l.released {
		return ErrReleased
	}
	for i := 0; i < l.length; i++ {
		if err := l.Set(i, fn(l.buf[i])); err != nil {
			return fmt.Errorf("arraylist: map stopped at index %d: %w", i, err)
		}
	}
	return nil
}

// TryMap is the all-or-nothing form of Map. Results are staged in a scratch
// buffer and only copied in once fn has succeeded for every element and
// the buffer satisfies the policy.
func (l *List[T]) TryMap(fn func(T) (T, error)) error {
	if l.released {
		return ErrReleased
	}
	if l.length == 0 {
		return nil
	}

	scratch, err := l.alloc.Allocate(l.length)
	if err != nil {
		return l.allocFailed(l.length, err)
	}
	defer l.alloc.Free(scratch)

	for i := 0; i < l.length; i++ {
		v, err := fn(l.buf[i])
		if err != nil {
			return fmt.Errorf("arraylist: map index %d: %w", i, err)
		}
		scratch[i] = v
	}

	if err := l.resize(l.length); err != nil {
		return err
	}
	copy(l.buf, scratch)
	return nil
}
