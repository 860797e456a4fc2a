// Package arraylist implements an automatically resizing array backed by
// one contiguous buffer.
//
// # Capacity policy
//
// Every operation that changes the length runs the same check: while the
// fill ratio length/capacity stays strictly inside
// (MinFilledRatio, MaxFilledRatio) nothing happens. Once it leaves that band
// the buffer is reallocated to length/IdealFilledRatio slots, never fewer
// than MinCapacity and never more than MaxCapacity. With the defaults
// (10, 0.3, 0.5, 0.7) growth and shrinkage are geometric and amortized O(1).
//
// # Failures
//
// Buffers come from an alloc.Allocator, which may run out of memory. A failed
// reallocation leaves the list exactly as it was before the call, with
// the one exception of Map, which writes element by element and stops at
// the first failure. TryMap is the all-or-nothing alternative.
//
// Out of range reads are not errors: Get and Pop report them through their
// boolean result.
package arraylist
