// alloc/pool.go
package alloc

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// PoolConfig configures a Pool
type PoolConfig struct {
	// MaxIdlePerSize bounds how many freed buffers of one exact size are
	// kept for reuse. Extra buffers go back to the backing allocator.
	MaxIdlePerSize int
}

// DefaultPoolConfig returns default pool configuration
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{MaxIdlePerSize: 4}
}

// PoolStats tracks pool statistics
type PoolStats struct {
	Hits     int64
	Misses   int64
	Returned int64
	Dropped  int64
	Idle     int64
}

// Pool recycles freed buffers by exact size in front of another allocator.
// Idle buffers stay owned by the pool until Drain hands them back, so a
// Budget behind a Pool keeps counting them as in use.
type Pool[T any] struct {
	mu      sync.Mutex
	backing Allocator[T]
	config  *PoolConfig
	idle    map[int][][]T
	closed  bool

	hits     atomic.Int64
	misses   atomic.Int64
	returned atomic.Int64
	dropped  atomic.Int64
	idleN    atomic.Int64
}

// NewPool creates a pool in front of backing. A nil backing uses the heap.
func NewPool[T any](backing Allocator[T], config *PoolConfig) (*Pool[T], error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.MaxIdlePerSize < 0 {
		return nil, fmt.Errorf("%w: max idle per size %d", ErrInvalidSize, config.MaxIdlePerSize)
	}
	if backing == nil {
		backing = Heap[T]{}
	}
	return &Pool[T]{
		backing: backing,
		config:  config,
		idle:    make(map[int][][]T),
	}, nil
}

// take pops an idle buffer of exactly n slots, zeroed
func (p *Pool[T]) take(n int) ([]T, bool) {
	p.mu.Lock()
	bufs := p.idle[n]
	if len(bufs) == 0 {
		p.mu.Unlock()
		return nil, false
	}
	buf := bufs[len(bufs)-1]
	bufs[len(bufs)-1] = nil
	if len(bufs) == 1 {
		delete(p.idle, n)
	} else {
		p.idle[n] = bufs[:len(bufs)-1]
	}
	p.mu.Unlock()

	p.idleN.Add(-1)
	clear(buf)
	return buf, true
}

// Allocate returns a recycled buffer when one of the right size is idle
func (p *Pool[T]) Allocate(n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	if n > 0 {
		if buf, ok := p.take(n); ok {
			p.hits.Add(1)
			return buf, nil
		}
	}
	p.misses.Add(1)
	buf, err := p.backing.Allocate(n)
	if errors.Is(err, ErrOutOfMemory) && p.Stats().Idle > 0 {
		// Idle buffers may be what is holding the backing allocator full.
		p.Drain()
		return p.backing.Allocate(n)
	}
	return buf, err
}

// Reallocate moves buf into a recycled buffer when one is idle, otherwise
// the backing allocator resizes it
func (p *Pool[T]) Reallocate(buf []T, n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	if n == len(buf) {
		return buf, nil
	}
	if n > 0 {
		if next, ok := p.take(n); ok {
			p.hits.Add(1)
			copy(next, buf)
			p.Free(buf)
			return next, nil
		}
	}
	p.misses.Add(1)
	next, err := p.backing.Reallocate(buf, n)
	if errors.Is(err, ErrOutOfMemory) && p.Stats().Idle > 0 {
		p.Drain()
		return p.backing.Reallocate(buf, n)
	}
	return next, err
}

// Free keeps buf for reuse if there is room, otherwise frees it
func (p *Pool[T]) Free(buf []T) {
	n := len(buf)
	if n == 0 {
		p.backing.Free(buf)
		return
	}

	p.mu.Lock()
	if !p.closed && len(p.idle[n]) < p.config.MaxIdlePerSize {
		p.idle[n] = append(p.idle[n], buf[:n:n])
		p.mu.Unlock()
		p.returned.Add(1)
		p.idleN.Add(1)
		return
	}
	p.mu.Unlock()

	p.dropped.Add(1)
	p.backing.Free(buf)
}

// Drain frees every idle buffer to the backing allocator. The pool stays
// usable afterwards.
func (p *Pool[T]) Drain() {
	p.mu.Lock()
	idle := p.idle
	p.idle = make(map[int][][]T)
	p.mu.Unlock()

	for _, bufs := range idle {
		for _, buf := range bufs {
			p.idleN.Add(-1)
			p.backing.Free(buf)
		}
	}
}

// Close drains the pool and stops it keeping freed buffers
func (p *Pool[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.Drain()
}

// Stats returns a snapshot of pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Hits:     p.hits.Load(),
		Misses:   p.misses.Load(),
		Returned: p.returned.Load(),
		Dropped:  p.dropped.Load(),
		Idle:     p.idleN.Load(),
	}
}
