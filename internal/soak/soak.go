// Package soak drives randomized workloads against arraylist.List and checks
// every invariant after every operation.
package soak

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelgoldpiano/datastructures/alloc"
	"github.com/michaelgoldpiano/datastructures/arraylist"
)

// Operation names
const (
	OpPush    = "push"
	OpAppend  = "append"
	OpPop     = "pop"
	OpSet     = "set"
	OpGet     = "get"
	OpResize  = "resize"
	OpReserve = "reserve"
	OpClear   = "clear"
	OpMap     = "map"
	OpTryMap  = "trymap"
)

// Operation results
const (
	ResultOK           = "ok"
	ResultAbsent       = "absent"
	ResultAllocFailure = "alloc_failure"
	ResultRejected     = "rejected"
	ResultError        = "error"
)

// maxStoredViolations bounds the violations kept in a report
const maxStoredViolations = 100

var ErrAlreadyRunning = errors.New("soak: run already in progress")

// Config defines a soak run
type Config struct {
	Lists         int
	Operations    int
	RatePerSecond float64 // 0 runs unpaced
	Burst         int
	BudgetSlots   int    // 0 means unbounded heap allocation
	PoolIdle      int    // idle buffers kept per size; 0 disables pooling
	Seed          uint64 // 0 picks a time-based seed
	Policy        arraylist.Policy
}

// DefaultConfig returns sensible defaults for a soak run
func DefaultConfig() *Config {
	return &Config{
		Lists:       8,
		Operations:  100000,
		Burst:       100,
		BudgetSlots: 65536,
		Policy:      arraylist.DefaultPolicy(),
	}
}

// Recorder receives per-operation outcomes
type Recorder interface {
	RecordOperation(op, result string)
	RecordViolation()
	SetBudgetInUse(slots int)
}

// Violation is one broken invariant
type Violation struct {
	Step    int    `json:"step"`
	List    int    `json:"list"`
	Op      string `json:"op"`
	Message string `json:"message"`
}

// Report captures the outcome of a soak run
type Report struct {
	RunID          uuid.UUID        `json:"run_id"`
	Seed           uint64           `json:"seed"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        time.Time        `json:"end_time"`
	Duration       time.Duration    `json:"duration"`
	Operations     int64            `json:"operations"`
	ByOp           map[string]int64 `json:"by_op"`
	AllocFailures  int64            `json:"alloc_failures"`
	Rejected       int64            `json:"rejected"`
	ViolationCount int64            `json:"violation_count"`
	Violations     []Violation      `json:"violations,omitempty"`
	PeakBudget     int              `json:"peak_budget"`
	PoolHits       int64            `json:"pool_hits"`
	FinalLengths   []int            `json:"final_lengths"`
	Stable         bool             `json:"stable"`
}

// Runner executes soak runs
type Runner struct {
	config   *Config
	logger   *zap.Logger
	recorder Recorder
	observer arraylist.Observer

	mu      sync.RWMutex
	running bool
	latest  *Report
}

// NewRunner creates a soak runner. recorder and observer may be nil.
func NewRunner(config *Config, logger *zap.Logger, recorder Recorder, observer arraylist.Observer) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		config:   config,
		logger:   logger,
		recorder: recorder,
		observer: observer,
	}
}

// Latest returns the report of the last finished run, or nil
func (r *Runner) Latest() *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// target is one list under test together with its shadow model
type target struct {
	list  *arraylist.List[int]
	model []int
	// dirty is set after Reserve, which may leave the fill ratio outside
	// the band until the next length change.
	dirty bool
}

// run holds the state of a single Run call
type run struct {
	*Runner
	rng     *rand.Rand
	budget  *alloc.Budget[int]
	pool    *alloc.Pool[int]
	targets []*target
	report  *Report
	step    int
}

// Run executes the configured number of operations. Cancelling ctx stops
// the run early; the partial report is returned with the context error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if r.config.Lists < 1 {
		return nil, fmt.Errorf("soak: need at least one list, got %d", r.config.Lists)
	}

	seed := r.config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	s := &run{
		Runner: r,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		report: &Report{
			RunID:     uuid.New(),
			Seed:      seed,
			StartTime: time.Now(),
			ByOp:      make(map[string]int64),
		},
	}

	if err := s.setup(); err != nil {
		s.teardown()
		return nil, err
	}

	logger := r.logger.With(zap.String("run_id", s.report.RunID.String()))
	logger.Info("soak run started",
		zap.Int("lists", r.config.Lists),
		zap.Int("operations", r.config.Operations),
		zap.Uint64("seed", seed))

	var limiter *rate.Limiter
	if r.config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.config.RatePerSecond), r.config.Burst)
	}

	var runErr error
	for s.step = 0; s.step < r.config.Operations; s.step++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				runErr = err
				break
			}
		} else if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		s.once()
	}

	s.teardown()

	rep := s.report
	rep.EndTime = time.Now()
	rep.Duration = rep.EndTime.Sub(rep.StartTime)
	rep.Stable = rep.ViolationCount == 0

	logger.Info("soak run finished",
		zap.Int64("operations", rep.Operations),
		zap.Int64("alloc_failures", rep.AllocFailures),
		zap.Int64("violations", rep.ViolationCount),
		zap.Duration("duration", rep.Duration),
		zap.Bool("stable", rep.Stable))

	r.mu.Lock()
	r.latest = rep
	r.mu.Unlock()

	return rep, runErr
}

func (s *run) setup() error {
	var allocator alloc.Allocator[int] = alloc.Heap[int]{}
	if s.config.BudgetSlots > 0 {
		budget, err := alloc.NewBudget[int](s.config.BudgetSlots)
		if err != nil {
			return fmt.Errorf("soak: %w", err)
		}
		s.budget = budget
		allocator = budget
	}
	if s.config.PoolIdle > 0 {
		pool, err := alloc.NewPool[int](allocator, &alloc.PoolConfig{MaxIdlePerSize: s.config.PoolIdle})
		if err != nil {
			return fmt.Errorf("soak: %w", err)
		}
		s.pool = pool
		allocator = pool
	}

	policy := s.config.Policy
	if policy == (arraylist.Policy{}) {
		policy = arraylist.DefaultPolicy()
	}
	for i := 0; i < s.config.Lists; i++ {
		l, err := arraylist.New[int](0, &arraylist.Options[int]{
			Policy:    &policy,
			Allocator: allocator,
			Logger:    s.logger.Named("arraylist").With(zap.Int("list", i)),
			Observer:  s.observer,
		})
		if err != nil {
			return fmt.Errorf("soak: create list %d: %w", i, err)
		}
		s.targets = append(s.targets, &target{list: l})
	}
	return nil
}

// teardown releases every list and checks the allocator got all of its
// slots back
func (s *run) teardown() {
	s.report.FinalLengths = make([]int, 0, len(s.targets))
	for _, t := range s.targets {
		s.report.FinalLengths = append(s.report.FinalLengths, t.list.Len())
		t.list.Release()
	}
	s.targets = nil

	if s.pool != nil {
		s.pool.Close()
		s.report.PoolHits = s.pool.Stats().Hits
	}
	if s.budget == nil {
		return
	}
	s.report.PeakBudget = s.budget.Peak()
	if inUse := s.budget.InUse(); inUse != 0 {
		s.violate(-1, "release", fmt.Sprintf("budget reports %d slots in use after release", inUse))
	}
	s.recordBudget()
}

// once performs one random operation and verifies the result
func (s *run) once() {
	idx := s.rng.IntN(len(s.targets))
	t := s.targets[idx]
	op := s.pick()

	result, policyRan, err := s.apply(t, op)
	switch {
	case err == nil:
		if policyRan {
			t.dirty = false
		}
	case errors.Is(err, arraylist.ErrAllocationFailure):
		result = ResultAllocFailure
		s.report.AllocFailures++
	case errors.Is(err, arraylist.ErrInvalidArgument):
		// Only reachable when random arguments cross the policy's
		// MaxCapacity; the list must be unchanged, which check verifies.
		result = ResultRejected
		s.report.Rejected++
	default:
		result = ResultError
		s.violate(idx, op, fmt.Sprintf("unexpected error: %v", err))
	}

	s.report.Operations++
	s.report.ByOp[op]++
	if s.recorder != nil {
		s.recorder.RecordOperation(op, result)
	}
	s.recordBudget()

	s.check(idx, op, t, policyRan && err == nil)
}

// pick chooses an operation, weighted towards growth and removal
func (s *run) pick() string {
	n := s.rng.IntN(100)
	switch {
	case n < 20:
		return OpPush
	case n < 35:
		return OpAppend
	case n < 60:
		return OpPop
	case n < 70:
		return OpSet
	case n < 80:
		return OpGet
	case n < 88:
		return OpResize
	case n < 92:
		return OpMap
	case n < 95:
		return OpTryMap
	case n < 98:
		return OpReserve
	default:
		return OpClear
	}
}

// apply runs op against the list and mirrors it in the model on success.
// policyRan reports whether the operation went through the capacity check.
func (s *run) apply(t *target, op string) (result string, policyRan bool, err error) {
	l := t.list
	n := len(t.model)
	result = ResultOK

	switch op {
	case OpPush, OpAppend:
		index := n
		if op == OpPush {
			index = s.rng.IntN(n + 3)
		}
		v := s.rng.IntN(1 << 20)
		if err = l.Push(index, v); err != nil {
			return result, false, err
		}
		if index >= n {
			t.model = append(t.model, make([]int, index-n)...)
			t.model = append(t.model, v)
		} else {
			t.model = slices.Insert(t.model, index, v)
		}
		return result, true, nil

	case OpPop:
		index := s.rng.IntN(n + 2)
		v, ok, perr := l.Pop(index)
		if perr != nil {
			return result, false, perr
		}
		if index >= n {
			if ok {
				return result, false, fmt.Errorf("pop %d past length %d returned a value", index, n)
			}
			return ResultAbsent, false, nil
		}
		if !ok || v != t.model[index] {
			return result, false, fmt.Errorf("pop %d returned (%d, %v), want (%d, true)", index, v, ok, t.model[index])
		}
		t.model = slices.Delete(t.model, index, index+1)
		return result, true, nil

	case OpSet:
		index := s.rng.IntN(n + 5)
		v := s.rng.IntN(1 << 20)
		if err = l.Set(index, v); err != nil {
			return result, false, err
		}
		if index >= n {
			t.model = append(t.model, make([]int, index+1-n)...)
		}
		t.model[index] = v
		return result, true, nil

	case OpGet:
		index := s.rng.IntN(n + 2)
		v, ok := l.Get(index)
		if index >= n {
			if ok {
				return result, false, fmt.Errorf("get %d past length %d returned a value", index, n)
			}
			return ResultAbsent, false, nil
		}
		if !ok || v != t.model[index] {
			return result, false, fmt.Errorf("get %d returned (%d, %v), want (%d, true)", index, v, ok, t.model[index])
		}
		return result, false, nil

	case OpResize:
		length := s.rng.IntN(2*n + 10)
		if err = l.Resize(length); err != nil {
			return result, false, err
		}
		if length < n {
			t.model = t.model[:length]
		} else {
			t.model = append(t.model, make([]int, length-n)...)
		}
		return result, true, nil

	case OpReserve:
		capacity := s.rng.IntN(2*n + 1)
		if err = l.Reserve(capacity); err != nil {
			return result, false, err
		}
		if capacity < n {
			t.model = t.model[:capacity]
		}
		t.dirty = true
		return result, false, nil

	case OpClear:
		if err = l.Clear(); err != nil {
			return result, false, err
		}
		t.model = t.model[:0]
		return result, true, nil

	case OpMap:
		if err = l.Map(func(v int) int { return v + 1 }); err != nil {
			return result, false, err
		}
		for i := range t.model {
			t.model[i]++
		}
		return result, n > 0, nil

	case OpTryMap:
		if err = l.TryMap(func(v int) (int, error) { return v * 3 % (1 << 20), nil }); err != nil {
			return result, false, err
		}
		for i := range t.model {
			t.model[i] = t.model[i] * 3 % (1 << 20)
		}
		return result, n > 0, nil
	}

	return result, false, fmt.Errorf("unknown operation %q", op)
}

// check compares the list with its model and, after a successful capacity
// check, verifies the fill ratio
func (s *run) check(idx int, op string, t *target, policyRan bool) {
	l := t.list
	if err := l.Validate(); err != nil {
		s.violate(idx, op, err.Error())
		return
	}
	if l.Len() != len(t.model) {
		s.violate(idx, op, fmt.Sprintf("length %d, model length %d", l.Len(), len(t.model)))
		return
	}
	for i, want := range t.model {
		if got, _ := l.Get(i); got != want {
			s.violate(idx, op, fmt.Sprintf("index %d holds %d, model holds %d", i, got, want))
			return
		}
	}

	if !policyRan || t.dirty {
		return
	}
	p := l.Policy()
	if c := l.Cap(); c != p.MinCapacity && c != p.MaxCapacity && !p.Acceptable(l.Len(), c) {
		s.violate(idx, op, fmt.Sprintf("fill ratio %d/%d outside (%g, %g)",
			l.Len(), c, p.MinFilledRatio, p.MaxFilledRatio))
	}
}

func (s *run) violate(idx int, op, msg string) {
	s.report.ViolationCount++
	if len(s.report.Violations) < maxStoredViolations {
		s.report.Violations = append(s.report.Violations, Violation{
			Step:    s.step,
			List:    idx,
			Op:      op,
			Message: msg,
		})
	}
	if s.recorder != nil {
		s.recorder.RecordViolation()
	}
	s.logger.Error("soak invariant violated",
		zap.Int("step", s.step),
		zap.Int("list", idx),
		zap.String("op", op),
		zap.String("message", msg))
}

func (s *run) recordBudget() {
	if s.recorder != nil && s.budget != nil {
		s.recorder.SetBudgetInUse(s.budget.InUse())
	}
}
