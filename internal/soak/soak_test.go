package soak

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/michaelgoldpiano/datastructures/alloc"
	"github.com/michaelgoldpiano/datastructures/arraylist"
)

type countingRecorder struct {
	mu         sync.Mutex
	ops        map[string]int
	violations int
	lastBudget int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{ops: make(map[string]int)}
}

func (c *countingRecorder) RecordOperation(op, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops[op+"/"+result]++
}

func (c *countingRecorder) RecordViolation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.violations++
}

func (c *countingRecorder) SetBudgetInUse(slots int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastBudget = slots
}

func (c *countingRecorder) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.ops {
		n += v
	}
	return n
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 8, config.Lists)
	assert.Equal(t, 100000, config.Operations)
	assert.Equal(t, arraylist.DefaultPolicy(), config.Policy)
	assert.Positive(t, config.BudgetSlots)
}

func TestRunner_Run(t *testing.T) {
	config := DefaultConfig()
	config.Lists = 4
	config.Operations = 3000
	config.Seed = 1

	recorder := newCountingRecorder()
	runner := NewRunner(config, zap.NewNop(), recorder, nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.Equal(t, uint64(1), report.Seed)
	assert.Equal(t, int64(3000), report.Operations)
	assert.Equal(t, 3000, recorder.total())
	assert.True(t, report.Stable, "violations: %+v", report.Violations)
	assert.Zero(t, report.ViolationCount)
	assert.Zero(t, recorder.violations)
	assert.Len(t, report.FinalLengths, 4)
	assert.Zero(t, recorder.lastBudget)
	assert.Same(t, report, runner.Latest())

	var sum int64
	for _, n := range report.ByOp {
		sum += n
	}
	assert.Equal(t, report.Operations, sum)
}

func TestRunner_TightBudget(t *testing.T) {
	config := DefaultConfig()
	config.Lists = 3
	config.Operations = 4000
	config.BudgetSlots = 200
	config.Seed = 99

	runner := NewRunner(config, zap.NewNop(), nil, nil)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Positive(t, report.AllocFailures)
	assert.LessOrEqual(t, report.PeakBudget, 200)
	assert.True(t, report.Stable, "violations: %+v", report.Violations)
}

func TestRunner_Pooled(t *testing.T) {
	config := DefaultConfig()
	config.Lists = 3
	config.Operations = 3000
	config.BudgetSlots = 400
	config.PoolIdle = 2
	config.Seed = 11

	runner := NewRunner(config, zap.NewNop(), nil, nil)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Positive(t, report.PoolHits)
	assert.LessOrEqual(t, report.PeakBudget, 400)
	assert.True(t, report.Stable, "violations: %+v", report.Violations)
}

func TestRunner_BudgetTooSmall(t *testing.T) {
	config := DefaultConfig()
	config.Lists = 5
	config.BudgetSlots = 30

	runner := NewRunner(config, zap.NewNop(), nil, nil)
	_, err := runner.Run(context.Background())
	assert.Error(t, err)
	assert.ErrorIs(t, err, arraylist.ErrAllocationFailure)
	assert.Nil(t, runner.Latest())
}

func TestRunner_CustomPolicy(t *testing.T) {
	config := DefaultConfig()
	config.Lists = 2
	config.Operations = 2000
	config.Seed = 5
	config.Policy = arraylist.Policy{
		MinCapacity:      4,
		MinFilledRatio:   0.25,
		IdealFilledRatio: 0.5,
		MaxFilledRatio:   0.9,
		MaxCapacity:      512,
	}

	runner := NewRunner(config, nil, nil, nil)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Stable, "violations: %+v", report.Violations)
}

func TestRunner_Cancel(t *testing.T) {
	config := DefaultConfig()
	config.Lists = 2
	config.Operations = 1000000
	config.RatePerSecond = 1000
	config.Burst = 1

	runner := NewRunner(config, zap.NewNop(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report, err := runner.Run(ctx)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Less(t, report.Operations, int64(1000000))
	assert.True(t, report.Stable)
}

func TestRunner_RejectsConcurrentRun(t *testing.T) {
	config := DefaultConfig()
	config.Lists = 1
	config.Operations = 1000000
	config.RatePerSecond = 100
	config.Burst = 1

	runner := NewRunner(config, zap.NewNop(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = runner.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		runner.mu.RLock()
		defer runner.mu.RUnlock()
		return runner.running
	}, time.Second, 5*time.Millisecond)

	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	<-done
}

func TestRunner_NoLists(t *testing.T) {
	config := DefaultConfig()
	config.Lists = 0

	_, err := NewRunner(config, nil, nil, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestRunner_LogsRun(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	config := DefaultConfig()
	config.Lists = 1
	config.Operations = 100
	config.Seed = 3

	report, err := NewRunner(config, zap.New(core), nil, nil).Run(context.Background())
	require.NoError(t, err)

	finished := logs.FilterMessage("soak run finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, report.RunID.String(), finished[0].ContextMap()["run_id"])
	assert.Empty(t, logs.FilterMessage("soak invariant violated").All())
}

func TestRun_CheckDetectsDrift(t *testing.T) {
	runner := NewRunner(DefaultConfig(), zap.NewNop(), nil, nil)
	l, err := arraylist.New[int](0, nil)
	require.NoError(t, err)
	require.NoError(t, l.Append(1))

	s := &run{Runner: runner, report: &Report{ByOp: map[string]int64{}}}
	tgt := &target{list: l, model: []int{2}}

	s.check(0, OpGet, tgt, false)
	assert.Equal(t, int64(1), s.report.ViolationCount)
	require.Len(t, s.report.Violations, 1)
	assert.Contains(t, s.report.Violations[0].Message, "index 0")
}

func TestRun_TeardownDetectsOverFree(t *testing.T) {
	budget, err := alloc.NewBudget[int](100)
	require.NoError(t, err)
	budget.Free(make([]int, 3))

	s := &run{
		Runner: NewRunner(DefaultConfig(), zap.NewNop(), nil, nil),
		budget: budget,
		report: &Report{ByOp: map[string]int64{}},
	}
	s.teardown()

	require.Len(t, s.report.Violations, 1)
	assert.Contains(t, s.report.Violations[0].Message, "-3 slots")
}
