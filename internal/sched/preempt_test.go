package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preemptive(maxTasks, tickMS int) Config {
	return Config{MaxTasks: maxTasks, TickMS: tickMS, Preemptive: true, TickSource: TickSourceTicker}
}

func TestPreemptionInterleavesBusyTasks(t *testing.T) {
	s := newTestScheduler(t, preemptive(3, 5))

	var trace []string
	worker := func(name string) TaskFunc {
		return func(s *Scheduler) {
			for i := 0; i < 10; i++ {
				s.Busy(10 * time.Millisecond)
				trace = append(trace, name)
			}
		}
	}
	_, err := s.Create(worker("A"), "A")
	require.NoError(t, err)
	_, err = s.Create(worker("B"), "B")
	require.NoError(t, err)

	require.NoError(t, s.StartScheduler(context.Background()))
	require.Len(t, trace, 20)

	firstB, lastA := -1, -1
	for i, name := range trace {
		if name == "B" && firstB < 0 {
			firstB = i
		}
		if name == "A" {
			lastA = i
		}
	}
	assert.Less(t, firstB, lastA, "B must run before A is done: %v", trace)
	assert.Positive(t, s.Ticks())
}

func TestCheckpointLetsOthersRun(t *testing.T) {
	s := newTestScheduler(t, preemptive(3, 5))

	bRan := false
	sawB := false
	_, err := s.Create(func(s *Scheduler) {
		deadline := time.Now().Add(60 * time.Millisecond)
		for time.Now().Before(deadline) {
			s.Checkpoint()
		}
		sawB = bRan
	}, "spinner")
	require.NoError(t, err)
	_, err = s.Create(func(s *Scheduler) { bRan = true }, "B")
	require.NoError(t, err)

	require.NoError(t, s.StartScheduler(context.Background()))
	assert.True(t, sawB)
}

func TestMaskedCheckpointKeepsTickPending(t *testing.T) {
	s := newTestScheduler(t, preemptive(3, 5))

	var during, after uint64
	_, err := s.Create(func(s *Scheduler) {
		before := s.Switches()
		prev := s.m.DisableIRQ()
		deadline := time.Now().Add(30 * time.Millisecond)
		for time.Now().Before(deadline) {
			s.Checkpoint()
		}
		during = s.Switches() - before
		s.m.RestoreIRQ(prev)

		s.Checkpoint() // the latched tick is taken now
		after = s.Switches() - before
	}, "masked")
	require.NoError(t, err)

	require.NoError(t, s.StartScheduler(context.Background()))
	assert.Zero(t, during)
	assert.Positive(t, after)
}

func TestDelayElapsedPreemptive(t *testing.T) {
	cfg := preemptive(3, 20)
	s := newTestScheduler(t, cfg)

	const d = 100 * time.Millisecond
	var slept time.Duration
	_, err := s.Create(func(s *Scheduler) {
		start := time.Now()
		s.Delay(d)
		slept = time.Since(start)
	}, "A")
	require.NoError(t, err)

	require.NoError(t, s.StartScheduler(context.Background()))

	assert.GreaterOrEqual(t, slept, d)
	// one tick of granularity plus one of scheduling jitter
	assert.Less(t, slept, d+2*cfg.Tick())
}

func TestPreemptiveRunsToCompletion(t *testing.T) {
	s := newTestScheduler(t, preemptive(5, 2))

	counts := make([]int, 5)
	for i := 0; i < 4; i++ {
		_, err := s.Create(func(s *Scheduler) {
			for j := 0; j < 5; j++ {
				s.Busy(time.Millisecond)
				counts[s.Self()]++
			}
		}, "")
		require.NoError(t, err)
	}

	require.NoError(t, s.StartScheduler(context.Background()))
	assert.Equal(t, []int{0, 5, 5, 5, 5}, counts)
	assert.Len(t, s.List(), 1)
	assert.False(t, s.runnable.Load())
}

func TestPreemptiveWithoutTasks(t *testing.T) {
	s := newTestScheduler(t, preemptive(3, 2))

	require.NoError(t, s.StartScheduler(context.Background()))
}

func TestDeadlockPreemptive(t *testing.T) {
	s := newTestScheduler(t, preemptive(3, 2))

	_, err := s.Create(func(s *Scheduler) { s.Suspend(Current) }, "stuck")
	require.NoError(t, err)

	err = s.StartScheduler(context.Background())
	assert.ErrorIs(t, err, ErrDeadlock)
}

func TestPreemptiveCancelled(t *testing.T) {
	s := newTestScheduler(t, preemptive(3, 2))

	_, err := s.Create(func(s *Scheduler) {
		for {
			s.Busy(time.Millisecond)
		}
	}, "forever")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.StartScheduler(ctx), context.DeadlineExceeded)
	assert.Nil(t, s.clock)
}

func TestBusyWithoutClockSleeps(t *testing.T) {
	s := newTestScheduler(t, preemptive(3, 2))

	start := time.Now()
	s.Busy(5 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	s.Checkpoint()
}
