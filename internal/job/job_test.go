package job

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gthreads/internal/sched"
)

func newScheduler(t *testing.T, preemptive bool) *sched.Scheduler {
	t.Helper()
	s, err := sched.New(sched.Config{MaxTasks: 5, TickMS: 2, Preemptive: preemptive, TickSource: sched.TickSourceTicker})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestCounterCooperativeAlternates(t *testing.T) {
	s := newScheduler(t, false)
	var buf bytes.Buffer

	_, err := s.Create(Counter(&buf, "F", 1, 2, 0), "F-thread1")
	require.NoError(t, err)
	_, err = s.Create(Counter(&buf, "G", 1, 2, 0), "G-thread1")
	require.NoError(t, err)

	require.NoError(t, s.StartScheduler(context.Background()))
	assert.Equal(t, []string{
		"F Thread id: 1 count: 1",
		"G Thread id: 1 count: 1",
		"F Thread id: 1 count: 0",
		"G Thread id: 1 count: 0",
	}, lines(&buf))
}

func TestCounterPreemptive(t *testing.T) {
	s := newScheduler(t, true)
	var buf bytes.Buffer

	_, err := s.Create(Counter(&buf, "F", 1, 5, time.Millisecond), "F")
	require.NoError(t, err)
	_, err = s.Create(Counter(&buf, "G", 2, 5, time.Millisecond), "G")
	require.NoError(t, err)

	require.NoError(t, s.StartScheduler(context.Background()))
	out := buf.String()
	assert.Len(t, lines(&buf), 10)
	assert.Contains(t, out, "F Thread id: 1 count: 0")
	assert.Contains(t, out, "G Thread id: 2 count: 0")
}

func TestHelloSleepRing(t *testing.T) {
	s := newScheduler(t, false)
	var buf bytes.Buffer

	sleeper := new(sched.Handle)
	require.NoError(t, create(s,
		task{"Hello", Hello(&buf, 20*time.Millisecond), nil},
		task{"Sleep", Sleeper(&buf), sleeper},
		task{"Ring", Ring(&buf, 50*time.Millisecond, sleeper), nil},
	))

	ctx, cancel := context.WithTimeout(context.Background(), 130*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.StartScheduler(ctx), context.DeadlineExceeded)

	out := buf.String()
	assert.GreaterOrEqual(t, strings.Count(out, "Hello world!"), 3)
	assert.GreaterOrEqual(t, strings.Count(out, "Ring! Ring! Ring!"), 1)
	assert.Equal(t, strings.Count(out, "Ring! Ring! Ring!"), strings.Count(out, "Please do not wake up!"))
}

func TestWorkerController(t *testing.T) {
	s := newScheduler(t, false)
	var buf bytes.Buffer

	worker := new(sched.Handle)
	timing := ControllerTiming{Warmup: 30 * time.Millisecond, Suspended: 40 * time.Millisecond, Cooldown: 30 * time.Millisecond}
	require.NoError(t, create(s,
		task{"worker", Worker(&buf, 10*time.Millisecond), worker},
		task{"controller", Controller(&buf, worker, timing), nil},
	))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.StartScheduler(ctx), context.DeadlineExceeded)

	out := buf.String()
	require.Contains(t, out, "[controller] test complete!")

	suspendAt := strings.Index(out, "[controller] suspending worker...")
	resumeAt := strings.Index(out, "[controller] resuming worker...")
	require.True(t, suspendAt >= 0 && resumeAt > suspendAt)

	held := out[suspendAt:resumeAt]
	assert.NotContains(t, held, "[worker] working")
	assert.Contains(t, held, "Suspended")
	assert.Contains(t, out[resumeAt:], "[worker] working")
}

func TestExamplesSetup(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, ExampleNumbers())

	want := map[int][]string{
		1: {"root", "Hello", "Sleep", "Ring"},
		2: {"root", "F-thread1", "F-thread2", "G-thread1", "G-thread2"},
		3: {"root", "worker", "controller"},
	}
	for n, names := range want {
		s := newScheduler(t, false)
		require.NoError(t, Examples[n].Setup(s, &bytes.Buffer{}), Examples[n].Title)

		var got []string
		for _, ti := range s.List() {
			got = append(got, ti.Name)
		}
		assert.Equal(t, names, got)
	}
}

func TestExampleTooBigForTable(t *testing.T) {
	s, err := sched.New(sched.Config{MaxTasks: 3, TickMS: 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	err = Examples[2].Setup(s, &bytes.Buffer{})
	assert.ErrorIs(t, err, sched.ErrTableFull)
}

func TestSleepAndBusyWork(t *testing.T) {
	s := newScheduler(t, false)

	_, err := s.Create(SleepWork(20*time.Millisecond), "sleep")
	require.NoError(t, err)
	_, err = s.Create(BusyWork(10*time.Millisecond), "busy")
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.StartScheduler(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRenderTaskList(t *testing.T) {
	out := RenderTaskList([]sched.TaskInfo{
		{Index: 0, Name: "root", State: sched.Ready},
		{Index: 1, Name: "worker", State: sched.Suspended},
		{Index: 2, Name: "controller", State: sched.Blocked, Wake: 1234},
	})

	rows := strings.Split(out, "\n")
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0], "NAME")
	assert.Contains(t, rows[1], "root")
	assert.Contains(t, rows[2], "Suspended")
	assert.Contains(t, rows[3], "Blocked")
	assert.Contains(t, rows[3], "1234ms")
}
