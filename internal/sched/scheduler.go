// internal/sched/scheduler.go

package sched

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"

	"gthreads/internal/swtch"
)

var (
	// ErrTableFull is returned by Create when every slot is in use.
	ErrTableFull = errors.New("sched: task table full")
	// ErrAllocation is returned by Create when no context could be built for the task.
	ErrAllocation = errors.New("sched: cannot allocate task context")
	// ErrNotRoot is returned by operations reserved for the root task.
	ErrNotRoot = errors.New("sched: not called from the root task")
	// ErrDeadlock is returned by StartScheduler when only suspended tasks remain.
	ErrDeadlock = errors.New("sched: all remaining tasks are suspended")
)

// Scheduler multiplexes a fixed table of tasks onto one execution stream.
//
// Every method must be called from the stream itself: from the goroutine that
// called New (the root task) or from inside a task function. Only one of them
// runs at any time, which is what makes the table safe without locks.
type Scheduler struct {
	cfg      Config
	m        *swtch.Machine
	switchTo func(from, to *swtch.Context) // cooperative or preemptive variant

	table  []tcb
	cur    int                // slot of the Running task
	start  time.Time          // wake times are measured from here
	sleepq *redblacktree.Tree // delayed tasks ordered by (wake, slot)

	clock      TickSource  // set while a preemptive StartScheduler runs
	ticks      int64       // ticks handled
	runnable   atomic.Bool // did the last tick find anything to run
	deadlocked bool
	waiting    scanCount // result of the last table scan

	handlers []EventHandler
	closed   bool
}

// scanCount holds the non-runnable slots seen by one table scan.
type scanCount struct {
	blocked   int
	suspended int
}

// New initialises the task table: the calling goroutine becomes the root task
// in slot 0, Running, and the start time is recorded.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sched: %w", err)
	}

	m := swtch.NewMachine()
	s := &Scheduler{
		cfg:    cfg,
		m:      m,
		table:  make([]tcb, cfg.MaxTasks),
		sleepq: redblacktree.NewWith(cmpWake),
		start:  time.Now(),
	}
	s.switchTo = m.Switch
	if cfg.Preemptive {
		s.switchTo = m.PreemptSwitch
	}

	s.table[0] = tcb{
		state: Running,
		ctx:   m.Root(),
		name:  rootName,
	}
	return s, nil
}

// Observe registers an event handler.
func (s *Scheduler) Observe(h EventHandler) {
	s.handlers = append(s.handlers, h)
}

// Create puts entry into the first unused slot as a Ready task. The new task
// first runs at a later scheduling decision; when entry returns, the task
// terminates as if it had called Stop.
func (s *Scheduler) Create(entry TaskFunc, name string) (Handle, error) {
	if entry == nil {
		return -1, fmt.Errorf("sched: create %q: nil entry function", name)
	}

	slot := -1
	for i := range s.table {
		if s.table[i].state == Unused {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, ErrTableFull
	}

	ctx, err := s.m.Bootstrap(func() { entry(s) }, s.Stop)
	if err != nil {
		return -1, fmt.Errorf("%w: %w", ErrAllocation, err)
	}

	s.table[slot] = tcb{
		state: Ready,
		ctx:   ctx,
		name:  boundName(name, slot),
	}
	s.emit(StatusCreate, slot)
	return Handle(slot), nil
}

// Stop terminates the calling task: its slot becomes Unused and the stream
// moves on for good. It never returns, except when called by the root task,
// where it does nothing.
func (s *Scheduler) Stop() {
	if s.cur == 0 {
		return
	}
	s.m.DisableIRQ()

	slot := s.cur
	t := &s.table[slot]
	s.emit(StatusFinish, slot)
	t.state = Unused
	t.wake = 0
	s.m.Retire(t.ctx)

	s.yield(false)
	// only reachable if the switch path is corrupted
	panic(fmt.Sprintf("sched: terminated task %q (slot %d) resumed", t.name, slot))
}

// Yield hands the stream to the next Ready task in round-robin order and
// returns 1 once the caller runs again. When no other task is Ready it
// returns at once with the negated number of Blocked and Suspended tasks,
// which is 0 when every other slot is unused.
func (s *Scheduler) Yield() int {
	return s.yield(false)
}

// yield is the single place where the next task is chosen. preempted marks
// calls made from the tick handler.
//
// It must not defer anything: a retired task's goroutine ends inside
// switchTo and deferred calls would run after the stream has moved on.
func (s *Scheduler) yield(preempted bool) int {
	prev := s.m.DisableIRQ()
	s.wakeExpired()

	n := len(s.table)
	next := -1
	var seen scanCount
	for i := 1; i <= n; i++ {
		p := (s.cur + i) % n
		switch s.table[p].state {
		case Ready:
			next = p
		case Blocked:
			seen.blocked++
		case Suspended:
			seen.suspended++
		}
		if next >= 0 {
			break
		}
	}
	s.waiting = seen

	if next < 0 {
		s.m.RestoreIRQ(prev)
		return -(seen.blocked + seen.suspended)
	}

	from := &s.table[s.cur]
	if next == s.cur {
		from.state = Running
		s.m.RestoreIRQ(prev)
		return 1
	}

	if preempted {
		s.emit(StatusPreempt, s.cur)
	}
	if from.state == Running {
		from.state = Ready
	}
	s.table[next].state = Running
	s.cur = next
	s.emit(StatusDispatch, next)

	s.switchTo(from.ctx, s.table[next].ctx)

	s.m.RestoreIRQ(prev)
	return 1
}

// StartScheduler runs the root scheduling loop until no task is left. It
// returns nil once every task has terminated, ctx.Err() when ctx is done and
// ErrDeadlock when only suspended tasks remain. Tasks still alive after an
// error stay parked; Close releases them.
func (s *Scheduler) StartScheduler(ctx context.Context) error {
	if s.cur != 0 {
		return ErrNotRoot
	}
	s.deadlocked = false
	if s.cfg.Preemptive {
		return s.runPreemptive(ctx)
	}
	return s.runCooperative(ctx)
}

func (s *Scheduler) runCooperative(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := s.yield(false)
		if n == 0 {
			return nil
		}
		if n > 0 {
			continue
		}

		// nothing Ready: sleep until the earliest delay expires
		wake, ok := s.nextWake()
		if !ok {
			s.deadlocked = true
			s.emit(StatusDeadlock, s.cur)
			return ErrDeadlock
		}
		s.emit(StatusIdle, s.cur)
		if err := s.sleepUntil(ctx, wake); err != nil {
			return err
		}
	}
}

func (s *Scheduler) sleepUntil(ctx context.Context, wake uint64) error {
	d := wakeTime(wake) - s.Elapsed()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// List returns one entry per task in slot order.
func (s *Scheduler) List() []TaskInfo {
	out := make([]TaskInfo, 0, len(s.table))
	for i := range s.table {
		t := &s.table[i]
		if t.state == Unused {
			continue
		}
		out = append(out, TaskInfo{
			Index: Handle(i),
			Name:  t.name,
			State: t.state,
			Wake:  t.wake,
		})
	}
	return out
}

// Close ends every remaining task and releases its goroutine. It may only be
// called by the root task, typically after StartScheduler returned; the
// scheduler cannot create tasks afterwards.
func (s *Scheduler) Close() error {
	if s.cur != 0 {
		return ErrNotRoot
	}
	if s.closed {
		return nil
	}
	for i := 1; i < len(s.table); i++ {
		t := &s.table[i]
		if t.state == Unused {
			continue
		}
		s.emit(StatusFinish, i)
		s.m.Kill(t.ctx)
		*t = tcb{}
	}
	s.sleepq.Clear()
	s.closed = true
	s.m.Close()
	return nil
}

// Self returns the handle of the calling task.
func (s *Scheduler) Self() Handle { return Handle(s.cur) }

// State returns the state of slot h; out of range handles are Unused.
func (s *Scheduler) State(h Handle) State {
	slot, ok := s.slot(h)
	if !ok {
		return Unused
	}
	return s.table[slot].state
}

// Preemptive reports whether the scheduler was built for timer preemption.
func (s *Scheduler) Preemptive() bool { return s.cfg.Preemptive }

// Config returns the configuration the scheduler was built with.
func (s *Scheduler) Config() Config { return s.cfg }

// Elapsed returns the time since New.
func (s *Scheduler) Elapsed() time.Duration { return time.Since(s.start) }

// Ticks returns the number of timer ticks handled so far.
func (s *Scheduler) Ticks() int64 { return s.ticks }

// Switches returns the number of context switches performed.
func (s *Scheduler) Switches() uint64 { return s.m.Switches() }

func (s *Scheduler) slot(h Handle) (int, bool) {
	if h == Current {
		return s.cur, true
	}
	if h < 0 || int(h) >= len(s.table) {
		return 0, false
	}
	return int(h), true
}

func (s *Scheduler) emit(kind StatusKind, slot int) {
	if len(s.handlers) == 0 {
		return
	}
	ev := StatusEvent{
		Time:    time.Now(),
		Kind:    kind,
		Task:    Handle(slot),
		Name:    s.table[slot].name,
		Tick:    s.ticks,
		Elapsed: s.Elapsed(),
	}
	for _, h := range s.handlers {
		h.HandleEvent(ev)
	}
}
