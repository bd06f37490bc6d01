package sched

import (
	"context"
	"fmt"
	"time"
)

// runPreemptive arms the tick source and idles the root task until a tick
// finds nothing left to run. Ticks are taken by whichever task holds the
// stream; the root only sees those arriving while it idles.
func (s *Scheduler) runPreemptive(ctx context.Context) error {
	src, err := newTickSource(s.cfg.TickSource)
	if err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	period := s.cfg.Tick()
	if err := src.Start(period); err != nil {
		return fmt.Errorf("sched: start tick source: %w", err)
	}
	s.clock = src
	defer func() {
		src.Stop()
		s.clock = nil
	}()

	// emulates a low power wait between ticks
	idle := time.NewTimer(period + time.Millisecond)
	defer idle.Stop()

	s.runnable.Store(true)
	for s.runnable.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-src.C():
			s.interrupt()
		case <-idle.C:
		}
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(period + time.Millisecond)
	}

	if s.deadlocked {
		return ErrDeadlock
	}
	return nil
}

// interrupt is the tick handler. It runs on the goroutine of the task that
// took the tick, with the tick masked until it returns; a tick arriving in
// the meantime stays latched on the line.
func (s *Scheduler) interrupt() {
	prev := s.m.DisableIRQ()
	s.ticks++
	s.emit(StatusTick, s.cur)

	s.wakeExpired()
	n := s.yield(true)
	s.runnable.Store(n != 0)

	if n < 0 && s.cur == 0 && s.waiting.blocked == 0 {
		// only suspended tasks left and nobody to resume them
		s.deadlocked = true
		s.runnable.Store(false)
		s.emit(StatusDeadlock, s.cur)
	} else if n < 0 {
		s.emit(StatusIdle, s.cur)
	}
	s.m.RestoreIRQ(prev)
}

// Checkpoint is a preemption point. Task code that runs for long stretches
// without calling Delay, Yield or Busy should call it regularly; it takes a
// pending tick, if any.
func (s *Scheduler) Checkpoint() {
	if s.clock == nil || !s.m.IRQEnabled() {
		return
	}
	select {
	case <-s.clock.C():
		s.interrupt()
	default:
	}
}

// Busy keeps the calling task occupied for d of its own running time, taking
// ticks while it waits. Time spent switched out does not count towards d.
// Without a running tick source it simply sleeps.
func (s *Scheduler) Busy(d time.Duration) {
	for d > 0 {
		if s.clock == nil || !s.m.IRQEnabled() {
			time.Sleep(d)
			return
		}

		start := time.Now()
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
			return
		case <-s.clock.C():
			timer.Stop()
			d -= time.Since(start)
			s.interrupt()
		}
	}
}
