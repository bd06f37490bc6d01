package sched

import (
	"math"
	"time"
)

// maxWakeMS is the latest wake time, in ms, that still converts to a
// time.Duration.
const maxWakeMS = uint64(math.MaxInt64 / int64(time.Millisecond))

// wakeKey orders the sleep queue by wake time, then slot.
type wakeKey struct {
	wake uint64
	slot int
}

func cmpWake(a, b any) int {
	ka, kb := a.(wakeKey), b.(wakeKey)
	switch {
	case ka.wake < kb.wake:
		return -1
	case ka.wake > kb.wake:
		return 1
	case ka.slot < kb.slot:
		return -1
	case ka.slot > kb.slot:
		return 1
	default:
		return 0
	}
}

// Delay blocks the calling task for at least d. The root task carries the
// scheduling loop and is never blocked; Delay does nothing there.
func (s *Scheduler) Delay(d time.Duration) {
	if s.cur == 0 {
		return
	}
	prev := s.m.DisableIRQ()

	t := &s.table[s.cur]
	t.wake = s.wakeAt(d)
	t.state = Blocked
	s.sleepq.Put(wakeKey{wake: t.wake, slot: s.cur}, struct{}{})
	s.emit(StatusBlock, s.cur)

	s.yield(false)
	s.m.RestoreIRQ(prev)
}

// Suspend parks task h (Current for the caller) until Resume. A pending
// delay is cancelled. It reports whether h was Running, Ready or Blocked;
// anything else, and the root task, is left alone. Suspending the caller
// switches away at once.
func (s *Scheduler) Suspend(h Handle) bool {
	slot, ok := s.slot(h)
	if !ok || slot == 0 {
		return false
	}
	t := &s.table[slot]
	switch t.state {
	case Running, Ready, Blocked:
	default:
		return false
	}
	prev := s.m.DisableIRQ()

	if t.state == Blocked {
		s.sleepq.Remove(wakeKey{wake: t.wake, slot: slot})
	}
	t.wake = 0
	t.state = Suspended
	s.emit(StatusSuspend, slot)

	if slot == s.cur {
		s.yield(false)
	}
	s.m.RestoreIRQ(prev)
	return true
}

// Resume makes a Suspended task Ready again. It never switches: the task
// runs at a later scheduling decision. It reports false, doing nothing, if h
// was not Suspended.
func (s *Scheduler) Resume(h Handle) bool {
	slot, ok := s.slot(h)
	if !ok || s.table[slot].state != Suspended {
		return false
	}
	s.table[slot].state = Ready
	s.emit(StatusResume, slot)
	return true
}

// wakeAt rounds the absolute wake time up to whole milliseconds, so a task
// never wakes before d has fully elapsed.
func (s *Scheduler) wakeAt(d time.Duration) uint64 {
	if d < 0 {
		d = 0
	}
	at := s.Elapsed()
	if d > math.MaxInt64-at {
		at = math.MaxInt64
	} else {
		at += d
	}
	ms := uint64(at / time.Millisecond)
	if at%time.Millisecond != 0 {
		ms++
	}
	switch {
	case ms == 0:
		ms = 1 // 0 means "not delayed"
	case ms > maxWakeMS:
		ms = maxWakeMS
	}
	return ms
}

// wakeTime converts a wake time back to time since start.
func wakeTime(wake uint64) time.Duration {
	if wake > maxWakeMS {
		wake = maxWakeMS
	}
	return time.Duration(wake) * time.Millisecond
}

// wakeExpired turns every Blocked task whose wake time has passed Ready.
func (s *Scheduler) wakeExpired() {
	now := s.Elapsed()
	for {
		node := s.sleepq.Left()
		if node == nil {
			return
		}
		key := node.Key.(wakeKey)
		if wakeTime(key.wake) > now {
			return
		}
		s.sleepq.Remove(key)

		t := &s.table[key.slot]
		if t.state == Blocked && t.wake == key.wake {
			t.state = Ready
			t.wake = 0
			s.emit(StatusWake, key.slot)
		}
	}
}

// nextWake returns the earliest pending wake time.
func (s *Scheduler) nextWake() (uint64, bool) {
	node := s.sleepq.Left()
	if node == nil {
		return 0, false
	}
	return node.Key.(wakeKey).wake, true
}
