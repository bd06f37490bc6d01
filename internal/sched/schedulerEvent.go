// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusCreate
	StatusDispatch
	StatusPreempt
	StatusBlock
	StatusWake
	StatusSuspend
	StatusResume
	StatusFinish
	StatusTick
	StatusDeadlock
)

// StatusEvent is emitted on every scheduling decision and, in preemptive
// builds, on every tick taken.
type StatusEvent struct {
	Time    time.Time
	Kind    StatusKind
	Task    Handle
	Name    string
	Tick    int64         // ticks handled so far
	Elapsed time.Duration // since scheduler start
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusCreate:
		return "Create"
	case StatusDispatch:
		return "Dispatch"
	case StatusPreempt:
		return "Preempt"
	case StatusBlock:
		return "Block"
	case StatusWake:
		return "Wake"
	case StatusSuspend:
		return "Suspend"
	case StatusResume:
		return "Resume"
	case StatusFinish:
		return "Finish"
	case StatusTick:
		return "Tick"
	case StatusDeadlock:
		return "Deadlock"
	default:
		return "Unknown"
	}
}

// EventHandler receives scheduler events. Handlers run on the scheduler's
// execution stream and must not call back into the Scheduler.
type EventHandler interface {
	HandleEvent(ev StatusEvent)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ev StatusEvent)

func (f EventHandlerFunc) HandleEvent(ev StatusEvent) { f(ev) }
