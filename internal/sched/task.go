package sched

import (
	"strconv"
	"unicode/utf8"

	"gthreads/internal/swtch"
)

// State is the lifecycle state of a task slot.
type State int

const (
	Unused State = iota
	Running
	Ready
	Blocked
	Suspended
)

func (st State) String() string {
	switch st {
	case Unused:
		return "Unused"
	case Running:
		return "Running"
	case Ready:
		return "Ready"
	case Blocked:
		return "Blocked"
	case Suspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// Handle identifies a task by its slot index. It stays valid until the task
// terminates; afterwards the slot may be handed to a new task.
type Handle int

// Current selects the calling task in Suspend.
const Current Handle = -1

// MaxTaskName bounds task names, terminator included.
const MaxTaskName = 16

const rootName = "root"

// TaskFunc is the entry function of a task. Returning from it terminates the task.
type TaskFunc func(s *Scheduler)

// TaskInfo is one row of List.
type TaskInfo struct {
	Index Handle
	Name  string
	State State
	Wake  uint64 // ms since scheduler start, 0 unless delayed
}

// tcb is one slot of the task table.
type tcb struct {
	state State
	ctx   *swtch.Context // saved context; owns the task's goroutine stack
	name  string
	wake  uint64 // ms since scheduler start; 0 when not delay-blocked
}

// boundName cuts name to MaxTaskName-1 bytes at a rune boundary.
// An empty name becomes "task<slot>".
func boundName(name string, slot int) string {
	if name == "" {
		name = "task" + strconv.Itoa(slot)
	}
	limit := MaxTaskName - 1
	if len(name) <= limit {
		return name
	}
	for limit > 0 && !utf8.RuneStart(name[limit]) {
		limit--
	}
	return name[:limit]
}
