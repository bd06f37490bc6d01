package job

import (
	"time"

	"gthreads/internal/sched"
)

// SleepWork returns a task that blocks for d and then ends.
func SleepWork(d time.Duration) sched.TaskFunc {
	return func(s *sched.Scheduler) {
		s.Delay(d)
	}
}

// BusyWork returns a task that stays busy for d of its own running time
// without giving up the stream voluntarily. Only ticks take it off the CPU.
func BusyWork(d time.Duration) sched.TaskFunc {
	return func(s *sched.Scheduler) {
		s.Busy(d)
	}
}
