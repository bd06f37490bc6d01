package job

import (
	"fmt"
	"io"
	"time"

	"gthreads/internal/sched"
)

// Hello prints a greeting every period, forever.
func Hello(w io.Writer, period time.Duration) sched.TaskFunc {
	return func(s *sched.Scheduler) {
		for {
			fmt.Fprintln(w, "Hello world!")
			s.Delay(period)
		}
	}
}

// Sleeper suspends itself and complains every time somebody resumes it.
func Sleeper(w io.Writer) sched.TaskFunc {
	return func(s *sched.Scheduler) {
		for {
			s.Suspend(sched.Current)
			fmt.Fprintln(w, "Please do not wake up!")
		}
	}
}

// Ring wakes the task in *sleeper every period.
func Ring(w io.Writer, period time.Duration, sleeper *sched.Handle) sched.TaskFunc {
	return func(s *sched.Scheduler) {
		for {
			s.Delay(period)
			fmt.Fprintln(w, "Ring! Ring! Ring!")
			s.Resume(*sleeper)
		}
	}
}

// Counter counts down from count, spending step of work on every line. In a
// cooperative build it yields after each line; a preemptive build takes it
// off the CPU on ticks instead.
func Counter(w io.Writer, label string, id, count int, step time.Duration) sched.TaskFunc {
	return func(s *sched.Scheduler) {
		for count > 0 {
			count--
			fmt.Fprintf(w, "%s Thread id: %d count: %d\n", label, id, count)
			s.Busy(step)

			if !s.Preemptive() {
				s.Yield()
			}
		}
	}
}

// Worker reports progress every period, forever.
func Worker(w io.Writer, period time.Duration) sched.TaskFunc {
	return func(s *sched.Scheduler) {
		for count := 0; ; count++ {
			fmt.Fprintf(w, "[worker] working... count=%d\n", count)
			s.Delay(period)
		}
	}
}

// ControllerTiming are the phases of Controller.
type ControllerTiming struct {
	Warmup    time.Duration // worker runs freely
	Suspended time.Duration // worker held suspended
	Cooldown  time.Duration // worker runs again before the controller ends
}

// DefaultControllerTiming is 2s of work, 3s suspended and 2s more work.
var DefaultControllerTiming = ControllerTiming{
	Warmup:    2 * time.Second,
	Suspended: 3 * time.Second,
	Cooldown:  2 * time.Second,
}

// Controller suspends and later resumes the task in *worker, dumping the task
// list after each step. It ends after the cooldown; the worker keeps going.
func Controller(w io.Writer, worker *sched.Handle, timing ControllerTiming) sched.TaskFunc {
	return func(s *sched.Scheduler) {
		fmt.Fprintln(w, "[controller] starting, will control worker task")
		s.Delay(timing.Warmup)

		fmt.Fprintln(w, "[controller] suspending worker...")
		s.Suspend(*worker)
		fmt.Fprintln(w, RenderTaskList(s.List()))

		s.Delay(timing.Suspended)

		fmt.Fprintln(w, "[controller] resuming worker...")
		s.Resume(*worker)
		fmt.Fprintln(w, RenderTaskList(s.List()))

		s.Delay(timing.Cooldown)
		fmt.Fprintln(w, "[controller] test complete!")
	}
}
