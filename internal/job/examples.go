package job

import (
	"fmt"
	"io"
	"sort"
	"time"

	"gthreads/internal/sched"
)

// Example is a set of tasks the CLI can load into a scheduler.
type Example struct {
	Title string
	Setup func(s *sched.Scheduler, w io.Writer) error
}

// CounterLines is how many lines every counting thread of example 2 prints.
const CounterLines = 100

// Examples are the demo programs by number.
var Examples = map[int]Example{
	1: {
		Title: "FreeRTOS-like example (Hello, Sleep, Ring)",
		Setup: func(s *sched.Scheduler, w io.Writer) error {
			sleeper := new(sched.Handle)
			return create(s,
				task{"Hello", Hello(w, time.Second), nil},
				task{"Sleep", Sleeper(w), sleeper},
				task{"Ring", Ring(w, 5*time.Second, sleeper), nil},
			)
		},
	},
	2: {
		Title: "counting threads example",
		Setup: func(s *sched.Scheduler, w io.Writer) error {
			return create(s,
				task{"F-thread1", Counter(w, "F", 1, CounterLines, time.Millisecond), nil},
				task{"F-thread2", Counter(w, "F", 2, CounterLines, time.Millisecond), nil},
				task{"G-thread1", Counter(w, "G", 1, CounterLines, time.Millisecond), nil},
				task{"G-thread2", Counter(w, "G", 2, CounterLines, time.Millisecond), nil},
			)
		},
	},
	3: {
		Title: "custom suspend/resume test",
		Setup: func(s *sched.Scheduler, w io.Writer) error {
			worker := new(sched.Handle)
			return create(s,
				task{"worker", Worker(w, 500*time.Millisecond), worker},
				task{"controller", Controller(w, worker, DefaultControllerTiming), nil},
			)
		},
	},
}

// ExampleNumbers returns the example numbers in order.
func ExampleNumbers() []int {
	nums := make([]int, 0, len(Examples))
	for n := range Examples {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

type task struct {
	name   string
	fn     sched.TaskFunc
	handle *sched.Handle // receives the handle, may be nil
}

func create(s *sched.Scheduler, tasks ...task) error {
	for _, t := range tasks {
		h, err := s.Create(t.fn, t.name)
		if err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		if t.handle != nil {
			*t.handle = h
		}
	}
	return nil
}
