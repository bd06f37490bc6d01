// internal/sched/tickclock.go

package sched

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TickSource is the periodic interrupt of a preemptive scheduler. C latches at
// most one pending tick: ticks arriving while one is pending are coalesced.
type TickSource interface {
	Start(period time.Duration) error
	Stop()
	C() <-chan struct{}
	Count() int64
}

func newTickSource(kind string) (TickSource, error) {
	switch kind {
	case "", TickSourceTicker:
		return NewTickClock(), nil
	case TickSourceITimer:
		return NewITimer()
	default:
		return nil, fmt.Errorf("unknown tick source %q", kind)
	}
}

// TickClock emits ticks and counts them atomically.
type TickClock struct {
	Ch      chan struct{}
	count   atomic.Int64
	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewTickClock creates a clock but does not start it.
func NewTickClock() *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval.
func (c *TickClock) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval %v must be positive", interval)
	}
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("tick clock already started")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer close(c.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- struct{}{}:
				default: // a tick is already pending
				}
			case <-c.stop:
				return
			}
		}
	}()
	return nil
}

// Stop stops the clock and waits for its goroutine to exit.
func (c *TickClock) Stop() {
	c.once.Do(func() {
		close(c.stop)
		if c.started.Load() {
			<-c.done
		}
	})
}

// C returns the tick line.
func (c *TickClock) C() <-chan struct{} { return c.Ch }

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}
