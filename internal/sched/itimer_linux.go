//go:build linux

package sched

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// ITimer drives ticks from the process interval timer (ITIMER_REAL), which
// the kernel delivers as SIGALRM. There is one such timer per process, so at
// most one ITimer may run at a time.
type ITimer struct {
	ch      chan struct{}
	sig     chan os.Signal
	count   atomic.Int64
	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewITimer creates a stopped interval timer source.
func NewITimer() (TickSource, error) {
	return &ITimer{
		ch:   make(chan struct{}, 1),
		sig:  make(chan os.Signal, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

// Start arms ITIMER_REAL with the given period.
func (t *ITimer) Start(period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("tick interval %v must be positive", period)
	}
	if !t.started.CompareAndSwap(false, true) {
		return fmt.Errorf("itimer already started")
	}

	signal.Notify(t.sig, unix.SIGALRM)
	tv := unix.NsecToTimeval(period.Nanoseconds())
	if _, err := unix.Setitimer(unix.ItimerReal, unix.Itimerval{Interval: tv, Value: tv}); err != nil {
		signal.Stop(t.sig)
		close(t.done)
		return fmt.Errorf("setitimer: %w", err)
	}

	go func() {
		defer close(t.done)
		for {
			select {
			case <-t.sig:
				t.count.Add(1)
				select {
				case t.ch <- struct{}{}:
				default:
				}
			case <-t.stop:
				return
			}
		}
	}()
	return nil
}

// Stop disarms the timer and restores default SIGALRM handling.
func (t *ITimer) Stop() {
	t.once.Do(func() {
		if t.started.Load() {
			_, _ = unix.Setitimer(unix.ItimerReal, unix.Itimerval{})
			signal.Stop(t.sig)
		}
		close(t.stop)
		if t.started.Load() {
			<-t.done
		}
	})
}

// C returns the tick line.
func (t *ITimer) C() <-chan struct{} { return t.ch }

// Count returns the number of SIGALRMs received.
func (t *ITimer) Count() int64 { return t.count.Load() }
