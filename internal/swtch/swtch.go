// internal/swtch/swtch.go

// Package swtch is the context-switch primitive of the scheduler.
//
// A Machine is one logical execution stream. Every Context owns a parked
// goroutine (its stack) and exactly one goroutine holds the stream at a time:
// a switch hands a token to the target context and parks the caller on its own
// context until somebody hands the token back. Nothing in here decides what
// runs next.
package swtch

import (
	"errors"
	"runtime"
	"sync"
)

// Flags is the machine state a preemptive switch carries across an interrupt.
type Flags uint32

const (
	// IRQDisabled masks delivery of the tick interrupt.
	IRQDisabled Flags = 1 << iota
)

// ErrClosed is returned by Bootstrap once the machine has been closed.
var ErrClosed = errors.New("swtch: machine closed")

// Switcher is the capability the scheduler is built on: a cooperative and a
// preemptive way to move the stream from one context to another.
type Switcher interface {
	Switch(from, to *Context)
	PreemptSwitch(from, to *Context)
}

var _ Switcher = (*Machine)(nil)

// Context is a saved resumption point.
type Context struct {
	wake    chan struct{}
	flags   Flags // saved by PreemptSwitch, restored on resume
	saved   bool
	retired bool
	killed  bool
}

func newContext() *Context {
	// one slot: at most one token is ever in flight towards a context
	return &Context{wake: make(chan struct{}, 1)}
}

// Machine is a single execution stream.
type Machine struct {
	flags    Flags
	switches uint64
	closed   bool
	wg       sync.WaitGroup
}

// NewMachine creates a machine with interrupts enabled.
func NewMachine() *Machine {
	return &Machine{}
}

// Root adopts the calling goroutine as a context. It must be the goroutine
// that currently owns the stream.
func (m *Machine) Root() *Context {
	return newContext()
}

// Bootstrap builds a context whose first resume runs entry and then exit.
// exit is the termination trampoline: it must switch away for good, so
// control coming back out of it is treated as a corrupted stream.
func (m *Machine) Bootstrap(entry, exit func()) (*Context, error) {
	if m.closed {
		return nil, ErrClosed
	}
	c := newContext()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		<-c.wake
		if c.killed {
			return
		}
		// synthetic frame: a fresh context always starts with interrupts enabled
		m.flags = c.flags

		entry()
		exit()
		panic("swtch: returned past exit trampoline")
	}()
	return c, nil
}

// Switch is the cooperative variant. It may only be called from ordinary task
// code, never from inside the tick handler; the flags word passes through
// unchanged.
func (m *Machine) Switch(from, to *Context) {
	m.handoff(from, to)
}

// PreemptSwitch is the variant that is safe inside the tick handler. The
// caller's flags are saved into from and restored when from is resumed, so an
// interrupted task sees exactly the interrupt state it was interrupted with.
func (m *Machine) PreemptSwitch(from, to *Context) {
	if from != nil {
		from.flags = m.flags
		from.saved = true
	}
	m.handoff(from, to)
}

func (m *Machine) handoff(from, to *Context) {
	if from == nil || to == nil {
		panic("swtch: switch with nil context")
	}
	if from == to {
		return
	}
	m.switches++

	to.wake <- struct{}{}
	if from.retired {
		// the stack is released once the stream has moved on
		runtime.Goexit()
	}

	<-from.wake
	if from.killed {
		runtime.Goexit()
	}
	if from.saved {
		m.flags = from.flags
		from.saved = false
	}
}

// Retire marks c as finished: the next switch away from c ends its goroutine.
// Only the goroutine running on c may retire it.
func (m *Machine) Retire(c *Context) {
	c.retired = true
}

// Kill ends a parked context. The caller must own the stream and c must not
// be the caller's own context.
func (m *Machine) Kill(c *Context) {
	if c == nil || c.retired || c.killed {
		return
	}
	c.killed = true
	c.wake <- struct{}{}
}

// Close refuses further bootstraps and waits for every bootstrapped context to
// end. Parked contexts must have been killed first.
func (m *Machine) Close() {
	m.closed = true
	m.wg.Wait()
}

// Flags returns the current flags word.
func (m *Machine) Flags() Flags { return m.flags }

// DisableIRQ masks the tick interrupt and returns the previous flags.
func (m *Machine) DisableIRQ() Flags {
	prev := m.flags
	m.flags |= IRQDisabled
	return prev
}

// RestoreIRQ restores flags returned by DisableIRQ.
func (m *Machine) RestoreIRQ(prev Flags) {
	m.flags = prev
}

// IRQEnabled reports whether the tick interrupt may be taken.
func (m *Machine) IRQEnabled() bool { return m.flags&IRQDisabled == 0 }

// Switches returns the number of completed handoffs.
func (m *Machine) Switches() uint64 { return m.switches }
