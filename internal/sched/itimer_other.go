//go:build !linux

package sched

import "errors"

// ErrNoITimer is returned where the interval timer source is not supported.
var ErrNoITimer = errors.New("itimer tick source is only supported on linux")

// NewITimer is only available on linux.
func NewITimer() (TickSource, error) {
	return nil, ErrNoITimer
}
