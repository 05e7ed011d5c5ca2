// Package hardware provides the actuation interface the interactors drive:
// an auxiliary microcontroller reached over a serial line, with a mock for
// tests and dev mode.
//
// Actuation is best-effort by contract. Callers dispatch asynchronously and
// never treat a hardware failure as fatal to data acquisition.
package hardware

import "fmt"

// Action carries the named parameters of one actuation request.
type Action struct {
	// Channel selects which hardware output to fire.
	Channel int
}

func (a Action) String() string {
	return fmt.Sprintf("channel=%d", a.Channel)
}

// Depriver is the fire-and-forget actuation contract. Deprive may block for
// the duration of the physical action; callers run it off the tracking path.
type Depriver interface {
	// Deprive fires the action. Errors indicate a hardware-layer failure and
	// are logged by the caller, never propagated into the frame loop.
	Deprive(a Action) error

	// Available reports whether the output hardware was detected at startup.
	// An unavailable depriver accepts actions and drops them with a warning.
	Available() bool
}
