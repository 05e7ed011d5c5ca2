// Package stimulus implements the feedback controllers ("interactors") that
// consume a tracking unit's history each frame and may fire hardware
// actuation in response.
//
// Interactors are small per-ROI state machines. Each is bound to exactly one
// tracking unit before first use and evaluated once per frame from that
// unit's tracking call. Actuation is dispatched asynchronously with an
// at-most-one-in-flight guard; it is best-effort and never blocks or aborts
// the tracking loop.
package stimulus

import (
	"errors"

	"github.com/arenalab/ethotrack/internal/arena"
	"github.com/arenalab/ethotrack/internal/hardware"
)

// ErrNotBound is returned by Apply when the interactor was never bound to a
// tracking unit. This is a programming fault and aborts the run.
var ErrNotBound = errors.New("stimulus: interactor not bound to a tracking unit")

// Subject is the read surface an interactor consumes: the bound tracking
// unit's accumulated history. Histories are append-only and read here only
// from the unit's own tracking call, so no locking is involved.
type Subject interface {
	// Positions returns the unit's full position history, oldest first.
	Positions() []arena.Position
	// Times returns the timestamps (ms) matching Positions.
	Times() []int64
	// ROI returns the region the unit tracks.
	ROI() arena.ROI
}

// Result is one evaluation outcome.
type Result struct {
	// Interacted reports whether the controller's condition held this frame
	// (a deprivation fired, or the subject was classified as sleeping).
	Interacted bool
	// Params carries the actuation parameters, whether or not an action was
	// dispatched.
	Params hardware.Action
}

// Interactor is the per-ROI feedback controller contract.
type Interactor interface {
	// Bind attaches the interactor to its tracking unit. Called exactly once
	// before the first Apply; interactors are never rebound.
	Bind(s Subject)

	// Apply evaluates the controller against the bound unit's history and
	// dispatches actuation when the decision is "act". Returns ErrNotBound
	// if Bind was never called.
	Apply() (Result, error)
}
