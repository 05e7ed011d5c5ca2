// Package track defines the per-ROI tracking algorithm contract and a
// reference adaptive background-subtraction tracker.
//
// A Tracker instance is owned by exactly one tracking unit and is never
// shared, so implementations keep per-ROI state (background model, previous
// detection) without locking.
package track

import (
	"image"

	"github.com/arenalab/ethotrack/internal/arena"
)

// Tracker turns one cropped ROI image into zero or more position records.
//
// Returning an empty slice means "nothing detected this frame" and is not an
// error. A returned error is an unrecoverable vision-layer failure and aborts
// the whole run.
type Tracker interface {
	Track(timeMs int64, crop *image.Gray) ([]arena.Position, error)
}

// Factory builds one tracker per ROI at session setup. Selecting the tracker
// by configuration happens here, once, rather than by type inspection in the
// frame loop.
type Factory func(roi arena.ROI) Tracker
