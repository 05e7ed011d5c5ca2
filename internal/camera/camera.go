// Package camera provides the frame source contract consumed by the monitor,
// plus the in-memory and on-disk sources used in dev mode and tests. Real
// acquisition hardware sits behind the same interface in a separate build.
package camera

import (
	"errors"

	"github.com/arenalab/ethotrack/internal/arena"
)

// ErrEndOfStream is returned by NextFrame when the source has no more frames.
// It is the clean-termination signal: the monitor ends the run without error.
var ErrEndOfStream = errors.New("camera: end of stream")

// Camera produces a lazy sequence of timestamped frames. Timestamps are
// monotonic milliseconds since the first frame. A Camera may be finite (file
// playback) or run until Close.
type Camera interface {
	// NextFrame blocks until the next frame is available and returns it.
	// Returns ErrEndOfStream when the source is exhausted.
	NextFrame() (arena.Frame, error)
	Close() error
}
