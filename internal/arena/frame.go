package arena

import "image"

// Frame is one acquired camera image plus its acquisition timestamp in
// monotonic milliseconds since monitoring started.
//
// Ownership: the monitor owns a frame for exactly one iteration. All tracking
// units read it concurrently during that iteration and none mutate it. Sinks
// that need the pixels beyond the iteration (e.g. a video drawer) must copy.
type Frame struct {
	TimeMs int64
	Image  *image.Gray
}
