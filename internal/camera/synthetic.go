package camera

import (
	"sync"

	"github.com/arenalab/ethotrack/internal/arena"
)

// SyntheticCamera replays a programmed frame sequence. It backs dev mode and
// tests the same way a fixture-fed mock port stands in for real hardware.
type SyntheticCamera struct {
	mu     sync.Mutex
	frames []arena.Frame
	next   int
	closed bool
}

// NewSyntheticCamera returns a camera that yields the given frames in order
// and then reports ErrEndOfStream.
func NewSyntheticCamera(frames []arena.Frame) *SyntheticCamera {
	return &SyntheticCamera{frames: frames}
}

func (c *SyntheticCamera) NextFrame() (arena.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.next >= len(c.frames) {
		return arena.Frame{}, ErrEndOfStream
	}
	f := c.frames[c.next]
	c.next++
	return f, nil
}

func (c *SyntheticCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
