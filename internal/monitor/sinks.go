package monitor

import "github.com/arenalab/ethotrack/internal/arena"

// ResultWriter receives tracking output for durable storage. Write is called
// once per ROI per frame (only for ROIs that produced rows); Flush is called
// once per frame after all writes, marking the frame complete.
type ResultWriter interface {
	Write(timeMs int64, roi arena.ROI, rows []arena.Position) error
	Flush(timeMs int64, frame arena.Frame) error
}

// Drawer renders or records a completed frame. It is invoked after the writer
// flush with the frame, the fully-resolved last-positions snapshot and the
// unit list. Implementations must copy any pixels they keep.
type Drawer interface {
	Draw(frame arena.Frame, lastPositions map[int][]arena.Position, units []*TrackingUnit) error
}
