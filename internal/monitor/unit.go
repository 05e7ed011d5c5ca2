package monitor

import (
	"fmt"

	"github.com/arenalab/ethotrack/internal/arena"
	"github.com/arenalab/ethotrack/internal/stimulus"
	"github.com/arenalab/ethotrack/internal/track"
)

// TrackingUnit binds one ROI, one tracker instance and an optional interactor,
// and owns the append-only history of positions recorded for that ROI.
//
// Units are created once at session start and never reassigned. Track is
// called for exactly one unit at a time per frame slot in the worker pool;
// distinct units may run concurrently on the same frame because each touches
// only its own crop, its own tracker state and its own history.
type TrackingUnit struct {
	roi        arena.ROI
	tracker    track.Tracker
	interactor stimulus.Interactor

	positions []arena.Position
	times     []int64
}

// NewTrackingUnit builds a unit and binds the interactor to it. A nil
// interactor means the ROI is tracked without feedback.
func NewTrackingUnit(roi arena.ROI, tr track.Tracker, inter stimulus.Interactor) *TrackingUnit {
	u := &TrackingUnit{roi: roi, tracker: tr, interactor: inter}
	if inter != nil {
		inter.Bind(u)
	}
	return u
}

// ROI implements stimulus.Subject.
func (u *TrackingUnit) ROI() arena.ROI { return u.roi }

// Positions implements stimulus.Subject. The returned slice is the unit's
// live history; callers treat it as read-only.
func (u *TrackingUnit) Positions() []arena.Position { return u.positions }

// Times implements stimulus.Subject.
func (u *TrackingUnit) Times() []int64 { return u.times }

// Track crops the ROI from frame, runs the tracker, appends any resulting
// rows to the history, and applies the bound interactor. Tracker errors and
// interactor programming faults surface to the monitor; actuation failures
// never do (they are absorbed inside the dispatch path).
func (u *TrackingUnit) Track(timeMs int64, frame arena.Frame) ([]arena.Position, error) {
	crop := u.roi.Crop(frame.Image)
	rows, err := u.tracker.Track(timeMs, crop)
	if err != nil {
		return nil, fmt.Errorf("track roi %d: %w", u.roi.Idx, err)
	}
	for _, row := range rows {
		u.positions = append(u.positions, row)
		u.times = append(u.times, row.TimeMs)
	}

	if u.interactor != nil {
		if _, err := u.interactor.Apply(); err != nil {
			return nil, fmt.Errorf("interactor roi %d: %w", u.roi.Idx, err)
		}
	}
	return rows, nil
}

// LastPositions returns the most recent record as a one-element slice, or nil
// when the unit has no history yet. With absolute set the record
// is translated to full-frame coordinates.
func (u *TrackingUnit) LastPositions(absolute bool) []arena.Position {
	if len(u.positions) == 0 {
		return nil
	}
	last := u.positions[len(u.positions)-1]
	if absolute {
		last = last.Absolute(u.roi)
	}
	return []arena.Position{last}
}
