package stimulus

import "github.com/arenalab/ethotrack/internal/arena"

// DefaultSpeedThreshold is the decoded displacement metric above which a
// subject counts as moving.
const DefaultSpeedThreshold = 0.0025

// IsMovingInteractor classifies the subject each frame as moving or sleeping
// from the precomputed log-displacement metric carried in the latest position
// record, avoiding any geometry recomputation.
//
// Result.Interacted is true when the subject is judged sleeping. No actuation
// is wired: this controller exposes the classification to downstream
// consumers and is the building block richer controllers start from.
type IsMovingInteractor struct {
	subject Subject

	speedThreshold float64

	// lastActive is the timestamp (ms) at which movement was last observed.
	lastActive int64
}

// NewIsMovingInteractor creates the classifier. A non-positive threshold
// falls back to DefaultSpeedThreshold.
func NewIsMovingInteractor(speedThreshold float64) *IsMovingInteractor {
	if speedThreshold <= 0 {
		speedThreshold = DefaultSpeedThreshold
	}
	return &IsMovingInteractor{speedThreshold: speedThreshold}
}

// Bind implements Interactor.
func (m *IsMovingInteractor) Bind(sub Subject) {
	m.subject = sub
}

// LastActive returns the timestamp (ms) of the most recent observed movement.
func (m *IsMovingInteractor) LastActive() int64 {
	return m.lastActive
}

// Apply implements Interactor.
func (m *IsMovingInteractor) Apply() (Result, error) {
	if m.subject == nil {
		return Result{}, ErrNotBound
	}

	positions := m.subject.Positions()
	if len(positions) < 2 {
		// not enough history to classify
		return Result{}, nil
	}

	last := positions[len(positions)-1]
	dist := arena.DecodeLogDistance(last.XYDistLog10x1000)
	if dist > m.speedThreshold {
		m.lastActive = last.TimeMs
		return Result{}, nil
	}
	return Result{Interacted: true}, nil
}
