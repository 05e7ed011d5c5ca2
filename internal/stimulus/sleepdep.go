package stimulus

import (
	"time"

	"github.com/arenalab/ethotrack/internal/hardware"
)

// Defaults for SleepDepInteractor.
const (
	// DefaultDistanceThreshold is the minimum inter-frame displacement, in
	// position units, counted as movement.
	DefaultDistanceThreshold = 1e-2
	// DefaultInactivityThreshold is how long a subject must stay below the
	// distance threshold before deprivation fires.
	DefaultInactivityThreshold = 90 * time.Second
)

// SleepDepInteractor detects a sustained inactivity streak at one ROI and
// fires a deprivation action on its hardware channel.
//
// It is a two-state machine driven purely by the displacement between the two
// most recent detections: a streak begins when displacement first drops below
// the distance threshold, and the interactor fires once — edge-triggered —
// when the streak outlives the inactivity threshold, resetting itself. Any
// qualifying movement also resets the streak.
type SleepDepInteractor struct {
	subject Subject
	dispatcher

	channel            int
	distanceThreshold  float64
	inactivityDuration time.Duration

	// t0 is the timestamp (ms) at which the current inactivity streak began;
	// negative means no streak in progress.
	t0 int64
}

// NewSleepDepInteractor creates an interactor driving the given channel
// through dep. Zero thresholds fall back to the defaults.
func NewSleepDepInteractor(channel int, dep hardware.Depriver, distanceThreshold float64, inactivity time.Duration) *SleepDepInteractor {
	if distanceThreshold <= 0 {
		distanceThreshold = DefaultDistanceThreshold
	}
	if inactivity <= 0 {
		inactivity = DefaultInactivityThreshold
	}
	return &SleepDepInteractor{
		dispatcher:         dispatcher{dep: dep},
		channel:            channel,
		distanceThreshold:  distanceThreshold,
		inactivityDuration: inactivity,
		t0:                 -1,
	}
}

// Bind implements Interactor.
func (s *SleepDepInteractor) Bind(sub Subject) {
	s.subject = sub
}

// Apply implements Interactor.
func (s *SleepDepInteractor) Apply() (Result, error) {
	if s.subject == nil {
		return Result{}, ErrNotBound
	}
	params := hardware.Action{Channel: s.channel}

	positions := s.subject.Positions()
	times := s.subject.Times()
	if len(positions) < 2 {
		return Result{Params: params}, nil
	}

	last := positions[len(positions)-1]
	prev := positions[len(positions)-2]

	if last.DistanceTo(prev) >= s.distanceThreshold {
		// subject moved; any streak in progress ends here
		s.t0 = -1
		return Result{Params: params}, nil
	}

	now := times[len(times)-1]
	if s.t0 < 0 {
		s.t0 = now
		return Result{Params: params}, nil
	}
	if now-s.t0 > s.inactivityDuration.Milliseconds() {
		s.t0 = -1
		s.dispatch(params)
		return Result{Interacted: true, Params: params}, nil
	}
	return Result{Params: params}, nil
}
