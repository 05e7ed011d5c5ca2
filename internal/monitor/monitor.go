// Package monitor contains the acquisition-tracking-actuation orchestrator.
//
// One Monitor drives one session: it pulls timestamped frames from a camera,
// fans the per-ROI tracking work across a fixed worker pool, barriers on the
// frame's completion, publishes a single consistent last-positions snapshot,
// and forwards results to the optional writer and drawer sinks. The loop is
// cooperative: a stop request or context cancellation takes effect at the
// next iteration boundary, after the in-flight frame has fully completed.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arenalab/ethotrack/internal/arena"
	"github.com/arenalab/ethotrack/internal/camera"
	"github.com/arenalab/ethotrack/internal/stimulus"
	"github.com/arenalab/ethotrack/internal/track"
)

// WorkerPoolSize is the number of concurrent per-ROI tracking slots. Sized
// for the target board's four cores; tracking work is CPU-bound so more
// workers than cores buys nothing.
const WorkerPoolSize = 4

// Construction errors.
var (
	ErrNoROIs             = errors.New("monitor: at least one ROI is required")
	ErrInteractorMismatch = errors.New("monitor: interactor count must equal ROI count")
)

// Monitor orchestrates tracking across all ROIs for one session.
type Monitor struct {
	cam   camera.Camera
	units []*TrackingUnit

	mu            sync.RWMutex
	lastPositions map[int][]arena.Position
	lastTimeMs    int64
	lastFrameIdx  int64
	running       bool

	stop atomic.Bool
}

// New creates a Monitor tracking the given ROIs. The factory builds one
// tracker per ROI. Interactors are optional; when supplied their count must
// equal the ROI count and the pairing is positional and fixed for the
// session. Both pairing violations and an empty ROI set fail here, at
// construction, not at runtime.
func New(cam camera.Camera, rois []arena.ROI, factory track.Factory, interactors []stimulus.Interactor) (*Monitor, error) {
	if len(rois) == 0 {
		return nil, ErrNoROIs
	}
	if interactors != nil && len(interactors) != len(rois) {
		return nil, fmt.Errorf("%w: %d interactors for %d rois", ErrInteractorMismatch, len(interactors), len(rois))
	}
	for _, roi := range rois {
		if err := roi.Validate(); err != nil {
			return nil, fmt.Errorf("monitor: %w", err)
		}
	}

	units := make([]*TrackingUnit, len(rois))
	for i, roi := range rois {
		var inter stimulus.Interactor
		if interactors != nil {
			inter = interactors[i]
		}
		units[i] = NewTrackingUnit(roi, factory(roi), inter)
	}
	return &Monitor{
		cam:           cam,
		units:         units,
		lastPositions: make(map[int][]arena.Position, len(units)),
	}, nil
}

// Units returns the session's tracking units, in ROI order.
func (m *Monitor) Units() []*TrackingUnit { return m.units }

// Stop requests cooperative shutdown. Safe to call from any goroutine. The
// run completes the current frame (including writer flush and drawer call)
// before terminating; there is no mid-frame abort.
func (m *Monitor) Stop() {
	m.stop.Store(true)
}

// IsRunning reports whether a run is in progress.
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastPositions returns a snapshot of the most recent completed frame's
// positions per ROI. An ROI that produced no detection on that frame has an
// empty (non-nil) entry.
func (m *Monitor) LastPositions() map[int][]arena.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int][]arena.Position, len(m.lastPositions))
	for idx, rows := range m.lastPositions {
		cp := make([]arena.Position, len(rows))
		copy(cp, rows)
		out[idx] = cp
	}
	return out
}

// LastTimeStamp returns seconds since monitoring started, per the most
// recently acquired frame. Zero before the first frame.
func (m *Monitor) LastTimeStamp() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.lastTimeMs) / 1e3
}

// LastFrameIdx returns the sequence index of the most recently acquired frame.
func (m *Monitor) LastFrameIdx() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastFrameIdx
}

// trackJob is one unit's work for one frame.
type trackJob struct {
	idx   int
	unit  *TrackingUnit
	frame arena.Frame
}

// trackResult is the outcome of one trackJob.
type trackResult struct {
	idx  int
	rows []arena.Position
	err  error
}

// Run executes the monitoring loop until the camera is exhausted, Stop is
// called, ctx is cancelled, or a stage fails. writer and drawer may be nil.
//
// Failure semantics: camera, tracker, writer and drawer errors end the run
// and propagate; one ROI's tracking failure fails the whole frame and with it
// the run. Actuation failures never surface here.
func (m *Monitor) Run(ctx context.Context, writer ResultWriter, drawer Drawer) (err error) {
	opsf("monitor starting a run: %d rois, %d workers", len(m.units), WorkerPoolSize)
	m.setRunning(true)
	defer func() {
		m.setRunning(false)
		if err != nil {
			opsf("monitor closing with error: %v", err)
		} else {
			opsf("monitor closing")
		}
	}()

	jobs := make(chan trackJob)
	// Buffered to the unit count so workers never block on delivery and the
	// loop can dispatch all jobs before collecting.
	results := make(chan trackResult, len(m.units))
	var workers sync.WaitGroup
	for w := 0; w < WorkerPoolSize; w++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for job := range jobs {
				rows, trackErr := job.unit.Track(job.frame.TimeMs, job.frame)
				results <- trackResult{idx: job.idx, rows: rows, err: trackErr}
			}
		}()
	}
	defer func() {
		close(jobs)
		workers.Wait()
	}()

	var frameIdx int64
	for {
		frame, camErr := m.cam.NextFrame()
		if errors.Is(camErr, camera.ErrEndOfStream) {
			opsf("camera exhausted after %d frames", frameIdx)
			return nil
		}
		if camErr != nil {
			return fmt.Errorf("monitor: camera: %w", camErr)
		}

		if m.stop.Load() || ctx.Err() != nil {
			opsf("monitor stopped from external request")
			return nil
		}

		m.mu.Lock()
		m.lastFrameIdx = frameIdx
		m.lastTimeMs = frame.TimeMs
		m.mu.Unlock()

		// Fan out one job per unit, then barrier: no frame n+1 work starts
		// until every unit has produced its frame n result.
		for i, u := range m.units {
			jobs <- trackJob{idx: i, unit: u, frame: frame}
		}

		frameResults := make([]trackResult, len(m.units))
		for range m.units {
			res := <-results
			frameResults[res.idx] = res
		}

		// One ROI's failure fails the frame; report the lowest ROI index for
		// determinism when several fail at once.
		for _, res := range frameResults {
			if res.err != nil {
				return fmt.Errorf("monitor: frame %d: %w", frameIdx, res.err)
			}
		}

		// Single-threaded aggregation: the map update completes before any
		// sink observes it.
		m.mu.Lock()
		for i, res := range frameResults {
			idx := m.units[i].ROI().Idx
			if len(res.rows) == 0 {
				m.lastPositions[idx] = []arena.Position{}
				continue
			}
			m.lastPositions[idx] = m.units[i].LastPositions(true)
		}
		m.mu.Unlock()

		if writer != nil {
			for i, res := range frameResults {
				if len(res.rows) == 0 {
					continue
				}
				if err := writer.Write(frame.TimeMs, m.units[i].ROI(), res.rows); err != nil {
					return fmt.Errorf("monitor: write frame %d: %w", frameIdx, err)
				}
			}
			if err := writer.Flush(frame.TimeMs, frame); err != nil {
				return fmt.Errorf("monitor: flush frame %d: %w", frameIdx, err)
			}
		}

		if drawer != nil {
			if err := drawer.Draw(frame, m.LastPositions(), m.units); err != nil {
				return fmt.Errorf("monitor: draw frame %d: %w", frameIdx, err)
			}
		}

		tracef("frame %d complete t=%dms", frameIdx, frame.TimeMs)
		frameIdx++
	}
}

func (m *Monitor) setRunning(v bool) {
	m.mu.Lock()
	m.running = v
	m.mu.Unlock()
}
