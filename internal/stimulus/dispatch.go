package stimulus

import (
	"sync/atomic"

	"github.com/arenalab/ethotrack/internal/hardware"
	"github.com/arenalab/ethotrack/internal/monitoring"
)

// dispatcher owns the asynchronous actuation path for one interactor. The
// in-flight flag enforces at-most-one concurrent action: a request arriving
// while a previous action is still running is dropped, not queued.
type dispatcher struct {
	dep      hardware.Depriver
	inFlight atomic.Bool
}

// dispatch fires the action on a fresh goroutine. Hardware errors are logged
// and absorbed; nothing on this path reaches the tracking loop.
func (d *dispatcher) dispatch(a hardware.Action) {
	if d.dep == nil {
		return
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		// previous action still running; drop rather than queue
		return
	}
	go func() {
		defer d.inFlight.Store(false)
		if err := d.dep.Deprive(a); err != nil {
			monitoring.Logf("actuation failed (%s): %v", a, err)
		}
	}()
}

// busy reports whether an action is currently in flight.
func (d *dispatcher) busy() bool {
	return d.inFlight.Load()
}
