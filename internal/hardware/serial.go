package hardware

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/arenalab/ethotrack/internal/monitoring"
)

// SettleDelay is how long a channel is held after a deprive command before
// the next command may be written. It matches the mechanical actuation time
// of the output shield.
const SettleDelay = 500 * time.Millisecond

// SerialDepriver drives the sleep-deprivation outputs on the auxiliary
// microcontroller over a serial line. Commands are newline-terminated ASCII:
//
//	D <channel>
//
// A single command mutex serialises writes; concurrent interactors therefore
// queue at the port, not on the tracking path.
type SerialDepriver struct {
	port      io.WriteCloser
	available bool
	settle    time.Duration
	mu        sync.Mutex
}

// NewSerialDepriver opens the serial device at path. If the device cannot be
// opened the depriver is returned in unavailable mode rather than failing:
// a disconnected shield must never prevent acquisition from starting.
func NewSerialDepriver(path string, baud int) *SerialDepriver {
	if baud <= 0 {
		baud = 115200
	}
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		monitoring.Logf("depriver hardware not available at %s: %v", path, err)
		return &SerialDepriver{available: false}
	}
	return &SerialDepriver{port: port, available: true, settle: SettleDelay}
}

// NewDepriverWithPort wraps an already-open port. Used by tests and by
// alternative transports.
func NewDepriverWithPort(port io.WriteCloser) *SerialDepriver {
	return &SerialDepriver{port: port, available: true, settle: SettleDelay}
}

// Available implements Depriver.
func (d *SerialDepriver) Available() bool {
	return d.available
}

// Deprive implements Depriver. On unavailable hardware the action is dropped
// with a warning and no error, matching the availability contract.
func (d *SerialDepriver) Deprive(a Action) error {
	if !d.available {
		monitoring.Logf("depriver not attached, dropping action %s", a)
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cmd := fmt.Sprintf("D %d\n", a.Channel)
	n, err := d.port.Write([]byte(cmd))
	if err != nil {
		return fmt.Errorf("depriver write: %w", err)
	}
	if n != len(cmd) {
		return fmt.Errorf("depriver short write: %d of %d bytes", n, len(cmd))
	}
	time.Sleep(d.settle)
	return nil
}

// Close releases the serial port.
func (d *SerialDepriver) Close() error {
	if d.port == nil {
		return nil
	}
	return d.port.Close()
}
