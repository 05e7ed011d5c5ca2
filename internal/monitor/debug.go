package monitor

import (
	"io"
	"log"
)

var (
	opsLogger   *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the two logging streams for the monitor package:
// ops (actionable warnings, run lifecycle) and trace (per-frame telemetry).
// Pass nil for a writer to disable that stream.
func SetLogWriters(ops, trace io.Writer) {
	opsLogger = newLogger(ops)
	traceLogger = newLogger(trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[monitor] ", log.LstdFlags|log.Lmicroseconds)
}

// opsf logs run lifecycle events and failures.
func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

// tracef logs high-frequency per-frame telemetry.
func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
