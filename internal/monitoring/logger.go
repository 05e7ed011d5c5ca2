// Package monitoring holds the shared diagnostic logging hook. Packages log
// through Logf so a supervising process (or a test) can redirect or silence
// the whole tree with one call.
package monitoring

import "log"

// Logf is the process-wide diagnostic logger. Defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. A nil argument installs a no-op logger, which is
// how tests mute expected warnings.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
