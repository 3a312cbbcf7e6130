// Package monitoring is the engine's diagnostic logging indirection. The
// query layers log through Logf so embedders and tests can redirect or
// mute diagnostics without touching the stdlib default logger.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, log.Printf unless replaced.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
