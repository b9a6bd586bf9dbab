// Package monitoring carries the process-wide diagnostic logger shared
// by the matching pipeline, archive readers and CLI. It exists so tests
// can mute or capture log output and so alternative sinks can be wired
// in without touching call sites.
package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to
// log.Printf but may be replaced by SetLogger. Tests or production code
// can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that routes through Logf with a
// "[component]" prefix. The current Logf is resolved at call time, so
// loggers obtained before SetLogger still honor the swap.
func Prefixed(component string) func(format string, v ...interface{}) {
	prefix := fmt.Sprintf("[%s] ", component)
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
