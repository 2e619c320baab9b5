// Package astartelog defines the small logging seam the connection state
// machine and device facade log through, so a caller with an actual
// logging stack can plug in without this module taking an opinion on
// one.
//
// Grounded on services/heartbeat/service.go's and cmd/boardtest/main.go's
// own convention — a level word followed by a colon, printed with the
// builtin println — generalized from a hardcoded call site into an
// interface so a caller can swap in something structured.
package astartelog

import "fmt"

// Logger is the seam. Nil is never passed to a log call: Default is used
// wherever a caller leaves a Logger field unset.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Default prints through the builtin println, one level-prefixed line per
// call, matching the teacher's own "Info:"/"Error:" convention.
var Default Logger = printLogger{}

type printLogger struct{}

func (printLogger) Debugf(format string, args ...any) { println("Debug:", fmt.Sprintf(format, args...)) }
func (printLogger) Infof(format string, args ...any)  { println("Info:", fmt.Sprintf(format, args...)) }
func (printLogger) Warnf(format string, args ...any)  { println("Warn:", fmt.Sprintf(format, args...)) }
func (printLogger) Errorf(format string, args ...any) { println("Error:", fmt.Sprintf(format, args...)) }

// Nop discards every line. Useful for tests that would otherwise spam
// stderr with handshake-retry noise.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
