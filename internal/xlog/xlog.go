// Package xlog is the pipeline's logging convention: a component-prefixed
// wrapper over the standard library "log" package, in the style the teacher
// uses for its own "IE64: ..."/"IE32: ..." prefixed fmt.Printf calls.
package xlog

import (
	"log"
	"os"
)

// Logger prefixes every line with a component tag and can be silenced for
// tight translation loops via Trace.
type Logger struct {
	component string
	std       *log.Logger
	// Trace gates Tracef output; off by default, matching the teacher's
	// PerfEnabled-style opt-in debug flags.
	Trace bool
}

// New returns a Logger tagged with component, writing to stderr.
func New(component string) *Logger {
	return &Logger{
		component: component,
		std:       log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) Printf(format string, args ...any) {
	l.std.Printf(l.component+": "+format, args...)
}

func (l *Logger) Fatalf(format string, args ...any) {
	l.std.Fatalf(l.component+": "+format, args...)
}

// Tracef logs only when Trace is enabled; used for per-block/per-instruction
// diagnostics that would otherwise flood stderr.
func (l *Logger) Tracef(format string, args ...any) {
	if !l.Trace {
		return
	}
	l.std.Printf(l.component+": "+format, args...)
}
