// Package diag implements the diagnostics sink shared by every compiler
// phase.  The teacher returns a single Go error per failure; subc has five
// phases that must accumulate many errors per invocation (§7 of the
// specification), so diagnostics are a value type collected in a Sink and
// handed back to the driver rather than an error implementing `error`.
package diag

import (
	"fmt"
	"io"

	"github.com/skx/subc/source"
)

// Severity classifies a diagnostic.  Only Error and Fatal cause the build
// to fail; Info and Warning are purely informational.
type Severity int

// The four severities named in §7.
const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String renders a severity the way it appears in a diagnostic line.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported problem: a file, a location, a severity and
// a message.
type Diagnostic struct {
	File     string
	Pos      source.Position
	Severity Severity
	Message  string
}

// String renders a diagnostic as "<file>:<line>:<col>: <severity>: <msg>".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s: %s", d.File, d.Pos, d.Severity, d.Message)
}

// Sink accumulates diagnostics produced while processing a single file.
// Each phase is handed the same sink so the driver can print one combined
// report; a Sink is never shared between two independent compilations
// (§5 - compiling N files means N fresh cores, each with its own Sink).
type Sink struct {
	file  string
	items []Diagnostic
}

// NewSink creates an empty sink for the named file.
func NewSink(file string) *Sink {
	return &Sink{file: file}
}

// Add records a diagnostic at the given severity and position.
func (s *Sink) Add(sev Severity, pos source.Position, format string, args ...interface{}) {
	s.items = append(s.items, Diagnostic{
		File:     s.file,
		Pos:      pos,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Errorf records an Error-severity diagnostic.
func (s *Sink) Errorf(pos source.Position, format string, args ...interface{}) {
	s.Add(Error, pos, format, args...)
}

// Warnf records a Warning-severity diagnostic.
func (s *Sink) Warnf(pos source.Position, format string, args ...interface{}) {
	s.Add(Warning, pos, format, args...)
}

// Fatalf records a Fatal-severity diagnostic.  Used by the IR builder and
// emitter, which fail fast on their first problem (§7) rather than
// accumulating.
func (s *Sink) Fatalf(pos source.Position, format string, args ...interface{}) {
	s.Add(Fatal, pos, format, args...)
}

// Diagnostics returns every diagnostic recorded so far, in report order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.items
}

// HasErrors reports whether any Error or Fatal diagnostic was recorded.
// Warnings alone never fail the build (§7).
func (s *Sink) HasErrors() bool {
	for _, d := range s.items {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of Error/Fatal diagnostics recorded.
func (s *Sink) ErrorCount() int {
	n := 0
	for _, d := range s.items {
		if d.Severity >= Error {
			n++
		}
	}
	return n
}

// WarningCount returns the number of Warning diagnostics recorded.
func (s *Sink) WarningCount() int {
	n := 0
	for _, d := range s.items {
		if d.Severity == Warning {
			n++
		}
	}
	return n
}

// Fprint writes every diagnostic, one per line, followed by a summary
// line reporting the total error and warning counts (§7).
func (s *Sink) Fprint(w io.Writer) {
	for _, d := range s.items {
		fmt.Fprintln(w, d.String())
	}
	fmt.Fprintf(w, "%d error(s), %d warning(s)\n", s.ErrorCount(), s.WarningCount())
}
