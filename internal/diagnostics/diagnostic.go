// Package diagnostics holds the normalized diagnostic record shared by
// every compiler adapter and the static linter, plus the linter itself.
package diagnostics

import (
	"github.com/suoto/hdl-checker/internal/types"
)

// Severity is the normalized severity of a Diagnostic (spec §4.6).
type Severity int

const (
	None Severity = iota
	Info
	Warning
	Error
	StyleInfo
	StyleWarning
	StyleError
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	case StyleInfo:
		return "StyleInfo"
	case StyleWarning:
		return "StyleWarning"
	case StyleError:
		return "StyleError"
	default:
		return "None"
	}
}

// Diagnostic is the normalized record every compiler adapter and the
// static linter produce. Equality (see Equal) ignores Checker and
// compares Path via same-file semantics, per spec §4.6.
type Diagnostic struct {
	Checker   string // e.g. "msim", "ghdl", "HDL Code Checker/static"
	Path      *types.Path
	Line      *int // 1-based
	Column    *int // 1-based
	ErrorCode string
	Severity  Severity
	Text      string
}

// Equal compares two diagnostics per spec §4.6: the checker tag is
// ignored, and paths compare via same-file semantics rather than string
// equality.
func (d Diagnostic) Equal(other Diagnostic) bool {
	if !optIntEqual(d.Line, other.Line) || !optIntEqual(d.Column, other.Column) {
		return false
	}
	if d.ErrorCode != other.ErrorCode || d.Severity != other.Severity || d.Text != other.Text {
		return false
	}
	return pathEqual(d.Path, other.Path)
}

func optIntEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func pathEqual(a, b *types.Path) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.SameFile(*b)
}

// IntPtr is a small helper for building Diagnostic literals without a
// local variable for every optional line/column.
func IntPtr(v int) *int { return &v }

// PathPtr likewise for the optional Path field.
func PathPtr(p types.Path) *types.Path { return &p }
