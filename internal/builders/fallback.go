package builders

import (
	"context"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/types"
)

// Fallback is the always-available backend used when no external compiler
// is configured or reachable (spec §4.4). It never shells out; Builder's
// static linter (internal/diagnostics) remains the only source of
// diagnostics for projects stuck on it.
type Fallback struct{}

func (Fallback) Name() string { return "fallback" }

func (Fallback) CheckEnvironment(context.Context, Runner) error { return nil }

func (Fallback) BuiltinLibraries() []string { return nil }

func (Fallback) SupportedFileTypes() []types.FileType {
	return []types.FileType{types.VHDL, types.Verilog, types.SystemVerilog}
}

func (Fallback) CreateLibrary(context.Context, Runner, string, BuildSource) error { return nil }

func (Fallback) BuildCommands(string, BuildSource, []string) [][]string { return nil }

func (Fallback) IgnoreLine(string) bool { return true }

func (Fallback) ParseDiagnosticLine(string) []diagnostics.Diagnostic { return nil }

func (Fallback) ParseRebuildHintLine(string) []RebuildHint { return nil }
