package builders

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/types"
)

// GHDL drives ghdl -i/-a, grounded on
// original_source/hdlcc/builders/ghdl.py and the import/analyze split in
// daedaleanai-dbt-rules/RULES/hdl/xsim.go (GHDL only ever compiles VHDL).
type GHDL struct{}

var (
	ghdlDiagnosticRe = regexp.MustCompile(`(?i)^([^:]+):(\d+):(\d+):\s*(error|warning)?:?\s*(.*)$`)
	ghdlObsoleteRe   = regexp.MustCompile(`(?i)(\w+)\s+"(\w+)"\s+is obsoleted by\s+(?:\w+\s+)?"(\w+)"`)
)

func (GHDL) Name() string { return "ghdl" }

func (GHDL) CheckEnvironment(ctx context.Context, r Runner) error {
	_, err := r.Run(ctx, []string{"ghdl", "--version"})
	return err
}

func (GHDL) BuiltinLibraries() []string {
	return []string{"ieee", "std"}
}

func (GHDL) SupportedFileTypes() []types.FileType {
	return []types.FileType{types.VHDL}
}

func (g GHDL) CreateLibrary(ctx context.Context, r Runner, targetDir string, source BuildSource) error {
	libDir := filepath.Join(targetDir, source.Library)
	return os.MkdirAll(libDir, 0o755)
}

func (g GHDL) BuildCommands(targetDir string, source BuildSource, flags []string) [][]string {
	workdir := filepath.Join(targetDir, source.Library)
	base := []string{"--workdir=" + workdir, "--work=" + source.Library}

	importCmd := append([]string{"ghdl", "-i"}, base...)
	importCmd = append(importCmd, source.Path.String())

	analyzeCmd := append([]string{"ghdl", "-a"}, base...)
	analyzeCmd = append(analyzeCmd, flags...)
	analyzeCmd = append(analyzeCmd, source.Path.String())

	return [][]string{importCmd, analyzeCmd}
}

func (GHDL) IgnoreLine(line string) bool {
	return line == ""
}

func (GHDL) ParseDiagnosticLine(line string) []diagnostics.Diagnostic {
	m := ghdlDiagnosticRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	severity := diagnostics.Error
	if m[4] == "warning" {
		severity = diagnostics.Warning
	}
	p := types.NewPath(m[1])
	lineNo, _ := strconv.Atoi(m[2])
	colNo, _ := strconv.Atoi(m[3])
	return []diagnostics.Diagnostic{{
		Checker:  "ghdl",
		Path:     &p,
		Line:     diagnostics.IntPtr(lineNo),
		Column:   diagnostics.IntPtr(colNo),
		Severity: severity,
		Text:     m[5],
	}}
}

func (GHDL) ParseRebuildHintLine(line string) []RebuildHint {
	m := ghdlObsoleteRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	return []RebuildHint{{Library: "work", Unit: m[3]}}
}
