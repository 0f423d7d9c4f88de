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

// ModelSim drives vcom/vlog/vlib/vmap, grounded on
// original_source/hdlcc/builders/msim.py and the command shapes in
// daedaleanai-dbt-rules/RULES/hdl/questa.go.
type ModelSim struct{}

var (
	msimDiagnosticRe = regexp.MustCompile(`(?i)^\*\*\s*(Error|Warning)(?:\s*\(vcom-\d+\))?:\s*(?:([^\(\s][^\(]*)\((\d+)\):\s*)?(.*)$`)
	msimRebuildRe    = regexp.MustCompile(`(?i)Recompile\s+'?(\w+)\.(\w+)'?\s+because\s+'?(?:\w+\.)?(\w+)'?\s+has changed`)
)

func (ModelSim) Name() string { return "msim" }

func (ModelSim) CheckEnvironment(ctx context.Context, r Runner) error {
	_, err := r.Run(ctx, []string{"vcom", "-version"})
	return err
}

func (ModelSim) BuiltinLibraries() []string {
	return []string{"ieee", "std", "modelsim_lib", "synopsys", "vital2000"}
}

func (ModelSim) SupportedFileTypes() []types.FileType {
	return []types.FileType{types.VHDL, types.Verilog, types.SystemVerilog}
}

func (ModelSim) CreateLibrary(ctx context.Context, r Runner, targetDir string, source BuildSource) error {
	libPath := filepath.Join(targetDir, source.Library)
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		if _, err := r.Run(ctx, []string{"vlib", libPath}); err != nil {
			return err
		}
	}
	_, err := r.Run(ctx, []string{"vmap", source.Library, libPath})
	return err
}

func (ModelSim) BuildCommands(targetDir string, source BuildSource, flags []string) [][]string {
	compiler := "vcom"
	if ft, err := types.FileTypeOf(source.Path.String()); err == nil && ft != types.VHDL {
		compiler = "vlog"
	}
	cmd := append([]string{compiler, "-work", source.Library}, flags...)
	cmd = append(cmd, source.Path.String())
	return [][]string{cmd}
}

func (ModelSim) IgnoreLine(line string) bool {
	return line == "" || line == "Model Technology ModelSim compiler" || line == "-- Loading package standard"
}

func (ModelSim) ParseDiagnosticLine(line string) []diagnostics.Diagnostic {
	m := msimDiagnosticRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	severity := diagnostics.Warning
	if m[1] == "Error" {
		severity = diagnostics.Error
	}
	d := diagnostics.Diagnostic{
		Checker:  "msim",
		Severity: severity,
		Text:     m[4],
	}
	if m[2] != "" {
		p := types.NewPath(m[2])
		d.Path = &p
	}
	if m[3] != "" {
		if n, err := strconv.Atoi(m[3]); err == nil {
			d.Line = diagnostics.IntPtr(n)
		}
	}
	return []diagnostics.Diagnostic{d}
}

func (ModelSim) ParseRebuildHintLine(line string) []RebuildHint {
	m := msimRebuildRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	return []RebuildHint{{Library: m[1], Unit: m[2]}}
}
