package builders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/types"
)

// Xvhdl drives Xilinx's xvhdl, grounded on
// original_source/hdlcc/builders/xvhdl.py for the ini-file library
// mapping and the diagnostic/"please recompile" message shapes.
type Xvhdl struct{}

var (
	xvhdlDiagnosticRe = regexp.MustCompile(`(?i)^(ERROR|WARNING):\s*\[(\w+\s+[\w-]+)\]\s*(.*?)(?:\s*\[([^:\]]+):(\d+)\])?$`)
	xvhdlRecompileRe  = regexp.MustCompile(`(?i)please recompile\s+'?([^'\s]+)'?`)
)

func (Xvhdl) Name() string { return "xvhdl" }

func (Xvhdl) CheckEnvironment(ctx context.Context, r Runner) error {
	_, err := r.Run(ctx, []string{"xvhdl", "--version"})
	return err
}

func (Xvhdl) BuiltinLibraries() []string {
	return []string{"ieee", "std", "unisim", "unimacro", "xpm"}
}

func (Xvhdl) SupportedFileTypes() []types.FileType {
	return []types.FileType{types.VHDL}
}

func (Xvhdl) initFile(targetDir string) string {
	return filepath.Join(targetDir, "xvhdl.ini")
}

func (x Xvhdl) CreateLibrary(ctx context.Context, r Runner, targetDir string, source BuildSource) error {
	libPath := filepath.Join(targetDir, source.Library)
	if err := os.MkdirAll(libPath, 0o755); err != nil {
		return err
	}

	path := x.initFile(targetDir)
	existing, _ := os.ReadFile(path)
	entry := fmt.Sprintf("%s=%s", source.Library, libPath)
	if strings.Contains(string(existing), entry) {
		return nil
	}
	lines := append(nonEmptyLines(string(existing)), entry)
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func (x Xvhdl) BuildCommands(targetDir string, source BuildSource, flags []string) [][]string {
	cmd := []string{"xvhdl", "--nolog", "--initfile", x.initFile(targetDir), "--work", source.Library}
	cmd = append(cmd, flags...)
	cmd = append(cmd, source.Path.String())
	return [][]string{cmd}
}

func (Xvhdl) IgnoreLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "Vivado Simulator")
}

func (Xvhdl) ParseDiagnosticLine(line string) []diagnostics.Diagnostic {
	m := xvhdlDiagnosticRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	severity := diagnostics.Warning
	if strings.EqualFold(m[1], "ERROR") {
		severity = diagnostics.Error
	}
	d := diagnostics.Diagnostic{
		Checker:   "xvhdl",
		Severity:  severity,
		ErrorCode: m[2],
		Text:      m[3],
	}
	if m[4] != "" {
		p := types.NewPath(m[4])
		d.Path = &p
	}
	if m[5] != "" {
		if n, err := strconv.Atoi(m[5]); err == nil {
			d.Line = diagnostics.IntPtr(n)
		}
	}
	return []diagnostics.Diagnostic{d}
}

func (Xvhdl) ParseRebuildHintLine(line string) []RebuildHint {
	m := xvhdlRecompileRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	return []RebuildHint{{RebuildPath: m[1]}}
}
