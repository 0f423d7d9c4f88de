package diagnostics

import (
	"testing"

	"github.com/suoto/hdl-checker/internal/types"
)

func TestLintVHDLUnusedSignal(t *testing.T) {
	src := `
entity foo is
end entity;

architecture rtl of foo is
  signal neat_signal : std_logic;
begin
end architecture;
`
	path := types.NewPath("foo.vhd")
	diags := LintVHDL(path, src)

	var found bool
	for _, d := range diags {
		if d.Severity == StyleWarning && d.Text == "signal 'neat_signal' is never used" && d.Checker == staticChecker {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unused-signal StyleWarning, got %+v", diags)
	}
}

func TestLintVHDLUsedSignalNotFlagged(t *testing.T) {
	src := `
architecture rtl of foo is
  signal clk : std_logic;
begin
  clk <= '0';
end architecture;
`
	diags := LintVHDL(types.NewPath("foo.vhd"), src)
	for _, d := range diags {
		if d.Text == "signal 'clk' is never used" {
			t.Fatalf("clk is referenced in an assignment and must not be flagged: %+v", diags)
		}
	}
}

func TestLintVHDLCommentTags(t *testing.T) {
	src := "-- TODO: wire up reset\nentity foo is end entity;"
	diags := LintVHDL(types.NewPath("foo.vhd"), src)

	var found bool
	for _, d := range diags {
		if d.Text == "TODO: wire up reset" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a TODO comment-tag diagnostic, got %+v", diags)
	}
}

func TestLintStopsAtProcessKeyword(t *testing.T) {
	src := `
architecture rtl of foo is
  signal a : std_logic;
begin
  process(a)
  begin
  end process;
  signal b : std_logic;
end architecture;
`
	diags := LintVHDL(types.NewPath("foo.vhd"), src)
	for _, d := range diags {
		if d.Text == "signal 'b' is never used" {
			t.Fatal("scanning must stop at the first process keyword, so 'b' should never be considered")
		}
	}
}

func TestDiagnosticEqualityIgnoresChecker(t *testing.T) {
	path := types.NewPath("foo.vhd")
	a := Diagnostic{Checker: "msim", Path: PathPtr(path), Line: IntPtr(1), Severity: Error, Text: "boom"}
	b := Diagnostic{Checker: "ghdl", Path: PathPtr(path), Line: IntPtr(1), Severity: Error, Text: "boom"}
	if !a.Equal(b) {
		t.Fatal("diagnostic equality must ignore the checker tag")
	}
}
