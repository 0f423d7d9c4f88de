package parser

import (
	"testing"

	"github.com/suoto/hdl-checker/internal/types"
)

func TestParseVerilogModule(t *testing.T) {
	src := `
// top module
module Foo (input clk);
endmodule
`
	res := ParseVerilog(types.NewPath("foo.v"), src, types.Verilog, "work")
	if len(res.DesignUnits) != 1 || !res.DesignUnits[0].Name.EqualString("Foo") {
		t.Fatalf("expected module Foo, got %+v", res.DesignUnits)
	}
}

func TestParseVerilogCaseSensitiveResolutionDoesNotMatchDifferentCase(t *testing.T) {
	res := ParseVerilog(types.NewPath("foo.v"), "module Foo; endmodule", types.Verilog, "work")
	if res.DesignUnits[0].Name.EqualString("foo") {
		t.Fatal("Verilog module names must compare case-sensitively")
	}
}

func TestParseSystemVerilogImportDependency(t *testing.T) {
	src := `
package pkg;
endpackage

module top;
  import pkg::*;
endmodule
`
	res := ParseVerilog(types.NewPath("top.sv"), src, types.SystemVerilog, "work")
	var names []string
	for _, u := range res.DesignUnits {
		names = append(names, u.Name.Name())
	}
	if len(names) != 2 {
		t.Fatalf("expected package and module units, got %v", names)
	}
	if len(res.Dependencies) != 0 {
		t.Fatalf("import of a package defined in the same file must be self-elided, got %+v", res.Dependencies)
	}
}

func TestParseVerilogBlockCommentStripped(t *testing.T) {
	src := "/* block\ncomment */ module Foo; endmodule"
	res := ParseVerilog(types.NewPath("foo.v"), src, types.Verilog, "work")
	if len(res.DesignUnits) != 1 {
		t.Fatalf("expected module to be found past a stripped block comment, got %+v", res.DesignUnits)
	}
}
