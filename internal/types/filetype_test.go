package types

import "testing"

func TestFileTypeOf(t *testing.T) {
	cases := map[string]FileType{
		"foo.vhd":  VHDL,
		"foo.vhdl": VHDL,
		"foo.v":    Verilog,
		"foo.vh":   Verilog,
		"foo.sv":   SystemVerilog,
		"foo.svh":  SystemVerilog,
		"FOO.VHD":  VHDL,
	}
	for path, want := range cases {
		got, err := FileTypeOf(path)
		if err != nil {
			t.Fatalf("FileTypeOf(%q): unexpected error %v", path, err)
		}
		if got != want {
			t.Errorf("FileTypeOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestFileTypeOfUnknownExtension(t *testing.T) {
	if _, err := FileTypeOf("foo.txt"); err == nil {
		t.Fatal("expected an error for an unrecognized extension")
	}
}

func TestIsHeader(t *testing.T) {
	if !IsHeader("pkg.vh") || !IsHeader("pkg.svh") {
		t.Fatal("expected .vh/.svh to be headers")
	}
	if IsHeader("pkg.v") || IsHeader("pkg.vhd") {
		t.Fatal("did not expect .v/.vhd to be headers")
	}
}

func TestCaseSensitivity(t *testing.T) {
	if VHDL.CaseSensitive() {
		t.Fatal("VHDL identifiers must be case-insensitive")
	}
	if !Verilog.CaseSensitive() || !SystemVerilog.CaseSensitive() {
		t.Fatal("Verilog/SystemVerilog identifiers must be case-sensitive")
	}
}
