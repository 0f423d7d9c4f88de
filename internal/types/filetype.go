package types

import (
	"path/filepath"
	"strings"

	"github.com/suoto/hdl-checker/internal/hdlerrors"
)

// FileType is the HDL dialect of a source file, derived from its
// extension.
type FileType string

const (
	VHDL          FileType = "vhdl"
	Verilog       FileType = "verilog"
	SystemVerilog FileType = "systemverilog"
)

var extensionTable = map[string]FileType{
	".vhd":  VHDL,
	".vhdl": VHDL,
	".v":    Verilog,
	".vh":   Verilog,
	".sv":   SystemVerilog,
	".svh":  SystemVerilog,
}

// headerExtensions are Verilog-family header files: never added as
// compile units, but their containing directory feeds an include-path
// flag bundle (spec §4.2).
var headerExtensions = map[string]bool{
	".vh":  true,
	".svh": true,
}

// FileTypeOf derives the FileType from a path's extension. Any extension
// outside the table is an UnknownTypeExtension error.
func FileTypeOf(path string) (FileType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	ft, ok := extensionTable[ext]
	if !ok {
		return "", &hdlerrors.UnknownTypeExtension{Path: path, Ext: ext}
	}
	return ft, nil
}

// IsHeader reports whether path is a Verilog/SystemVerilog header file
// that should never become a compile unit.
func IsHeader(path string) bool {
	return headerExtensions[strings.ToLower(filepath.Ext(path))]
}

// CaseSensitive reports whether identifiers declared in a file of this
// type compare case-sensitively. VHDL never is; Verilog/SystemVerilog
// always is.
func (ft FileType) CaseSensitive() bool {
	return ft != VHDL
}

func (ft FileType) String() string { return string(ft) }
