// Package parser implements the lexical design-unit and dependency
// extraction described in spec §4.1: no full HDL grammar, just enough
// pattern matching to recover design-unit declarations and cross-unit
// references. Parsers are pure over file bytes plus the owning library
// name and are safe to call concurrently on distinct files.
package parser

import (
	"os"
	"unicode/utf8"

	"github.com/suoto/hdl-checker/internal/types"
)

// Result is the output contract of a single-file parse: the design units
// it declares and the dependencies it references.
type Result struct {
	DesignUnits  []types.DesignUnit
	Dependencies []types.DependencySpec
}

// ReadSource decodes file contents as UTF-8 with replacement on invalid
// sequences, matching spec §4.1 ("latin-1/utf-8 with replacement on
// decode errors"). Go's utf8 package already treats invalid bytes as the
// replacement rune when ranging over a string, so decoding here amounts
// to reading the bytes and converting them to a string; toValidUTF8 makes
// the replacement explicit for any deliberately malformed input.
func ReadSource(path types.Path) (string, error) {
	raw, err := os.ReadFile(path.String())
	if err != nil {
		return "", err
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return toValidUTF8(string(raw)), nil
}

func toValidUTF8(s string) string {
	out := make([]rune, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, utf8.RuneError)
			i++
			continue
		}
		out = append(out, r)
		i += size
	}
	return string(out)
}

// Parse dispatches to the VHDL or Verilog/SystemVerilog parser based on
// the file's type and the owning library name.
func Parse(path types.Path, ft types.FileType, library string) (Result, error) {
	src, err := ReadSource(path)
	if err != nil {
		return Result{}, err
	}
	switch ft {
	case types.VHDL:
		return ParseVHDL(path, src, library), nil
	default:
		return ParseVerilog(path, src, ft, library), nil
	}
}

// elideSelfDependencies removes dependencies that refer to a unit defined
// by the same source file (spec §4.1, §8 boundary behavior).
func elideSelfDependencies(units []types.DesignUnit, deps []types.DependencySpec, ownerLibrary string, caseSensitive bool) []types.DependencySpec {
	defined := make(map[string]bool, len(units))
	for _, u := range units {
		defined[u.Name.Key()] = true
	}

	out := make([]types.DependencySpec, 0, len(deps))
	for _, d := range deps {
		if d.Library == ownerLibrary {
			id := types.NewIdentifier(d.Unit.Name(), caseSensitive)
			if defined[id.Key()] {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}
