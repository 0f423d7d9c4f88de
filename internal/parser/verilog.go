package parser

import (
	"regexp"
	"strings"

	"github.com/suoto/hdl-checker/internal/types"
)

var (
	verilogBlockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	verilogLineCommentRe  = regexp.MustCompile(`//.*$`)
	verilogModuleRe       = regexp.MustCompile(`\bmodule\s+(\w+)\b`)
	verilogPackageRe      = regexp.MustCompile(`\bpackage\s+(\w+)\s*;`)
	// import is the closest Verilog-family construct to a VHDL "use"
	// clause; instantiation references are intentionally not mined
	// (spec §4.1: "dependency is via use-like constructs only").
	verilogImportRe = regexp.MustCompile(`\bimport\s+(\w+)::`)
)

// ParseVerilog extracts design units and dependencies from Verilog or
// SystemVerilog source text. Identifiers are always case-sensitive.
func ParseVerilog(path types.Path, src string, ft types.FileType, library string) Result {
	stripped := verilogBlockCommentRe.ReplaceAllString(src, "")

	var units []types.DesignUnit
	var deps []types.DependencySpec

	lines := strings.Split(stripped, "\n")
	for i, raw := range lines {
		line := verilogLineCommentRe.ReplaceAllString(raw, "")
		lineNo := i + 1

		if m := verilogModuleRe.FindStringSubmatchIndex(line); m != nil {
			name := line[m[2]:m[3]]
			units = append(units, types.DesignUnit{
				Path:      path,
				Kind:      types.EntityUnit,
				Name:      types.NewIdentifier(name, true),
				Locations: []types.Location{{Line: lineNo, Column: m[0] + 1}},
			})
		}
		if m := verilogPackageRe.FindStringSubmatchIndex(line); m != nil {
			name := line[m[2]:m[3]]
			units = append(units, types.DesignUnit{
				Path:      path,
				Kind:      types.PackageUnit,
				Name:      types.NewIdentifier(name, true),
				Locations: []types.Location{{Line: lineNo, Column: m[0] + 1}},
			})
		}
		for _, m := range verilogImportRe.FindAllStringSubmatchIndex(line, -1) {
			pkg := line[m[2]:m[3]]
			deps = append(deps, types.DependencySpec{
				OwnerPath: path,
				Library:   library,
				Unit:      types.NewIdentifier(pkg, true),
				Locations: []types.Location{{Line: lineNo, Column: m[0] + 1}},
			})
		}
	}

	deps = elideSelfDependencies(units, deps, library, true)
	return Result{DesignUnits: units, Dependencies: deps}
}
