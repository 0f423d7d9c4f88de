package parser

import (
	"regexp"
	"strings"

	"github.com/suoto/hdl-checker/internal/types"
)

var (
	vhdlCommentRe     = regexp.MustCompile(`--.*$`)
	vhdlEntityRe      = regexp.MustCompile(`(?i)^\s*entity\s+(\w+)\s+is\b`)
	vhdlArchRe        = regexp.MustCompile(`(?i)^\s*architecture\s+(\w+)\s+of\s+(\w+)\b`)
	vhdlPackageBodyRe = regexp.MustCompile(`(?i)^\s*package\s+body\s+(\w+)\s+is\b`)
	vhdlPackageRe     = regexp.MustCompile(`(?i)^\s*package\s+(\w+)\s+is\b`)
	vhdlContextRe     = regexp.MustCompile(`(?i)^\s*context\s+(\w+)\s+is\b`)
	vhdlLibraryRe     = regexp.MustCompile(`(?i)^\s*library\s+([\w,\s]+);`)
	vhdlUseRe         = regexp.MustCompile(`(?i)\buse\s+(\w+)\.(\w+)(?:\.\w+)?\s*;`)
)

// ParseVHDL extracts design units and dependencies from VHDL source text
// belonging to the given library. See spec §4.1 and the package-body
// resolution recorded in SPEC_FULL.md §6.1.
func ParseVHDL(path types.Path, src string, library string) Result {
	var units []types.DesignUnit
	var deps []types.DependencySpec

	lines := strings.Split(src, "\n")
	stripped := make([]string, len(lines))
	for i, raw := range lines {
		stripped[i] = vhdlCommentRe.ReplaceAllString(raw, "")
	}

	declared := declaredLibraries(stripped)

	for i, line := range stripped {
		lineNo := i + 1

		if m := vhdlPackageBodyRe.FindStringSubmatch(line); m != nil {
			// Package bodies are not a design-unit kind; they become a
			// self-dependency on the package they implement instead.
			deps = append(deps, types.DependencySpec{
				OwnerPath: path,
				Library:   library,
				Unit:      types.NewIdentifier(m[1], false),
				Locations: []types.Location{{Line: lineNo, Column: vhdlPackageBodyRe.FindStringIndex(line)[0] + 1}},
			})
			continue
		}
		if m := vhdlEntityRe.FindStringSubmatch(line); m != nil {
			units = append(units, types.DesignUnit{
				Path:      path,
				Kind:      types.EntityUnit,
				Name:      types.NewIdentifier(m[1], false),
				Locations: []types.Location{{Line: lineNo, Column: 1}},
			})
			continue
		}
		if m := vhdlArchRe.FindStringSubmatch(line); m != nil {
			// An architecture references the entity it implements; if
			// that entity lives in this same file the reference is
			// elided as a self-dependency below.
			deps = append(deps, types.DependencySpec{
				OwnerPath: path,
				Library:   library,
				Unit:      types.NewIdentifier(m[2], false),
				Locations: []types.Location{{Line: lineNo, Column: 1}},
			})
			continue
		}
		if m := vhdlPackageRe.FindStringSubmatch(line); m != nil {
			units = append(units, types.DesignUnit{
				Path:      path,
				Kind:      types.PackageUnit,
				Name:      types.NewIdentifier(m[1], false),
				Locations: []types.Location{{Line: lineNo, Column: 1}},
			})
			continue
		}
		if m := vhdlContextRe.FindStringSubmatch(line); m != nil {
			units = append(units, types.DesignUnit{
				Path:      path,
				Kind:      types.ContextUnit,
				Name:      types.NewIdentifier(m[1], false),
				Locations: []types.Location{{Line: lineNo, Column: 1}},
			})
			continue
		}
		if vhdlLibraryRe.MatchString(line) {
			// Already folded into declared (declaredLibraries scans the
			// whole file up front, matching the original's accumulating
			// libraries list); nothing left to do on this line itself.
			continue
		}

		for _, m := range vhdlUseRe.FindAllStringSubmatchIndex(line, -1) {
			lib := line[m[2]:m[3]]
			unit := line[m[4]:m[5]]
			if !declared[strings.ToLower(lib)] {
				// Not yet declared via a library clause anywhere in this
				// file: not recognized, per SPEC_FULL.md §6.1.
				continue
			}
			if strings.EqualFold(lib, library) || strings.EqualFold(lib, "work") {
				lib = library
			}
			deps = append(deps, types.DependencySpec{
				OwnerPath: path,
				Library:   lib,
				Unit:      types.NewIdentifier(unit, false),
				Locations: []types.Location{{Line: lineNo, Column: m[0] + 1}},
			})
		}
	}

	deps = elideSelfDependencies(units, deps, library, false)
	return Result{DesignUnits: units, Dependencies: deps}
}

// declaredLibraries scans every "library A, B;" clause in the file and
// returns the accumulated, lowercased set of names it declares, seeded
// with "work" (always implicitly available). Mirrors
// original_source/hdlcc/parsers/vhdl_parser.py's libraries = ['work']
// accumulation: declarations anywhere in the file apply to the whole
// file, not just the lines after them.
func declaredLibraries(lines []string) map[string]bool {
	declared := map[string]bool{"work": true}
	for _, line := range lines {
		m := vhdlLibraryRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, name := range strings.Split(m[1], ",") {
			declared[strings.ToLower(strings.TrimSpace(name))] = true
		}
	}
	return declared
}
