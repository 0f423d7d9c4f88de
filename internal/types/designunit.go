package types

import "fmt"

// DesignUnitKind enumerates the design-unit kinds this project tracks.
// Package bodies are deliberately not a unit kind here — per the resolved
// Open Question in SPEC_FULL.md, a package body is folded into a
// self-dependency on its owning package instead.
type DesignUnitKind string

const (
	EntityUnit  DesignUnitKind = "entity"
	PackageUnit DesignUnitKind = "package"
	ContextUnit DesignUnitKind = "context"
)

// Location is a (line, column) source position, both 1-based.
type Location struct {
	Line   int
	Column int
}

// DesignUnit is a declared entity inside a source file. Identity key is
// (Path, Kind, Name) per spec §3.
type DesignUnit struct {
	Path      Path
	Kind      DesignUnitKind
	Name      Identifier
	Locations []Location
}

// Key returns the (path, kind, name) identity tuple as a comparable
// string, using the unit's own case rule for the name component.
func (u DesignUnit) Key() string {
	return fmt.Sprintf("%s\x00%s\x00%s", u.Path.Key(), u.Kind, u.Name.Key())
}

// DependencySpec is a reference from one source to a design unit
// elsewhere. Library is always a concrete library name (the "work"
// pseudonym has already been rewritten to the owning library name by the
// parser).
type DependencySpec struct {
	OwnerPath Path
	Library   string // already resolved from "work" to the owning library
	Unit      Identifier
	Locations []Location
}

// Key returns a comparable identity for deduplication within a single
// source's dependency set.
func (d DependencySpec) Key() string {
	return fmt.Sprintf("%s\x00%s\x00%s", d.OwnerPath.Key(), d.Library, d.Unit.Key())
}
