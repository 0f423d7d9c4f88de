// Package hdlerrors defines the error taxonomy shared across the project
// database, config loader, compiler adapters and scheduler. Each kind is a
// distinct type (not a sentinel) so callers can branch on it with
// errors.As and still get structured fields back.
package hdlerrors

import "fmt"

// SanityCheckError is returned when a compiler adapter's environment probe
// (e.g. "vcom -version") fails. Recovery is to fall back to the Fallback
// adapter and surface this as a UI message.
type SanityCheckError struct {
	Builder string
	Message string
}

func (e *SanityCheckError) Error() string {
	return fmt.Sprintf("sanity check failed for builder %q: %s", e.Builder, e.Message)
}

// UnknownParameter is returned when a config file assigns a value to a
// parameter name the loader doesn't recognize. Fatal for the load.
type UnknownParameter struct {
	Parameter  string
	Suggestion string // nearest known parameter name, if any
}

func (e *UnknownParameter) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown parameter %q (did you mean %q?)", e.Parameter, e.Suggestion)
	}
	return fmt.Sprintf("unknown parameter %q", e.Parameter)
}

// DesignUnitNotFound means the resolver couldn't locate a referenced
// library.unit. Never fatal: the caller attaches a Warning diagnostic at
// the reference site and continues.
type DesignUnitNotFound struct {
	Library string
	Unit    string
}

func (e *DesignUnitNotFound) Error() string {
	return fmt.Sprintf("no source file defines %s.%s", e.Library, e.Unit)
}

// UnknownTypeExtension is returned by types.FileTypeOf for a file
// extension that doesn't map to a known FileType. The config loader does
// not check extensions: each source line names its own language.
type UnknownTypeExtension struct {
	Path string
	Ext  string
}

func (e *UnknownTypeExtension) Error() string {
	return fmt.Sprintf("%s: unknown file extension %q", e.Path, e.Ext)
}

// CircularDependency is detected while computing a compile order. Emits a
// Warning diagnostic; the scheduler continues with a best-effort order.
type CircularDependency struct {
	Paths []string
}

func (e *CircularDependency) Error() string {
	return fmt.Sprintf("circular dependency among %d sources", len(e.Paths))
}

// CacheDecodeError means the persisted cache file couldn't be decoded.
// Logged, cache discarded, project rebuilt from scratch.
type CacheDecodeError struct {
	Path string
	Err  error
}

func (e *CacheDecodeError) Error() string {
	return fmt.Sprintf("couldn't decode cache at %s: %v", e.Path, e.Err)
}

func (e *CacheDecodeError) Unwrap() error { return e.Err }

// PathNotInProjectFile means an editor asked for messages on a path the
// active config never listed. A synthetic Warning diagnostic is attached
// to the response and the build proceeds with library "undefined".
type PathNotInProjectFile struct {
	Path string
}

func (e *PathNotInProjectFile) Error() string {
	return fmt.Sprintf("path %q is not present in the current project file", e.Path)
}

// RebuildLimitExceeded is raised by messages_for when the 20-round
// recursive rebuild-hint limit (spec §4.5, §8) is hit.
type RebuildLimitExceeded struct {
	Path  string
	Limit int
}

func (e *RebuildLimitExceeded) Error() string {
	return fmt.Sprintf("rebuild hint chain for %s exceeded %d rounds", e.Path, e.Limit)
}
