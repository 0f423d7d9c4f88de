// Package hdlconfig loads the project configuration file described in
// spec §4.2: a line-oriented grammar of parameter assignments and source
// declarations.
package hdlconfig

import (
	"github.com/suoto/hdl-checker/internal/types"
)

// BuilderName selects which compiler adapter a project uses.
type BuilderName string

const (
	BuilderFallback BuilderName = "fallback"
	BuilderModelSim BuilderName = "msim"
	BuilderGHDL     BuilderName = "ghdl"
	BuilderXvhdl    BuilderName = "xvhdl"
)

func builderFromString(s string) (BuilderName, bool) {
	switch BuilderName(s) {
	case BuilderModelSim, BuilderGHDL, BuilderXvhdl:
		return BuilderName(s), true
	default:
		return "", false
	}
}

// FlagScope is one of the three build-flag layers a source's effective
// flags are assembled from (spec §3 SourceEntry invariant).
type FlagScope string

const (
	ScopeSingle FlagScope = "single_build_flags"
	ScopeBatch  FlagScope = "batch_build_flags"
	ScopeGlobal FlagScope = "global_build_flags"
)

var allScopes = []FlagScope{ScopeSingle, ScopeBatch, ScopeGlobal}
var allLangs = []types.FileType{types.VHDL, types.Verilog, types.SystemVerilog}

// SourceSpec is a single parsed source declaration: path, assigned
// library, and its own flag tuple.
type SourceSpec struct {
	Path    types.Path
	Library string
	Lang    types.FileType
	Flags   []string
}

// Config is the fully parsed project configuration.
type Config struct {
	Builder BuilderName
	Sources []SourceSpec
	// Flags[scope][lang] is the flag vector for that scope/language pair.
	Flags map[FlagScope]map[types.FileType][]string
	// IncludeDirs[lang] holds directories contributed by Verilog-family
	// header files (.vh/.svh), which are never compile units themselves.
	IncludeDirs map[types.FileType][]string
	// Hash fingerprints the (path, library, flags) triples so
	// builders.Builder can tell whether its build cache should survive
	// an accept() call; accept() itself always reparses cold regardless
	// of this hash (spec §4.3 invariant).
	Hash uint64
}

func newConfig() *Config {
	flags := make(map[FlagScope]map[types.FileType][]string, len(allScopes))
	for _, scope := range allScopes {
		flags[scope] = make(map[types.FileType][]string, len(allLangs))
	}
	return &Config{
		Builder:     BuilderFallback,
		Flags:       flags,
		IncludeDirs: make(map[types.FileType][]string),
	}
}

// FlagsFor returns the flag vector for a given scope and language, or nil
// if none was set.
func (c *Config) FlagsFor(scope FlagScope, lang types.FileType) []string {
	if byLang, ok := c.Flags[scope]; ok {
		return byLang[lang]
	}
	return nil
}
