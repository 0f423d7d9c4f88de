// Package persistence implements the typed JSON cache file of spec
// §4.7: the database's parsed state plus the active builder's per-path
// build cache, serialized to <target_dir>/.hdlcc.cache so restarts don't
// have to reparse and recompile a project from scratch.
//
// Polymorphic fields (design-unit kind, rebuild-hint shape) carry an
// out-of-band "__class__" discriminator the way spec §4.7 requires,
// rather than relying on Go's static JSON field layout to disambiguate
// them on decode.
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/suoto/hdl-checker/internal/builders"
	"github.com/suoto/hdl-checker/internal/database"
	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/hdlconfig"
	"github.com/suoto/hdl-checker/internal/hdlerrors"
	"github.com/suoto/hdl-checker/internal/types"
)

// CurrentSchemaVersion is persisted alongside the cache body; a mismatch
// on load means the whole file is discarded rather than partially
// decoded (spec §4.7: "on schema mismatch the file is ignored").
const CurrentSchemaVersion = 1

// CacheFileName is the on-disk name the cache lives under, inside a
// project's configured target directory.
const CacheFileName = ".hdlcc.cache"

// CacheFile is the root document persisted to <target_dir>/.hdlcc.cache.
type CacheFile struct {
	SchemaVersion int           `json:"schema_version"`
	AdapterName   string        `json:"adapter_name"`
	AdapterState  AdapterState  `json:"adapter_state"`
	DatabaseState DatabaseState `json:"database_state"`
}

// AdapterState carries the __class__-discriminated identity of the
// active builder backend plus its per-path build cache.
type AdapterState struct {
	Class     string                 `json:"__class__"`
	TargetDir string                 `json:"target_dir"`
	BuildsByPath map[string]BuildCacheEntryState `json:"builds_by_path"`
}

// BuildCacheEntryState mirrors builders.CachedBuildState in
// JSON-serializable form.
type BuildCacheEntryState struct {
	CompileTime time.Time         `json:"compile_time"`
	Diagnostics []DiagnosticState `json:"diagnostics,omitempty"`
	Rebuilds    []RebuildHintState `json:"rebuilds,omitempty"`
}

// DiagnosticState mirrors diagnostics.Diagnostic.
type DiagnosticState struct {
	Checker   string `json:"checker"`
	Path      string `json:"path,omitempty"`
	Line      *int   `json:"line,omitempty"`
	Column    *int   `json:"column,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Severity  string `json:"severity"`
	Text      string `json:"text"`
}

// RebuildHintState discriminates between the two hint shapes a builder
// can report: a (library, unit) pair, or a path named directly.
type RebuildHintState struct {
	Class   string `json:"__class__"` // "library_unit" or "path"
	Library string `json:"library,omitempty"`
	Unit    string `json:"unit,omitempty"`
	Path    string `json:"path,omitempty"`
}

// DatabaseState mirrors database.Database's persisted contents.
type DatabaseState struct {
	ConfigHash uint64         `json:"config_hash"`
	Builtins   []string       `json:"builtins,omitempty"`
	Sources    []SourceState  `json:"sources"`
}

// SourceState is one configured source plus whatever was parsed from it
// last time.
type SourceState struct {
	Path         string            `json:"path"`
	Library      string            `json:"library"`
	Lang         string            `json:"lang"`
	Flags        []string          `json:"flags,omitempty"`
	ParseTime    time.Time         `json:"parse_time"`
	Units        []DesignUnitState `json:"units,omitempty"`
	Dependencies []DependencyState `json:"dependencies,omitempty"`
}

// DesignUnitState carries its Kind as the __class__ discriminator.
type DesignUnitState struct {
	Class         string           `json:"__class__"` // "entity" | "package" | "context"
	Name          string           `json:"name"`
	CaseSensitive bool             `json:"case_sensitive"`
	Locations     []LocationState  `json:"locations,omitempty"`
}

// DependencyState is one use-clause/package-body-implies dependency.
type DependencyState struct {
	Library       string          `json:"library"`
	Unit          string          `json:"unit"`
	CaseSensitive bool            `json:"case_sensitive"`
	Locations     []LocationState `json:"locations,omitempty"`
}

// LocationState mirrors types.Location.
type LocationState struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Save writes db's current state and builder's build cache to
// <targetDir>/.hdlcc.cache.
func Save(targetDir string, adapterName string, builder *builders.Builder, db *database.Database) error {
	cf := CacheFile{
		SchemaVersion: CurrentSchemaVersion,
		AdapterName:   adapterName,
		AdapterState:  adapterStateOf(adapterName, targetDir, builder),
		DatabaseState: databaseStateOf(db),
	}

	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(targetDir, CacheFileName), data, 0o644)
}

// Load reads and decodes <targetDir>/.hdlcc.cache. A missing file is not
// an error (returns nil, nil): there's simply nothing to restore yet.
// A schema mismatch or malformed document returns *hdlerrors.CacheDecodeError
// rather than failing the caller outright, matching spec §4.7/§6's "log,
// discard cache, rebuild fresh" recovery.
func Load(targetDir string) (*CacheFile, error) {
	path := filepath.Join(targetDir, CacheFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &hdlerrors.CacheDecodeError{Path: path, Err: err}
	}

	var cf CacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, &hdlerrors.CacheDecodeError{Path: path, Err: err}
	}
	if cf.SchemaVersion != CurrentSchemaVersion {
		return nil, &hdlerrors.CacheDecodeError{Path: path, Err: errSchemaMismatch(cf.SchemaVersion)}
	}
	return &cf, nil
}

type schemaMismatchError struct{ got int }

func (e schemaMismatchError) Error() string {
	return "persisted cache schema version mismatch"
}

func errSchemaMismatch(got int) error { return schemaMismatchError{got: got} }

func adapterStateOf(adapterName, targetDir string, builder *builders.Builder) AdapterState {
	state := AdapterState{
		Class:        adapterName,
		TargetDir:    targetDir,
		BuildsByPath: make(map[string]BuildCacheEntryState),
	}
	for key, entry := range builder.Snapshot() {
		state.BuildsByPath[key] = buildCacheEntryStateOf(entry)
	}
	return state
}

func buildCacheEntryStateOf(entry builders.CachedBuildState) BuildCacheEntryState {
	out := BuildCacheEntryState{CompileTime: entry.CompileTime}
	for _, d := range entry.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diagnosticStateOf(d))
	}
	for _, r := range entry.Rebuilds {
		out.Rebuilds = append(out.Rebuilds, rebuildHintStateOf(r))
	}
	return out
}

func diagnosticStateOf(d diagnostics.Diagnostic) DiagnosticState {
	state := DiagnosticState{
		Checker:   d.Checker,
		ErrorCode: d.ErrorCode,
		Severity:  d.Severity.String(),
		Text:      d.Text,
		Line:      d.Line,
		Column:    d.Column,
	}
	if d.Path != nil {
		state.Path = d.Path.String()
	}
	return state
}

func rebuildHintStateOf(r builders.RebuildHint) RebuildHintState {
	if r.RebuildPath != "" {
		return RebuildHintState{Class: "path", Path: r.RebuildPath}
	}
	return RebuildHintState{Class: "library_unit", Library: r.Library, Unit: r.Unit}
}

func databaseStateOf(db *database.Database) DatabaseState {
	configHash, builtins, sources := db.Snapshot()
	state := DatabaseState{ConfigHash: configHash, Builtins: builtins}
	for _, s := range sources {
		state.Sources = append(state.Sources, sourceStateOf(s))
	}
	return state
}

func sourceStateOf(s database.SourceSnapshot) SourceState {
	state := SourceState{
		Path:      s.Source.Path.String(),
		Library:   s.Source.Library,
		Lang:      s.Source.Lang.String(),
		Flags:     s.Source.Flags,
		ParseTime: s.ParseTime,
	}
	for _, u := range s.Units {
		state.Units = append(state.Units, designUnitStateOf(u))
	}
	for _, d := range s.Deps {
		state.Dependencies = append(state.Dependencies, dependencyStateOf(d))
	}
	return state
}

func designUnitStateOf(u types.DesignUnit) DesignUnitState {
	return DesignUnitState{
		Class:         string(u.Kind),
		Name:          u.Name.Name(),
		CaseSensitive: u.Name.CaseSensitive(),
		Locations:     locationStatesOf(u.Locations),
	}
}

func dependencyStateOf(d types.DependencySpec) DependencyState {
	return DependencyState{
		Library:       d.Library,
		Unit:          d.Unit.Name(),
		CaseSensitive: d.Unit.CaseSensitive(),
		Locations:     locationStatesOf(d.Locations),
	}
}

func locationStatesOf(locs []types.Location) []LocationState {
	out := make([]LocationState, len(locs))
	for i, l := range locs {
		out[i] = LocationState{Line: l.Line, Column: l.Column}
	}
	return out
}
