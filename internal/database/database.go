// Package database implements the in-memory project database (spec §4.3):
// the live mapping from configured sources to their parsed design units
// and dependencies, reparsed on demand as files change on disk. Every
// Accept installs the sources cold; Restore brings back persisted parse
// results for sources whose configuration is unchanged.
//
// Locking follows internal/core/index_state.go in the teacher repo: one
// sync.RWMutex guarding the whole map, exported methods taking the lock,
// and unexported helpers that assume it's already held rather than
// attempting a reentrant lock.
package database

import (
	"sort"
	"sync"
	"time"

	"github.com/suoto/hdl-checker/internal/hdlconfig"
	"github.com/suoto/hdl-checker/internal/hdlerrors"
	"github.com/suoto/hdl-checker/internal/parser"
	"github.com/suoto/hdl-checker/internal/types"
)

type fileEntry struct {
	source    hdlconfig.SourceSpec
	parseTime time.Time // mtime of source.Path at last successful parse; zero means never parsed
	units     []types.DesignUnit
	deps      []types.DependencySpec
	parseErr  error
}

// Database is the live, reparse-on-demand view of a project's sources.
type Database struct {
	mu sync.RWMutex

	configHash uint64
	builtins   map[string]bool // lowercased builtin library names from the active builder

	entries map[string]*fileEntry // keyed by types.Path.Key()
	order   []string              // insertion order, for deterministic Paths()

	ambiguousWarned map[string]bool       // keyed by library\x00unit.Key(), one-shot gate
	ambiguous       []AmbiguousResolution // queued for DrainAmbiguousResolutions
}

// New returns an empty Database.
func New() *Database {
	return &Database{
		entries: make(map[string]*fileEntry),
	}
}

// Accept installs a freshly loaded configuration (spec §4.3's accept()).
// It always replaces every entry with a cold one (mtime seeded to 0, no
// cached units/deps), so every path reparses on first touch regardless
// of whether the config hash changed; only the build cache
// (builders.Builder's BuildCacheEntry map, gated separately via
// Builder.SyncConfigHash) is conditionally preserved across an Accept
// with an unchanged hash.
func (db *Database) Accept(cfg *hdlconfig.Config, builtins []string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	builtinSet := make(map[string]bool, len(builtins))
	for _, lib := range builtins {
		builtinSet[lib] = true
	}
	db.builtins = builtinSet
	db.configHash = cfg.Hash

	next := make(map[string]*fileEntry, len(cfg.Sources))
	order := make([]string, 0, len(cfg.Sources))

	for _, src := range cfg.Sources {
		key := src.Path.Key()
		order = append(order, key)
		next[key] = &fileEntry{source: src}
	}

	db.entries = next
	db.order = order
}

func sourceSpecEqual(a, b hdlconfig.SourceSpec) bool {
	if a.Library != b.Library || a.Lang != b.Lang || len(a.Flags) != len(b.Flags) {
		return false
	}
	if !a.Path.SameFile(b.Path) {
		return false
	}
	for i := range a.Flags {
		if a.Flags[i] != b.Flags[i] {
			return false
		}
	}
	return true
}

// Paths returns every source path currently configured, in config order.
func (db *Database) Paths() []types.Path {
	db.mu.RLock()
	defer db.mu.RUnlock()

	paths := make([]types.Path, 0, len(db.order))
	for _, key := range db.order {
		if e, ok := db.entries[key]; ok {
			paths = append(paths, e.source.Path)
		}
	}
	return paths
}

// LibraryOf returns the library a configured source was assigned.
func (db *Database) LibraryOf(path types.Path) (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	e, ok := db.entries[path.Key()]
	if !ok {
		return "", &hdlerrors.PathNotInProjectFile{Path: path.String()}
	}
	return e.source.Library, nil
}

// FlagsOf returns a source's configured per-file flags.
func (db *Database) FlagsOf(path types.Path) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	e, ok := db.entries[path.Key()]
	if !ok {
		return nil, &hdlerrors.PathNotInProjectFile{Path: path.String()}
	}
	return e.source.Flags, nil
}

// DesignUnitsOf reparses path on demand (when its mtime has advanced past
// the last successful parse) and returns the design units it defines.
func (db *Database) DesignUnitsOf(path types.Path) ([]types.DesignUnit, error) {
	e, err := db.ensureParsed(path)
	if err != nil {
		return nil, err
	}
	return e.units, nil
}

// DependenciesOf is DesignUnitsOf's counterpart for dependency specs.
func (db *Database) DependenciesOf(path types.Path) ([]types.DependencySpec, error) {
	e, err := db.ensureParsed(path)
	if err != nil {
		return nil, err
	}
	return e.deps, nil
}

func (db *Database) ensureParsed(path types.Path) (*fileEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.entries[path.Key()]
	if !ok {
		return nil, &hdlerrors.PathNotInProjectFile{Path: path.String()}
	}

	mtime := path.ModTime()
	if !e.parseTime.IsZero() && !mtime.After(e.parseTime) && e.parseErr == nil {
		return e, nil
	}

	src, err := parser.ReadSource(path)
	if err != nil {
		e.parseErr = err
		return e, err
	}

	var result parser.Result
	switch e.source.Lang {
	case types.VHDL:
		result = parser.ParseVHDL(path, src, e.source.Library)
	default:
		result = parser.ParseVerilog(path, src, e.source.Lang, e.source.Library)
	}

	e.units = result.DesignUnits
	e.deps = result.Dependencies
	e.parseTime = mtime
	e.parseErr = nil
	return e, nil
}

// ConfigHash reports the configuration hash most recently installed via
// Accept, used by the persistence layer to decide whether a loaded
// on-disk build cache still applies.
func (db *Database) ConfigHash() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.configHash
}

// IsBuiltinLibrary reports whether library is one the active builder
// ships (ieee, std, unisim, ...) and therefore never needs resolving
// against the project's own sources.
func (db *Database) IsBuiltinLibrary(library string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.builtins[library]
}

// SourceSnapshot is one source's persisted state, returned by Snapshot
// and consumed by Restore. It carries everything internal/persistence
// needs to write a cache file without reaching into Database internals.
type SourceSnapshot struct {
	Source    hdlconfig.SourceSpec
	ParseTime time.Time
	Units     []types.DesignUnit
	Deps      []types.DependencySpec
}

// Snapshot captures the database's current state (config hash, builtin
// libraries, and every source's parsed units/dependencies) for
// persistence.
func (db *Database) Snapshot() (configHash uint64, builtins []string, sources []SourceSnapshot) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for lib := range db.builtins {
		builtins = append(builtins, lib)
	}
	sort.Strings(builtins)

	sources = make([]SourceSnapshot, 0, len(db.order))
	for _, key := range db.order {
		e, ok := db.entries[key]
		if !ok {
			continue
		}
		sources = append(sources, SourceSnapshot{
			Source:    e.source,
			ParseTime: e.parseTime,
			Units:     e.units,
			Deps:      e.deps,
		})
	}
	return db.configHash, builtins, sources
}

// Restore hydrates the database directly from a prior Snapshot, without
// reparsing any source whose mtime hasn't advanced since. Intended for
// startup, right after Accept has installed the freshly loaded config;
// entries for sources no longer in the config are silently dropped.
func (db *Database) Restore(configHash uint64, builtins []string, sources []SourceSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()

	// configHash is the snapshot's; the hash Accept installed is kept so
	// ConfigHash keeps describing the live configuration.
	builtinSet := make(map[string]bool, len(builtins))
	for _, lib := range builtins {
		builtinSet[lib] = true
	}
	db.builtins = builtinSet

	byPath := make(map[string]SourceSnapshot, len(sources))
	for _, s := range sources {
		byPath[s.Source.Path.Key()] = s
	}

	for key, e := range db.entries {
		snap, ok := byPath[key]
		if !ok || !sourceSpecEqual(snap.Source, e.source) {
			continue
		}
		e.parseTime = snap.ParseTime
		e.units = snap.Units
		e.deps = snap.Deps
	}
}

// sortedKeys is used by tests to assert on deterministic ordering.
func (db *Database) sortedKeys() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	keys := make([]string, 0, len(db.entries))
	for k := range db.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
