package database

import (
	"sort"

	"github.com/suoto/hdl-checker/internal/hdlerrors"
	"github.com/suoto/hdl-checker/internal/types"
)

// AmbiguousResolution records that two or more sources define the same
// library.unit (spec §8 boundary behavior): Candidates is sorted, and
// Resolve picks Candidates[0] (lexicographically smallest path).
type AmbiguousResolution struct {
	Library    string
	Unit       string
	Candidates []types.Path
}

// ResolveCandidates finds every source that defines unit within library,
// applying case sensitivity the way the owning language requires (spec
// §4.3): VHDL identifiers compare case-insensitively, Verilog/
// SystemVerilog case-sensitively. A "work" library means "whatever
// library owns dep's referencing source" and must already have been
// rewritten by the caller before ResolveCandidates is called; it only
// ever looks up concrete library names. The returned slice is sorted by
// path so the first entry is the one Resolve itself would pick.
func (db *Database) ResolveCandidates(library string, unit types.Identifier) ([]types.Path, error) {
	// Bring every source's design units up to date first: a source nobody
	// has asked about yet still defines the units it declares. A source
	// that can't be read keeps whatever its last successful parse found.
	for _, p := range db.Paths() {
		db.ensureParsed(p)
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var matches []types.Path
	for _, key := range db.order {
		e, ok := db.entries[key]
		if !ok || e.source.Library != library {
			continue
		}
		for _, du := range e.units {
			if du.Name.Equal(unit) {
				matches = append(matches, e.source.Path)
				break
			}
		}
	}
	if len(matches) == 0 {
		return nil, &hdlerrors.DesignUnitNotFound{Library: library, Unit: unit.Name()}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].String() < matches[j].String() })
	return matches, nil
}

// Resolve finds the source that defines unit within library, picking the
// lexicographically smallest path when more than one source defines it
// (spec §8). A multi-candidate resolution is queued once per distinct
// library.unit for DrainAmbiguousResolutions to report as a UI warning.
func (db *Database) Resolve(library string, unit types.Identifier) (types.Path, error) {
	matches, err := db.ResolveCandidates(library, unit)
	if err != nil {
		return types.Path{}, err
	}
	if len(matches) > 1 {
		db.recordAmbiguous(library, unit, matches)
	}
	return matches[0], nil
}

func (db *Database) recordAmbiguous(library string, unit types.Identifier, candidates []types.Path) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := library + "\x00" + unit.Key()
	if db.ambiguousWarned == nil {
		db.ambiguousWarned = make(map[string]bool)
	}
	if db.ambiguousWarned[key] {
		return
	}
	db.ambiguousWarned[key] = true
	db.ambiguous = append(db.ambiguous, AmbiguousResolution{
		Library:    library,
		Unit:       unit.Name(),
		Candidates: candidates,
	})
}

// DrainAmbiguousResolutions returns and clears the library.unit
// resolutions that found more than one defining source since the last
// drain, one entry per distinct library.unit (spec §8: "emits one UI
// warning").
func (db *Database) DrainAmbiguousResolutions() []AmbiguousResolution {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := db.ambiguous
	db.ambiguous = nil
	return out
}

// DependenciesClosure walks dep.Unit resolution recursively, returning
// every source reachable from root through DependenciesOf/Resolve.
// Libraries the active builder ships (IsBuiltinLibrary) are not
// resolvable against project sources and are skipped rather than
// reported as unresolved.
func (db *Database) DependenciesClosure(root types.Path) ([]types.Path, error) {
	visited := map[string]bool{root.Key(): true}
	var out []types.Path

	var walk func(path types.Path) error
	walk = func(path types.Path) error {
		deps, err := db.DependenciesOf(path)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if db.IsBuiltinLibrary(dep.Library) {
				continue
			}
			resolved, err := db.Resolve(dep.Library, dep.Unit)
			if err != nil {
				continue // unresolved dependency: surfaced as a diagnostic elsewhere, not fatal to the walk
			}
			if visited[resolved.Key()] {
				continue
			}
			visited[resolved.Key()] = true
			out = append(out, resolved)
			if err := walk(resolved); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// UnresolvedDependencies returns path's dependency specs that don't
// resolve to any configured source, skipping libraries the active
// builder ships. The caller attaches a Warning-severity DesignUnitNotFound
// diagnostic at each spec's reference location (spec §3/§7/§8: "...or a
// DesignUnitNotFound diagnostic is attached to S at D's location").
func (db *Database) UnresolvedDependencies(path types.Path) ([]types.DependencySpec, error) {
	deps, err := db.DependenciesOf(path)
	if err != nil {
		return nil, err
	}
	var out []types.DependencySpec
	for _, dep := range deps {
		if db.IsBuiltinLibrary(dep.Library) {
			continue
		}
		if _, err := db.Resolve(dep.Library, dep.Unit); err != nil {
			out = append(out, dep)
		}
	}
	return out, nil
}
