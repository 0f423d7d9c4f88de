package persistence

import (
	"github.com/suoto/hdl-checker/internal/builders"
	"github.com/suoto/hdl-checker/internal/database"
	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/hdlconfig"
	"github.com/suoto/hdl-checker/internal/types"
)

// Apply hydrates db and builder from a CacheFile previously produced by
// Save. Call it right after database.Database.Accept has installed the
// freshly loaded project config: Restore only updates sources whose
// identity (path, library, lang, flags) still matches what was
// persisted, so a config change since the cache was written naturally
// forces those sources to reparse instead of trusting stale state.
//
// The build cache is a stricter case: it's only trustworthy when the
// configuration hash hasn't changed at all since it was written (spec
// §4.3/§4.7), so it's skipped entirely rather than merged when
// cf.DatabaseState.ConfigHash doesn't match db.ConfigHash().
func Apply(cf *CacheFile, db *database.Database, builder *builders.Builder) {
	if cf == nil {
		return
	}

	sources := make([]database.SourceSnapshot, 0, len(cf.DatabaseState.Sources))
	for _, s := range cf.DatabaseState.Sources {
		sources = append(sources, sourceSnapshotOf(s))
	}
	db.Restore(cf.DatabaseState.ConfigHash, cf.DatabaseState.Builtins, sources)

	if builder == nil {
		return
	}
	if cf.DatabaseState.ConfigHash != db.ConfigHash() {
		return
	}
	snapshot := make(map[string]builders.CachedBuildState, len(cf.AdapterState.BuildsByPath))
	for key, entry := range cf.AdapterState.BuildsByPath {
		snapshot[key] = cachedBuildStateOf(entry)
	}
	builder.Restore(snapshot)
}

func sourceSnapshotOf(s SourceState) database.SourceSnapshot {
	path := types.NewPath(s.Path)
	ft, _ := types.FileTypeOf(s.Path)
	if s.Lang != "" {
		ft = types.FileType(s.Lang)
	}

	units := make([]types.DesignUnit, 0, len(s.Units))
	for _, u := range s.Units {
		units = append(units, types.DesignUnit{
			Path:      path,
			Kind:      types.DesignUnitKind(u.Class),
			Name:      types.NewIdentifier(u.Name, u.CaseSensitive),
			Locations: locationsOf(u.Locations),
		})
	}

	deps := make([]types.DependencySpec, 0, len(s.Dependencies))
	for _, d := range s.Dependencies {
		deps = append(deps, types.DependencySpec{
			OwnerPath: path,
			Library:   d.Library,
			Unit:      types.NewIdentifier(d.Unit, d.CaseSensitive),
			Locations: locationsOf(d.Locations),
		})
	}

	return database.SourceSnapshot{
		Source: hdlconfig.SourceSpec{
			Path:    path,
			Library: s.Library,
			Lang:    ft,
			Flags:   s.Flags,
		},
		ParseTime: s.ParseTime,
		Units:     units,
		Deps:      deps,
	}
}

func locationsOf(locs []LocationState) []types.Location {
	out := make([]types.Location, len(locs))
	for i, l := range locs {
		out[i] = types.Location{Line: l.Line, Column: l.Column}
	}
	return out
}

func cachedBuildStateOf(entry BuildCacheEntryState) builders.CachedBuildState {
	out := builders.CachedBuildState{CompileTime: entry.CompileTime}
	for _, d := range entry.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diagnosticOf(d))
	}
	for _, r := range entry.Rebuilds {
		out.Rebuilds = append(out.Rebuilds, rebuildHintOf(r))
	}
	return out
}

func diagnosticOf(d DiagnosticState) diagnostics.Diagnostic {
	diag := diagnostics.Diagnostic{
		Checker:   d.Checker,
		ErrorCode: d.ErrorCode,
		Severity:  severityOf(d.Severity),
		Text:      d.Text,
		Line:      d.Line,
		Column:    d.Column,
	}
	if d.Path != "" {
		p := types.NewPath(d.Path)
		diag.Path = &p
	}
	return diag
}

func severityOf(s string) diagnostics.Severity {
	switch s {
	case "Info":
		return diagnostics.Info
	case "Warning":
		return diagnostics.Warning
	case "Error":
		return diagnostics.Error
	case "StyleInfo":
		return diagnostics.StyleInfo
	case "StyleWarning":
		return diagnostics.StyleWarning
	case "StyleError":
		return diagnostics.StyleError
	default:
		return diagnostics.None
	}
}

func rebuildHintOf(r RebuildHintState) builders.RebuildHint {
	if r.Class == "path" {
		return builders.RebuildHint{RebuildPath: r.Path}
	}
	return builders.RebuildHint{Library: r.Library, Unit: r.Unit}
}
