// Package builders implements the compiler adapter framework of spec
// §4.4: a shared build/cache flow (Builder) driving four concrete
// backends (ModelSim, GHDL, Xvhdl, Fallback), grounded on
// original_source/hdlcc/builders/*.py for the per-compiler command and
// diagnostic conventions and on daedaleanai-dbt-rules/RULES/hdl for the
// real vcom/vlog/vlib/vmap invocation shapes.
package builders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/types"
)

// RebuildHint is a structured "recompile this" instruction mined from a
// compiler's stdout (spec §3 glossary). Library == "work" is rewritten to
// the owning source's library by Build before the hint is returned.
type RebuildHint struct {
	Library     string
	Unit        string
	RebuildPath string // set instead of Library/Unit when the compiler names a file directly (Xvhdl)
}

// BuildSource is everything Build needs to know about the source being
// compiled.
type BuildSource struct {
	Path    types.Path
	Library string
	Flags   []string // the source's own per-file flags
}

// BuildResult is what Build returns, mirroring BuildCacheEntry (spec §3).
type BuildResult struct {
	Diagnostics []diagnostics.Diagnostic
	Rebuilds    []RebuildHint
}

// Runner abstracts subprocess execution so backends and their tests don't
// depend on a real compiler being on PATH.
type Runner interface {
	Run(ctx context.Context, cmd []string) (combinedOutput string, err error)
}

// Backend is the per-adapter contract spec §4.4 enumerates: environment
// check, builtin libraries, supported file types, library creation,
// command construction, and output interpretation.
type Backend interface {
	Name() string
	CheckEnvironment(ctx context.Context, r Runner) error
	BuiltinLibraries() []string
	SupportedFileTypes() []types.FileType
	// CreateLibrary ensures the target library exists for source,
	// performing whatever adapter-specific bookkeeping (vlib/vmap, an
	// init file rewrite, a work directory) that requires.
	CreateLibrary(ctx context.Context, r Runner, targetDir string, source BuildSource) error
	// BuildCommands returns the subprocess invocation(s) to run in
	// sequence to compile source (GHDL needs two phases).
	BuildCommands(targetDir string, source BuildSource, flags []string) [][]string
	IgnoreLine(line string) bool
	ParseDiagnosticLine(line string) []diagnostics.Diagnostic
	ParseRebuildHintLine(line string) []RebuildHint
}

type cacheEntry struct {
	compileTime time.Time
	diagnostics []diagnostics.Diagnostic
	rebuilds    []RebuildHint
}

// Builder drives Backend through the common build flow of spec §4.4:
// cache short-circuiting, flag union, a per-adapter mutex around
// subprocess invocation, and rebuild-hint rewriting.
type Builder struct {
	Backend            Backend
	TargetDir          string
	Runner             Runner
	CacheErrorMessages bool // when false, an error-severity build resets compile_time to 0

	mu      sync.Mutex // external compilers are not internally concurrent-safe
	cacheMu sync.Mutex
	cache   map[string]*cacheEntry

	hashMu     sync.Mutex
	configHash uint64
	hashKnown  bool
}

// NewBuilder wires a Backend into the shared build/cache flow.
func NewBuilder(backend Backend, targetDir string, runner Runner) *Builder {
	return &Builder{
		Backend:   backend,
		TargetDir: targetDir,
		Runner:    runner,
		cache:     make(map[string]*cacheEntry),
	}
}

// CachedBuildState is one source's worth of build cache, exported for
// internal/persistence to snapshot and restore across restarts (spec
// §4.7: "the active adapter's per-path timestamp cache").
type CachedBuildState struct {
	CompileTime time.Time
	Diagnostics []diagnostics.Diagnostic
	Rebuilds    []RebuildHint
}

// Snapshot returns the builder's current per-path build cache, keyed by
// types.Path.Key().
func (b *Builder) Snapshot() map[string]CachedBuildState {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()

	out := make(map[string]CachedBuildState, len(b.cache))
	for key, e := range b.cache {
		out[key] = CachedBuildState{CompileTime: e.compileTime, Diagnostics: e.diagnostics, Rebuilds: e.rebuilds}
	}
	return out
}

// Restore replaces the builder's cache with a previously captured
// Snapshot, e.g. after reloading a persisted cache file on startup.
func (b *Builder) Restore(snapshot map[string]CachedBuildState) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()

	b.cache = make(map[string]*cacheEntry, len(snapshot))
	for key, s := range snapshot {
		b.cache[key] = &cacheEntry{compileTime: s.CompileTime, diagnostics: s.Diagnostics, rebuilds: s.Rebuilds}
	}
}

// SyncConfigHash compares hash against the config hash last seen by this
// Builder (spec §4.3/§4.7: accept() always reparses, but the build cache
// survives a reload unchanged so long as the configuration itself is
// unchanged). The first call after construction always adopts hash
// without clearing anything. A changed hash drops every cached build
// result, forcing the next Build call for each source to recompile.
func (b *Builder) SyncConfigHash(hash uint64) {
	b.hashMu.Lock()
	changed := b.hashKnown && b.configHash != hash
	b.configHash = hash
	b.hashKnown = true
	b.hashMu.Unlock()

	if !changed {
		return
	}

	b.cacheMu.Lock()
	b.cache = make(map[string]*cacheEntry)
	b.cacheMu.Unlock()
}

// Build implements spec §4.4's common build(source, forced, flags)
// contract.
func (b *Builder) Build(ctx context.Context, source BuildSource, forced bool, callerFlags []string) (BuildResult, error) {
	key := source.Path.Key()

	b.cacheMu.Lock()
	entry, ok := b.cache[key]
	if !ok {
		entry = &cacheEntry{}
		b.cache[key] = entry
	}
	b.cacheMu.Unlock()

	if !forced && !source.Path.ModTime().After(entry.compileTime) {
		return BuildResult{Diagnostics: entry.diagnostics, Rebuilds: entry.rebuilds}, nil
	}

	flags := unionFlags(source.Flags, callerFlags)

	var (
		diags    []diagnostics.Diagnostic
		rebuilds []RebuildHint
	)

	b.mu.Lock()
	err := b.Backend.CreateLibrary(ctx, b.Runner, b.TargetDir, source)
	if err == nil {
		for _, cmd := range b.Backend.BuildCommands(b.TargetDir, source, flags) {
			output, runErr := b.Runner.Run(ctx, cmd)
			for _, line := range splitLines(output) {
				if b.Backend.IgnoreLine(line) {
					continue
				}
				diags = append(diags, b.Backend.ParseDiagnosticLine(line)...)
				rebuilds = append(rebuilds, b.Backend.ParseRebuildHintLine(line)...)
			}
			if runErr != nil {
				err = runErr
			}
		}
	}
	b.mu.Unlock()
	if err != nil {
		return BuildResult{}, err
	}

	diags = dedupDiagnostics(diags)
	rebuilds = rewriteWorkHints(rebuilds, source.Library)

	compileTime := source.Path.ModTime()
	if !b.CacheErrorMessages && hasErrorSeverity(diags) {
		compileTime = time.Time{}
	}

	b.cacheMu.Lock()
	entry.diagnostics = diags
	entry.rebuilds = rebuilds
	entry.compileTime = compileTime
	b.cacheMu.Unlock()

	return BuildResult{Diagnostics: diags, Rebuilds: rebuilds}, nil
}

func unionFlags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, flag := range append(append([]string{}, a...), b...) {
		if seen[flag] {
			continue
		}
		seen[flag] = true
		out = append(out, flag)
	}
	return out
}

func rewriteWorkHints(hints []RebuildHint, library string) []RebuildHint {
	out := make([]RebuildHint, len(hints))
	for i, h := range hints {
		if h.Library == "work" {
			h.Library = library
		}
		out[i] = h
	}
	return out
}

func hasErrorSeverity(diags []diagnostics.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diagnostics.Error {
			return true
		}
	}
	return false
}

func dedupDiagnostics(diags []diagnostics.Diagnostic) []diagnostics.Diagnostic {
	out := make([]diagnostics.Diagnostic, 0, len(diags))
	for _, d := range diags {
		dup := false
		for _, existing := range out {
			if existing.Equal(d) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, trimCR(s[start:i]))
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

// SortedBuiltinLibraries is a small helper the database uses to present a
// deterministic, sorted view of an adapter's builtin library set. Names
// are kept as the adapter spells them; no case folding is applied.
func SortedBuiltinLibraries(b Backend) []string {
	libs := append([]string{}, b.BuiltinLibraries()...)
	sort.Strings(libs)
	return libs
}
