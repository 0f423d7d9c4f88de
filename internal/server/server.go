// Package server ties the project database, compiler adapter, scheduler
// and persistence layers into one per-project lifecycle object, and
// keeps the project map the transport adapters (LSP, HTTP, MCP) share.
//
// Grounded on original_source/hdlcc/handlers.py's
// _getServerByProjectFile: a project_file keyed map of lazily created
// server objects, each of which calls buildByDependency() once on
// creation. Per the resolved Open Question recorded in DESIGN.md, that
// map lives here as ServerContext state rather than as a package-level
// global.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/suoto/hdl-checker/internal/builders"
	"github.com/suoto/hdl-checker/internal/database"
	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/hdlconfig"
	"github.com/suoto/hdl-checker/internal/hdlerrors"
	"github.com/suoto/hdl-checker/internal/parser"
	"github.com/suoto/hdl-checker/internal/persistence"
	"github.com/suoto/hdl-checker/internal/scheduler"
	"github.com/suoto/hdl-checker/internal/types"
)

// Version is the daemon's reported version, surfaced through
// get_diagnose_info and the CLI's --version flag.
const Version = "0.1.0"

// UIMessage is a daemon-level notice queued for a client to pick up via
// get_ui_messages, mirroring the original's (severity, message) tuples
// pushed through a multiprocessing.Queue.
type UIMessage struct {
	Severity string // "info", "warning", "error"
	Text     string
}

// ServerContext owns every project currently being served, keyed by its
// configuration file path ("" is a valid key for an editor session with
// no project file configured yet).
type ServerContext struct {
	logger *slog.Logger

	mu       sync.Mutex
	projects map[string]*Project
}

// New returns an empty ServerContext.
func New(logger *slog.Logger) *ServerContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerContext{
		logger:   logger.With("component", "server"),
		projects: make(map[string]*Project),
	}
}

// Project returns the Project for projectFile, creating and kicking off
// its initial build_by_dependency if this is the first request for it.
func (s *ServerContext) Project(ctx context.Context, projectFile string) (*Project, error) {
	s.mu.Lock()
	if p, ok := s.projects[projectFile]; ok {
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	p, err := newProject(projectFile, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.projects[projectFile]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.projects[projectFile] = p
	s.mu.Unlock()

	if err := p.scheduler.BuildByDependency(ctx); err != nil {
		p.recordUI("warning", fmt.Sprintf("initial build failed to start: %v", err))
	}
	return p, nil
}

// DiagnoseInfo reports daemon and project-level status lines (spec §6
// get_diagnose_info).
func (s *ServerContext) DiagnoseInfo(ctx context.Context, projectFile string) ([]string, error) {
	info := []string{
		fmt.Sprintf("hdl-checker version: %s", Version),
		fmt.Sprintf("Server PID: %d", os.Getpid()),
	}
	if projectFile == "" {
		return info, nil
	}
	if _, err := os.Stat(projectFile); err != nil {
		return info, nil
	}
	p, err := s.Project(ctx, projectFile)
	if err != nil {
		return nil, err
	}
	return append(info, p.diagnoseInfo()...), nil
}

// MessagesByPath returns the merged compiler + static-linter diagnostics
// for path within projectFile's project (spec §4.5/§4.6, §7
// PathNotInProjectFile).
func (s *ServerContext) MessagesByPath(ctx context.Context, projectFile, path string) ([]diagnostics.Diagnostic, error) {
	p, err := s.Project(ctx, projectFile)
	if err != nil {
		return nil, err
	}
	return p.messagesFor(ctx, types.NewPath(path))
}

// UIMessages drains and returns projectFile's queued UI notices.
func (s *ServerContext) UIMessages(ctx context.Context, projectFile string) ([]UIMessage, error) {
	p, err := s.Project(ctx, projectFile)
	if err != nil {
		return nil, err
	}
	return p.drainUI(), nil
}

// RebuildProject discards projectFile's in-memory project and creates it
// again, mirroring the original's delete + recreate sequence in
// rebuildProject(). The on-disk cache is not removed: like any newly
// created project, the new one reloads a cache file persisted in its
// target directory.
func (s *ServerContext) RebuildProject(ctx context.Context, projectFile string) error {
	s.mu.Lock()
	delete(s.projects, projectFile)
	s.mu.Unlock()

	_, err := s.Project(ctx, projectFile)
	return err
}

// Shutdown persists every open project's cache to disk. Call before
// process exit.
func (s *ServerContext) Shutdown() {
	s.mu.Lock()
	projects := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, p)
	}
	s.projects = make(map[string]*Project)
	s.mu.Unlock()

	for _, p := range projects {
		if err := p.persist(); err != nil {
			s.logger.Warn("failed to persist project cache on shutdown", "target_dir", p.targetDir, "error", err)
		}
	}
}

// Project is one configuration file's live analysis state: its database,
// compiler adapter, and build scheduler.
type Project struct {
	logger      *slog.Logger
	projectFile string
	targetDir   string
	adapterName hdlconfig.BuilderName

	loader    *hdlconfig.Loader
	db        *database.Database
	builder   *builders.Builder
	scheduler *scheduler.Scheduler

	uiMu sync.Mutex
	ui   []UIMessage
}

func newProject(projectFile string, logger *slog.Logger) (*Project, error) {
	p := &Project{
		logger:      logger.With("project_file", projectFile),
		projectFile: projectFile,
		db:          database.New(),
	}

	cfg := hdlconfig.Config{Builder: hdlconfig.BuilderFallback}
	if projectFile != "" {
		p.loader = hdlconfig.NewLoader(projectFile)
		loaded, err := p.loader.Load()
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	p.adapterName = cfg.Builder
	p.targetDir = targetDirFor(projectFile, cfg.Builder)
	if err := os.MkdirAll(p.targetDir, 0o755); err != nil {
		return nil, err
	}

	backend := builders.ForName(cfg.Builder)
	runner := builders.ExecRunner{}

	var eg errgroup.Group
	eg.Go(func() error {
		if err := backend.CheckEnvironment(context.Background(), runner); err != nil {
			return &hdlerrors.SanityCheckError{Builder: string(cfg.Builder), Message: err.Error()}
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		p.recordUI("warning", fmt.Sprintf("%v, falling back to no-op builder", err))
		backend = builders.Fallback{}
		p.adapterName = hdlconfig.BuilderFallback
	}

	p.db.Accept(&cfg, builders.SortedBuiltinLibraries(backend))
	p.builder = builders.NewBuilder(backend, p.targetDir, runner)
	// SyncConfigHash must run right after Accept: the build cache is only
	// ever invalidated by a config hash change, never by Accept's own
	// always-cold reparse (spec §4.3/§4.7).
	p.builder.SyncConfigHash(cfg.Hash)
	p.scheduler = scheduler.New(p.db, p.builder)

	if cf, err := persistence.Load(p.targetDir); err != nil {
		p.recordUI("warning", fmt.Sprintf("couldn't restore cache: %v", err))
	} else if cf != nil {
		persistence.Apply(cf, p.db, p.builder)
	}

	return p, nil
}

// targetDirFor mirrors the original's ConfigParser default ("." +
// builder_name, next to the project file) now that spec §4.2 tolerates
// but ignores an explicit target_dir parameter.
func targetDirFor(projectFile string, builder hdlconfig.BuilderName) string {
	name := "." + string(builder)
	if projectFile == "" {
		return name
	}
	return filepath.Join(filepath.Dir(projectFile), name)
}

func (p *Project) recordUI(severity, text string) {
	p.uiMu.Lock()
	p.ui = append(p.ui, UIMessage{Severity: severity, Text: text})
	p.uiMu.Unlock()
	switch severity {
	case "error":
		p.logger.Error(text)
	case "warning":
		p.logger.Warn(text)
	default:
		p.logger.Info(text)
	}
}

func (p *Project) drainUI() []UIMessage {
	p.uiMu.Lock()
	defer p.uiMu.Unlock()
	out := p.ui
	p.ui = nil
	return out
}

func (p *Project) diagnoseInfo() []string {
	return []string{fmt.Sprintf("Builder: %s", p.adapterName)}
}

// messagesFor returns path's compiler diagnostics plus, for VHDL sources,
// the static linter's style diagnostics (spec §4.6). A path outside the
// project's configured sources gets a synthetic warning rather than an
// error, per hdlerrors.PathNotInProjectFile's documented recovery.
func (p *Project) messagesFor(ctx context.Context, path types.Path) ([]diagnostics.Diagnostic, error) {
	if !p.scheduler.HasFinishedBuilding() {
		p.recordUI("warning", "Project hasn't finished building, try again in a few seconds")
	}

	lang, err := p.sourceLang(path)
	if err != nil {
		if _, ok := err.(*hdlerrors.PathNotInProjectFile); ok {
			msgs := []diagnostics.Diagnostic{{
				Checker:  "hdl-checker",
				Path:     diagnostics.PathPtr(path),
				Severity: diagnostics.Warning,
				Text:     err.Error(),
			}}
			if result, buildErr := p.builder.Build(ctx, builders.BuildSource{Path: path, Library: "undefined"}, false, nil); buildErr == nil {
				msgs = append(msgs, result.Diagnostics...)
			}
			return msgs, nil
		}
		return nil, err
	}

	msgs, err := p.scheduler.MessagesFor(ctx, path)
	if err != nil {
		return nil, err
	}

	if lang == types.VHDL {
		if content, err := parser.ReadSource(path); err == nil {
			msgs = append(msgs, diagnostics.LintVHDL(path, content)...)
		}
	}

	msgs = append(msgs, p.unresolvedDependencyDiagnostics(path)...)
	p.reportAmbiguousResolutions()

	return msgs, nil
}

// unresolvedDependencyDiagnostics attaches a Warning-severity
// DesignUnitNotFound diagnostic at each of path's dependency references
// that doesn't resolve to any configured source (spec §3/§7/§8).
func (p *Project) unresolvedDependencyDiagnostics(path types.Path) []diagnostics.Diagnostic {
	unresolved, err := p.db.UnresolvedDependencies(path)
	if err != nil {
		return nil
	}

	var out []diagnostics.Diagnostic
	for _, dep := range unresolved {
		text := (&hdlerrors.DesignUnitNotFound{Library: dep.Library, Unit: dep.Unit.Name()}).Error()
		locs := dep.Locations
		if len(locs) == 0 {
			locs = []types.Location{{}}
		}
		for _, loc := range locs {
			out = append(out, diagnostics.Diagnostic{
				Checker:  "hdl-checker",
				Path:     diagnostics.PathPtr(path),
				Line:     diagnostics.IntPtr(loc.Line),
				Column:   diagnostics.IntPtr(loc.Column),
				Severity: diagnostics.Warning,
				Text:     text,
			})
		}
	}
	return out
}

// reportAmbiguousResolutions drains any library.unit resolutions found to
// have more than one defining source since the last call and queues one
// UI warning per distinct ambiguity (spec §8).
func (p *Project) reportAmbiguousResolutions() {
	for _, amb := range p.db.DrainAmbiguousResolutions() {
		paths := make([]string, len(amb.Candidates))
		for i, c := range amb.Candidates {
			paths[i] = c.String()
		}
		p.recordUI("warning", fmt.Sprintf("%s.%s is defined in more than one source, picking %s", amb.Library, amb.Unit, paths[0]))
	}
}

func (p *Project) sourceLang(path types.Path) (types.FileType, error) {
	for _, src := range p.db.Paths() {
		if src.SameFile(path) {
			ft, _ := types.FileTypeOf(src.String())
			return ft, nil
		}
	}
	return "", &hdlerrors.PathNotInProjectFile{Path: path.String()}
}

// persist writes the project's database and build cache to its target
// directory (spec §4.7 "serialized before idle shutdown").
func (p *Project) persist() error {
	return persistence.Save(p.targetDir, string(p.adapterName), p.builder, p.db)
}

// RebuildProject starts another build_by_dependency pass over the
// project's sources. Unlike ServerContext.RebuildProject it keeps the
// project's existing database and build cache.
func (p *Project) RebuildProject(ctx context.Context) error {
	return p.scheduler.BuildByDependency(ctx)
}

// WaitForBuild blocks until any in-flight background build completes.
func (p *Project) WaitForBuild() { p.scheduler.WaitForBuild() }

// Paths exposes the project's configured sources, used by the CLI's
// `check` subcommand to report every path's messages.
func (p *Project) Paths() []types.Path { return p.db.Paths() }

// MessagesFor is the Project-level counterpart of ServerContext's
// MessagesByPath, used where a ServerContext isn't available (CLI).
func (p *Project) MessagesFor(ctx context.Context, path types.Path) ([]diagnostics.Diagnostic, error) {
	return p.messagesFor(ctx, path)
}

// Persist exposes persist for callers (CLI) that don't go through
// ServerContext.Shutdown.
func (p *Project) Persist() error { return p.persist() }
