// Package scheduler implements the build-order scheduler of spec §4.5:
// a dependency-respecting compile order, a single background build
// worker, and recursive rebuild-hint resolution for messages_for.
//
// The background worker follows the scan-goroutine-plus-WaitGroup shape in
// internal/indexing/master_index.go's ListFilesTo in the teacher repo,
// scaled down to the single worker spec §4.5 calls for (external HDL
// compilers are not safely invoked concurrently against the same
// library).
package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/suoto/hdl-checker/internal/builders"
	"github.com/suoto/hdl-checker/internal/database"
	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/hdlerrors"
	"github.com/suoto/hdl-checker/internal/types"
)

const (
	maxCompileOrderPasses = 20
	maxRebuildRounds      = 20
)

// Scheduler drives a Database through compile ordering and builds, using
// a Builder to actually invoke the configured compiler.
type Scheduler struct {
	db      *database.Database
	builder *builders.Builder

	mu       sync.Mutex
	building bool
	buildWg  sync.WaitGroup
	cycle    *hdlerrors.CircularDependency // non-nil while the last CompileOrder found one
}

// New wires a Scheduler to a Database and the Builder that will carry
// out compilation.
func New(db *database.Database, builder *builders.Builder) *Scheduler {
	return &Scheduler{db: db, builder: builder}
}

// CompileOrder computes a dependency-respecting build order over every
// configured source, by relaxation: repeatedly schedule any source whose
// full dependency closure is already scheduled, for up to
// maxCompileOrderPasses passes. A source tangled in a dependency cycle
// never satisfies that condition; rather than aborting, those sources are
// appended least-blocked first and the cycle is recorded as an advisory
// warning (spec §4.5, §7, §8 scenario #4: "compile_order() terminates and
// emits all four").
func (s *Scheduler) CompileOrder() ([]types.Path, error) {
	remaining := s.db.Paths()
	scheduled := make(map[string]bool, len(remaining))
	var order []types.Path

	for pass := 0; pass < maxCompileOrderPasses && len(remaining) > 0; pass++ {
		var stillRemaining []types.Path
		progressed := false

		for _, path := range remaining {
			closure, err := s.db.DependenciesClosure(path)
			if err != nil {
				return nil, err
			}
			ready := true
			for _, dep := range closure {
				if !scheduled[dep.Key()] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, path)
				scheduled[path.Key()] = true
				progressed = true
			} else {
				stillRemaining = append(stillRemaining, path)
			}
		}

		remaining = stillRemaining
		if !progressed {
			break
		}
	}

	if len(remaining) == 0 {
		s.setCycle(nil)
		return order, nil
	}

	blocked := make(map[string]int, len(remaining))
	for _, path := range remaining {
		closure, err := s.db.DependenciesClosure(path)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, dep := range closure {
			if !scheduled[dep.Key()] {
				count++
			}
		}
		blocked[path.Key()] = count
	}
	sort.Slice(remaining, func(i, j int) bool {
		bi, bj := blocked[remaining[i].Key()], blocked[remaining[j].Key()]
		if bi != bj {
			return bi < bj
		}
		return remaining[i].String() < remaining[j].String()
	})

	paths := make([]string, len(remaining))
	for i, path := range remaining {
		order = append(order, path)
		scheduled[path.Key()] = true
		paths[i] = path.String()
	}
	s.setCycle(paths)

	return order, nil
}

// setCycle records (or clears) the paths CompileOrder most recently
// couldn't schedule through normal relaxation, for MessagesFor to attach
// an advisory Warning diagnostic to each.
func (s *Scheduler) setCycle(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(paths) == 0 {
		s.cycle = nil
		return
	}
	s.cycle = &hdlerrors.CircularDependency{Paths: paths}
}

// cycleDiagnostic returns a Warning diagnostic for path if the last
// CompileOrder found it tangled in a cycle, or nil otherwise.
func (s *Scheduler) cycleDiagnostic(path types.Path) *diagnostics.Diagnostic {
	s.mu.Lock()
	cycle := s.cycle
	s.mu.Unlock()
	if cycle == nil {
		return nil
	}
	for _, p := range cycle.Paths {
		if p == path.String() {
			return &diagnostics.Diagnostic{
				Checker:  "hdl-checker",
				Path:     diagnostics.PathPtr(path),
				Severity: diagnostics.Warning,
				Text:     cycle.Error(),
			}
		}
	}
	return nil
}

// HasFinishedBuilding reports whether no background build triggered by
// BuildByDependency is running any more (true once it has finished).
func (s *Scheduler) HasFinishedBuilding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.building
}

// WaitForBuild blocks until any in-flight background build completes.
func (s *Scheduler) WaitForBuild() {
	s.buildWg.Wait()
}

// BuildByDependency starts a single background worker that compiles
// every configured source in CompileOrder(). A build already in flight
// makes this call a no-op, per spec §4.5.
func (s *Scheduler) BuildByDependency(ctx context.Context) error {
	s.mu.Lock()
	if s.building {
		s.mu.Unlock()
		return nil
	}
	s.building = true
	s.buildWg.Add(1)
	s.mu.Unlock()

	order, err := s.CompileOrder()
	if err != nil {
		s.mu.Lock()
		s.building = false
		s.mu.Unlock()
		s.buildWg.Done()
		return err
	}

	go func() {
		defer func() {
			s.mu.Lock()
			s.building = false
			s.mu.Unlock()
			s.buildWg.Done()
		}()
		for _, path := range order {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.buildOne(ctx, path, false)
		}
	}()

	return nil
}

func (s *Scheduler) buildOne(ctx context.Context, path types.Path, forced bool) (builders.BuildResult, error) {
	library, err := s.db.LibraryOf(path)
	if err != nil {
		return builders.BuildResult{}, err
	}
	flags, err := s.db.FlagsOf(path)
	if err != nil {
		return builders.BuildResult{}, err
	}
	return s.builder.Build(ctx, builders.BuildSource{Path: path, Library: library, Flags: flags}, forced, nil)
}

// MessagesFor builds path, following any "work.unit changed, recompile
// me" rebuild hints the compiler reports first, then returns the
// diagnostics for path itself (spec §4.5). Resolution is capped at
// maxRebuildRounds to guard against a hint cycle; exceeding it returns
// RebuildLimitExceeded rather than looping forever.
func (s *Scheduler) MessagesFor(ctx context.Context, path types.Path) ([]diagnostics.Diagnostic, error) {
	result, err := s.buildOne(ctx, path, false)
	if err != nil {
		return nil, err
	}

	for round := 1; len(result.Rebuilds) > 0; round++ {
		if round > maxRebuildRounds {
			return nil, &hdlerrors.RebuildLimitExceeded{Path: path.String(), Limit: maxRebuildRounds}
		}

		for _, hint := range result.Rebuilds {
			dep, err := s.resolveHint(hint)
			if err != nil {
				// An unresolvable hint can't be chased further.
				continue
			}
			if _, err := s.buildOne(ctx, dep, true); err != nil {
				return nil, err
			}
		}

		result, err = s.buildOne(ctx, path, true)
		if err != nil {
			return nil, err
		}
	}

	diags := result.Diagnostics
	if cycleDiag := s.cycleDiagnostic(path); cycleDiag != nil {
		diags = append([]diagnostics.Diagnostic{*cycleDiag}, diags...)
	}
	return diags, nil
}

func (s *Scheduler) resolveHint(hint builders.RebuildHint) (types.Path, error) {
	if hint.RebuildPath != "" {
		return types.NewPath(hint.RebuildPath), nil
	}
	return s.db.Resolve(hint.Library, types.NewIdentifier(hint.Unit, false))
}
