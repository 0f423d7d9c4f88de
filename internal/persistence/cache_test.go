package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/suoto/hdl-checker/internal/builders"
	"github.com/suoto/hdl-checker/internal/database"
	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/hdlconfig"
	"github.com/suoto/hdl-checker/internal/hdlerrors"
	"github.com/suoto/hdl-checker/internal/types"
)

func writeSource(t *testing.T, dir, name, content string) types.Path {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return types.NewPath(p)
}

func TestLoadReturnsNilWhenNoCacheFileExists(t *testing.T) {
	cf, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cf != nil {
		t.Fatalf("expected a nil CacheFile, got %+v", cf)
	}
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, CacheFileName), []byte(`{"schema_version": 99}`), 0o644)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected a CacheDecodeError on schema mismatch")
	}
	if _, ok := err.(*hdlerrors.CacheDecodeError); !ok {
		t.Fatalf("expected *hdlerrors.CacheDecodeError, got %T: %v", err, err)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, CacheFileName), []byte(`{not json`), 0o644)

	_, err := Load(dir)
	if _, ok := err.(*hdlerrors.CacheDecodeError); !ok {
		t.Fatalf("expected *hdlerrors.CacheDecodeError, got %T: %v", err, err)
	}
}

func TestSaveThenLoadRoundTripsDatabaseAndBuildCache(t *testing.T) {
	dir := t.TempDir()
	foo := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	db := database.New()
	db.Accept(&hdlconfig.Config{
		Sources: []hdlconfig.SourceSpec{{Path: foo, Library: "mylib", Lang: types.VHDL}},
		Hash:    7,
	}, []string{"ieee"})
	units, err := db.DesignUnitsOf(foo)
	if err != nil || len(units) != 1 {
		t.Fatalf("unexpected parse: %+v %v", units, err)
	}

	backend := noopBackend{}
	builder := builders.NewBuilder(backend, dir, noopRunner{})
	if _, err := builder.Build(context.Background(), builders.BuildSource{Path: foo, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}

	if err := Save(dir, "fallback", builder, db); err != nil {
		t.Fatal(err)
	}

	cf, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cf == nil {
		t.Fatal("expected a non-nil CacheFile after Save")
	}
	if cf.DatabaseState.ConfigHash != 7 {
		t.Fatalf("expected config hash 7, got %d", cf.DatabaseState.ConfigHash)
	}
	if len(cf.DatabaseState.Sources) != 1 || len(cf.DatabaseState.Sources[0].Units) != 1 {
		t.Fatalf("expected one source with one unit, got %+v", cf.DatabaseState.Sources)
	}
	if cf.DatabaseState.Sources[0].Units[0].Class != "entity" {
		t.Fatalf("expected __class__ entity, got %q", cf.DatabaseState.Sources[0].Units[0].Class)
	}

	db2 := database.New()
	db2.Accept(&hdlconfig.Config{
		Sources: []hdlconfig.SourceSpec{{Path: foo, Library: "mylib", Lang: types.VHDL}},
		Hash:    7,
	}, nil)
	builder2 := builders.NewBuilder(backend, dir, noopRunner{})
	Apply(cf, db2, builder2)

	units2, err := db2.DesignUnitsOf(foo)
	if err != nil {
		t.Fatal(err)
	}
	if len(units2) != 1 || units2[0].Name.Name() != "foo" {
		t.Fatalf("expected the restored entity foo, got %+v", units2)
	}

	if _, err := db2.LibraryOf(foo); err != nil {
		t.Fatal(err)
	}

	if got := builder2.Snapshot(); len(got) != 1 {
		t.Fatalf("expected the build cache to carry over on a matching config hash, got %+v", got)
	}
}

func TestApplySkipsBuildCacheWhenConfigHashChanged(t *testing.T) {
	dir := t.TempDir()
	foo := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	db := database.New()
	db.Accept(&hdlconfig.Config{
		Sources: []hdlconfig.SourceSpec{{Path: foo, Library: "mylib", Lang: types.VHDL}},
		Hash:    7,
	}, nil)

	backend := noopBackend{}
	builder := builders.NewBuilder(backend, dir, noopRunner{})
	if _, err := builder.Build(context.Background(), builders.BuildSource{Path: foo, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}
	if err := Save(dir, "fallback", builder, db); err != nil {
		t.Fatal(err)
	}

	cf, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	// db2 is accepted with a different config hash (as if the project file
	// changed since the cache was written): the restored build cache must
	// not apply even though the source identity itself is unchanged.
	db2 := database.New()
	db2.Accept(&hdlconfig.Config{
		Sources: []hdlconfig.SourceSpec{{Path: foo, Library: "mylib", Lang: types.VHDL}},
		Hash:    8,
	}, nil)
	builder2 := builders.NewBuilder(backend, dir, noopRunner{})
	Apply(cf, db2, builder2)

	if got := builder2.Snapshot(); len(got) != 0 {
		t.Fatalf("expected the build cache to be skipped on a changed config hash, got %+v", got)
	}
}

type noopBackend struct{}

func (noopBackend) Name() string                                           { return "fallback" }
func (noopBackend) CheckEnvironment(context.Context, builders.Runner) error { return nil }
func (noopBackend) BuiltinLibraries() []string                             { return nil }
func (noopBackend) SupportedFileTypes() []types.FileType                   { return []types.FileType{types.VHDL} }
func (noopBackend) CreateLibrary(context.Context, builders.Runner, string, builders.BuildSource) error {
	return nil
}
func (noopBackend) BuildCommands(string, builders.BuildSource, []string) [][]string { return nil }
func (noopBackend) IgnoreLine(string) bool                                          { return true }
func (noopBackend) ParseDiagnosticLine(string) []diagnostics.Diagnostic { return nil }
func (noopBackend) ParseRebuildHintLine(string) []builders.RebuildHint  { return nil }

type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, cmd []string) (string, error) { return "", nil }
