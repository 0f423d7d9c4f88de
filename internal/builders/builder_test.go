package builders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/types"
)

type fakeBackend struct {
	output    string
	calls     int
	gotFlags  [][]string
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) CheckEnvironment(context.Context, Runner) error { return nil }
func (f *fakeBackend) BuiltinLibraries() []string { return []string{"ieee"} }
func (f *fakeBackend) SupportedFileTypes() []types.FileType { return []types.FileType{types.VHDL} }
func (f *fakeBackend) CreateLibrary(context.Context, Runner, string, BuildSource) error { return nil }
func (f *fakeBackend) BuildCommands(targetDir string, source BuildSource, flags []string) [][]string {
	f.gotFlags = append(f.gotFlags, flags)
	return [][]string{{"fake-compiler", source.Path.String()}}
}
func (f *fakeBackend) IgnoreLine(line string) bool { return line == "" }
func (f *fakeBackend) ParseDiagnosticLine(line string) []diagnostics.Diagnostic {
	if line == "ERROR: boom" {
		return []diagnostics.Diagnostic{{Checker: "fake", Severity: diagnostics.Error, Text: "boom"}}
	}
	return nil
}
func (f *fakeBackend) ParseRebuildHintLine(line string) []RebuildHint {
	if line == "RECOMPILE work.other" {
		return []RebuildHint{{Library: "work", Unit: "other"}}
	}
	return nil
}

type fakeRunner struct {
	output string
	runs   int
}

func (r *fakeRunner) Run(ctx context.Context, cmd []string) (string, error) {
	r.runs++
	return r.output, nil
}

func writeSource(t *testing.T, dir, name, content string) types.Path {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return types.NewPath(p)
}

func TestBuildParsesDiagnosticsAndRewritesWorkHints(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	backend := &fakeBackend{}
	runner := &fakeRunner{output: "ERROR: boom\nRECOMPILE work.other\n"}
	b := NewBuilder(backend, dir, runner)

	result, err := b.Build(context.Background(), BuildSource{Path: path, Library: "mylib"}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Text != "boom" {
		t.Fatalf("expected one boom diagnostic, got %+v", result.Diagnostics)
	}
	if len(result.Rebuilds) != 1 || result.Rebuilds[0].Library != "mylib" {
		t.Fatalf("expected work rewritten to mylib, got %+v", result.Rebuilds)
	}
}

func TestBuildSkipsRecompileWhenCacheIsFresh(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	backend := &fakeBackend{}
	runner := &fakeRunner{output: ""}
	b := NewBuilder(backend, dir, runner)

	ctx := context.Background()
	if _, err := b.Build(ctx, BuildSource{Path: path, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(ctx, BuildSource{Path: path, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}
	if runner.runs != 1 {
		t.Fatalf("expected a single subprocess invocation when the source hasn't changed, got %d", runner.runs)
	}
}

func TestBuildForcedAlwaysRecompiles(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	backend := &fakeBackend{}
	runner := &fakeRunner{output: ""}
	b := NewBuilder(backend, dir, runner)

	ctx := context.Background()
	if _, err := b.Build(ctx, BuildSource{Path: path, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(ctx, BuildSource{Path: path, Library: "mylib"}, true, nil); err != nil {
		t.Fatal(err)
	}
	if runner.runs != 2 {
		t.Fatalf("expected forced rebuild to recompile, got %d runs", runner.runs)
	}
}

func TestBuildUnionsCallerAndSourceFlagsWithoutDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	backend := &fakeBackend{}
	runner := &fakeRunner{}
	b := NewBuilder(backend, dir, runner)

	_, err := b.Build(context.Background(), BuildSource{Path: path, Library: "mylib", Flags: []string{"-2008"}}, false, []string{"-2008", "--relaxed"})
	if err != nil {
		t.Fatal(err)
	}
	if got := backend.gotFlags[0]; len(got) != 2 {
		t.Fatalf("expected deduped union of two flags, got %v", got)
	}
}

func TestBuildResetsCacheOnErrorSeverityWhenNotCachingErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	backend := &fakeBackend{}
	runner := &fakeRunner{output: "ERROR: boom\n"}
	b := NewBuilder(backend, dir, runner)
	b.CacheErrorMessages = false

	ctx := context.Background()
	if _, err := b.Build(ctx, BuildSource{Path: path, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(ctx, BuildSource{Path: path, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}
	if runner.runs != 2 {
		t.Fatalf("an error-severity build must not be cached, expected 2 runs, got %d", runner.runs)
	}
}

func TestSyncConfigHashFirstCallNeverClears(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	backend := &fakeBackend{}
	runner := &fakeRunner{}
	b := NewBuilder(backend, dir, runner)

	if _, err := b.Build(context.Background(), BuildSource{Path: path, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}

	b.SyncConfigHash(42)

	if got := b.Snapshot(); len(got) != 1 {
		t.Fatalf("expected the first SyncConfigHash call to preserve the cache, got %+v", got)
	}
}

func TestSyncConfigHashClearsCacheOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	backend := &fakeBackend{}
	runner := &fakeRunner{}
	b := NewBuilder(backend, dir, runner)

	if _, err := b.Build(context.Background(), BuildSource{Path: path, Library: "mylib"}, false, nil); err != nil {
		t.Fatal(err)
	}

	b.SyncConfigHash(1)
	if got := b.Snapshot(); len(got) != 1 {
		t.Fatalf("expected the cache to survive an unchanged hash, got %+v", got)
	}

	b.SyncConfigHash(2)
	if got := b.Snapshot(); len(got) != 0 {
		t.Fatalf("expected a changed hash to clear the build cache, got %+v", got)
	}
}

func TestForNameDefaultsUnknownToFallback(t *testing.T) {
	backend := ForName("not-a-real-builder")
	if backend.Name() != "fallback" {
		t.Fatalf("expected fallback for unknown builder name, got %q", backend.Name())
	}
}

func TestModelSimParsesErrorDiagnostic(t *testing.T) {
	diags := ModelSim{}.ParseDiagnosticLine(`** Error: foo.vhd(12): near "entity": syntax error`)
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %+v", diags)
	}
	d := diags[0]
	if d.Severity != diagnostics.Error || *d.Line != 12 || d.Text != `near "entity": syntax error` {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
}

func TestModelSimParsesRecompileHint(t *testing.T) {
	hints := ModelSim{}.ParseRebuildHintLine(`** Error: (vcom-13) Recompile 'work.foo' because 'work.bar' has changed.`)
	if len(hints) != 1 || hints[0].Library != "work" || hints[0].Unit != "foo" {
		t.Fatalf("unexpected hints: %+v", hints)
	}
}

func TestGHDLParsesErrorDiagnostic(t *testing.T) {
	diags := GHDL{}.ParseDiagnosticLine(`foo.vhd:3:5: error: no declaration for "bar"`)
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %+v", diags)
	}
	d := diags[0]
	if d.Severity != diagnostics.Error || *d.Line != 3 || *d.Column != 5 {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
}

func TestXvhdlParsesErrorDiagnosticAndRecompileHint(t *testing.T) {
	diags := Xvhdl{}.ParseDiagnosticLine(`ERROR: [VRFC 10-1412] syntax error near entity [foo.vhd:12]`)
	if len(diags) != 1 || diags[0].Severity != diagnostics.Error || diags[0].ErrorCode != "VRFC 10-1412" {
		t.Fatalf("unexpected diagnostic: %+v", diags)
	}

	hints := Xvhdl{}.ParseRebuildHintLine(`please recompile 'foo.vhd'`)
	if len(hints) != 1 || hints[0].RebuildPath != "foo.vhd" {
		t.Fatalf("unexpected hints: %+v", hints)
	}
}

func TestFallbackNeverShellsOut(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "foo.vhd", "entity foo is end entity;")

	runner := &fakeRunner{}
	b := NewBuilder(Fallback{}, dir, runner)

	result, err := b.Build(context.Background(), BuildSource{Path: path, Library: "mylib"}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if runner.runs != 0 {
		t.Fatalf("fallback must never invoke a subprocess, got %d runs", runner.runs)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics from fallback, got %+v", result.Diagnostics)
	}
}
