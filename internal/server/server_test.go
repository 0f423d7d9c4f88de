package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProjectUnknownBuilderDowngradesToFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "foo.vhd"), "entity foo is end entity;")
	projectFile := filepath.Join(dir, "project.cfg")
	writeFile(t, projectFile, "builder = msim\nvhdl mylib foo.vhd\n")

	ctx := New(nil)
	p, err := ctx.Project(context.Background(), projectFile)
	if err != nil {
		t.Fatal(err)
	}
	p.WaitForBuild()

	if p.adapterName != "fallback" {
		t.Fatalf("expected the unreachable msim builder to downgrade to fallback, got %q", p.adapterName)
	}

	msgs, err := ctx.UIMessages(context.Background(), projectFile)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range msgs {
		if m.Severity == "warning" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning UI message about the environment check failure, got %+v", msgs)
	}
}

func TestMessagesByPathMergesStaticLinterDiagnostics(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "foo.vhd"), "entity foo is\n  port (\n    unused_port : in std_logic\n  );\nend entity;\n")
	projectFile := filepath.Join(dir, "project.cfg")
	writeFile(t, projectFile, "vhdl mylib foo.vhd\n")

	ctx := New(nil)
	msgs, err := ctx.MessagesByPath(context.Background(), projectFile, filepath.Join(dir, "foo.vhd"))
	if err != nil {
		t.Fatal(err)
	}
	foundUnused := false
	for _, m := range msgs {
		if m.Text == "port 'unused_port' is never used" {
			foundUnused = true
		}
	}
	if !foundUnused {
		t.Fatalf("expected the static linter's unused-port diagnostic, got %+v", msgs)
	}
}

func TestMessagesByPathOnUnknownPathReturnsSyntheticWarning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "foo.vhd"), "entity foo is end entity;")
	projectFile := filepath.Join(dir, "project.cfg")
	writeFile(t, projectFile, "vhdl mylib foo.vhd\n")

	ctx := New(nil)
	msgs, err := ctx.MessagesByPath(context.Background(), projectFile, filepath.Join(dir, "not_configured.vhd"))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Severity.String() != "Warning" {
		t.Fatalf("expected a single synthetic Warning diagnostic, got %+v", msgs)
	}
}

func TestRebuildProjectRecreatesProjectState(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "foo.vhd"), "entity foo is end entity;")
	projectFile := filepath.Join(dir, "project.cfg")
	writeFile(t, projectFile, "vhdl mylib foo.vhd\n")

	ctx := New(nil)
	first, err := ctx.Project(context.Background(), projectFile)
	if err != nil {
		t.Fatal(err)
	}
	first.WaitForBuild()

	if err := ctx.RebuildProject(context.Background(), projectFile); err != nil {
		t.Fatal(err)
	}

	second, err := ctx.Project(context.Background(), projectFile)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("expected RebuildProject to replace the Project instance")
	}
}

func TestDiagnoseInfoIncludesBuilderWhenProjectFileExists(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "foo.vhd"), "entity foo is end entity;")
	projectFile := filepath.Join(dir, "project.cfg")
	writeFile(t, projectFile, "vhdl mylib foo.vhd\n")

	ctx := New(nil)
	info, err := ctx.DiagnoseInfo(context.Background(), projectFile)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, line := range info {
		if line == "Builder: fallback" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 'Builder: fallback' diagnose line, got %+v", info)
	}
}

func TestDiagnoseInfoWithoutProjectFileOmitsBuilderLine(t *testing.T) {
	ctx := New(nil)
	info, err := ctx.DiagnoseInfo(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range info {
		if len(line) >= 8 && line[:8] == "Builder:" {
			t.Fatalf("expected no Builder line without a project file, got %+v", info)
		}
	}
}
