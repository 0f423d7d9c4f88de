package types

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathSameFileViaSymlink(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.vhd")
	if err := os.WriteFile(real, []byte("entity foo is end;"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.vhd")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported on this platform: %v", err)
	}

	a := NewPath(real)
	b := NewPath(link)
	if !a.SameFile(b) {
		t.Fatal("expected real path and symlink to the same file to compare equal")
	}
}

func TestPathSameFileDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.vhd")
	b := filepath.Join(dir, "b.vhd")
	os.WriteFile(a, []byte("a"), 0o644)
	os.WriteFile(b, []byte("b"), 0o644)

	if NewPath(a).SameFile(NewPath(b)) {
		t.Fatal("distinct files must not compare equal")
	}
}

func TestPathBasename(t *testing.T) {
	p := NewPath("/tmp/foo/bar.vhd")
	if p.Basename() != "bar.vhd" {
		t.Fatalf("Basename() = %q, want bar.vhd", p.Basename())
	}
}
