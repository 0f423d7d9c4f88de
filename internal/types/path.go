package types

import (
	"os"
	"path/filepath"
	"time"
)

// Path is an absolute filesystem path. Equality and hashing use OS
// same-file semantics (device+inode on POSIX, volume+file-id on Windows
// via os.SameFile) rather than string comparison, so symlinked or
// differently-cased-but-identical paths compare equal.
type Path struct {
	abs string
}

// NewPath normalizes p to an absolute path. It does not require the file
// to exist; same-file comparisons against a nonexistent path fall back to
// string equality of the normalized form.
func NewPath(p string) Path {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	return Path{abs: abs}
}

// String returns the normalized absolute path.
func (p Path) String() string { return p.abs }

// Basename returns the canonical (OS-normalized) basename.
func (p Path) Basename() string { return filepath.Base(p.abs) }

// Dir returns the containing directory as a Path.
func (p Path) Dir() Path { return NewPath(filepath.Dir(p.abs)) }

// ModTime returns the file's modification time, or the zero time if the
// file can't be stat'd.
func (p Path) ModTime() time.Time {
	info, err := os.Stat(p.abs)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Exists reports whether the path currently resolves to a file.
func (p Path) Exists() bool {
	_, err := os.Stat(p.abs)
	return err == nil
}

// SameFile reports whether p and other refer to the same file on disk,
// using os.SameFile (device+inode on POSIX). Falls back to string
// equality of the normalized absolute path when either side can't be
// stat'd (e.g. the file was deleted or not yet created) — matching the
// common case of indexing a path before it exists.
func (p Path) SameFile(other Path) bool {
	pi, pErr := os.Stat(p.abs)
	oi, oErr := os.Stat(other.abs)
	if pErr == nil && oErr == nil {
		return os.SameFile(pi, oi)
	}
	return p.abs == other.abs
}

// Key returns a string usable as a map key that respects same-file
// semantics for files that exist: it resolves symlinks when possible,
// falling back to the normalized absolute path otherwise. This lets
// callers use Path as (part of) a map key without an O(n) SameFile scan.
func (p Path) Key() string {
	if resolved, err := filepath.EvalSymlinks(p.abs); err == nil {
		return resolved
	}
	return p.abs
}
