package safeio

import (
	"os"
	"path/filepath"
	"testing"
)

func newRoot(t *testing.T) (string, *RootFS) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	r, err := NewRootFS(dir)
	if err != nil {
		t.Fatalf("NewRootFS: %v", err)
	}
	return dir, r
}

func TestNewRootFSRejectsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewRootFS(file); err == nil {
		t.Fatalf("file root must be rejected")
	}
}

func TestJoinRejectsEscape(t *testing.T) {
	_, r := newRoot(t)
	for _, rel := range []string{"..", "../other", "/etc/passwd"} {
		if _, err := r.ReadDir(rel); err == nil {
			t.Errorf("path %q should be rejected", rel)
		}
	}
}

func TestReadFileLimit(t *testing.T) {
	_, r := newRoot(t)
	raw, err := r.ReadFile("file.txt", 5)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "hello" {
		t.Fatalf("limited read = %q", raw)
	}

	full, err := r.ReadFile("file.txt", 0)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(full) != "hello world" {
		t.Fatalf("unlimited read = %q", full)
	}
}

func TestReadFileOnDirectory(t *testing.T) {
	_, r := newRoot(t)
	if _, err := r.ReadFile("sub", 0); err == nil {
		t.Fatalf("reading a directory should fail")
	}
}

func TestCanonicalStaysInRoot(t *testing.T) {
	dir, r := newRoot(t)
	got, err := r.Canonical("sub")
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(dir, "sub"))
	if got != want {
		t.Fatalf("Canonical = %q, want %q", got, want)
	}
}

func TestCanonicalRejectsEscapingSymlink(t *testing.T) {
	dir, r := newRoot(t)
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dir, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := r.Canonical("escape"); err == nil {
		t.Fatalf("symlink escaping the root must be rejected")
	}
}
