package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RootFS provides read-only filesystem access locked to a single root
// directory. All paths are repo-relative with forward slashes; resolution
// follows symlinks and rejects anything that escapes the root.
type RootFS struct {
	absRoot string // absolute root with symlinks resolved
}

// NewRootFS resolves root to an absolute, symlink-free directory and locks
// all future operations under it.
func NewRootFS(root string) (*RootFS, error) {
	if root == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: root is not a directory")
	}
	return &RootFS{absRoot: abs}, nil
}

// Root returns the absolute root directory bound to this filesystem.
func (r *RootFS) Root() string {
	if r == nil {
		return ""
	}
	return r.absRoot
}

// Canonical resolves a repo-relative path through symlinks and returns the
// absolute result. It fails when the resolved path lies outside the root, so
// a symlink escaping the tree can never be followed.
func (r *RootFS) Canonical(rel string) (string, error) {
	joined, err := r.join(rel)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !underRoot(resolved, r.absRoot) {
		return "", fmt.Errorf("safeio: %s resolves outside root", rel)
	}
	return resolved, nil
}

// ReadDir lists entries of a repo-relative directory.
func (r *RootFS) ReadDir(rel string) ([]fs.DirEntry, error) {
	p, err := r.join(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(p)
}

// Stat returns metadata for a repo-relative path.
func (r *RootFS) Stat(rel string) (fs.FileInfo, error) {
	p, err := r.join(rel)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// ReadFile reads a repo-relative file, capped at limit bytes when limit > 0.
func (r *RootFS) ReadFile(rel string, limit int64) ([]byte, error) {
	p, err := r.join(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("safeio: path is a directory")
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(raw)) > limit {
		raw = raw[:limit]
	}
	return raw, nil
}

func (r *RootFS) join(rel string) (string, error) {
	if r == nil {
		return "", errors.New("safeio: filesystem not configured")
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || clean == "" {
		return r.absRoot, nil
	}
	if filepath.IsAbs(clean) {
		return "", errors.New("safeio: absolute path not allowed")
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New("safeio: path traversal not allowed")
	}
	return filepath.Join(r.absRoot, clean), nil
}

func underRoot(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
