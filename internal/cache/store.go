package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"digin/internal/digest"
)

// ErrCorrupt marks a persisted entry that could not be decoded. Callers treat
// it as a cache miss; the entry is recomputed and overwritten.
var ErrCorrupt = errors.New("cache: corrupt entry")

// Entry is the unit of persistence: a directory's fingerprint and digest,
// always committed together so neither is observable without the other.
type Entry struct {
	Path        string        `json:"path"`
	Fingerprint string        `json:"fingerprint"`
	Digest      digest.Digest `json:"digest"`
	SavedAt     time.Time     `json:"saved_at"`
}

// IsValid reports whether the stored entry still covers the directory whose
// fresh fingerprint is given. A force-refreshed entry is never valid.
func (e Entry) IsValid(fresh string, force bool) bool {
	return !force && e.Fingerprint != "" && e.Fingerprint == fresh
}

// EntryStore is what the orchestrator needs from a cache backend.
type EntryStore interface {
	Lookup(ctx context.Context, path string) (Entry, bool, error)
	Commit(ctx context.Context, path, fingerprint string, d digest.Digest) error
	Clear(ctx context.Context, subtree string) (int, error)
}

// DiskStore persists one JSON file per directory under root/entries. The
// file name is a hash of the repo-relative path; the path itself lives inside
// the entry so Clear can match subtrees.
type DiskStore struct {
	mu      sync.Mutex
	dataDir string
}

func NewDiskStore(root string) (*DiskStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("cache: root is required")
	}
	dataDir := filepath.Join(root, "entries")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dataDir: dataDir}, nil
}

// Lookup reads the stored entry for a directory. A missing entry returns
// ok=false; an undecodable one returns ok=false with an ErrCorrupt-wrapped
// error so the caller can count it, never abort on it.
func (s *DiskStore) Lookup(_ context.Context, path string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.fileFor(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	var ent Entry
	if err := json.Unmarshal(raw, &ent); err != nil {
		return Entry{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if ent.Fingerprint == "" || ent.Path != path {
		return Entry{}, false, fmt.Errorf("%w: %s: inconsistent record", ErrCorrupt, path)
	}
	return ent, true, nil
}

// Commit atomically replaces the entry for a directory. The fingerprint and
// digest share one file, and the file is staged then renamed, so a reader
// never observes one without the matching other.
func (s *DiskStore) Commit(_ context.Context, path, fingerprint string, d digest.Digest) error {
	if fingerprint == "" {
		return fmt.Errorf("cache: empty fingerprint for %s", path)
	}
	ent := Entry{
		Path:        path,
		Fingerprint: fingerprint,
		Digest:      d,
		SavedAt:     time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(ent, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.fileFor(path)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// Clear removes every persisted entry at or under subtree ("." clears all)
// and returns the number removed. This is the only pruning mechanism; stale
// entries for vanished directories otherwise persist harmlessly.
func (s *DiskStore) Clear(_ context.Context, subtree string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.dataDir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		full := filepath.Join(s.dataDir, f.Name())
		raw, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		var ent Entry
		if err := json.Unmarshal(raw, &ent); err != nil {
			// Corrupt files under the requested subtree root are swept too.
			if subtree == "." {
				if os.Remove(full) == nil {
					removed++
				}
			}
			continue
		}
		if !underSubtree(ent.Path, subtree) {
			continue
		}
		if err := os.Remove(full); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *DiskStore) fileFor(path string) string {
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(s.dataDir, hex.EncodeToString(sum[:])+".json")
}

func underSubtree(path, subtree string) bool {
	if subtree == "." || subtree == "" {
		return true
	}
	return path == subtree || strings.HasPrefix(path, subtree+"/")
}
