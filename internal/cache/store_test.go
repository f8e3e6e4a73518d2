package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"digin/internal/digest"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	return s
}

func TestDiskStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := digest.Digest{Name: "api", Path: "api", Kind: digest.KindService, Summary: "http api", Confidence: 85}
	if err := s.Commit(ctx, "api", "fp-1", d); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ent, ok, err := s.Lookup(ctx, "api")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if ent.Fingerprint != "fp-1" || ent.Digest.Summary != "http api" {
		t.Fatalf("unexpected entry: %+v", ent)
	}
	if ent.SavedAt.IsZero() {
		t.Fatalf("SavedAt not recorded")
	}
}

func TestEntryIsValid(t *testing.T) {
	ent := Entry{Path: "api", Fingerprint: "fp-1"}
	if !ent.IsValid("fp-1", false) {
		t.Errorf("matching fingerprint should be valid")
	}
	if ent.IsValid("fp-2", false) {
		t.Errorf("mismatched fingerprint should be invalid")
	}
	if ent.IsValid("fp-1", true) {
		t.Errorf("force refresh must invalidate a matching entry")
	}
	if (Entry{}).IsValid("", false) {
		t.Errorf("empty entry can never be valid")
	}
}

func TestDiskStoreMissing(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Lookup(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("missing entry must not error: %v", err)
	}
	if ok {
		t.Fatalf("missing entry reported as present")
	}
}

func TestDiskStoreCorruptEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Commit(ctx, "api", "fp-1", digest.Digest{Name: "api", Path: "api"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := os.WriteFile(s.fileFor("api"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt write: %v", err)
	}

	_, ok, err := s.Lookup(ctx, "api")
	if ok {
		t.Fatalf("corrupt entry reported as valid")
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt, got %v", err)
	}
}

func TestDiskStoreRejectsEmptyFingerprint(t *testing.T) {
	s := newTestStore(t)
	if err := s.Commit(context.Background(), "api", "", digest.Digest{}); err == nil {
		t.Fatalf("empty fingerprint must be rejected")
	}
}

func TestDiskStoreCommitReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Commit(ctx, "api", "fp-1", digest.Digest{Name: "api", Path: "api", Confidence: 10}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := s.Commit(ctx, "api", "fp-2", digest.Digest{Name: "api", Path: "api", Confidence: 90}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	ent, ok, err := s.Lookup(ctx, "api")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if ent.Fingerprint != "fp-2" || ent.Digest.Confidence != 90 {
		t.Fatalf("commit did not replace entry: %+v", ent)
	}
	// No stray temp files left behind.
	files, _ := os.ReadDir(s.dataDir)
	for _, f := range files {
		if filepath.Ext(f.Name()) == ".tmp" {
			t.Fatalf("temp file left after commit: %s", f.Name())
		}
	}
}

func TestDiskStoreClearSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, p := range []string{".", "api", "api/handlers", "web"} {
		if err := s.Commit(ctx, p, "fp-"+p, digest.Digest{Name: p, Path: p}); err != nil {
			t.Fatalf("Commit %s: %v", p, err)
		}
	}

	removed, err := s.Clear(ctx, "api")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, ok, _ := s.Lookup(ctx, "api/handlers"); ok {
		t.Fatalf("subtree entry survived clear")
	}
	if _, ok, _ := s.Lookup(ctx, "web"); !ok {
		t.Fatalf("unrelated entry was cleared")
	}
}

func TestDiskStoreClearAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Commit(ctx, "api", "fp", digest.Digest{Name: "api", Path: "api"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	// A corrupt file is swept by a full clear.
	if err := os.WriteFile(filepath.Join(s.dataDir, "junk.json"), []byte("???"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	removed, err := s.Clear(ctx, ".")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
}
