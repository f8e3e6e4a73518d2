package cache

import (
	"context"
	"sync"
	"testing"

	"digin/internal/digest"
)

// countingStore tracks origin hits so the memory layer can be observed.
type countingStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	lookups int
}

func newCountingStore() *countingStore {
	return &countingStore{entries: map[string]Entry{}}
}

func (s *countingStore) Lookup(_ context.Context, path string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	ent, ok := s.entries[path]
	return ent, ok, nil
}

func (s *countingStore) Commit(_ context.Context, path, fingerprint string, d digest.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[path] = Entry{Path: path, Fingerprint: fingerprint, Digest: d}
	return nil
}

func (s *countingStore) Clear(_ context.Context, subtree string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for p := range s.entries {
		if underSubtree(p, subtree) {
			delete(s.entries, p)
			n++
		}
	}
	return n, nil
}

func TestCachedStoreReadThrough(t *testing.T) {
	origin := newCountingStore()
	s, err := NewCachedStore(origin, 8)
	if err != nil {
		t.Fatalf("NewCachedStore: %v", err)
	}
	ctx := context.Background()

	if err := s.Commit(ctx, "api", "fp", digest.Digest{Name: "api", Path: "api"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	origin.mu.Lock()
	origin.lookups = 0
	origin.mu.Unlock()

	for i := 0; i < 3; i++ {
		if _, ok, err := s.Lookup(ctx, "api"); err != nil || !ok {
			t.Fatalf("Lookup: ok=%v err=%v", ok, err)
		}
	}
	origin.mu.Lock()
	defer origin.mu.Unlock()
	if origin.lookups != 0 {
		t.Fatalf("repeated lookups hit the origin %d times", origin.lookups)
	}
}

func TestCachedStoreClearPurgesMemory(t *testing.T) {
	origin := newCountingStore()
	s, _ := NewCachedStore(origin, 8)
	ctx := context.Background()

	if err := s.Commit(ctx, "api", "fp", digest.Digest{Name: "api", Path: "api"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := s.Clear(ctx, "."); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := s.Lookup(ctx, "api"); ok {
		t.Fatalf("entry survived clear in the memory layer")
	}
}
