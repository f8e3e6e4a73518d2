package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"digin/internal/digest"
)

const defaultMemEntries = 4096

// CachedStore layers an in-memory LRU over a persistent EntryStore so
// repeated lookups during one run avoid disk reads. Writes go through to the
// origin first; the memory copy is updated only after a successful commit.
type CachedStore struct {
	origin  EntryStore
	entries *lru.Cache[string, Entry]
}

func NewCachedStore(origin EntryStore, maxEntries int) (*CachedStore, error) {
	if maxEntries <= 0 {
		maxEntries = defaultMemEntries
	}
	c, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachedStore{origin: origin, entries: c}, nil
}

func (s *CachedStore) Lookup(ctx context.Context, path string) (Entry, bool, error) {
	if ent, ok := s.entries.Get(path); ok {
		return ent, true, nil
	}
	ent, ok, err := s.origin.Lookup(ctx, path)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	s.entries.Add(path, ent)
	return ent, true, nil
}

func (s *CachedStore) Commit(ctx context.Context, path, fingerprint string, d digest.Digest) error {
	if err := s.origin.Commit(ctx, path, fingerprint, d); err != nil {
		return err
	}
	ent, ok, err := s.origin.Lookup(ctx, path)
	if err == nil && ok {
		s.entries.Add(path, ent)
	}
	return nil
}

func (s *CachedStore) Clear(ctx context.Context, subtree string) (int, error) {
	n, err := s.origin.Clear(ctx, subtree)
	s.entries.Purge()
	return n, err
}
