package cache

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"digin/internal/scan"
)

// ChildFingerprint pairs a qualifying child directory with its stored
// fingerprint. Parent fingerprints chain over these, which is what propagates
// a leaf change upward to every ancestor.
type ChildFingerprint struct {
	Path        string
	Fingerprint string
}

// Fingerprinter computes keyed content fingerprints. Run-level switches that
// must invalidate the whole cache (currently the narrative toggle) are folded
// into the key rather than into every input.
type Fingerprinter struct {
	key []byte
}

func NewFingerprinter(narrative bool) *Fingerprinter {
	mode := "plain"
	if narrative {
		mode = "narrative"
	}
	return &Fingerprinter{key: []byte("digin/fingerprint/v1|" + mode)}
}

// Compute returns the fingerprint for a directory given its direct files and
// the stored fingerprints of its qualifying children (empty for a leaf).
// Inputs are canonically sorted so the result is order-independent.
func (f *Fingerprinter) Compute(dir scan.DirInfo, children []ChildFingerprint) string {
	mac := hmac.New(sha256.New, f.key)

	files := append([]scan.FileMeta(nil), dir.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	for _, fm := range files {
		fmt.Fprintf(mac, "file\x00%s\x00%d\x00%d\x00%s\n", fm.Path, fm.Size, fm.ModTime.Unix(), fm.ContentHash)
	}

	kids := append([]ChildFingerprint(nil), children...)
	sort.Slice(kids, func(i, j int) bool { return kids[i].Path < kids[j].Path })
	for _, c := range kids {
		fmt.Fprintf(mac, "child\x00%s\x00%s\n", c.Path, c.Fingerprint)
	}

	return hex.EncodeToString(mac.Sum(nil))
}
