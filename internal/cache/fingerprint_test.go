package cache

import (
	"testing"
	"time"

	"digin/internal/scan"
)

func sampleDir() scan.DirInfo {
	mod := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return scan.DirInfo{
		Name: "api",
		Path: "api",
		Files: []scan.FileMeta{
			{Path: "api/main.go", Size: 120, ModTime: mod, ContentHash: "aaa"},
			{Path: "api/util.go", Size: 80, ModTime: mod, ContentHash: "bbb"},
		},
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	fp := NewFingerprinter(false)
	a := fp.Compute(sampleDir(), nil)
	b := fp.Compute(sampleDir(), nil)
	if a != b {
		t.Fatalf("same inputs produced different fingerprints")
	}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	fp := NewFingerprinter(false)
	dir := sampleDir()
	rev := sampleDir()
	rev.Files[0], rev.Files[1] = rev.Files[1], rev.Files[0]

	kids := []ChildFingerprint{{Path: "api/v1", Fingerprint: "f1"}, {Path: "api/v2", Fingerprint: "f2"}}
	revKids := []ChildFingerprint{kids[1], kids[0]}

	if fp.Compute(dir, kids) != fp.Compute(rev, revKids) {
		t.Fatalf("fingerprint depends on input order")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	fp := NewFingerprinter(false)
	base := fp.Compute(sampleDir(), nil)

	edited := sampleDir()
	edited.Files[0].ContentHash = "changed"
	if fp.Compute(edited, nil) == base {
		t.Errorf("content change must alter the fingerprint")
	}

	touched := sampleDir()
	touched.Files[0].ModTime = touched.Files[0].ModTime.Add(time.Minute)
	if fp.Compute(touched, nil) == base {
		t.Errorf("mtime change must alter the fingerprint")
	}

	grown := sampleDir()
	grown.Files[0].Size++
	if fp.Compute(grown, nil) == base {
		t.Errorf("size change must alter the fingerprint")
	}
}

func TestFingerprintChildPropagation(t *testing.T) {
	fp := NewFingerprinter(false)
	before := fp.Compute(sampleDir(), []ChildFingerprint{{Path: "api/v1", Fingerprint: "old"}})
	after := fp.Compute(sampleDir(), []ChildFingerprint{{Path: "api/v1", Fingerprint: "new"}})
	if before == after {
		t.Fatalf("child fingerprint change must alter the parent fingerprint")
	}
}

func TestFingerprintNarrativeToggle(t *testing.T) {
	plain := NewFingerprinter(false).Compute(sampleDir(), nil)
	narrative := NewFingerprinter(true).Compute(sampleDir(), nil)
	if plain == narrative {
		t.Fatalf("narrative toggle must invalidate every fingerprint")
	}
}
