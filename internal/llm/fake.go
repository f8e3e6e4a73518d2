package llm

import (
	"context"
	"fmt"

	"digin/internal/digest"
	"digin/internal/scan"
)

// FakeProvider produces deterministic digests from the directory listing
// alone. It backs the offline provider mode and tests.
type FakeProvider struct{}

func NewFakeProvider() *FakeProvider { return &FakeProvider{} }

func (f *FakeProvider) Name() string { return "fake" }
func (f *FakeProvider) Close() error { return nil }

func (f *FakeProvider) AnalyzeLeaf(_ context.Context, dir scan.DirInfo) (digest.Digest, error) {
	kind := digest.KindUnknown
	exts := map[string]int{}
	files := make([]string, 0, len(dir.Files))
	for _, fm := range dir.Files {
		exts[fm.Ext]++
		files = append(files, fm.Name)
	}
	switch {
	case exts[".html"]+exts[".css"]+exts[".jsx"]+exts[".tsx"]+exts[".vue"] > 0:
		kind = digest.KindUI
	case exts[".go"]+exts[".py"]+exts[".rs"]+exts[".java"] > 0:
		kind = digest.KindLib
	case exts[".md"] > 0:
		kind = digest.KindDocs
	case exts[".yml"]+exts[".yaml"]+exts[".toml"]+exts[".json"] > 0:
		kind = digest.KindConfig
	}

	caps := make([]string, 0, 4)
	for _, ext := range []string{".go", ".py", ".ts", ".js", ".rs"} {
		if exts[ext] > 0 {
			caps = append(caps, fmt.Sprintf("maintains %s sources", ext[1:]))
		}
	}

	conf := 0
	if len(dir.Files) > 0 {
		conf = 50 + min(len(dir.Files)*5, 40)
	}
	return digest.Digest{
		Name:         dir.Name,
		Path:         dir.Path,
		Kind:         kind,
		Summary:      fmt.Sprintf("directory with %d analyzable files", len(dir.Files)),
		Capabilities: caps,
		Evidence:     digest.Evidence{Files: files},
		Confidence:   conf,
	}, nil
}
