package projectmap

import (
	"testing"
	"time"

	"digin/internal/digest"
)

func sampleDigests() map[string]digest.Digest {
	return map[string]digest.Digest{
		".": {
			Name: "demo", Path: ".", Kind: digest.KindService,
			Summary: "service grouping 2 components", Confidence: 80,
			Capabilities: []string{"serves http", "renders pages"},
		},
		"api": {
			Name: "api", Path: "api", Kind: digest.KindService,
			Summary: "http api", Confidence: 90,
			Capabilities: []string{"serves http", "validates input"},
		},
		"api/handlers": {
			Name: "handlers", Path: "api/handlers", Kind: digest.KindLib,
			Summary: "request handlers", Confidence: 85,
			Capabilities: []string{"routes requests", "decodes payloads"},
		},
		"web": {
			Name: "web", Path: "web", Kind: digest.KindUI,
			Summary: "frontend", Confidence: 40,
		},
	}
}

func TestBuildTree(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	m := Build(sampleDigests(), "1.0", now)

	if m.Tree == nil || m.Tree.Path != "." {
		t.Fatalf("tree root missing")
	}
	if len(m.Tree.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(m.Tree.Children))
	}
	// Children sorted by path.
	if m.Tree.Children[0].Path != "api" || m.Tree.Children[1].Path != "web" {
		t.Fatalf("children misordered: %v, %v", m.Tree.Children[0].Path, m.Tree.Children[1].Path)
	}
	if len(m.Tree.Children[0].Children) != 1 {
		t.Fatalf("api should have one child")
	}
}

func TestBuildBridgesExcludedAncestors(t *testing.T) {
	digests := map[string]digest.Digest{
		".":       {Name: "demo", Path: ".", Kind: digest.KindService},
		"a/b/c":   {Name: "c", Path: "a/b/c", Kind: digest.KindLib},
		"a/b/c/d": {Name: "d", Path: "a/b/c/d", Kind: digest.KindLib},
	}
	m := Build(digests, "", time.Now())
	// "a" and "a/b" were never digested; "a/b/c" attaches to the root.
	if len(m.Tree.Children) != 1 || m.Tree.Children[0].Path != "a/b/c" {
		t.Fatalf("gap bridging failed: %+v", m.Tree.Children)
	}
}

func TestImportanceScoring(t *testing.T) {
	m := Build(sampleDigests(), "", time.Now())

	var api, web *Node
	for _, c := range m.Tree.Children {
		switch c.Path {
		case "api":
			api = c
		case "web":
			web = c
		}
	}
	if api == nil || web == nil {
		t.Fatalf("nodes missing")
	}
	// api: high-confidence service with children and an entry keyword.
	if api.Importance <= web.Importance {
		t.Fatalf("api (%v) should outrank web (%v)", api.Importance, web.Importance)
	}
}

func TestRecommendedReading(t *testing.T) {
	m := Build(sampleDigests(), "", time.Now())

	if len(m.Reading) == 0 {
		t.Fatalf("expected recommendations")
	}
	for _, r := range m.Reading {
		if r.Confidence < recommendedMinConfidence {
			t.Errorf("%s recommended below confidence floor", r.Path)
		}
		if r.Reason == "" {
			t.Errorf("%s has no recommendation reason", r.Path)
		}
	}
	// web sits below the confidence floor.
	for _, r := range m.Reading {
		if r.Path == "web" {
			t.Errorf("low-confidence node must not be recommended")
		}
	}
}

func TestStats(t *testing.T) {
	m := Build(sampleDigests(), "", time.Now())
	if m.Stats.Directories != 4 {
		t.Fatalf("directories = %d, want 4", m.Stats.Directories)
	}
	if m.Stats.ByKind["service"] != 2 {
		t.Fatalf("service count = %d, want 2", m.Stats.ByKind["service"])
	}
	// round((80+90+85+40)/4) = 74
	if m.Stats.AvgConfidence != 74 {
		t.Fatalf("avg confidence = %d, want 74", m.Stats.AvgConfidence)
	}
}

func TestBuildEmpty(t *testing.T) {
	m := Build(nil, "", time.Now())
	if m.Tree != nil {
		t.Fatalf("empty input should produce no tree")
	}
	if m.Stats.Directories != 0 {
		t.Fatalf("stats should be empty")
	}
}
