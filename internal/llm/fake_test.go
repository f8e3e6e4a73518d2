package llm

import (
	"context"
	"reflect"
	"testing"

	"digin/internal/digest"
	"digin/internal/scan"
)

func TestFakeProviderDeterministic(t *testing.T) {
	p := NewFakeProvider()
	dir := scan.DirInfo{
		Name: "api",
		Path: "api",
		Files: []scan.FileMeta{
			{Name: "main.go", Ext: ".go"},
			{Name: "util.go", Ext: ".go"},
		},
	}
	a, err := p.AnalyzeLeaf(context.Background(), dir)
	if err != nil {
		t.Fatalf("AnalyzeLeaf: %v", err)
	}
	b, _ := p.AnalyzeLeaf(context.Background(), dir)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("fake provider is not deterministic")
	}
	if a.Kind != digest.KindLib {
		t.Errorf("go files should classify as lib, got %s", a.Kind)
	}
	if a.Confidence != 60 {
		t.Errorf("confidence = %d, want 60 for 2 files", a.Confidence)
	}
}

func TestFakeProviderEmptyDir(t *testing.T) {
	p := NewFakeProvider()
	d, err := p.AnalyzeLeaf(context.Background(), scan.DirInfo{Name: "empty", Path: "empty"})
	if err != nil {
		t.Fatalf("AnalyzeLeaf: %v", err)
	}
	if d.Kind != digest.KindUnknown || d.Confidence != 0 {
		t.Fatalf("empty dir should be unknown/0, got %s/%d", d.Kind, d.Confidence)
	}
}
