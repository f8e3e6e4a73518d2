package aggregate

import (
	"strings"
	"testing"

	"digin/internal/digest"
)

func TestEnrichAttachesNarrative(t *testing.T) {
	d := digest.Digest{
		Name:         "api",
		Path:         "api",
		Kind:         digest.KindService,
		Summary:      "service grouping 2 components",
		Capabilities: []string{"serves http"},
		Risks:        []string{"no tests"},
		Evidence:     digest.Evidence{Files: []string{"a", "b", "c", "d", "e", "f", "g"}},
	}
	got := Enrich(d)

	if got.Narrative == nil {
		t.Fatalf("narrative missing after enrichment")
	}
	if !strings.Contains(got.Narrative.Overview, "api is a service module.") {
		t.Errorf("unexpected overview: %q", got.Narrative.Overview)
	}
	if len(got.Narrative.ReadingHints) != maxReadingHints {
		t.Errorf("reading hints = %d, want %d", len(got.Narrative.ReadingHints), maxReadingHints)
	}
}

func TestEnrichDeterministic(t *testing.T) {
	d := digest.Digest{Name: "web", Kind: digest.KindUI, Summary: "ui grouping 3 components"}
	a := Enrich(d)
	b := Enrich(d)
	if a.Narrative.Overview != b.Narrative.Overview {
		t.Fatalf("enrichment is not deterministic")
	}
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	d := digest.Digest{Name: "x", Kind: digest.KindLib}
	_ = Enrich(d)
	if d.Narrative != nil {
		t.Fatalf("input digest must stay untouched")
	}
}
