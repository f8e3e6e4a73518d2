package digest

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestClampConfidence(t *testing.T) {
	cases := []struct{ in, want int }{
		{-5, 0}, {0, 0}, {50, 50}, {100, 100}, {130, 100},
	}
	for _, tc := range cases {
		if got := ClampConfidence(tc.in); got != tc.want {
			t.Errorf("ClampConfidence(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	if ParseKind("service") != KindService {
		t.Fatalf("valid kind not recognized")
	}
	if ParseKind("frontend-framework") != KindUnknown {
		t.Fatalf("unknown kind must fall back to unknown")
	}
}

func TestNormalize(t *testing.T) {
	d := Digest{Kind: "nonsense", Confidence: 240}
	d.Normalize()
	if d.Kind != KindUnknown {
		t.Errorf("invalid kind should normalize to unknown, got %s", d.Kind)
	}
	if d.Confidence != 100 {
		t.Errorf("confidence should clamp to 100, got %d", d.Confidence)
	}
	if d.Evidence.Files == nil {
		t.Errorf("evidence files should never stay nil")
	}
}

func TestPlaceholder(t *testing.T) {
	d := Placeholder("api", "src/api", "timeout")
	if d.Kind != KindUnknown || d.Confidence != 0 {
		t.Fatalf("placeholder must be unknown with zero confidence: %+v", d)
	}
	if !d.Degraded {
		t.Fatalf("placeholder must be marked degraded")
	}
	found := false
	for _, r := range d.Risks {
		if strings.Contains(r, "timeout") {
			found = true
		}
	}
	if !found {
		t.Fatalf("placeholder risks must carry the cause: %v", d.Risks)
	}
}

func TestNarrativeOmittedWhenAbsent(t *testing.T) {
	raw, err := json.Marshal(Digest{Name: "x", Path: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "narrative") {
		t.Fatalf("nil narrative must be absent from JSON, got %s", raw)
	}
}
