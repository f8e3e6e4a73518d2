package digest

import (
	"sort"
	"time"
)

// Kind classifies what a directory is for. The set is closed; anything the
// analyzer cannot classify stays KindUnknown.
type Kind string

const (
	KindService Kind = "service"
	KindLib     Kind = "lib"
	KindUI      Kind = "ui"
	KindInfra   Kind = "infra"
	KindConfig  Kind = "config"
	KindTest    Kind = "test"
	KindDocs    Kind = "docs"
	KindUnknown Kind = "unknown"
)

var allKinds = map[Kind]struct{}{
	KindService: {}, KindLib: {}, KindUI: {}, KindInfra: {},
	KindConfig: {}, KindTest: {}, KindDocs: {}, KindUnknown: {},
}

func (k Kind) Valid() bool {
	_, ok := allKinds[k]
	return ok
}

// ParseKind maps a free-form string to a Kind, falling back to KindUnknown.
func ParseKind(s string) Kind {
	k := Kind(s)
	if k.Valid() {
		return k
	}
	return KindUnknown
}

// InterfaceEntry is one public surface item (endpoint, exported symbol, CLI
// command, ...) with the file paths that evidence it.
type InterfaceEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Evidence    []string `json:"evidence,omitempty"`
}

type Dependencies struct {
	Internal []string `json:"internal,omitempty"`
	External []string `json:"external,omitempty"`
}

type Configuration struct {
	Env   []string `json:"env,omitempty"`
	Files []string `json:"files,omitempty"`
}

type Evidence struct {
	Files []string `json:"files"`
}

// Narrative carries the optional enrichment fields. It is attached only when
// narrative mode is enabled; otherwise the field is absent from the record.
type Narrative struct {
	Overview     string   `json:"overview"`
	ReadingHints []string `json:"reading_hints,omitempty"`
}

// Digest is the per-directory analysis record. A directory has at most one
// current digest; recomputation replaces the whole record.
type Digest struct {
	Name             string                      `json:"name"`
	Path             string                      `json:"path"`
	Kind             Kind                        `json:"kind"`
	Summary          string                      `json:"summary"`
	Capabilities     []string                    `json:"capabilities,omitempty"`
	PublicInterfaces map[string][]InterfaceEntry `json:"public_interfaces,omitempty"`
	Dependencies     Dependencies                `json:"dependencies"`
	Configuration    Configuration               `json:"configuration"`
	Risks            []string                    `json:"risks,omitempty"`
	Evidence         Evidence                    `json:"evidence"`
	Confidence       int                         `json:"confidence"`
	AnalyzedAt       time.Time                   `json:"analyzed_at"`
	AnalyzerVersion  string                      `json:"analyzer_version"`
	Narrative        *Narrative                  `json:"narrative,omitempty"`
	Degraded         bool                        `json:"degraded,omitempty"`
}

// ClampConfidence forces c into [0,100].
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Normalize repairs a digest coming from an external producer: invalid kind
// becomes unknown, confidence is clamped, nil evidence gets an empty slice.
func (d *Digest) Normalize() {
	if !d.Kind.Valid() {
		d.Kind = KindUnknown
	}
	d.Confidence = ClampConfidence(d.Confidence)
	if d.Evidence.Files == nil {
		d.Evidence.Files = []string{}
	}
}

// Placeholder builds the degraded digest recorded when a provider call fails.
// It participates in parent aggregation instead of blocking it.
func Placeholder(name, path, cause string) Digest {
	return Digest{
		Name:       name,
		Path:       path,
		Kind:       KindUnknown,
		Summary:    "analysis unavailable",
		Risks:      []string{"analysis failed: " + cause},
		Evidence:   Evidence{Files: []string{}},
		Confidence: 0,
		Degraded:   true,
	}
}

// SortedKeys returns the interface categories in stable order.
func SortedKeys(m map[string][]InterfaceEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
