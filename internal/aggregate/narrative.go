package aggregate

import (
	"fmt"
	"strings"

	"digin/internal/digest"
)

const maxReadingHints = 5

// Enrich attaches the narrative fields to an already-aggregated digest. It is
// a separate pass over the same record so the deterministic merge stays
// testable on its own; when narrative mode is off this function is simply
// never called and the fields stay absent.
func Enrich(d digest.Digest) digest.Digest {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is a %s module.", d.Name, d.Kind)
	if d.Summary != "" {
		b.WriteString(" " + sentence(d.Summary))
	}
	if len(d.Capabilities) > 0 {
		fmt.Fprintf(&b, " It provides %s.", strings.Join(d.Capabilities, ", "))
	}
	if len(d.Risks) > 0 {
		fmt.Fprintf(&b, " %d risk(s) were noted.", len(d.Risks))
	}

	hints := d.Evidence.Files
	if len(hints) > maxReadingHints {
		hints = hints[:maxReadingHints]
	}
	d.Narrative = &digest.Narrative{
		Overview:     b.String(),
		ReadingHints: append([]string(nil), hints...),
	}
	return d
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
