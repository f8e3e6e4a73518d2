package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strings"

	"digin/internal/digest"
)

// leafResponse is the loosely typed shape accepted from a model. Confidence
// arrives as a float from some models and is rounded here.
type leafResponse struct {
	Name             string                             `json:"name"`
	Kind             string                             `json:"kind"`
	Summary          string                             `json:"summary"`
	Capabilities     []string                           `json:"capabilities"`
	PublicInterfaces map[string][]digest.InterfaceEntry `json:"public_interfaces"`
	Dependencies     digest.Dependencies                `json:"dependencies"`
	Configuration    digest.Configuration               `json:"configuration"`
	Risks            []string                           `json:"risks"`
	Evidence         digest.Evidence                    `json:"evidence"`
	Confidence       float64                            `json:"confidence"`
}

// ParseDigest decodes a model response into a normalized digest for the
// given directory path. The path and name are authoritative from the caller;
// whatever the model claimed for them is discarded.
func ParseDigest(raw []byte, dirPath string) (digest.Digest, error) {
	payload, err := ExtractJSON(string(raw))
	if err != nil {
		return digest.Digest{}, err
	}
	var resp leafResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return digest.Digest{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	d := digest.Digest{
		Name:             path.Base(dirPath),
		Path:             dirPath,
		Kind:             digest.ParseKind(resp.Kind),
		Summary:          resp.Summary,
		Capabilities:     resp.Capabilities,
		PublicInterfaces: resp.PublicInterfaces,
		Dependencies:     resp.Dependencies,
		Configuration:    resp.Configuration,
		Risks:            resp.Risks,
		Evidence:         resp.Evidence,
		Confidence:       int(math.Round(resp.Confidence)),
	}
	d.Normalize()
	return d, nil
}

// ExtractJSON returns the first balanced JSON object in s, tolerating code
// fences and prose around it.
func ExtractJSON(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) && strings.HasPrefix(s, "{") {
		return json.RawMessage(s), nil
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return nil, ErrInvalidJSON
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return json.RawMessage(candidate), nil
				}
				return nil, ErrInvalidJSON
			}
		}
	}
	return nil, ErrInvalidJSON
}
