// Package projectmap turns a set of directory digests into a navigable
// project overview: a digest tree with importance scores, a recommended
// reading list, and summary statistics.
package projectmap

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"digin/internal/digest"
)

const (
	recommendedLimit         = 10
	recommendedMinConfidence = 70
	recommendedMinCaps       = 2
)

// Node is one directory in the digest tree.
type Node struct {
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	Kind         string   `json:"kind"`
	Summary      string   `json:"summary"`
	Capabilities []string `json:"capabilities,omitempty"`
	Confidence   int      `json:"confidence"`
	Importance   float64  `json:"importance"`
	Recommended  bool     `json:"recommended,omitempty"`
	Children     []*Node  `json:"children,omitempty"`
}

// Reading is one recommended entry point into the codebase.
type Reading struct {
	Title        string   `json:"title"`
	Path         string   `json:"path"`
	Kind         string   `json:"kind"`
	Summary      string   `json:"summary"`
	Capabilities []string `json:"capabilities,omitempty"`
	Confidence   int      `json:"confidence"`
	Reason       string   `json:"reason"`
}

// Stats summarizes the mapped tree.
type Stats struct {
	Directories   int            `json:"directories"`
	ByKind        map[string]int `json:"by_kind"`
	AvgConfidence int            `json:"avg_confidence"`
	Recommended   int            `json:"recommended"`
}

// Map is the serialized project overview.
type Map struct {
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version,omitempty"`
	Tree        *Node     `json:"tree"`
	Reading     []Reading `json:"recommended_reading,omitempty"`
	Stats       Stats     `json:"stats"`
}

// Build assembles a project map from digests keyed by repo-relative path.
// The root digest must be present under ".".
func Build(digests map[string]digest.Digest, version string, now time.Time) *Map {
	nodes := make(map[string]*Node, len(digests))
	for p, d := range digests {
		nodes[p] = &Node{
			Name:         d.Name,
			Path:         p,
			Kind:         string(d.Kind),
			Summary:      d.Summary,
			Capabilities: d.Capabilities,
			Confidence:   d.Confidence,
		}
	}
	root := attach(nodes)
	if root == nil {
		return &Map{GeneratedAt: now, Version: version, Stats: Stats{ByKind: map[string]int{}}}
	}
	score(root)
	reading := recommend(nodes)
	return &Map{
		GeneratedAt: now,
		Version:     version,
		Tree:        root,
		Reading:     reading,
		Stats:       statistics(nodes, len(reading)),
	}
}

// attach links every node under its nearest mapped ancestor and returns the
// root. Directories excluded from analysis leave gaps, so the parent walk
// climbs until it finds one that was digested.
func attach(nodes map[string]*Node) *Node {
	for p, n := range nodes {
		if p == "." {
			continue
		}
		parent := parentPath(p)
		for parent != "." {
			if _, ok := nodes[parent]; ok {
				break
			}
			parent = parentPath(parent)
		}
		if pn, ok := nodes[parent]; ok {
			pn.Children = append(pn.Children, n)
		}
	}
	for _, n := range nodes {
		sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Path < n.Children[j].Path })
	}
	return nodes["."]
}

func parentPath(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "."
	}
	return p[:i]
}

var kindWeights = map[string]float64{
	"service": 10,
	"lib":     8,
	"infra":   7,
	"ui":      6,
	"config":  4,
	"test":    3,
	"docs":    2,
}

var entryKeywords = []string{"main", "index", "app", "server", "client", "core"}

func score(n *Node) {
	s := float64(n.Confidence) * 0.1
	s += float64(len(n.Capabilities)) * 2
	if w, ok := kindWeights[n.Kind]; ok {
		s += w
	} else {
		s += 1
	}
	s += float64(len(n.Children)) * 1.5
	lower := strings.ToLower(n.Name)
	for _, kw := range entryKeywords {
		if strings.Contains(lower, kw) {
			s += 5
			break
		}
	}
	n.Importance = math.Round(s*10) / 10
	for _, c := range n.Children {
		score(c)
	}
}

func recommend(nodes map[string]*Node) []Reading {
	var picked []*Node
	for _, n := range nodes {
		if n.Confidence >= recommendedMinConfidence && len(n.Capabilities) >= recommendedMinCaps {
			picked = append(picked, n)
		}
	}
	sort.Slice(picked, func(i, j int) bool {
		if picked[i].Importance != picked[j].Importance {
			return picked[i].Importance > picked[j].Importance
		}
		return picked[i].Path < picked[j].Path
	})
	if len(picked) > recommendedLimit {
		picked = picked[:recommendedLimit]
	}
	out := make([]Reading, 0, len(picked))
	for _, n := range picked {
		n.Recommended = true
		caps := n.Capabilities
		if len(caps) > 3 {
			caps = caps[:3]
		}
		out = append(out, Reading{
			Title:        n.Name,
			Path:         n.Path,
			Kind:         n.Kind,
			Summary:      n.Summary,
			Capabilities: caps,
			Confidence:   n.Confidence,
			Reason:       reason(n),
		})
	}
	return out
}

func reason(n *Node) string {
	switch {
	case len(n.Children) >= 3:
		return fmt.Sprintf("central %s module with %d components", n.Kind, len(n.Children))
	case n.Confidence >= 90:
		return "well-understood " + n.Kind + " module"
	default:
		return "notable " + n.Kind + " module"
	}
}

func statistics(nodes map[string]*Node, recommended int) Stats {
	st := Stats{Directories: len(nodes), ByKind: make(map[string]int), Recommended: recommended}
	total := 0
	for _, n := range nodes {
		st.ByKind[n.Kind]++
		total += n.Confidence
	}
	if len(nodes) > 0 {
		st.AvgConfidence = int(math.Round(float64(total) / float64(len(nodes))))
	}
	return st
}
