package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"digin/internal/digest"
	"digin/internal/scan"
)

// Output bounds. Unions are deduplicated and truncated to these caps so a
// parent digest stays readable no matter how wide the subtree is.
const (
	MaxCapabilities     = 10
	MaxInterfaceEntries = 20 // per protocol category
	MaxEvidenceFiles    = 20
	MaxRisks            = 20
	MaxDependencies     = 30 // per bucket
)

// Confidence model. The parent starts from the rounded average of child
// confidences, loses KindDisagreementPenalty when the winning kind covers
// fewer than two thirds of the children, and loses LowConfidencePenalty when
// any child sits below LowConfidenceThreshold. Raising a child's confidence
// can only raise (or keep) the parent's, never lower it.
const (
	KindDisagreementPenalty = 10
	LowConfidencePenalty    = 5
	LowConfidenceThreshold  = 40
	// DirectSignalConfidence applies when a childless parent still shows a
	// recognized marker file.
	DirectSignalConfidence = 30
)

// kindPriority breaks ties in the child-kind vote: earlier entries win.
var kindPriority = []digest.Kind{
	digest.KindService,
	digest.KindUI,
	digest.KindLib,
	digest.KindInfra,
	digest.KindConfig,
	digest.KindTest,
	digest.KindDocs,
	digest.KindUnknown,
}

// infraMarkers are direct-file names that override the child-kind vote.
var infraMarkers = map[string]struct{}{
	"Dockerfile":          {},
	"docker-compose.yml":  {},
	"docker-compose.yaml": {},
	"Jenkinsfile":         {},
}

// Options carries the run-level inputs of an aggregation. Now is injectable
// so the merge itself stays deterministic under test.
type Options struct {
	Version string
	Now     func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// Aggregate merges an ordered list of child digests plus the parent's own
// direct files into one parent digest. It is pure apart from the injected
// clock: identical ordered inputs produce identical output.
func Aggregate(dir scan.DirInfo, children []digest.Digest, opts Options) digest.Digest {
	d := digest.Digest{
		Name:            dir.Name,
		Path:            dir.Path,
		AnalyzedAt:      opts.now(),
		AnalyzerVersion: opts.Version,
	}

	if len(children) == 0 {
		// All subdirectories filtered out: degrade to direct-file evidence.
		d.Kind, d.Confidence = directOnlyKind(dir.Files)
		d.Summary = fmt.Sprintf("directory with %d direct files", len(dir.Files))
		d.Evidence = digest.Evidence{Files: directFileNames(dir.Files)}
		return d
	}

	d.Kind = mergeKind(dir.Files, children)
	d.Capabilities = mergeCapabilities(children)
	d.PublicInterfaces = mergeInterfaces(dir.Path, children)
	d.Dependencies = mergeDependencies(dir, children)
	d.Configuration = mergeConfiguration(children)
	d.Risks = mergeRisks(children)
	d.Evidence = mergeEvidence(dir, children)
	d.Confidence = mergeConfidence(children)
	d.Summary = summarize(d.Kind, len(children), d.Capabilities)
	return d
}

// mergeKind applies the direct-file override, then a plurality vote over the
// children's kinds with ties broken by kindPriority.
func mergeKind(files []scan.FileMeta, children []digest.Digest) digest.Kind {
	if k, ok := markerKind(files); ok {
		return k
	}
	counts := map[digest.Kind]int{}
	for _, c := range children {
		counts[c.Kind]++
	}
	best := digest.KindUnknown
	bestCount := -1
	for _, k := range kindPriority {
		if counts[k] > bestCount {
			best = k
			bestCount = counts[k]
		}
	}
	return best
}

func markerKind(files []scan.FileMeta) (digest.Kind, bool) {
	for _, f := range files {
		if _, ok := infraMarkers[f.Name]; ok {
			return digest.KindInfra, true
		}
		if f.Ext == ".tf" {
			return digest.KindInfra, true
		}
	}
	return digest.KindUnknown, false
}

func directOnlyKind(files []scan.FileMeta) (digest.Kind, int) {
	if k, ok := markerKind(files); ok {
		return k, DirectSignalConfidence
	}
	return digest.KindUnknown, 0
}

// mergeCapabilities unions children's capabilities in first-seen order with
// case-insensitive dedup, keeping the first-seen casing.
func mergeCapabilities(children []digest.Digest) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, MaxCapabilities)
	for _, c := range children {
		for _, cap := range c.Capabilities {
			key := strings.ToLower(cap)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, cap)
			if len(out) >= MaxCapabilities {
				return out
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mergeInterfaces concatenates per-category entries, re-prefixing each
// evidence path with the child's relative segment so every path still traces
// back to a real file.
func mergeInterfaces(parentPath string, children []digest.Digest) map[string][]digest.InterfaceEntry {
	out := map[string][]digest.InterfaceEntry{}
	for _, c := range children {
		seg := childSegment(parentPath, c.Path)
		for _, cat := range digest.SortedKeys(c.PublicInterfaces) {
			for _, entry := range c.PublicInterfaces[cat] {
				if len(out[cat]) >= MaxInterfaceEntries {
					break
				}
				re := digest.InterfaceEntry{Name: entry.Name, Description: entry.Description}
				for _, ev := range entry.Evidence {
					re.Evidence = append(re.Evidence, seg+"/"+ev)
				}
				out[cat] = append(out[cat], re)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mergeDependencies unions external deps across children; internal deps
// additionally gain the child directory names themselves, minus references
// back to the parent.
func mergeDependencies(dir scan.DirInfo, children []digest.Digest) digest.Dependencies {
	internal := map[string]struct{}{}
	external := map[string]struct{}{}
	for _, c := range children {
		internal[childSegment(dir.Path, c.Path)] = struct{}{}
		for _, dep := range c.Dependencies.Internal {
			internal[dep] = struct{}{}
		}
		for _, dep := range c.Dependencies.External {
			external[dep] = struct{}{}
		}
	}
	delete(internal, dir.Name)
	delete(internal, dir.Path)
	return digest.Dependencies{
		Internal: sortedBounded(internal, MaxDependencies),
		External: sortedBounded(external, MaxDependencies),
	}
}

func mergeConfiguration(children []digest.Digest) digest.Configuration {
	env := map[string]struct{}{}
	files := map[string]struct{}{}
	for _, c := range children {
		for _, v := range c.Configuration.Env {
			env[v] = struct{}{}
		}
		for _, v := range c.Configuration.Files {
			files[v] = struct{}{}
		}
	}
	return digest.Configuration{
		Env:   sortedBounded(env, MaxDependencies),
		Files: sortedBounded(files, MaxDependencies),
	}
}

func mergeRisks(children []digest.Digest) []string {
	risks := map[string]struct{}{}
	for _, c := range children {
		for _, r := range c.Risks {
			risks[r] = struct{}{}
		}
	}
	return sortedBounded(risks, MaxRisks)
}

// mergeEvidence keeps the parent's direct file names first, then children's
// evidence re-rooted under the child segment. Aggregation never invents a
// path: everything here traces to a direct file or a child's evidence.
func mergeEvidence(dir scan.DirInfo, children []digest.Digest) digest.Evidence {
	seen := map[string]struct{}{}
	out := make([]string, 0, MaxEvidenceFiles)
	add := func(p string) {
		if len(out) >= MaxEvidenceFiles {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, name := range directFileNames(dir.Files) {
		add(name)
	}
	for _, c := range children {
		seg := childSegment(dir.Path, c.Path)
		for _, f := range c.Evidence.Files {
			add(seg + "/" + f)
		}
	}
	return digest.Evidence{Files: out}
}

func mergeConfidence(children []digest.Digest) int {
	sum := 0
	counts := map[digest.Kind]int{}
	anyLow := false
	for _, c := range children {
		sum += c.Confidence
		counts[c.Kind]++
		if c.Confidence < LowConfidenceThreshold {
			anyLow = true
		}
	}
	conf := int(math.Round(float64(sum) / float64(len(children))))

	winner := 0
	for _, n := range counts {
		if n > winner {
			winner = n
		}
	}
	if winner*3 < len(children)*2 {
		conf -= KindDisagreementPenalty
	}
	if anyLow {
		conf -= LowConfidencePenalty
	}
	return digest.ClampConfidence(conf)
}

func summarize(kind digest.Kind, childCount int, caps []string) string {
	base := fmt.Sprintf("%s grouping %d components", kind, childCount)
	if len(caps) == 0 {
		return base
	}
	top := caps
	if len(top) > 3 {
		top = top[:3]
	}
	return base + ": " + strings.Join(top, ", ")
}

// childSegment returns a child path relative to its parent ("a" → "a/b" is "b").
func childSegment(parentPath, childPath string) string {
	if parentPath == "." || parentPath == "" {
		return childPath
	}
	return strings.TrimPrefix(childPath, parentPath+"/")
}

func directFileNames(files []scan.FileMeta) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

func sortedBounded(set map[string]struct{}, limit int) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
