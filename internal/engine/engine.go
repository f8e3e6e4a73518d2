package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"digin/internal/aggregate"
	"digin/internal/cache"
	"digin/internal/digest"
	"digin/internal/llm"
	"digin/internal/safeio"
	"digin/internal/scan"
)

const defaultWorkers = 4

// Options controls a single run.
type Options struct {
	Rules     scan.Rules
	Narrative bool

	// ForceRefresh bypasses cache lookups. When ForceScope is a non-empty
	// repo-relative path only that subtree is refreshed; entries outside it
	// still hit the cache.
	ForceRefresh bool
	ForceScope   string

	// Workers bounds concurrent directory analyses within one depth level.
	Workers int

	Version string
	Logger  *slog.Logger
	Now     func() time.Time
}

// Result is the outcome of a run. DigestsByPath holds every directory that
// reached a terminal state, keyed by repo-relative path ("." is the root).
type Result struct {
	DigestsByPath map[string]digest.Digest
	Stats         Stats
	Failures      []Failure
	Warnings      []scan.Warning
}

// CompletedWithFailures reports whether the run finished while degrading one
// or more directories.
func (r *Result) CompletedWithFailures() bool {
	return r != nil && (len(r.Failures) > 0 || len(r.Warnings) > 0)
}

// Root returns the root digest when present.
func (r *Result) Root() (digest.Digest, bool) {
	if r == nil {
		return digest.Digest{}, false
	}
	d, ok := r.DigestsByPath["."]
	return d, ok
}

// Engine runs the bottom-up analysis over one repository.
type Engine struct {
	fsys     *safeio.RootFS
	store    cache.EntryStore
	provider llm.Provider
	fp       *cache.Fingerprinter
	opts     Options
	log      *slog.Logger
}

func New(fsys *safeio.RootFS, store cache.EntryStore, provider llm.Provider, opts Options) (*Engine, error) {
	if fsys == nil {
		return nil, fmt.Errorf("engine: nil filesystem")
	}
	if store == nil {
		return nil, fmt.Errorf("engine: nil cache store")
	}
	if provider == nil {
		return nil, fmt.Errorf("engine: nil provider")
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	opts.ForceScope = path.Clean(strings.TrimSpace(opts.ForceScope))
	if opts.ForceScope == "" {
		opts.ForceScope = "."
	}
	return &Engine{
		fsys:     fsys,
		store:    store,
		provider: provider,
		fp:       cache.NewFingerprinter(opts.Narrative),
		opts:     opts,
		log:      opts.Logger,
	}, nil
}

// Run walks the repository bottom-up, reusing cached digests whose
// fingerprints still match and analyzing the rest. It returns an error only
// for configuration problems or context cancellation; per-directory failures
// degrade locally and are reported in the Result.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	plan, err := scan.BuildPlan(e.fsys, e.opts.Rules)
	if err != nil {
		return nil, err
	}

	res := &Result{
		DigestsByPath: make(map[string]digest.Digest, len(plan.Order)),
		Warnings:      plan.Warnings,
		Stats:         Stats{FailuresByKind: make(map[string]int)},
	}
	for _, w := range plan.Warnings {
		res.Stats.FailuresByKind[FailureTraversal]++
		e.log.Warn("traversal degraded", "path", w.Path, "cause", w.Cause)
	}

	run := &runState{
		res:          res,
		states:       make(map[string]State, len(plan.Order)),
		fingerprints: make(map[string]string, len(plan.Order)),
	}

	// Deepest level first. The per-level wait is the join barrier that
	// guarantees every child is terminal before its parent aggregates.
	for _, level := range levels(plan) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Workers)
		for _, node := range level {
			node := node
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				e.process(gctx, node, run)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return res, err
		}
	}

	res.Stats.Failures = len(res.Failures)
	res.Stats.DurationMS = time.Since(start).Milliseconds()
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })
	e.log.Info("run complete",
		"directories", len(res.DigestsByPath),
		"cache_hits", res.Stats.CacheHits,
		"cache_misses", res.Stats.CacheMisses,
		"failures", res.Stats.Failures,
	)
	return res, nil
}

// runState is shared across workers within a run. Fingerprints of failed
// directories carry a marker so a later successful analysis of the same
// content still invalidates the parent.
type runState struct {
	mu           sync.Mutex
	res          *Result
	states       map[string]State
	fingerprints map[string]string
}

func (r *runState) childInputs(node scan.Node) ([]cache.ChildFingerprint, []digest.Digest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fps := make([]cache.ChildFingerprint, 0, len(node.Children))
	ds := make([]digest.Digest, 0, len(node.Children))
	for _, child := range node.Children {
		fp, ok := r.fingerprints[child]
		if !ok {
			continue
		}
		fps = append(fps, cache.ChildFingerprint{Path: child, Fingerprint: fp})
		if d, ok := r.res.DigestsByPath[child]; ok {
			ds = append(ds, d)
		}
	}
	return fps, ds
}

func (e *Engine) process(ctx context.Context, node scan.Node, run *runState) {
	info, err := scan.CollectDirInfo(e.fsys, node.Path, e.opts.Rules)
	if err != nil {
		e.fail(run, node.Path, FailureTraversal, err.Error(), "")
		return
	}

	childFPs, childDigests := run.childInputs(node)
	fresh := e.fp.Compute(info, childFPs)

	ent, ok, err := e.store.Lookup(ctx, node.Path)
	if err != nil {
		run.mu.Lock()
		run.res.Stats.FailuresByKind[FailureCache]++
		run.mu.Unlock()
		e.log.Warn("cache entry unreadable, re-analyzing", "path", node.Path, "error", err)
	} else if ok && ent.IsValid(fresh, e.forced(node.Path)) {
		e.settle(run, node, info, ent.Digest, fresh, StateCacheHit)
		return
	}

	run.mu.Lock()
	run.states[node.Path] = StateAnalyzing
	run.res.Stats.CacheMisses++
	run.mu.Unlock()

	var d digest.Digest
	if node.IsLeaf() {
		run.mu.Lock()
		run.res.Stats.ProviderCalls++
		run.mu.Unlock()
		d, err = e.provider.AnalyzeLeaf(ctx, info)
		if err != nil {
			e.log.Warn("analysis failed", "path", node.Path, "provider", e.provider.Name(), "error", err)
			e.fail(run, node.Path, FailureProvider, err.Error(), fresh)
			return
		}
	} else {
		d = aggregate.Aggregate(info, childDigests, aggregate.Options{
			Version: e.opts.Version,
			Now:     e.opts.Now,
		})
	}
	if e.opts.Narrative {
		d = aggregate.Enrich(d)
	}

	if err := e.store.Commit(ctx, node.Path, fresh, d); err != nil {
		// Keep the digest for this run; only persistence degraded.
		run.mu.Lock()
		run.res.Failures = append(run.res.Failures, Failure{Path: node.Path, Category: FailureCache, Cause: err.Error()})
		run.res.Stats.FailuresByKind[FailureCache]++
		run.mu.Unlock()
		e.log.Warn("cache commit failed", "path", node.Path, "error", err)
	}
	e.settle(run, node, info, d, fresh, StateCommitted)
}

func (e *Engine) settle(run *runState, node scan.Node, info scan.DirInfo, d digest.Digest, fp string, st State) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.states[node.Path] = st
	run.fingerprints[node.Path] = fp
	run.res.DigestsByPath[node.Path] = d
	run.res.Stats.FilesProcessed += len(info.Files)
	if st == StateCacheHit {
		run.res.Stats.CacheHits++
	}
	if node.IsLeaf() {
		run.res.Stats.LeafCount++
	} else {
		run.res.Stats.ParentCount++
	}
}

// fail records a degraded directory and installs a placeholder digest so the
// parent still aggregates over it. The fingerprint is salted with a failure
// marker: if a later run analyzes the same content successfully, the parent
// sees a different child fingerprint and refreshes.
func (e *Engine) fail(run *runState, rel, category, cause, fresh string) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.states[rel] = StateFailed
	run.res.Failures = append(run.res.Failures, Failure{Path: rel, Category: category, Cause: cause})
	run.res.Stats.FailuresByKind[category]++
	if fresh != "" {
		run.fingerprints[rel] = "failed:" + fresh
	}
	run.res.DigestsByPath[rel] = digest.Placeholder(path.Base(rel), rel, cause)
}

func (e *Engine) forced(rel string) bool {
	if !e.opts.ForceRefresh {
		return false
	}
	scope := e.opts.ForceScope
	return scope == "." || rel == scope || strings.HasPrefix(rel, scope+"/")
}

// levels groups the post-order plan by depth, deepest first. Nodes within a
// level have no ancestry relation, so they may run concurrently. Heavier
// nodes (more children) start first so stragglers do not hold the level's
// join barrier at the tail.
func levels(p *scan.Plan) [][]scan.Node {
	byDepth := make(map[int][]scan.Node)
	maxDepth := 0
	for _, n := range p.Order {
		byDepth[n.Depth] = append(byDepth[n.Depth], n)
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
	}
	out := make([][]scan.Node, 0, maxDepth+1)
	for d := maxDepth; d >= 0; d-- {
		nodes := byDepth[d]
		if len(nodes) == 0 {
			continue
		}
		sort.Slice(nodes, func(i, j int) bool {
			if len(nodes[i].Children) != len(nodes[j].Children) {
				return len(nodes[i].Children) > len(nodes[j].Children)
			}
			return nodes[i].Path < nodes[j].Path
		})
		out = append(out, nodes)
	}
	return out
}
