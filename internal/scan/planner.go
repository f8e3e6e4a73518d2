package scan

import (
	"io/fs"
	"path"
	"sort"

	"digin/internal/safeio"
)

// Node is one directory in the processing plan. Paths are repo-relative with
// forward slashes; the root is ".".
type Node struct {
	Path     string
	Depth    int
	Children []string // qualifying subdirectories, sorted by path
}

func (n Node) IsLeaf() bool { return len(n.Children) == 0 }

// Warning records a non-fatal traversal problem. The affected directory is
// treated as excluded and the run continues.
type Warning struct {
	Path  string
	Cause string
}

// Plan is a bottom-up processing order: every directory appears after all of
// its qualifying descendants.
type Plan struct {
	Root     string // absolute, symlink-resolved root
	Order    []Node // post-order
	Warnings []Warning

	byPath map[string]int
}

// Node returns the plan entry for a repo-relative path.
func (p *Plan) Node(rel string) (Node, bool) {
	i, ok := p.byPath[rel]
	if !ok {
		return Node{}, false
	}
	return p.Order[i], true
}

// BuildPlan walks the tree under fsys and returns the post-order plan.
// The root is always in the plan even when its own name matches an ignore
// rule. Each directory is visited once per distinct resolved path, so a
// symlink cycle is reported as a warning instead of being followed.
func BuildPlan(fsys *safeio.RootFS, rules Rules) (*Plan, error) {
	p := &Plan{
		Root:   fsys.Root(),
		byPath: make(map[string]int),
	}
	visited := map[string]struct{}{fsys.Root(): {}}

	var visit func(rel string, depth int) bool
	visit = func(rel string, depth int) bool {
		entries, err := fsys.ReadDir(rel)
		if err != nil {
			if rel == "." {
				// Root stays in the plan; its contents are just unreadable.
				p.Warnings = append(p.Warnings, Warning{Path: rel, Cause: "unreadable directory: " + err.Error()})
				p.append(Node{Path: rel, Depth: depth})
				return true
			}
			p.Warnings = append(p.Warnings, Warning{Path: rel, Cause: "unreadable directory: " + err.Error()})
			return false
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !isDir(fsys, rel, e) {
				continue
			}
			if rules.IgnoreDir(e.Name()) {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)

		node := Node{Path: rel, Depth: depth}
		for _, name := range names {
			childRel := joinRel(rel, name)
			if rules.MaxDepth > 0 && depth+1 > rules.MaxDepth {
				continue
			}
			canonical, err := fsys.Canonical(childRel)
			if err != nil {
				p.Warnings = append(p.Warnings, Warning{Path: childRel, Cause: "unresolvable path: " + err.Error()})
				continue
			}
			if _, seen := visited[canonical]; seen {
				p.Warnings = append(p.Warnings, Warning{Path: childRel, Cause: "symlink cycle"})
				continue
			}
			visited[canonical] = struct{}{}
			if visit(childRel, depth+1) {
				node.Children = append(node.Children, childRel)
			}
		}
		p.append(node)
		return true
	}

	visit(".", 0)
	return p, nil
}

func (p *Plan) append(n Node) {
	p.byPath[n.Path] = len(p.Order)
	p.Order = append(p.Order, n)
}

func joinRel(rel, name string) string {
	if rel == "." {
		return name
	}
	return path.Join(rel, name)
}

// isDir treats symlinks pointing at directories as directories so that
// cycles surface during traversal instead of being silently skipped.
func isDir(fsys *safeio.RootFS, rel string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := fsys.Stat(joinRel(rel, e.Name()))
	if err != nil {
		return false
	}
	return info.IsDir()
}
