package scan

import (
	"fmt"
	"path"
	"strings"
)

// Rules holds the ignore/inclusion predicates applied during traversal.
// They apply to descendants only; the traversal root is always kept.
type Rules struct {
	// IgnoreDirs are directory names excluded by exact match.
	IgnoreDirs []string
	// IgnorePatterns are glob patterns matched against base names of both
	// directories and files.
	IgnorePatterns []string
	// IncludeExtensions restricts files to the listed extensions (lowercase,
	// with dot). Empty means every non-ignored file qualifies.
	IncludeExtensions []string
	// IncludeHidden keeps dot-directories that would otherwise be skipped.
	IncludeHidden bool
	// MaxDepth excludes directories deeper than this many levels below the
	// root. Zero or negative means unlimited.
	MaxDepth int
	// MaxFileSize caps the size of files whose content is considered.
	MaxFileSize int64
}

// hidden directories that stay visible even with IncludeHidden off.
var hiddenAllow = map[string]struct{}{
	".github": {},
	".vscode": {},
}

// Validate probes every glob pattern so a malformed one fails the run before
// traversal starts instead of silently matching nothing.
func (r Rules) Validate() error {
	for _, p := range r.IgnorePatterns {
		if _, err := path.Match(p, "probe"); err != nil {
			return fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
	}
	for _, ext := range r.IncludeExtensions {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("invalid extension %q: must start with a dot", ext)
		}
	}
	return nil
}

// IgnoreDir reports whether a descendant directory name is excluded.
func (r Rules) IgnoreDir(name string) bool {
	for _, d := range r.IgnoreDirs {
		if name == d {
			return true
		}
	}
	for _, p := range r.IgnorePatterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	if strings.HasPrefix(name, ".") && !r.IncludeHidden {
		if _, ok := hiddenAllow[name]; !ok {
			return true
		}
	}
	return false
}

// IncludeFile reports whether a direct file qualifies for analysis.
func (r Rules) IncludeFile(name string) bool {
	for _, p := range r.IgnorePatterns {
		if ok, _ := path.Match(p, name); ok {
			return false
		}
	}
	if len(r.IncludeExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	for _, e := range r.IncludeExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
