package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"sort"
	"strings"
	"time"

	"digin/internal/safeio"
)

const (
	// PreviewLimit caps the content preview handed to the analysis provider.
	PreviewLimit = 1000
	// smallTextLimit is the largest file whose bytes feed the fingerprint.
	smallTextLimit = 50_000
)

var textExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {}, ".java": {}, ".go": {}, ".rs": {},
	".cpp": {}, ".c": {}, ".h": {}, ".rb": {}, ".php": {}, ".cs": {}, ".vue": {}, ".svelte": {},
	".html": {}, ".css": {}, ".scss": {}, ".less": {}, ".xml": {}, ".json": {}, ".yaml": {},
	".yml": {}, ".toml": {}, ".ini": {}, ".cfg": {}, ".conf": {}, ".md": {}, ".txt": {},
	".sh": {}, ".bash": {}, ".zsh": {}, ".fish": {}, ".ps1": {}, ".bat": {}, ".cmd": {},
	".dockerfile": {}, ".sql": {}, ".r": {}, ".swift": {}, ".kt": {},
}

// FileMeta describes one qualifying direct file of a directory.
type FileMeta struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"` // repo-relative, forward slashes
	Ext     string    `json:"ext"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
	// Preview holds up to PreviewLimit bytes of content for small recognized
	// text files; empty otherwise.
	Preview string `json:"preview,omitempty"`
	// ContentHash is the sha256 of the full content for small recognized
	// text files; empty otherwise. The fingerprint folds it in so an edit
	// that keeps size and mtime still invalidates the cache.
	ContentHash string `json:"content_hash,omitempty"`
	TooLarge    bool   `json:"too_large,omitempty"`
}

// DirInfo is the direct-file view of one directory, the provider's input.
type DirInfo struct {
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Files     []FileMeta `json:"files"`
	TotalSize int64      `json:"total_size"`
}

// CollectDirInfo gathers the qualifying direct files of a directory, sorted
// by name. Unreadable files are skipped.
func CollectDirInfo(fsys *safeio.RootFS, rel string, rules Rules) (DirInfo, error) {
	name := path.Base(rel)
	if rel == "." {
		name = path.Base(fsys.Root())
	}
	info := DirInfo{Name: name, Path: rel}

	entries, err := fsys.ReadDir(rel)
	if err != nil {
		return info, err
	}
	for _, e := range entries {
		if e.IsDir() || !e.Type().IsRegular() {
			continue
		}
		if !rules.IncludeFile(e.Name()) {
			continue
		}
		filePath := joinRel(rel, e.Name())
		st, err := fsys.Stat(filePath)
		if err != nil {
			continue
		}
		fm := FileMeta{
			Name:    e.Name(),
			Path:    filePath,
			Ext:     strings.ToLower(path.Ext(e.Name())),
			Size:    st.Size(),
			ModTime: st.ModTime(),
		}
		if rules.MaxFileSize > 0 && fm.Size > rules.MaxFileSize {
			fm.TooLarge = true
		} else if isTextFile(fm) && fm.Size <= smallTextLimit {
			if raw, err := fsys.ReadFile(filePath, 0); err == nil {
				sum := sha256.Sum256(raw)
				fm.ContentHash = hex.EncodeToString(sum[:])
				if len(raw) > PreviewLimit {
					raw = raw[:PreviewLimit]
				}
				fm.Preview = string(raw)
			}
		}
		info.Files = append(info.Files, fm)
		info.TotalSize += fm.Size
	}
	sort.Slice(info.Files, func(i, j int) bool { return info.Files[i].Name < info.Files[j].Name })
	return info, nil
}

func isTextFile(fm FileMeta) bool {
	if _, ok := textExtensions[fm.Ext]; ok {
		return true
	}
	// Extension-less build files still carry signal.
	switch fm.Name {
	case "Dockerfile", "Makefile", "Rakefile", "Procfile":
		return true
	}
	return false
}
