package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"digin/internal/cache"
	"digin/internal/config"
	"digin/internal/llm"
	"digin/internal/safeio"
)

// Analysis state lives under <root>/.digin.
const (
	diginDirName    = ".digin"
	cacheDirName    = "cache"
	projectMapName  = "project_map.json"
	artifactDirName = "artifacts"
)

type runtime struct {
	root     string
	settings config.Settings
	fsys     *safeio.RootFS
	store    cache.EntryStore
}

// newRuntime resolves the target repository, loads settings and opens the
// cache store. args may carry an optional repository path; default is the
// working directory.
func newRuntime(args []string) (*runtime, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	fsys, err := safeio.NewRootFS(root)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	disk, err := cache.NewDiskStore(filepath.Join(root, diginDirName, cacheDirName))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	store, err := cache.NewCachedStore(disk, 0)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &runtime{root: root, settings: settings, fsys: fsys, store: store}, nil
}

func resolveRoot(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return filepath.Abs(strings.TrimSpace(args[0]))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

// newProvider builds the leaf analyzer named by the settings. The returned
// provider must be closed by the caller.
func (r *runtime) newProvider(ctx context.Context) (llm.Provider, error) {
	switch r.settings.Provider {
	case "fake":
		return llm.NewFakeProvider(), nil
	case "gemini":
		if r.settings.APIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", config.ErrConfiguration)
		}
		return llm.NewGeminiProvider(ctx, r.settings.APIKey, r.settings.Model, 0)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrConfiguration, r.settings.Provider)
	}
}

func (r *runtime) diginDir() string {
	return filepath.Join(r.root, diginDirName)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
