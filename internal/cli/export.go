package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"digin/internal/artifact"
)

var (
	exportRunID string
	exportToS3  bool
)

// exportCmd publishes the latest analysis outputs as versioned artifacts.
var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the project map and digests as artifacts",
	Long: `Export the current project map and cached digest entries under a run ID.

By default artifacts are written to .digin/artifacts/<run-id>/. With --s3
they are uploaded to the configured S3-compatible bucket instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(args)
		if err != nil {
			return err
		}

		runID := exportRunID
		if runID == "" {
			runID = time.Now().UTC().Format("20060102-150405")
		}

		store, err := newArtifactStore(rt, exportToS3)
		if err != nil {
			return err
		}

		ctx := context.Background()
		count, err := exportArtifacts(ctx, rt, store, runID)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(struct {
				RunID     string `json:"run_id"`
				Artifacts int    `json:"artifacts"`
			}{runID, count})
		}
		PrintSuccess(fmt.Sprintf("exported %d artifacts under run %s", count, runID))
		return nil
	},
}

func newArtifactStore(rt *runtime, toS3 bool) (artifact.Store, error) {
	if !toS3 {
		return artifact.NewDiskStore(filepath.Join(rt.diginDir(), artifactDirName))
	}
	a := rt.settings.Artifact
	return artifact.NewS3Store(artifact.S3Config{
		Endpoint:  a.Endpoint,
		Region:    a.Region,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		Bucket:    a.Bucket,
		UseSSL:    a.UseSSL,
	})
}

func exportArtifacts(ctx context.Context, rt *runtime, store artifact.Store, runID string) (int, error) {
	count := 0

	mapPath := filepath.Join(rt.diginDir(), projectMapName)
	mapData, err := os.ReadFile(mapPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("no project map found at %s, run 'digin analyze' first", mapPath)
		}
		return 0, err
	}
	if err := store.Put(ctx, runID, projectMapName, mapData); err != nil {
		return 0, fmt.Errorf("export project map: %w", err)
	}
	count++

	// Digest entries are re-encoded per directory so consumers do not need
	// to know the cache's on-disk layout.
	cacheDir := filepath.Join(rt.diginDir(), cacheDirName, "entries")
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return count, nil
		}
		return count, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(cacheDir, e.Name()))
		if err != nil {
			return count, err
		}
		var ent struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(raw, &ent); err != nil || ent.Path == "" {
			continue // corrupt entries are skipped, not exported
		}
		name := "digests/" + ent.Path + ".json"
		if ent.Path == "." {
			name = "digests/root.json"
		}
		if err := store.Put(ctx, runID, name, raw); err != nil {
			return count, fmt.Errorf("export digest %s: %w", ent.Path, err)
		}
		count++
	}
	return count, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run-id", "", "Artifact run ID (default: UTC timestamp)")
	exportCmd.Flags().BoolVar(&exportToS3, "s3", false, "Upload to the configured S3 bucket")
}
