package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"digin/internal/config"
	"digin/internal/engine"
	"digin/internal/projectmap"
)

var (
	analyzeForce     bool
	analyzeScope     string
	analyzeNarrative bool
	analyzeDepth     int
	analyzeWorkers   int
	analyzeProvider  string
	analyzeModel     string
	analyzeVerbose   bool
)

// analyzeCmd runs the full incremental analysis.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a repository and build its digest tree",
	Long: `Analyze a repository bottom-up and write a project map.

Unchanged directories are served from the cache; only directories whose
content fingerprint changed (or whose children changed) are re-analyzed.
The project map is written to .digin/project_map.json under the target.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(args)
		if err != nil {
			return err
		}
		applyAnalyzeFlags(cmd, &rt.settings)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider, err := rt.newProvider(ctx)
		if err != nil {
			return err
		}
		defer provider.Close()

		rules, err := rt.settings.Rules()
		if err != nil {
			return err
		}
		eng, err := engine.New(rt.fsys, rt.store, provider, engine.Options{
			Rules:        rules,
			Narrative:    rt.settings.Narrative,
			ForceRefresh: analyzeForce,
			ForceScope:   analyzeScope,
			Workers:      rt.settings.Workers,
			Version:      rootCmd.Version,
			Logger:       newRunLogger(analyzeVerbose),
		})
		if err != nil {
			return err
		}

		res, err := eng.Run(ctx)
		if err != nil {
			return err
		}

		pm := projectmap.Build(res.DigestsByPath, rootCmd.Version, time.Now().UTC())
		mapPath := filepath.Join(rt.diginDir(), projectMapName)
		if err := writeJSONFile(mapPath, pm); err != nil {
			return fmt.Errorf("write project map: %w", err)
		}

		if jsonOutput {
			return outputJSON(struct {
				Stats    engine.Stats     `json:"stats"`
				Failures []engine.Failure `json:"failures,omitempty"`
				Map      string           `json:"project_map"`
			}{res.Stats, res.Failures, mapPath})
		}

		printRunSummary(rt.root, res, mapPath)
		return nil
	},
}

func applyAnalyzeFlags(cmd *cobra.Command, s *config.Settings) {
	if cmd.Flags().Changed("narrative") {
		s.Narrative = analyzeNarrative
	}
	if cmd.Flags().Changed("depth") {
		s.MaxDepth = analyzeDepth
	}
	if cmd.Flags().Changed("workers") {
		s.Workers = analyzeWorkers
	}
	if cmd.Flags().Changed("provider") {
		s.Provider = analyzeProvider
	}
	if cmd.Flags().Changed("model") {
		s.Model = analyzeModel
	}
}

func printRunSummary(root string, res *engine.Result, mapPath string) {
	PrintSection("Analysis Complete")
	PrintInfo(fmt.Sprintf("Repository:   %s", root))
	PrintInfo(fmt.Sprintf("Directories:  %d (%d leaves, %d parents)",
		res.Stats.LeafCount+res.Stats.ParentCount, res.Stats.LeafCount, res.Stats.ParentCount))
	PrintInfo(fmt.Sprintf("Cache:        %d hits, %d misses", res.Stats.CacheHits, res.Stats.CacheMisses))
	PrintInfo(fmt.Sprintf("Duration:     %s", time.Duration(res.Stats.DurationMS)*time.Millisecond))
	PrintDim(fmt.Sprintf("project map: %s", mapPath))
	fmt.Println()

	for _, w := range res.Warnings {
		PrintWarning(fmt.Sprintf("skipped %s: %s", w.Path, w.Cause))
	}
	for _, f := range res.Failures {
		PrintWarning(fmt.Sprintf("degraded %s [%s]: %s", f.Path, f.Category, f.Cause))
	}
	if res.CompletedWithFailures() {
		PrintWarning(fmt.Sprintf("completed with %d degraded directories", len(res.Failures)+len(res.Warnings)))
	} else {
		PrintSuccess("all directories analyzed")
	}
}

func newRunLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "Ignore cached digests and re-analyze")
	analyzeCmd.Flags().StringVar(&analyzeScope, "scope", "", "Limit --force to one subtree (repo-relative path)")
	analyzeCmd.Flags().BoolVar(&analyzeNarrative, "narrative", false, "Add narrative fields to digests")
	analyzeCmd.Flags().IntVar(&analyzeDepth, "depth", 0, "Maximum traversal depth")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Concurrent analyses per tree level")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "Leaf analyzer (gemini, fake)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Model name for the provider")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Verbose progress logging")
}
