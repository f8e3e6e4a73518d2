package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"digin/internal/scan"
)

// planCmd shows the traversal order without analyzing anything.
var planCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Show the traversal plan without running analysis",
	Long: `Walk the repository and print the directories that would be analyzed,
in bottom-up order, without calling any provider or touching the cache.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(args)
		if err != nil {
			return err
		}
		rules, err := rt.settings.Rules()
		if err != nil {
			return err
		}
		plan, err := scan.BuildPlan(rt.fsys, rules)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(plan)
		}

		PrintSection("Traversal Plan")
		PrintInfo(fmt.Sprintf("Repository:  %s", rt.root))
		PrintInfo(fmt.Sprintf("Directories: %d", len(plan.Order)))
		fmt.Println()
		for i, node := range plan.Order {
			role := "parent"
			if node.IsLeaf() {
				role = "leaf"
			}
			fmt.Printf("  %3d. %-6s %s%s\n", i+1, role, strings.Repeat("  ", node.Depth), node.Path)
		}
		for _, w := range plan.Warnings {
			PrintWarning(fmt.Sprintf("skipped %s: %s", w.Path, w.Cause))
		}
		return nil
	},
}
