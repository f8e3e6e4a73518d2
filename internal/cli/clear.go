package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var clearScope string

// clearCmd removes cached digest entries.
var clearCmd = &cobra.Command{
	Use:   "clear [path]",
	Short: "Remove cached digests",
	Long: `Remove cached digest entries for a repository.

With --scope, only entries inside the given repo-relative subtree are
removed; everything else stays cached.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(args)
		if err != nil {
			return err
		}
		scope := clearScope
		if scope == "" {
			scope = "."
		}
		removed, err := rt.store.Clear(context.Background(), scope)
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}

		if jsonOutput {
			return outputJSON(struct {
				Scope   string `json:"scope"`
				Removed int    `json:"removed"`
			}{scope, removed})
		}
		PrintSuccess(fmt.Sprintf("removed %d cache entries (scope %s)", removed, scope))
		return nil
	},
}

func init() {
	clearCmd.Flags().StringVar(&clearScope, "scope", "", "Only clear this repo-relative subtree")
}
