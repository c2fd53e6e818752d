package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <name>",
	Short: "Merge a worktree's branch back into its base branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runMerge,
}

var mergeMessage string

func init() {
	mergeCmd.Flags().StringVarP(&mergeMessage, "message", "m", "", "Merge commit message")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	name := args[0]
	logInfo("Merging worktree %s...", name)

	rec, err := a.Orch.Merge(cmd.Context(), name, mergeMessage)
	if err != nil {
		if detail := errors.ConflictOf(err); detail != nil {
			if detail.Dirty {
				logError("Working tree has uncommitted changes; commit or discard them first")
			}
			for _, f := range detail.Files {
				logWarning("  conflict: %s", f)
			}
		}
		return err
	}

	logSuccess("Merged worktree %s (%s)", rec.Name, rec.MergeCommit)
	return nil
}
