package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
)

var rebaseCmd = &cobra.Command{
	Use:   "rebase <name>",
	Short: "Rebase a worktree's branch onto the tip of its base branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runRebase,
}

func init() {
	rootCmd.AddCommand(rebaseCmd)
}

func runRebase(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	name := args[0]
	logInfo("Rebasing worktree %s...", name)

	rec, err := a.Orch.Rebase(cmd.Context(), name)
	if err != nil {
		if detail := errors.ConflictOf(err); detail != nil {
			for _, f := range detail.Files {
				logWarning("  conflict: %s", f)
			}
		}
		return err
	}

	logSuccess("Rebased worktree %s onto %s", rec.Name, rec.BaseBranch)
	return nil
}
