package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/orchestrator"
)

var downCmd = &cobra.Command{
	Use:   "down <name>",
	Short: "Delete a worktree, its branch, data and runtime",
	Args:  cobra.ExactArgs(1),
	RunE:  runDown,
}

var downKeepBranch bool

func init() {
	downCmd.Flags().BoolVar(&downKeepBranch, "keep-branch", false, "Keep the git branch after deleting the worktree")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	name := args[0]
	logInfo("Removing worktree %s...", name)

	if err := a.Orch.Delete(cmd.Context(), name, orchestrator.DeleteOptions{
		KeepBranch: downKeepBranch,
	}); err != nil {
		return err
	}

	logSuccess("Removed worktree %s", name)
	return nil
}
