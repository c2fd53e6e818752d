package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/orchestrator"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactively pick a worktree and act on it",
	Args:  cobra.NoArgs,
	RunE:  runPick,
}

var pickPlain bool

func init() {
	pickCmd.Flags().BoolVar(&pickPlain, "plain", false, "Print a non-interactive listing instead")
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	ctx := cmd.Context()
	records, err := a.Orch.List(ctx)
	if err != nil {
		return err
	}

	if pickPlain {
		fmt.Print(tui.SimpleList(records))
		return nil
	}

	result, err := tui.RunPicker(records)
	if err != nil {
		return err
	}

	switch result.Action {
	case tui.ActionStart:
		rec, err := a.Orch.Start(ctx, result.Worktree.ID)
		if err != nil {
			return err
		}
		logSuccess("Started worktree %s on port %d", rec.Name, rec.Port())
	case tui.ActionStop:
		rec, err := a.Orch.Stop(ctx, result.Worktree.ID)
		if err != nil {
			return err
		}
		logSuccess("Stopped worktree %s", rec.Name)
	case tui.ActionMerge:
		rec, err := a.Orch.Merge(ctx, result.Worktree.ID, "")
		if err != nil {
			return err
		}
		logSuccess("Merged worktree %s (%s)", rec.Name, rec.MergeCommit)
	case tui.ActionLogs:
		out, err := a.Orch.Logs(ctx, result.Worktree.ID, logsTail)
		if err != nil {
			return err
		}
		fmt.Print(out)
	case tui.ActionDelete:
		if err := a.Orch.Delete(ctx, result.Worktree.ID, orchestrator.DeleteOptions{}); err != nil {
			return err
		}
		logSuccess("Removed worktree %s", result.Worktree.Name)
	}
	return nil
}
