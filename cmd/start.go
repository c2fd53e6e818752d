package cmd

import (
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Start a stopped worktree",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	rec, err := a.Orch.Start(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	logSuccess("Started worktree %s on port %d", rec.Name, rec.Port())
	return nil
}
