package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Show trailing runtime output for a worktree",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

var logsTail int

func init() {
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 100, "Number of trailing lines to show")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	out, err := a.Orch.Logs(cmd.Context(), args[0], logsTail)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
