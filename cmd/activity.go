package cmd

import (
	"github.com/spf13/cobra"
)

var activityCmd = &cobra.Command{
	Use:   "activity <name>",
	Short: "Show the recorded activity history for a worktree",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivity,
}

func init() {
	rootCmd.AddCommand(activityCmd)
}

func runActivity(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	entries, err := a.Audit.Events(args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logInfo("No recorded activity for %s", args[0])
		return nil
	}
	for _, e := range entries {
		logInfo("%s  %-8s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.Details)
	}
	return nil
}
