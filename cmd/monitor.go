package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the health monitor loop in the foreground",
	Long: `monitor watches all running worktrees: probing application health,
verifying process liveness and runtime tokens, and reconciling record
status with container engine events. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logInfo("Monitoring worktrees every %s (ctrl-c to stop)", a.Cfg.MonitorInterval())
	if err := a.Mon.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
