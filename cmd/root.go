package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/config"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "grove-ctl",
	Short: "Devchain Grove worktree management CLI",
	Long: `grove-ctl manages ephemeral development worktrees.

Each worktree pairs a git worktree on its own branch with an isolated
sandbox runtime (a container or a supervised local process) and its own
application data directory. Worktrees are created, monitored, merged
back and torn down as a unit.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "Path to the grove config file")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
