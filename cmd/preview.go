package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <name>",
	Short: "Show what merging a worktree would do, without changing anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var previewJSON bool

func init() {
	previewCmd.Flags().BoolVar(&previewJSON, "output-json", false, "Print the preview as JSON")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	result, err := a.Orch.Preview(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if previewJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	logInfo("%d commit(s) ahead, %d behind", result.CommitsAhead, result.CommitsBehind)
	logInfo("%d file(s) changed, +%d -%d", result.FilesChanged, result.Insertions, result.Deletions)
	if result.Dirty {
		logWarning("Working tree has uncommitted changes")
	}
	if result.HasConflicts {
		logWarning("Merge would conflict in %d file(s):", len(result.Conflicts))
		for _, f := range result.Conflicts {
			logWarning("  %s", f)
		}
	} else {
		logSuccess("Merge would apply cleanly")
	}
	return nil
}
