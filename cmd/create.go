package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/orchestrator"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new worktree with its own branch, data and runtime",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var (
	createBranch      string
	createBase        string
	createRuntime     string
	createTemplate    string
	createOwner       string
	createDescription string
)

func init() {
	createCmd.Flags().StringVarP(&createBranch, "branch", "b", "", "Branch name (defaults to the worktree name)")
	createCmd.Flags().StringVar(&createBase, "base", "main", "Base branch to fork from")
	createCmd.Flags().StringVarP(&createRuntime, "runtime", "r", "container", "Runtime type: container or process")
	createCmd.Flags().StringVarP(&createTemplate, "template", "t", "", "Template slug registered with the sandbox application")
	createCmd.Flags().StringVar(&createOwner, "owner", "", "Owner project id")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Free-form description")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	name := args[0]
	logInfo("Creating worktree %s...", name)

	rec, err := a.Orch.Create(cmd.Context(), orchestrator.CreateOptions{
		Name:           name,
		BranchName:     createBranch,
		BaseBranch:     createBase,
		RuntimeType:    worktree.RuntimeType(createRuntime),
		TemplateSlug:   createTemplate,
		OwnerProjectID: createOwner,
		Description:    createDescription,
	})
	if err != nil {
		return err
	}

	logSuccess("Created worktree %s (branch %s, %s runtime, port %d)",
		rec.Name, rec.BranchName, rec.RuntimeType, rec.Port())
	return nil
}
