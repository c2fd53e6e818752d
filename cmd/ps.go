package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List worktrees",
	Args:  cobra.NoArgs,
	RunE:  runPs,
}

var (
	psOwner string
	psJSON  bool
)

func init() {
	psCmd.Flags().StringVar(&psOwner, "owner", "", "Only show worktrees for this owner project id")
	psCmd.Flags().BoolVar(&psJSON, "output-json", false, "Print records as JSON")
	rootCmd.AddCommand(psCmd)
}

func runPs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Bus.Close()

	ctx := cmd.Context()
	var records []*worktree.Record
	if psOwner != "" {
		records, err = a.Orch.ListByOwner(ctx, psOwner)
	} else {
		records, err = a.Orch.List(ctx)
	}
	if err != nil {
		return err
	}

	if psJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		logInfo("No worktrees found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tRUNTIME\tBRANCH\tPORT\tCREATED")
	for _, rec := range records {
		port := "-"
		if p := rec.Port(); p != 0 {
			port = fmt.Sprintf("%d", p)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Name, rec.Status, rec.RuntimeType, rec.BranchName, port,
			rec.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
