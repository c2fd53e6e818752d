package orchestrator

import (
	"context"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
)

// cleanupStep is one named compensating action. Steps run in order and
// every failure is logged and swallowed so later steps still run.
type cleanupStep struct {
	name string
	run  func(ctx context.Context) error
}

func runCleanup(ctx context.Context, worktreeName string, steps []cleanupStep) {
	for _, st := range steps {
		if st.run == nil {
			continue
		}
		if err := st.run(ctx); err != nil {
			logging.Warn("cleanup step failed",
				"worktree", worktreeName, "step", st.name, "error", err)
		}
	}
}
