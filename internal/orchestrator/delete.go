package orchestrator

import (
	"context"
	"time"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// DeleteOptions tune worktree removal.
type DeleteOptions struct {
	// KeepBranch skips deleting the git branch.
	KeepBranch bool
}

// Delete tears a worktree down completely: runtime, project
// sub-containers, network, git worktree and branch, data directory, and
// finally the record. Every teardown step is best-effort; the record is
// always removed so a half-broken environment cannot wedge deletion.
// Stored paths are re-verified against the configured roots before any
// filesystem removal.
func (o *Orchestrator) Delete(ctx context.Context, ref string, opts DeleteOptions) error {
	rec, err := o.Get(ctx, ref)
	if err != nil {
		return err
	}
	unlock := o.lock(rec.ID)
	defer unlock()
	defer o.releaseLock(rec.ID)

	if rec.WorktreePath != "" {
		if err := o.resolver.VerifyWorktreePath(rec.WorktreePath); err != nil {
			return errors.ValidationError(err.Error())
		}
	}
	if rec.DataPath != "" {
		if err := o.resolver.VerifyDataPath(rec.DataPath); err != nil {
			return errors.ValidationError(err.Error())
		}
	}

	logging.Info("deleting worktree", "worktree", rec.Name)

	steps := []cleanupStep{}
	if rec.Container != nil {
		id := rec.Container.ID
		steps = append(steps,
			cleanupStep{"remove project sub-containers", func(ctx context.Context) error {
				return o.engine.CleanupProjectContainers(ctx, rec.Name, id)
			}},
			cleanupStep{"stop container", func(ctx context.Context) error {
				return o.engine.StopContainer(ctx, id)
			}},
			cleanupStep{"remove container", func(ctx context.Context) error {
				return o.engine.RemoveContainer(ctx, id, true)
			}},
		)
	}
	if rec.RuntimeType == worktree.RuntimeContainer {
		steps = append(steps, cleanupStep{"remove network", func(ctx context.Context) error {
			return o.engine.RemoveNetwork(ctx, networkName(rec.Name))
		}})
	}
	if rec.Process != nil {
		pid := rec.Process.PID
		steps = append(steps, cleanupStep{"terminate process", func(ctx context.Context) error {
			return o.proc.Terminate(pid)
		}})
	}
	if rec.WorktreePath != "" {
		steps = append(steps, cleanupStep{"remove worktree", func(ctx context.Context) error {
			return o.git.RemoveWorktree(ctx, rec.RepoPath, rec.WorktreePath, true)
		}})
	}
	// The branch can only be deleted once its worktree is gone.
	if !opts.KeepBranch && rec.BranchName != "" && rec.BranchName != rec.BaseBranch {
		steps = append(steps, cleanupStep{"delete branch", func(ctx context.Context) error {
			return o.git.DeleteBranch(ctx, rec.RepoPath, rec.BranchName, true)
		}})
	}
	if rec.DataPath != "" {
		steps = append(steps, cleanupStep{"remove data directory", func(ctx context.Context) error {
			return o.fs.RemoveAll(rec.DataPath)
		}})
	}
	runCleanup(ctx, rec.Name, steps)

	if err := o.store.Remove(ctx, rec.ID); err != nil {
		return err
	}

	o.bus.NotifyChange(ctx, events.Change{
		WorktreeID: rec.ID,
		Name:       rec.Name,
		Old:        rec.Status,
		New:        "deleted",
	})
	o.bus.Activity(events.Activity{
		WorktreeID: rec.ID,
		Name:       rec.Name,
		Type:       "delete",
		Message:    "worktree deleted",
		Time:       time.Now().UTC(),
	})
	logging.Info("worktree deleted", "worktree", rec.Name)
	return nil
}
