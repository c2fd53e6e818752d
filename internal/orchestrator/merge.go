package orchestrator

import (
	"context"
	"fmt"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// Merge lands a worktree's branch into its base branch. Before touching
// git it publishes a task-extraction event so handlers can pull task
// history out of the live sandbox; a sandbox that is not running is
// recovered for extraction, with exactly one retry. The runtime is then
// stopped and the merge executed with a real merge commit.
//
// A dirty worktree or conflicting merge yields a structured conflict
// error carrying the affected files; the record keeps the conflict list
// so a later Preview can clear it once resolved.
func (o *Orchestrator) Merge(ctx context.Context, ref, message string) (*worktree.Record, error) {
	rec, err := o.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	unlock := o.lock(rec.ID)
	defer unlock()

	if rec.Status == worktree.StatusMerged {
		return nil, errors.ValidationError(fmt.Sprintf("worktree %s is already merged", rec.Name))
	}
	if rec.Status == worktree.StatusCreating {
		return nil, errors.InvalidTransition(string(rec.Status), string(worktree.StatusMerged))
	}
	if message == "" {
		message = fmt.Sprintf("Merge branch %s", rec.BranchName)
	}

	checkout := checkoutPath(rec)
	tree, err := o.git.WorkingTreeStatus(ctx, checkout)
	if err != nil {
		return nil, errors.GitError("checking working tree", err)
	}
	if !tree.Clean {
		return nil, errors.DirtyWorkingTree(checkout, tree.Output)
	}

	if err := o.extractTasks(ctx, rec); err != nil {
		return nil, err
	}

	// Stop the runtime before rewriting history under it. A record in
	// error has no direct edge to merged, so it passes through stopped.
	o.shutdownRuntime(ctx, rec)
	if rec.Status == worktree.StatusError {
		if err := o.setStatus(ctx, rec, worktree.StatusStopped, ""); err != nil {
			return nil, err
		}
	}

	result, err := o.git.ExecuteMerge(ctx, rec.RepoPath, rec.BranchName, rec.BaseBranch, message)
	if err != nil {
		return nil, errors.GitError("merge", err)
	}
	if !result.Success {
		if len(result.Conflicts) > 0 {
			rec.MergeConflicts = result.Conflicts
			msg := fmt.Sprintf("merge conflicts in %d files", len(result.Conflicts))
			if err := o.setStatus(ctx, rec, worktree.StatusError, msg); err != nil {
				return nil, err
			}
			return nil, errors.MergeConflict(msg, &errors.ConflictDetail{
				Files:  result.Conflicts,
				Output: result.Output,
			})
		}
		msg := "merge failed"
		if err := o.setStatus(ctx, rec, worktree.StatusError, msg); err != nil {
			return nil, err
		}
		return nil, errors.GitError(msg, fmt.Errorf("%s", result.Output))
	}

	rec.MergeCommit = result.MergeCommit
	rec.MergeConflicts = nil
	if err := o.setStatus(ctx, rec, worktree.StatusMerged, ""); err != nil {
		return nil, err
	}
	logging.Info("worktree merged",
		"worktree", rec.Name, "commit", result.MergeCommit)
	return rec, nil
}

// extractTasks publishes the pre-merge extraction event, recovering the
// sandbox if handlers cannot reach it. Recovery plus publish is retried
// exactly once before giving up.
func (o *Orchestrator) extractTasks(ctx context.Context, rec *worktree.Record) error {
	ex := events.Extraction{
		WorktreeID: rec.ID,
		Name:       rec.Name,
		ProjectID:  rec.DevchainProjectID,
		DataPath:   rec.DataPath,
	}

	if err := o.recoverForExtraction(ctx, rec); err != nil {
		logging.Warn("extraction recovery failed, retrying once",
			"worktree", rec.Name, "error", err)
		if err := o.recoverForExtraction(ctx, rec); err != nil {
			return errors.ContainerFailed("recovery",
				fmt.Errorf("unable to start worktree container for task extraction: %w", err))
		}
	}

	if err := o.bus.PublishExtraction(ctx, ex); err != nil {
		logging.Warn("task extraction failed, recovering and retrying once",
			"worktree", rec.Name, "error", err)
		if rerr := o.recoverForExtraction(ctx, rec); rerr != nil {
			return errors.ContainerFailed("recovery",
				fmt.Errorf("unable to start worktree container for task extraction: %w", rerr))
		}
		if err := o.bus.PublishExtraction(ctx, ex); err != nil {
			return errors.Transient("task extraction", err)
		}
	}
	return nil
}

// recoverForExtraction makes sure a container-backed sandbox is up and
// healthy so extraction handlers can talk to it. Process-backed and
// already-running sandboxes need nothing.
func (o *Orchestrator) recoverForExtraction(ctx context.Context, rec *worktree.Record) error {
	if rec.RuntimeType != worktree.RuntimeContainer || rec.Container == nil {
		return nil
	}
	if rec.Status == worktree.StatusRunning {
		return nil
	}
	if err := o.engine.StartContainer(ctx, rec.Container.ID); err != nil {
		return err
	}
	healthy, err := o.engine.WaitForHealthy(ctx, rec.Container.ID, o.cfg.HealthTimeout())
	if err != nil {
		return err
	}
	if !healthy {
		return fmt.Errorf("container did not become healthy within %s", o.cfg.HealthTimeout())
	}
	if err := o.setStatus(ctx, rec, worktree.StatusRunning, ""); err != nil {
		return err
	}
	return nil
}

// shutdownRuntime stops whatever runtime is bound, best-effort.
func (o *Orchestrator) shutdownRuntime(ctx context.Context, rec *worktree.Record) {
	steps := []cleanupStep{}
	if rec.Container != nil {
		id := rec.Container.ID
		steps = append(steps, cleanupStep{"stop container", func(ctx context.Context) error {
			return o.engine.StopContainer(ctx, id)
		}})
	}
	if rec.Process != nil {
		pid := rec.Process.PID
		steps = append(steps, cleanupStep{"terminate process", func(ctx context.Context) error {
			return o.proc.Terminate(pid)
		}})
		rec.Process = nil
	}
	runCleanup(ctx, rec.Name, steps)
}

// Rebase replays the worktree branch onto the tip of its base branch,
// then brings the runtime back up. Conflicts abort the rebase and are
// reported; a successful rebase whose container fails to come back
// healthy is still an error state, with the rebase itself preserved.
func (o *Orchestrator) Rebase(ctx context.Context, ref string) (*worktree.Record, error) {
	rec, err := o.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	unlock := o.lock(rec.ID)
	defer unlock()

	if rec.Status == worktree.StatusMerged {
		return nil, errors.ValidationError(fmt.Sprintf("worktree %s is already merged", rec.Name))
	}
	if rec.Status == worktree.StatusCreating {
		return nil, errors.ValidationError(
			fmt.Sprintf("worktree %s is still being created", rec.Name))
	}

	checkout := checkoutPath(rec)
	tree, err := o.git.WorkingTreeStatus(ctx, checkout)
	if err != nil {
		return nil, errors.GitError("checking working tree", err)
	}
	if !tree.Clean {
		return nil, errors.DirtyWorkingTree(checkout, tree.Output)
	}

	wasRunning := rec.Status == worktree.StatusRunning
	if rec.Container != nil && wasRunning {
		if err := o.engine.StopContainer(ctx, rec.Container.ID); err != nil {
			logging.Warn("stopping container before rebase failed",
				"worktree", rec.Name, "error", err)
		}
	}

	result, err := o.git.ExecuteRebase(ctx, checkout, rec.BaseBranch)
	if err != nil {
		return nil, errors.GitError("rebase", err)
	}
	if !result.Success {
		rec.MergeConflicts = result.Conflicts
		msg := fmt.Sprintf("rebase conflicts in %d files", len(result.Conflicts))
		if len(result.Conflicts) == 0 {
			msg = "rebase failed"
		}
		if serr := o.setStatus(ctx, rec, worktree.StatusError, msg); serr != nil {
			return nil, serr
		}
		return nil, errors.MergeConflict(msg, &errors.ConflictDetail{
			Files:  result.Conflicts,
			Output: result.Output,
		})
	}

	rec.MergeConflicts = nil
	if rec.Container != nil && wasRunning {
		if err := o.engine.StartContainer(ctx, rec.Container.ID); err != nil {
			msg := "rebase succeeded but container unhealthy"
			if serr := o.setStatus(ctx, rec, worktree.StatusError, msg); serr != nil {
				return nil, serr
			}
			return nil, errors.ContainerFailed("restart after rebase", err)
		}
		healthy, err := o.engine.WaitForHealthy(ctx, rec.Container.ID, o.cfg.HealthTimeout())
		if err != nil || !healthy {
			msg := "rebase succeeded but container unhealthy"
			if serr := o.setStatus(ctx, rec, worktree.StatusError, msg); serr != nil {
				return nil, serr
			}
			if err == nil {
				err = fmt.Errorf("container did not become healthy within %s", o.cfg.HealthTimeout())
			}
			return nil, errors.ContainerFailed("health wait after rebase", err)
		}
	}

	target := rec.Status
	if wasRunning {
		target = worktree.StatusRunning
	}
	if err := o.setStatus(ctx, rec, target, ""); err != nil {
		return nil, err
	}
	o.bus.Activity(events.Activity{
		WorktreeID: rec.ID,
		Name:       rec.Name,
		Type:       "rebase",
		Message:    "rebased onto " + rec.BaseBranch,
	})
	logging.Info("worktree rebased", "worktree", rec.Name, "base", rec.BaseBranch)
	return rec, nil
}

// PreviewResult summarizes what a merge would do.
type PreviewResult struct {
	CommitsAhead  int      `json:"commitsAhead"`
	CommitsBehind int      `json:"commitsBehind"`
	FilesChanged  int      `json:"filesChanged"`
	Insertions    int      `json:"insertions"`
	Deletions     int      `json:"deletions"`
	Dirty         bool     `json:"dirty"`
	HasConflicts  bool     `json:"hasConflicts"`
	Conflicts     []string `json:"conflicts,omitempty"`
}

// Preview reports ahead/behind counts, the diffstat and a dry-run
// conflict check without mutating the repository. When the dry run comes
// back clean, a stale persisted conflict list from an earlier failed
// merge is cleared.
func (o *Orchestrator) Preview(ctx context.Context, ref string) (*PreviewResult, error) {
	rec, err := o.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	out := &PreviewResult{}

	status, err := o.git.BranchStatus(ctx, rec.RepoPath, rec.BranchName, rec.BaseBranch)
	if err != nil {
		return nil, errors.GitError("branch status", err)
	}
	out.CommitsAhead = status.CommitsAhead
	out.CommitsBehind = status.CommitsBehind

	summary, err := o.git.ChangeSummary(ctx, rec.RepoPath, rec.BranchName, rec.BaseBranch)
	if err != nil {
		return nil, errors.GitError("change summary", err)
	}
	out.FilesChanged = summary.FilesChanged
	out.Insertions = summary.Insertions
	out.Deletions = summary.Deletions

	tree, err := o.git.WorkingTreeStatus(ctx, checkoutPath(rec))
	if err != nil {
		return nil, errors.GitError("working tree status", err)
	}
	out.Dirty = !tree.Clean

	preview, err := o.git.PreviewMerge(ctx, rec.RepoPath, rec.BranchName, rec.BaseBranch)
	if err != nil {
		return nil, errors.GitError("merge preview", err)
	}
	out.HasConflicts = preview.HasConflicts
	out.Conflicts = preview.Conflicts

	if !preview.HasConflicts && len(rec.MergeConflicts) > 0 {
		rec.MergeConflicts = nil
		if err := o.store.Update(ctx, rec); err != nil {
			logging.Warn("clearing stale conflict list failed",
				"worktree", rec.Name, "error", err)
		}
	}

	return out, nil
}

// checkoutPath is where working-tree operations run for a record: the
// worktree checkout, or the repository itself for records without one.
func checkoutPath(rec *worktree.Record) string {
	if rec.WorktreePath != "" {
		return rec.WorktreePath
	}
	return rec.RepoPath
}
