package orchestrator

import (
	"context"
	"fmt"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/procrun"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// Get returns the record for an id or name.
func (o *Orchestrator) Get(ctx context.Context, ref string) (*worktree.Record, error) {
	rec, err := o.store.GetByID(ctx, ref)
	if err == nil {
		return rec, nil
	}
	if err != worktree.ErrNotFound {
		return nil, err
	}
	rec, err = o.store.GetByName(ctx, ref)
	if err == worktree.ErrNotFound {
		return nil, errors.WorktreeNotFound(ref)
	}
	return rec, err
}

// List returns all records.
func (o *Orchestrator) List(ctx context.Context) ([]*worktree.Record, error) {
	return o.store.List(ctx)
}

// ListByOwner returns records belonging to an owner project.
func (o *Orchestrator) ListByOwner(ctx context.Context, ownerProjectID string) ([]*worktree.Record, error) {
	return o.store.ListByOwner(ctx, ownerProjectID)
}

// Start brings a stopped worktree back up on its existing runtime type.
// Container worktrees restart their container and wait for health;
// process worktrees spawn a fresh process with a fresh token.
func (o *Orchestrator) Start(ctx context.Context, ref string) (*worktree.Record, error) {
	rec, err := o.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	unlock := o.lock(rec.ID)
	defer unlock()

	if rec.Status == worktree.StatusRunning {
		return rec, nil
	}
	if !rec.Status.CanTransition(worktree.StatusRunning) {
		return nil, errors.InvalidTransition(string(rec.Status), string(worktree.StatusRunning))
	}

	switch rec.RuntimeType {
	case worktree.RuntimeProcess:
		res, err := o.proc.Start(ctx, procrun.StartSpec{
			Name:         rec.Name,
			WorktreePath: rec.WorktreePath,
			DataPath:     rec.DataPath,
			ProjectID:    rec.DevchainProjectID,
		})
		if err != nil {
			return nil, errors.RuntimeFailed("start", err)
		}
		rec.Process = &worktree.ProcessRuntime{
			PID:       res.PID,
			Token:     res.Token,
			Port:      res.Port,
			StartedAt: res.StartedAt,
		}
	default:
		if rec.Container == nil {
			return nil, errors.ValidationError(
				fmt.Sprintf("worktree %s has no container to start", rec.Name))
		}
		if err := o.engine.StartContainer(ctx, rec.Container.ID); err != nil {
			return nil, errors.ContainerFailed("start", err)
		}
		if err := o.engine.EnsureOnSharedNetwork(ctx, o.cfg.Container.SharedNetwork, rec.Container.ID); err != nil {
			logging.Warn("shared network attach failed",
				"worktree", rec.Name, "error", err)
		}
		healthy, err := o.engine.WaitForHealthy(ctx, rec.Container.ID, o.cfg.HealthTimeout())
		if err != nil {
			return nil, errors.ContainerFailed("health wait", err)
		}
		if !healthy {
			return nil, errors.ContainerFailed("health wait",
				fmt.Errorf("container did not become healthy within %s", o.cfg.HealthTimeout()))
		}
	}

	if err := o.setStatus(ctx, rec, worktree.StatusRunning, ""); err != nil {
		return nil, err
	}
	return rec, nil
}

// Stop shuts the runtime down and marks the record stopped. Container
// worktrees keep their container binding for a later Start; process
// worktrees clear the process binding since the pid and token are dead.
func (o *Orchestrator) Stop(ctx context.Context, ref string) (*worktree.Record, error) {
	rec, err := o.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	unlock := o.lock(rec.ID)
	defer unlock()

	if rec.Status == worktree.StatusStopped {
		return rec, nil
	}
	if !rec.Status.CanTransition(worktree.StatusStopped) {
		return nil, errors.InvalidTransition(string(rec.Status), string(worktree.StatusStopped))
	}

	switch {
	case rec.Process != nil:
		if err := o.proc.Terminate(rec.Process.PID); err != nil {
			return nil, errors.RuntimeFailed("stop", err)
		}
		rec.Process = nil
	case rec.Container != nil:
		if err := o.engine.StopContainer(ctx, rec.Container.ID); err != nil {
			return nil, errors.ContainerFailed("stop", err)
		}
	}

	if err := o.setStatus(ctx, rec, worktree.StatusStopped, ""); err != nil {
		return nil, err
	}
	return rec, nil
}

// Logs returns trailing runtime output for a worktree.
func (o *Orchestrator) Logs(ctx context.Context, ref string, tail int) (string, error) {
	rec, err := o.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	if tail <= 0 {
		tail = 100
	}
	switch {
	case rec.Container != nil:
		out, err := o.engine.ContainerLogs(ctx, rec.Container.ID, tail)
		if err != nil {
			return "", errors.ContainerFailed("logs", err)
		}
		return out, nil
	case rec.RuntimeType == worktree.RuntimeProcess:
		return o.proc.TailLog(rec.Name, tail), nil
	}
	return "", nil
}
