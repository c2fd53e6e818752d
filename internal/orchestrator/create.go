package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/config"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/container"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/port"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/procrun"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// CreateOptions describe a new worktree.
type CreateOptions struct {
	Name           string
	BranchName     string
	BaseBranch     string
	RuntimeType    worktree.RuntimeType
	TemplateSlug   string
	OwnerProjectID string
	Description    string
}

// Create provisions a worktree end to end: git worktree, seeded data
// directory, runtime (container or process) and devchain project
// registration. The record is persisted in status creating before any
// side effects; on failure it is marked error and the partial
// environment is torn down best-effort, runtime logs captured first.
func (o *Orchestrator) Create(ctx context.Context, opts CreateOptions) (*worktree.Record, error) {
	if err := config.ValidateWorktreeName(opts.Name); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	unlock := o.lock("create:" + opts.Name)
	defer unlock()

	branch := opts.BranchName
	if branch == "" {
		branch = opts.Name
	}
	base := opts.BaseBranch
	if base == "" {
		base = "main"
	}
	if err := config.ValidateBranchName(branch); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	if err := config.ValidateBranchName(base); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	runtimeType := opts.RuntimeType
	if runtimeType == "" {
		runtimeType = worktree.RuntimeContainer
	}
	if runtimeType != worktree.RuntimeContainer && runtimeType != worktree.RuntimeProcess {
		return nil, errors.ValidationError(fmt.Sprintf("unknown runtime type %q", runtimeType))
	}

	if _, err := o.store.GetByName(ctx, opts.Name); err == nil {
		return nil, errors.DuplicateName(opts.Name)
	} else if err != worktree.ErrNotFound {
		return nil, fmt.Errorf("checking for existing worktree %q: %w", opts.Name, err)
	}

	worktreePath, err := o.resolver.WorktreePath(opts.Name)
	if err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	dataPath, err := o.resolver.DataPath(opts.Name)
	if err != nil {
		return nil, errors.ValidationError(err.Error())
	}

	rec := &worktree.Record{
		Name:              opts.Name,
		BranchName:        branch,
		BaseBranch:        base,
		RepoPath:          o.cfg.RepoPath,
		WorktreePath:      worktreePath,
		DataPath:          dataPath,
		RuntimeType:       runtimeType,
		TemplateSlug:      opts.TemplateSlug,
		OwnerProjectID:    opts.OwnerProjectID,
		DevchainProjectID: uuid.NewString(),
		Status:            worktree.StatusCreating,
		Description:       opts.Description,
	}
	if err := o.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting worktree record: %w", err)
	}
	logging.Info("creating worktree",
		"worktree", rec.Name, "branch", branch, "base", base, "runtime", string(runtimeType))

	if err := o.provision(ctx, rec); err != nil {
		o.failCreate(ctx, rec, err)
		return nil, err
	}

	if err := o.setStatusActivity(ctx, rec, worktree.StatusRunning, "", "create"); err != nil {
		return nil, err
	}
	logging.Info("worktree created", "worktree", rec.Name, "port", rec.Port())
	return rec, nil
}

// provision performs the side-effecting part of Create. Any error leaves
// a partial environment that failCreate tears down.
func (o *Orchestrator) provision(ctx context.Context, rec *worktree.Record) error {
	if err := o.git.CreateWorktree(ctx, rec.RepoPath, rec.WorktreePath, rec.BranchName, rec.BaseBranch); err != nil {
		return errors.GitError(fmt.Sprintf("creating worktree for branch %s", rec.BranchName), err)
	}

	if err := o.fs.MkdirAll(rec.DataPath, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := o.seed.PrepareSeedData(ctx, rec.DataPath); err != nil {
		return fmt.Errorf("seeding data directory: %w", err)
	}

	switch rec.RuntimeType {
	case worktree.RuntimeProcess:
		return o.provisionProcess(ctx, rec)
	default:
		return o.provisionContainer(ctx, rec)
	}
}

func (o *Orchestrator) provisionProcess(ctx context.Context, rec *worktree.Record) error {
	res, err := o.proc.Start(ctx, procrun.StartSpec{
		Name:         rec.Name,
		WorktreePath: rec.WorktreePath,
		DataPath:     rec.DataPath,
		ProjectID:    rec.DevchainProjectID,
	})
	if err != nil {
		return errors.RuntimeFailed("start", err)
	}
	rec.Process = &worktree.ProcessRuntime{
		PID:       res.PID,
		Token:     res.Token,
		Port:      res.Port,
		StartedAt: res.StartedAt,
	}
	if err := o.store.Update(ctx, rec); err != nil {
		return fmt.Errorf("persisting process runtime: %w", err)
	}

	app := o.appFor(res.Port, o.cfg.ProbeTimeout())
	if err := app.RegisterProject(ctx, rec.TemplateSlug, rec.DevchainProjectID, rec.WorktreePath); err != nil {
		return errors.RuntimeFailed("project registration", err)
	}
	return nil
}

func (o *Orchestrator) provisionContainer(ctx context.Context, rec *worktree.Record) error {
	records, err := o.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing records for port allocation: %w", err)
	}
	hostPort, err := port.Allocate(0, 0, records)
	if err != nil {
		return errors.Transient("allocating host port", err)
	}

	created, err := o.engine.CreateContainer(ctx, container.CreateOptions{
		Name:         rec.Name,
		Image:        o.cfg.Container.Image,
		WorktreePath: rec.WorktreePath,
		DataPath:     rec.DataPath,
		Env: map[string]string{
			procrun.EnvProjectID: rec.DevchainProjectID,
		},
		AppPort:  o.cfg.Container.AppPort,
		HostPort: hostPort,
		Network:  networkName(rec.Name),
	})
	if err != nil {
		return errors.ContainerFailed("create", err)
	}
	rec.Container = &worktree.ContainerRuntime{ID: created.ID, Port: created.HostPort}
	if err := o.store.Update(ctx, rec); err != nil {
		return fmt.Errorf("persisting container runtime: %w", err)
	}

	if err := o.engine.EnsureOnSharedNetwork(ctx, o.cfg.Container.SharedNetwork, created.ID); err != nil {
		return errors.ContainerFailed("network attach", err)
	}

	healthy, err := o.engine.WaitForHealthy(ctx, created.ID, o.cfg.HealthTimeout())
	if err != nil {
		return errors.ContainerFailed("health wait", err)
	}
	if !healthy {
		return errors.ContainerFailed("health wait",
			fmt.Errorf("container did not become healthy within %s", o.cfg.HealthTimeout()))
	}

	app := o.appFor(created.HostPort, o.cfg.ProbeTimeout())
	if err := app.RegisterProject(ctx, rec.TemplateSlug, rec.DevchainProjectID, containerWorkspacePath); err != nil {
		return errors.ContainerFailed("project registration", err)
	}
	return nil
}

// containerWorkspacePath is where the worktree is mounted inside the
// container, the root path the sandbox application is registered with.
const containerWorkspacePath = "/workspace"

// failCreate records the failure durably, captures trailing runtime logs,
// then tears down whatever provision managed to build. The record itself
// stays, in status error, so the failure is inspectable.
func (o *Orchestrator) failCreate(ctx context.Context, rec *worktree.Record, cause error) {
	logging.Error("worktree creation failed", "worktree", rec.Name, "error", cause)

	if tail := o.runtimeLogTail(ctx, rec, 50); tail != "" {
		logging.Debug("runtime log tail", "worktree", rec.Name, "log", tail)
	}

	steps := []cleanupStep{}
	if rec.Container != nil {
		id := rec.Container.ID
		steps = append(steps,
			cleanupStep{"stop container", func(ctx context.Context) error {
				return o.engine.StopContainer(ctx, id)
			}},
			cleanupStep{"remove container", func(ctx context.Context) error {
				return o.engine.RemoveContainer(ctx, id, true)
			}},
			cleanupStep{"remove network", func(ctx context.Context) error {
				return o.engine.RemoveNetwork(ctx, networkName(rec.Name))
			}},
		)
	}
	if rec.Process != nil {
		pid := rec.Process.PID
		steps = append(steps, cleanupStep{"terminate process", func(ctx context.Context) error {
			return o.proc.Terminate(pid)
		}})
	}
	steps = append(steps,
		cleanupStep{"remove worktree", func(ctx context.Context) error {
			return o.git.RemoveWorktree(ctx, rec.RepoPath, rec.WorktreePath, true)
		}},
	)
	if rec.BranchName != rec.BaseBranch {
		steps = append(steps, cleanupStep{"delete branch", func(ctx context.Context) error {
			return o.git.DeleteBranch(ctx, rec.RepoPath, rec.BranchName, true)
		}})
	}
	steps = append(steps, cleanupStep{"remove data directory", func(ctx context.Context) error {
		return o.fs.RemoveAll(rec.DataPath)
	}})
	runCleanup(ctx, rec.Name, steps)

	rec.ClearRuntime()
	rec.Status = worktree.StatusError
	rec.ErrorMessage = cause.Error()
	rec.UpdatedAt = time.Now().UTC()
	if err := o.store.Update(ctx, rec); err != nil {
		logging.Error("persisting failed creation state", "worktree", rec.Name, "error", err)
	}
}

// runtimeLogTail fetches trailing runtime output for diagnostics, from
// whichever runtime is bound.
func (o *Orchestrator) runtimeLogTail(ctx context.Context, rec *worktree.Record, lines int) string {
	switch {
	case rec.Container != nil:
		out, err := o.engine.ContainerLogs(ctx, rec.Container.ID, lines)
		if err != nil {
			return ""
		}
		return out
	case rec.RuntimeType == worktree.RuntimeProcess:
		return o.proc.TailLog(rec.Name, lines)
	}
	return ""
}
