// Package testutil wires a full in-memory test environment: temp
// directories, a file-backed record store, mock container engine, mock
// command executor and stubbed runtime collaborators.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/appclient"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/config"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/container"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/orchestrator"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/procrun"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/seed"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/system"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/vcs"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// StubSupervisor is a scripted ProcessSupervisor.
type StubSupervisor struct {
	// StartResults are returned in order by Start; when exhausted the
	// last one repeats.
	StartResults []procrun.StartResult

	// StartErr, when set, fails every Start call.
	StartErr error

	// AlivePIDs controls Alive; unknown PIDs are dead.
	AlivePIDs map[int]bool

	// Log is returned by TailLog.
	Log string

	Starts     []procrun.StartSpec
	Terminated []int
	starts     int
}

func (s *StubSupervisor) Start(ctx context.Context, spec procrun.StartSpec) (procrun.StartResult, error) {
	s.Starts = append(s.Starts, spec)
	if s.StartErr != nil {
		return procrun.StartResult{}, s.StartErr
	}
	idx := s.starts
	if idx >= len(s.StartResults) {
		idx = len(s.StartResults) - 1
	}
	s.starts++
	res := s.StartResults[idx]
	if res.StartedAt.IsZero() {
		res.StartedAt = time.Now().UTC()
	}
	if s.AlivePIDs == nil {
		s.AlivePIDs = make(map[int]bool)
	}
	s.AlivePIDs[res.PID] = true
	return res, nil
}

func (s *StubSupervisor) Terminate(pid int) error {
	s.Terminated = append(s.Terminated, pid)
	if s.AlivePIDs != nil {
		delete(s.AlivePIDs, pid)
	}
	return nil
}

func (s *StubSupervisor) Alive(pid int) bool {
	return s.AlivePIDs[pid]
}

func (s *StubSupervisor) TailLog(name string, lines int) string {
	return s.Log
}

// StubApp is a scripted AppAPI shared across all ports of one test.
type StubApp struct {
	ReadyErr    error
	RegisterErr error
	RuntimeErr  error

	// Token is returned by RuntimeInfo.
	Token string

	Registered []string
	ReadyCalls int
}

func (a *StubApp) Ready(ctx context.Context) error {
	a.ReadyCalls++
	return a.ReadyErr
}

func (a *StubApp) RegisterProject(ctx context.Context, templateSlug, projectID, rootPath string) error {
	if a.RegisterErr != nil {
		return a.RegisterErr
	}
	a.Registered = append(a.Registered, projectID)
	return nil
}

func (a *StubApp) RuntimeInfo(ctx context.Context) (appclient.RuntimeInfo, error) {
	if a.RuntimeErr != nil {
		return appclient.RuntimeInfo{}, a.RuntimeErr
	}
	return appclient.RuntimeInfo{Token: a.Token}, nil
}

// Env is a fully wired test environment.
type Env struct {
	Cfg        *config.Config
	Store      *worktree.FileStore
	Engine     *container.MockEngine
	Exec       *system.MockExecutor
	Git        vcs.Client
	Supervisor *StubSupervisor
	App        *StubApp
	Bus        *events.Bus
	Orch       *orchestrator.Orchestrator
}

// NewEnv builds an Env rooted in t.TempDir with sensible defaults: the
// mock engine reports healthy containers and the stub supervisor
// reports pid 4321 on port 43123 with token "t1".
func NewEnv(t *testing.T) *Env {
	t.Helper()

	repo := t.TempDir()
	cfg, err := config.Load(repo + "/grove.toml")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	cfg.RepoPath = repo
	cfg.WorktreesRoot = repo + "/.grove/worktrees"
	cfg.DataRoot = repo + "/.grove/data"
	cfg.StateDir = repo + "/.grove/state"

	engine := container.NewMockEngine()
	engine.HealthyByDefault = true
	exec := system.NewMockExecutor()
	sup := &StubSupervisor{
		StartResults: []procrun.StartResult{{PID: 4321, Port: 43123, Token: "t1"}},
	}
	app := &StubApp{Token: "t1"}
	bus := events.NewBus()
	t.Cleanup(func() { bus.Close() })

	store := worktree.NewFileStore(cfg.RecordsDir())
	fs := system.DefaultFS()

	orch, err := orchestrator.New(orchestrator.Options{
		Config:     cfg,
		Store:      store,
		Git:        vcs.NewGit(exec),
		Engine:     engine,
		Supervisor: sup,
		Seed:       seed.NewDirPreparer("", fs),
		Bus:        bus,
		AppFor: func(port int, timeout time.Duration) orchestrator.AppAPI {
			return app
		},
		FS: fs,
	})
	if err != nil {
		t.Fatalf("building orchestrator: %v", err)
	}

	return &Env{
		Cfg:        cfg,
		Store:      store,
		Engine:     engine,
		Exec:       exec,
		Git:        vcs.NewGit(exec),
		Supervisor: sup,
		App:        app,
		Bus:        bus,
		Orch:       orch,
	}
}
