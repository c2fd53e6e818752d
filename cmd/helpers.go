package cmd

import (
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/audit"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/config"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/container"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/monitor"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/orchestrator"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/procrun"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/seed"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/system"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/vcs"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// app bundles the wired collaborators every command needs.
type app struct {
	Cfg   *config.Config
	Store worktree.Store
	Bus   *events.Bus
	Audit *audit.Logger
	Orch  *orchestrator.Orchestrator
	Mon   *monitor.Monitor
}

// newApp loads configuration and wires the full dependency graph. The
// activity bus gets a JSONL audit sink and, when configured, a Redis
// stream relay.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.ConfigError("loading configuration", err)
	}

	fs := system.DefaultFS()
	exec := system.DefaultExecutor()
	store := worktree.NewFileStore(cfg.RecordsDir())
	bus := events.NewBus()

	auditLog := audit.NewLogger(cfg.StateDir)
	if err := auditLog.Attach(bus); err != nil {
		logging.Warn("audit log unavailable", "error", err)
	}

	// Merge requires at least one acknowledged task-history extraction;
	// the archive under the state dir is the default handler.
	archive := audit.NewTaskArchive(cfg.StateDir, fs, auditLog)
	bus.OnExtraction(archive.Capture)

	if cfg.Events.RedisURL != "" {
		relay, err := events.NewRedisRelay(cfg.Events.RedisURL)
		if err != nil {
			logging.Warn("event relay unavailable", "error", err)
		} else {
			bus.SetRelay(relay, cfg.Events.Stream)
		}
	}

	engine := container.NewDocker(cfg.Container.Engine, exec)
	sup := procrun.NewSupervisor(cfg.LogsDir(), cfg.Runtime.Command)
	sup.StartupTimeout = cfg.StartupTimeout()

	orch, err := orchestrator.New(orchestrator.Options{
		Config:     cfg,
		Store:      store,
		Git:        vcs.NewGit(exec),
		Engine:     engine,
		Supervisor: sup,
		Seed:       seed.NewDirPreparer(cfg.SeedDir, fs),
		Bus:        bus,
		FS:         fs,
	})
	if err != nil {
		return nil, err
	}

	mon := monitor.New(monitor.Options{
		Config:     cfg,
		Store:      store,
		Engine:     engine,
		Supervisor: sup,
		Bus:        bus,
	})

	return &app{
		Cfg:   cfg,
		Store: store,
		Bus:   bus,
		Audit: auditLog,
		Orch:  orch,
		Mon:   mon,
	}, nil
}
