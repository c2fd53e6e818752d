package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/appclient"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/config"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/container"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/paths"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/procrun"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/seed"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/system"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/vcs"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// AppAPI is the slice of the devchain HTTP surface the orchestrator calls
// on a freshly started runtime. *appclient.Client satisfies it.
type AppAPI interface {
	Ready(ctx context.Context) error
	RegisterProject(ctx context.Context, templateSlug, projectID, rootPath string) error
	RuntimeInfo(ctx context.Context) (appclient.RuntimeInfo, error)
}

// AppClientFactory builds an AppAPI bound to a local port.
type AppClientFactory func(port int, timeout time.Duration) AppAPI

// ProcessSupervisor abstracts procrun.Supervisor for tests.
type ProcessSupervisor interface {
	Start(ctx context.Context, spec procrun.StartSpec) (procrun.StartResult, error)
	Terminate(pid int) error
	Alive(pid int) bool
	TailLog(name string, lines int) string
}

// Orchestrator coordinates worktree lifecycle operations.
type Orchestrator struct {
	cfg      *config.Config
	store    worktree.Store
	git      vcs.Client
	engine   container.Engine
	proc     ProcessSupervisor
	seed     seed.Preparer
	bus      *events.Bus
	resolver *paths.Resolver
	appFor   AppClientFactory
	fs       system.FileSystem

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options carries the orchestrator's collaborators. All fields except
// AppFor and FS are required; nil AppFor defaults to appclient.New and
// nil FS to the real filesystem.
type Options struct {
	Config     *config.Config
	Store      worktree.Store
	Git        vcs.Client
	Engine     container.Engine
	Supervisor ProcessSupervisor
	Seed       seed.Preparer
	Bus        *events.Bus
	AppFor     AppClientFactory
	FS         system.FileSystem
}

func New(opts Options) (*Orchestrator, error) {
	resolver, err := paths.NewResolver(opts.Config.WorktreesRoot, opts.Config.DataRoot)
	if err != nil {
		return nil, err
	}
	appFor := opts.AppFor
	if appFor == nil {
		appFor = func(port int, timeout time.Duration) AppAPI {
			return appclient.New(port, timeout)
		}
	}
	fs := opts.FS
	if fs == nil {
		fs = system.DefaultFS()
	}
	return &Orchestrator{
		cfg:      opts.Config,
		store:    opts.Store,
		git:      opts.Git,
		engine:   opts.Engine,
		proc:     opts.Supervisor,
		seed:     opts.Seed,
		bus:      opts.Bus,
		resolver: resolver,
		appFor:   appFor,
		fs:       fs,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// lock serializes lifecycle operations for one key (a worktree id, or the
// name during creation before an id exists). Returns the unlock func.
func (o *Orchestrator) lock(key string) func() {
	o.mu.Lock()
	m, ok := o.locks[key]
	if !ok {
		m = &sync.Mutex{}
		o.locks[key] = m
	}
	o.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (o *Orchestrator) releaseLock(key string) {
	o.mu.Lock()
	delete(o.locks, key)
	o.mu.Unlock()
}

// containerName returns the canonical container name for a worktree.
func containerName(name string) string {
	return config.ContainerPrefix + name
}

// networkName returns the dedicated per-worktree network name.
func networkName(name string) string {
	return config.ContainerPrefix + name + "-net"
}
