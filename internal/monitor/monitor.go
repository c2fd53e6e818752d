package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/appclient"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/config"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/container"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/orchestrator"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// Monitor watches running worktrees and reconciles record status with
// observed runtime state.
type Monitor struct {
	cfg    *config.Config
	store  worktree.Store
	engine container.Engine
	proc   orchestrator.ProcessSupervisor
	bus    *events.Bus
	appFor orchestrator.AppClientFactory

	mu       sync.Mutex
	failures map[string]int
}

// Options carries the monitor's collaborators.
type Options struct {
	Config     *config.Config
	Store      worktree.Store
	Engine     container.Engine
	Supervisor orchestrator.ProcessSupervisor
	Bus        *events.Bus
	AppFor     orchestrator.AppClientFactory
}

func New(opts Options) *Monitor {
	appFor := opts.AppFor
	if appFor == nil {
		appFor = func(port int, timeout time.Duration) orchestrator.AppAPI {
			return appclient.New(port, timeout)
		}
	}
	return &Monitor{
		cfg:      opts.Config,
		store:    opts.Store,
		engine:   opts.Engine,
		proc:     opts.Supervisor,
		bus:      opts.Bus,
		appFor:   appFor,
		failures: make(map[string]int),
	}
}

// Run performs the startup sweep, subscribes to container events and
// then ticks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.Sweep(ctx)

	cancel, err := m.engine.SubscribeEvents(ctx, func(ev container.Event) {
		m.handleContainerEvent(ctx, ev)
	})
	if err != nil {
		logging.Warn("container event subscription unavailable", "error", err)
	} else {
		defer cancel()
	}

	ticker := time.NewTicker(m.cfg.MonitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick probes all monitored records concurrently and waits for every
// probe to finish. One record's failure never affects another.
func (m *Monitor) Tick(ctx context.Context) {
	records, err := m.store.ListMonitored(ctx)
	if err != nil {
		logging.Warn("listing monitored worktrees", "error", err)
		return
	}
	m.pruneCounters(records)

	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(rec *worktree.Record) {
			defer wg.Done()
			m.check(ctx, rec)
		}(rec)
	}
	wg.Wait()
}

func (m *Monitor) check(ctx context.Context, rec *worktree.Record) {
	switch rec.RuntimeType {
	case worktree.RuntimeProcess:
		m.checkProcess(ctx, rec)
	default:
		m.checkContainer(ctx, rec)
	}
}

func (m *Monitor) checkContainer(ctx context.Context, rec *worktree.Record) {
	if rec.Container == nil {
		return
	}
	if err := m.engine.EnsureOnSharedNetwork(ctx, m.cfg.Container.SharedNetwork, rec.Container.ID); err != nil {
		logging.Debug("shared network re-attach failed",
			"worktree", rec.Name, "error", err)
	}

	app := m.appFor(rec.Container.Port, m.cfg.ProbeTimeout())
	if err := app.Ready(ctx); err != nil {
		m.recordFailure(ctx, rec, err)
		return
	}
	m.recordSuccess(ctx, rec)
}

func (m *Monitor) checkProcess(ctx context.Context, rec *worktree.Record) {
	if rec.Process == nil || !m.proc.Alive(rec.Process.PID) {
		// A dead process is a stopped sandbox, not a broken one.
		m.demote(ctx, rec, "process exited")
		return
	}
	if rec.Process.Port == 0 || rec.Process.Token == "" {
		m.recordFailure(ctx, rec, fmt.Errorf("process runtime missing port or token"))
		return
	}

	app := m.appFor(rec.Process.Port, m.cfg.ProbeTimeout())
	if err := app.Ready(ctx); err != nil {
		m.recordFailure(ctx, rec, err)
		return
	}

	info, err := app.RuntimeInfo(ctx)
	if err != nil {
		m.recordFailure(ctx, rec, err)
		return
	}
	if info.Token != rec.Process.Token {
		// Another process took over the port; our child is gone.
		m.demote(ctx, rec, "runtime token mismatch")
		return
	}
	m.recordSuccess(ctx, rec)
}

// recordFailure bumps the consecutive-failure counter and flips a
// running record to error once the threshold is reached.
func (m *Monitor) recordFailure(ctx context.Context, rec *worktree.Record, cause error) {
	m.mu.Lock()
	m.failures[rec.ID]++
	count := m.failures[rec.ID]
	m.mu.Unlock()

	logging.Debug("health probe failed",
		"worktree", rec.Name, "consecutive", count, "error", cause)

	threshold := m.cfg.Monitor.FailureThreshold
	if count < threshold || rec.Status != worktree.StatusRunning {
		return
	}
	msg := fmt.Sprintf("health check failed %d consecutive times", threshold)
	m.transition(ctx, rec, worktree.StatusError, msg)
}

// recordSuccess resets the failure counter and restores an error record
// to running.
func (m *Monitor) recordSuccess(ctx context.Context, rec *worktree.Record) {
	m.mu.Lock()
	delete(m.failures, rec.ID)
	m.mu.Unlock()

	if rec.Status == worktree.StatusError {
		m.transition(ctx, rec, worktree.StatusRunning, "")
	}
}

// demote marks a record stopped and clears its runtime binding.
func (m *Monitor) demote(ctx context.Context, rec *worktree.Record, reason string) {
	m.mu.Lock()
	delete(m.failures, rec.ID)
	m.mu.Unlock()

	logging.Info("worktree runtime gone",
		"worktree", rec.Name, "reason", reason)
	rec.ClearRuntime()
	m.transition(ctx, rec, worktree.StatusStopped, "")
}

// transition applies a guarded status change, persisting and notifying
// only when the status actually changes.
func (m *Monitor) transition(ctx context.Context, rec *worktree.Record, next worktree.Status, errMsg string) {
	old := rec.Status
	if !old.CanTransition(next) {
		logging.Warn("monitor transition rejected",
			"worktree", rec.Name, "from", string(old), "to", string(next))
		return
	}
	rec.Status = next
	rec.ErrorMessage = errMsg
	rec.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(ctx, rec); err != nil {
		logging.Warn("persisting monitored status", "worktree", rec.Name, "error", err)
		return
	}
	if old == next {
		return
	}
	logging.Info("monitor changed worktree status",
		"worktree", rec.Name, "from", string(old), "to", string(next))
	m.bus.NotifyChange(ctx, events.Change{
		WorktreeID: rec.ID,
		Name:       rec.Name,
		Old:        old,
		New:        next,
	})
	m.bus.Activity(events.Activity{
		WorktreeID: rec.ID,
		Name:       rec.Name,
		Type:       "health",
		Message:    healthMessage(next, errMsg),
	})
}

func healthMessage(s worktree.Status, errMsg string) string {
	if s == worktree.StatusError && errMsg != "" {
		return errMsg
	}
	return "status changed to " + string(s)
}

// pruneCounters drops counters for records no longer monitored so
// deleted worktrees do not leak entries.
func (m *Monitor) pruneCounters(records []*worktree.Record) {
	live := make(map[string]bool, len(records))
	for _, rec := range records {
		live[rec.ID] = true
	}
	m.mu.Lock()
	for id := range m.failures {
		if !live[id] {
			delete(m.failures, id)
		}
	}
	m.mu.Unlock()
}
