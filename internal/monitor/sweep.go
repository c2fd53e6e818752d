package monitor

import (
	"context"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/container"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// Sweep verifies every process-runtime record marked running against the
// actual OS state: PID liveness and runtime-token match. Records failing
// verification are demoted to stopped. Run once at startup, before the
// periodic loop, to recover from an orchestrator restart that orphaned
// or lost its children.
func (m *Monitor) Sweep(ctx context.Context) {
	records, err := m.store.ListMonitored(ctx)
	if err != nil {
		logging.Warn("orphan sweep: listing monitored worktrees", "error", err)
		return
	}
	for _, rec := range records {
		if rec.RuntimeType != worktree.RuntimeProcess || rec.Status != worktree.StatusRunning {
			continue
		}
		if rec.Process == nil || !m.proc.Alive(rec.Process.PID) {
			m.demote(ctx, rec, "process not alive at startup")
			continue
		}
		app := m.appFor(rec.Process.Port, m.cfg.ProbeTimeout())
		info, err := app.RuntimeInfo(ctx)
		if err != nil || info.Token != rec.Process.Token {
			m.demote(ctx, rec, "runtime verification failed at startup")
		}
	}
}

// handleContainerEvent reflects engine lifecycle events into record
// status. Actions map to at most one transition and repeating an event
// for the current status is a no-op.
func (m *Monitor) handleContainerEvent(ctx context.Context, ev container.Event) {
	var next worktree.Status
	switch ev.Action {
	case "die", "stop", "kill", "destroy":
		next = worktree.StatusStopped
	case "start", "restart":
		next = worktree.StatusRunning
	default:
		return
	}

	rec, err := m.store.GetByContainerID(ctx, ev.ContainerID)
	if err != nil {
		return
	}
	if rec.Status == next {
		return
	}
	m.transition(ctx, rec, next, "")
}
