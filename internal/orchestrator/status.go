package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// setStatus transitions a record through the status state machine,
// persists it and emits a change notification plus an activity event.
// A same-status call updates the record (runtime fields may have changed)
// but emits nothing. Disallowed transitions fail without persisting.
func (o *Orchestrator) setStatus(ctx context.Context, rec *worktree.Record, next worktree.Status, errMsg string) error {
	return o.setStatusActivity(ctx, rec, next, errMsg, "")
}

// setStatusActivity is setStatus with a caller-chosen activity type; an
// empty activity derives one from the target status. Create uses it so
// the creating→running promotion is recorded as "create", not "start".
func (o *Orchestrator) setStatusActivity(ctx context.Context, rec *worktree.Record, next worktree.Status, errMsg, activity string) error {
	old := rec.Status
	if !old.CanTransition(next) {
		return errors.InvalidTransition(string(old), string(next))
	}
	rec.Status = next
	rec.ErrorMessage = errMsg
	rec.UpdatedAt = time.Now().UTC()
	if err := o.store.Update(ctx, rec); err != nil {
		return fmt.Errorf("persisting status %s for %q: %w", next, rec.Name, err)
	}
	if old == next {
		return nil
	}
	logging.Info("worktree status changed",
		"worktree", rec.Name, "from", string(old), "to", string(next))
	o.bus.NotifyChange(ctx, events.Change{
		WorktreeID: rec.ID,
		Name:       rec.Name,
		Old:        old,
		New:        next,
	})
	if activity == "" {
		activity = activityForStatus(next)
	}
	o.bus.Activity(events.Activity{
		WorktreeID: rec.ID,
		Name:       rec.Name,
		Type:       activity,
		Message:    activityMessage(next, errMsg),
		Time:       time.Now().UTC(),
	})
	return nil
}

func activityForStatus(s worktree.Status) string {
	switch s {
	case worktree.StatusRunning:
		return "start"
	case worktree.StatusStopped, worktree.StatusCompleted:
		return "stop"
	case worktree.StatusMerged:
		return "merge"
	case worktree.StatusError:
		return "error"
	default:
		return "create"
	}
}

func activityMessage(s worktree.Status, errMsg string) string {
	if s == worktree.StatusError && errMsg != "" {
		return errMsg
	}
	return "status changed to " + string(s)
}
