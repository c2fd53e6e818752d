package audit

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/seed"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/system"
)

// TaskArchive durably captures a worktree's application data directory
// before its branch is merged, so task and epic history survives once the
// worktree is deleted. Archives land in {stateDir}/extractions/{name}.
type TaskArchive struct {
	stateDir string
	fs       system.FileSystem
	log      *Logger
}

// NewTaskArchive creates an archive rooted at stateDir, sharing the
// activity logger's state directory.
func NewTaskArchive(stateDir string, filesystem system.FileSystem, log *Logger) *TaskArchive {
	if filesystem == nil {
		filesystem = system.DefaultFS()
	}
	return &TaskArchive{stateDir: stateDir, fs: filesystem, log: log}
}

// ArchivePath returns where a worktree's task history is archived.
func (t *TaskArchive) ArchivePath(worktree string) string {
	return filepath.Join(t.stateDir, "extractions", worktree)
}

// Capture snapshots the worktree's data directory into the archive. The
// copy is staged and renamed into place, so a re-merge after a failed
// attempt replaces the previous archive atomically. Capture implements
// events.ExtractionHandler; returning nil acknowledges the extraction.
func (t *TaskArchive) Capture(ctx context.Context, ex events.Extraction) error {
	dest := t.ArchivePath(ex.Name)
	staging := dest + ".staging"

	if err := t.fs.RemoveAll(staging); err != nil {
		return fmt.Errorf("clear extraction staging: %w", err)
	}
	if err := seed.CopyTree(ctx, t.fs, ex.DataPath, staging); err != nil {
		_ = t.fs.RemoveAll(staging)
		return fmt.Errorf("archive task history for %s: %w", ex.Name, err)
	}
	if err := t.fs.RemoveAll(dest); err != nil {
		return fmt.Errorf("clear previous extraction archive: %w", err)
	}
	if err := t.fs.Rename(staging, dest); err != nil {
		return fmt.Errorf("move extraction archive into place: %w", err)
	}

	if t.log != nil {
		if err := t.log.Log(Event{
			Type:     EventMerge,
			Worktree: ex.Name,
			Details:  fmt.Sprintf("task history archived to %s", dest),
		}); err != nil {
			return err
		}
	}
	return nil
}
