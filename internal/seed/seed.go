// Package seed stages baseline application data into a worktree's isolated
// data directory.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/system"
)

// Preparer stages a copy of baseline application data into dataPath.
type Preparer interface {
	PrepareSeedData(ctx context.Context, dataPath string) error
}

// DirPreparer copies a baseline directory tree. The copy lands in a
// staging directory first and is renamed into place, so a reader of
// dataPath never observes a half-copied tree even if the source is being
// written concurrently.
type DirPreparer struct {
	// SourceDir is the baseline data directory. Empty means no seed data;
	// the target is just created empty.
	SourceDir string

	FS system.FileSystem
}

// NewDirPreparer creates a DirPreparer for the given baseline directory.
func NewDirPreparer(sourceDir string, filesystem system.FileSystem) *DirPreparer {
	if filesystem == nil {
		filesystem = system.DefaultFS()
	}
	return &DirPreparer{SourceDir: sourceDir, FS: filesystem}
}

func (p *DirPreparer) PrepareSeedData(ctx context.Context, dataPath string) error {
	if p.SourceDir == "" || !p.FS.Exists(p.SourceDir) {
		logging.Debug("no seed data source, creating empty data directory", "path", dataPath)
		return p.FS.MkdirAll(dataPath, 0o755)
	}

	staging := dataPath + ".staging"
	if err := p.FS.RemoveAll(staging); err != nil {
		return fmt.Errorf("clear staging directory: %w", err)
	}

	if err := CopyTree(ctx, p.FS, p.SourceDir, staging); err != nil {
		_ = p.FS.RemoveAll(staging)
		return fmt.Errorf("stage seed data: %w", err)
	}

	if err := p.FS.RemoveAll(dataPath); err != nil {
		return fmt.Errorf("clear data directory: %w", err)
	}
	if err := p.FS.Rename(staging, dataPath); err != nil {
		return fmt.Errorf("move staged seed data into place: %w", err)
	}

	logging.Debug("seed data prepared", "source", p.SourceDir, "path", dataPath)
	return nil
}

// CopyTree recursively copies the regular files and directories under
// src into dst. Files that disappear mid-copy are skipped.
func CopyTree(ctx context.Context, filesystem system.FileSystem, src, dst string) error {
	if err := filesystem.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	entries, err := filesystem.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyTree(ctx, filesystem, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if err := filesystem.CopyFile(srcPath, dstPath); err != nil {
			// A file deleted mid-copy is tolerated; the snapshot just
			// omits it.
			if isNotExist(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
