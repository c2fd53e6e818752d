// Package paths computes and validates the filesystem roots of a worktree:
// the checkout path, the isolated data directory and the project root.
// Every computed path is guaranteed to stay inside its configured root;
// traversal attempts fail validation instead of being clamped.
package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Resolver derives per-worktree paths from the configured roots.
type Resolver struct {
	worktreesRoot string
	dataRoot      string
}

// NewResolver creates a Resolver. Both roots are made absolute.
func NewResolver(worktreesRoot, dataRoot string) (*Resolver, error) {
	absWT, err := filepath.Abs(worktreesRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid worktrees root: %w", err)
	}
	absData, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid data root: %w", err)
	}
	return &Resolver{worktreesRoot: absWT, dataRoot: absData}, nil
}

// WorktreesRoot returns the configured worktree checkout root.
func (r *Resolver) WorktreesRoot() string { return r.worktreesRoot }

// DataRoot returns the configured isolated data root.
func (r *Resolver) DataRoot() string { return r.dataRoot }

// WorktreePath computes <worktrees root>/<name>, rejecting any name that
// would escape the root.
func (r *Resolver) WorktreePath(name string) (string, error) {
	return r.join(r.worktreesRoot, name)
}

// DataPath computes <data root>/<name>/data, rejecting any name that would
// escape the root.
func (r *Resolver) DataPath(name string) (string, error) {
	p, err := r.join(r.dataRoot, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(p, "data"), nil
}

// join combines root and name via securejoin and double-checks containment.
func (r *Resolver) join(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("name cannot be an absolute path")
	}
	if filepath.Dir(name) != "." {
		return "", fmt.Errorf("name cannot contain path separators")
	}

	joined, err := securejoin.SecureJoin(root, name)
	if err != nil {
		return "", fmt.Errorf("resolve %q under %s: %w", name, root, err)
	}
	if err := ensureWithin(root, joined); err != nil {
		return "", err
	}
	return joined, nil
}

// VerifyWorktreePath checks that a stored checkout path still resolves
// inside the worktrees root. Used before acting on persisted records, since
// a record written by an older version or tampered with externally must not
// direct deletions outside the root.
func (r *Resolver) VerifyWorktreePath(path string) error {
	return ensureWithin(r.worktreesRoot, path)
}

// VerifyDataPath checks that a stored data path still resolves inside the
// data root.
func (r *Resolver) VerifyDataPath(path string) error {
	return ensureWithin(r.dataRoot, path)
}

// ensureWithin fails unless path is root itself or a strict descendant.
func ensureWithin(root, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	absPath = filepath.Clean(absPath)

	if absPath == root {
		return nil
	}
	if !strings.HasPrefix(absPath, root+string(filepath.Separator)) {
		return fmt.Errorf("path %q escapes root %q", path, root)
	}
	return nil
}
