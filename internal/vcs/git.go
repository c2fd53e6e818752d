package vcs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/system"
)

// Git implements Client by running the git binary.
type Git struct {
	exec system.CommandExecutor
}

// NewGit creates a git-backed Client using the given executor.
func NewGit(exec system.CommandExecutor) *Git {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &Git{exec: exec}
}

func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	full := append([]string{"-C", dir}, args...)
	out, err := g.exec.Execute(ctx, "git", full...)
	if err != nil {
		return string(out), fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

func (g *Git) branchExists(ctx context.Context, repoPath, branch string) bool {
	_, err := g.run(ctx, repoPath, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

func (g *Git) CreateWorktree(ctx context.Context, repoPath, worktreePath, branch, baseBranch string) error {
	logging.Debug("creating git worktree", "repo", repoPath, "path", worktreePath, "branch", branch, "base", baseBranch)

	var err error
	if g.branchExists(ctx, repoPath, branch) {
		_, err = g.run(ctx, repoPath, "worktree", "add", worktreePath, branch)
	} else {
		_, err = g.run(ctx, repoPath, "worktree", "add", "-b", branch, worktreePath, baseBranch)
	}
	if err != nil {
		return fmt.Errorf("create worktree %s: %w", worktreePath, err)
	}
	return nil
}

func (g *Git) RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error {
	logging.Debug("removing git worktree", "repo", repoPath, "path", worktreePath, "force", force)

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)

	if _, err := g.run(ctx, repoPath, args...); err != nil {
		if force {
			return err
		}
		// Retry with force; an unclean worktree blocks the plain remove.
		if _, ferr := g.run(ctx, repoPath, "worktree", "remove", "--force", worktreePath); ferr != nil {
			return ferr
		}
	}
	return nil
}

func (g *Git) DeleteBranch(ctx context.Context, repoPath, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	if _, err := g.run(ctx, repoPath, "branch", flag, branch); err != nil {
		if force {
			return err
		}
		if _, ferr := g.run(ctx, repoPath, "branch", "-D", branch); ferr != nil {
			return ferr
		}
	}
	return nil
}

func (g *Git) BranchStatus(ctx context.Context, repoPath, branch, baseBranch string) (BranchStatus, error) {
	out, err := g.run(ctx, repoPath, "rev-list", "--left-right", "--count", baseBranch+"..."+branch)
	if err != nil {
		return BranchStatus{}, err
	}

	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return BranchStatus{}, fmt.Errorf("unexpected rev-list output %q", strings.TrimSpace(out))
	}

	behind, err := strconv.Atoi(fields[0])
	if err != nil {
		return BranchStatus{}, fmt.Errorf("parse behind count: %w", err)
	}
	ahead, err := strconv.Atoi(fields[1])
	if err != nil {
		return BranchStatus{}, fmt.Errorf("parse ahead count: %w", err)
	}

	return BranchStatus{CommitsAhead: ahead, CommitsBehind: behind}, nil
}

func (g *Git) ChangeSummary(ctx context.Context, repoPath, branch, baseBranch string) (ChangeSummary, error) {
	out, err := g.run(ctx, repoPath, "diff", "--shortstat", baseBranch+"..."+branch)
	if err != nil {
		return ChangeSummary{}, err
	}
	return parseShortstat(out), nil
}

// parseShortstat parses "3 files changed, 10 insertions(+), 2 deletions(-)".
// Any of the three clauses may be absent.
func parseShortstat(out string) ChangeSummary {
	var s ChangeSummary
	for _, part := range strings.Split(strings.TrimSpace(out), ",") {
		part = strings.TrimSpace(part)
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(fields[1], "file"):
			s.FilesChanged = n
		case strings.HasPrefix(fields[1], "insertion"):
			s.Insertions = n
		case strings.HasPrefix(fields[1], "deletion"):
			s.Deletions = n
		}
	}
	return s
}

func (g *Git) WorkingTreeStatus(ctx context.Context, path string) (TreeStatus, error) {
	out, err := g.run(ctx, path, "status", "--porcelain")
	if err != nil {
		return TreeStatus{}, err
	}
	trimmed := strings.TrimSpace(out)
	return TreeStatus{Clean: trimmed == "", Output: trimmed}, nil
}

func (g *Git) PreviewMerge(ctx context.Context, repoPath, branch, baseBranch string) (MergePreview, error) {
	// merge-tree performs the merge in memory; exit status 1 means the
	// merge would conflict, which run() surfaces as an error with output.
	out, err := g.run(ctx, repoPath, "merge-tree", "--write-tree", "--name-only", baseBranch, branch)
	if err == nil {
		return MergePreview{Output: strings.TrimSpace(out)}, nil
	}

	conflicts := ExtractConflictFiles(out)
	if len(conflicts) == 0 {
		// merge-tree --name-only lists conflicted paths on the lines
		// after the tree oid.
		lines := strings.Split(strings.TrimSpace(out), "\n")
		for _, line := range lines[min(1, len(lines)):] {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "CONFLICT") {
				conflicts = append(conflicts, line)
			}
		}
	}

	if len(conflicts) == 0 {
		// Not a conflict; a real failure (unknown ref etc).
		return MergePreview{}, err
	}

	return MergePreview{HasConflicts: true, Conflicts: conflicts, Output: strings.TrimSpace(out)}, nil
}

func (g *Git) ExecuteMerge(ctx context.Context, repoPath, branch, baseBranch, message string) (MergeResult, error) {
	if _, err := g.run(ctx, repoPath, "checkout", baseBranch); err != nil {
		return MergeResult{}, err
	}

	out, err := g.run(ctx, repoPath, "merge", "--no-ff", "-m", message, branch)
	if err != nil {
		conflicts := ExtractConflictFiles(out)
		// Leave the repo usable regardless of how the merge failed.
		if _, aerr := g.run(ctx, repoPath, "merge", "--abort"); aerr != nil {
			logging.Debug("merge abort after failed merge", "error", aerr)
		}
		return MergeResult{Conflicts: conflicts, Output: out}, nil
	}

	commit, err := g.run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge succeeded but HEAD unreadable: %w", err)
	}

	return MergeResult{
		Success:     true,
		MergeCommit: strings.TrimSpace(commit),
		Output:      out,
	}, nil
}

func (g *Git) ExecuteRebase(ctx context.Context, worktreePath, baseBranch string) (RebaseResult, error) {
	out, err := g.run(ctx, worktreePath, "rebase", baseBranch)
	if err != nil {
		conflicts := ExtractConflictFiles(out)
		if _, aerr := g.run(ctx, worktreePath, "rebase", "--abort"); aerr != nil {
			logging.Debug("rebase abort after failed rebase", "error", aerr)
		}
		return RebaseResult{Conflicts: conflicts, Output: out}, nil
	}
	return RebaseResult{Success: true, Output: out}, nil
}

var _ Client = (*Git)(nil)
