package vcs

import "context"

// BranchStatus describes divergence between a branch and its base.
type BranchStatus struct {
	CommitsAhead  int
	CommitsBehind int
}

// ChangeSummary is a diffstat between a branch and its base.
type ChangeSummary struct {
	FilesChanged int
	Insertions   int
	Deletions    int
}

// TreeStatus describes working tree cleanliness.
type TreeStatus struct {
	Clean  bool
	Output string
}

// MergePreview is the result of a dry-run merge check.
type MergePreview struct {
	HasConflicts bool
	Conflicts    []string
	Output       string
}

// MergeResult is the outcome of executing a merge.
type MergeResult struct {
	Success     bool
	MergeCommit string
	Conflicts   []string
	Output      string
}

// RebaseResult is the outcome of executing a rebase.
type RebaseResult struct {
	Success   bool
	Conflicts []string
	Output    string
}

// Client is the version-control collaborator.
type Client interface {
	// CreateWorktree creates a worktree at worktreePath on a new branch
	// off baseBranch. If the branch already exists it is checked out
	// instead of created.
	CreateWorktree(ctx context.Context, repoPath, worktreePath, branch, baseBranch string) error

	// RemoveWorktree removes the worktree registered at worktreePath.
	RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error

	// DeleteBranch deletes a branch. Must run after the worktree checked
	// out on it has been removed; git refuses otherwise.
	DeleteBranch(ctx context.Context, repoPath, branch string, force bool) error

	// BranchStatus returns ahead/behind counts of branch vs baseBranch.
	BranchStatus(ctx context.Context, repoPath, branch, baseBranch string) (BranchStatus, error)

	// ChangeSummary returns the diffstat of branch vs baseBranch.
	ChangeSummary(ctx context.Context, repoPath, branch, baseBranch string) (ChangeSummary, error)

	// WorkingTreeStatus reports whether the working tree at path is clean.
	WorkingTreeStatus(ctx context.Context, path string) (TreeStatus, error)

	// PreviewMerge checks whether merging branch into baseBranch would
	// conflict, without mutating anything.
	PreviewMerge(ctx context.Context, repoPath, branch, baseBranch string) (MergePreview, error)

	// ExecuteMerge merges branch into baseBranch with the given message.
	// A conflicted merge is aborted before returning.
	ExecuteMerge(ctx context.Context, repoPath, branch, baseBranch, message string) (MergeResult, error)

	// ExecuteRebase rebases the worktree at worktreePath onto baseBranch.
	// A conflicted rebase is aborted before returning.
	ExecuteRebase(ctx context.Context, worktreePath, baseBranch string) (RebaseResult, error)
}
