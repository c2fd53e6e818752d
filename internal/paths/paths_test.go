package paths

import (
	"path/filepath"
	"testing"
)

func newTestResolver(t *testing.T) (*Resolver, string, string) {
	t.Helper()
	root := t.TempDir()
	wt := filepath.Join(root, "worktrees")
	data := filepath.Join(root, "data")
	r, err := NewResolver(wt, data)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r, wt, data
}

func TestWorktreePath(t *testing.T) {
	r, wt, _ := newTestResolver(t)

	p, err := r.WorktreePath("feature-x")
	if err != nil {
		t.Fatalf("WorktreePath: %v", err)
	}
	if p != filepath.Join(wt, "feature-x") {
		t.Errorf("WorktreePath = %q", p)
	}
}

func TestDataPathNesting(t *testing.T) {
	r, _, data := newTestResolver(t)

	p, err := r.DataPath("feature-x")
	if err != nil {
		t.Fatalf("DataPath: %v", err)
	}
	want := filepath.Join(data, "feature-x", "data")
	if p != want {
		t.Errorf("DataPath = %q, want %q", p, want)
	}
}

func TestTraversalRejected(t *testing.T) {
	r, wt, _ := newTestResolver(t)

	for _, name := range []string{"../escape", "a/../../escape", "../../etc"} {
		p, err := r.WorktreePath(name)
		if err != nil {
			continue
		}
		// securejoin may clamp instead of failing; the result must still
		// be inside the root.
		if err := r.VerifyWorktreePath(p); err != nil {
			t.Errorf("WorktreePath(%q) = %q escapes root %q", name, p, wt)
		}
	}
}

func TestVerifyStoredPaths(t *testing.T) {
	r, wt, data := newTestResolver(t)

	if err := r.VerifyWorktreePath(filepath.Join(wt, "feature-x")); err != nil {
		t.Errorf("in-root worktree path rejected: %v", err)
	}
	if err := r.VerifyDataPath(filepath.Join(data, "feature-x", "data")); err != nil {
		t.Errorf("in-root data path rejected: %v", err)
	}

	if err := r.VerifyWorktreePath("/etc/passwd"); err == nil {
		t.Error("out-of-root worktree path accepted")
	}
	if err := r.VerifyDataPath(filepath.Dir(data)); err == nil {
		t.Error("parent of data root accepted")
	}
	// The root itself is not a worktree.
	if err := r.VerifyWorktreePath(wt + "-sibling"); err == nil {
		t.Error("sibling directory with shared prefix accepted")
	}
}
