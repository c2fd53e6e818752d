// Package vcs defines the version-control collaborator the orchestrator
// delegates to, and a git CLI implementation of it.
//
// The orchestrator never shells out to git itself; it calls this interface
// for worktree creation/removal, branch lifecycle, divergence queries and
// the merge/rebase operations. The git implementation runs the git binary
// through system.CommandExecutor, so tests drive it with canned output.
//
// Conflict-file extraction parses free-form git output against several
// conventions ("CONFLICT (...)", "both modified:", "UU" status lines). The
// parse is best-effort: it is how humans read the output, not a guaranteed
// complete accounting of every conflicted path.
package vcs
