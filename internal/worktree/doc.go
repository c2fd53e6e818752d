// Package worktree defines the durable record for an ephemeral development
// worktree, its status state machine and the Store abstraction records are
// persisted through.
//
// A worktree is one isolated environment: a git worktree checkout plus
// either a container or a spawned local process running the sandbox
// application. The record is the single source of truth for that pairing;
// the orchestrator and the health monitor are its only writers.
//
// Runtime binding is a tagged union: exactly one of Record.Container or
// Record.Process is populated while the worktree is running, selected by
// Record.RuntimeType. Callers branch on the tag rather than probing
// nullable fields.
package worktree
