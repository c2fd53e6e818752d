// Package orchestrator drives the worktree lifecycle: create, start, stop,
// delete, merge, rebase, preview and log retrieval.
//
// The orchestrator composes the external collaborators (version control,
// container engine, process supervisor, seed preparer, record store,
// activity bus) and owns the status state machine. It is the only writer
// of worktree records besides the health monitor.
//
// Failure handling follows two rules. During the primary operation, the
// first error is recorded durably on the record (status error plus a
// human-readable cause) and propagated. During compensating cleanup, every
// step is independently caught and logged so one failure never blocks the
// rest; the original failure stays the reported cause.
//
// Lifecycle operations on the same worktree id are serialized with a
// per-id mutex. Operations on different worktrees proceed independently.
package orchestrator
