// Package events carries worktree change notifications and activity
// records between the orchestrator, the health monitor and their observers.
//
// Three channels with different delivery guarantees:
//
//   - Change notifications are synchronous: handlers run inline on the
//     publishing goroutine, but their errors are logged, never propagated,
//     so a broken observer cannot fail a lifecycle operation.
//   - Task-extraction requests are synchronous and acknowledged: at least
//     one handler must succeed or the publish fails. Merging a worktree
//     depends on this to guarantee task history is captured before the
//     branch is rewritten.
//   - Activity records are best-effort and non-blocking, dispatched through
//     a buffered watermill topic. When a Redis URL is configured they are
//     additionally relayed to a Redis stream for external observers.
package events
