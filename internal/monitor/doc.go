// Package monitor keeps worktree records truthful about their runtimes.
//
// A periodic tick probes every monitored record (status running or
// error) concurrently: container-backed worktrees get an HTTP health
// probe with a short timeout, process-backed worktrees additionally get
// PID liveness and runtime-token verification. Probe failures are
// counted in memory per record and only flip a running record to error
// once a threshold of consecutive failures is reached; counters reset
// on success and on process restart.
//
// A startup sweep demotes records whose process died while no monitor
// was watching, and a container event subscription reflects engine-side
// stops and starts into record status.
package monitor
