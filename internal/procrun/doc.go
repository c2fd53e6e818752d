// Package procrun supervises the process-runtime variant of a worktree:
// the sandbox application spawned as a detached child process instead of a
// container.
//
// The launch protocol proves the right process is healthy before control is
// handed back:
//
//  1. Mint a random runtime token and remove any stale port-report file.
//  2. Spawn the child detached with stdio appended to a log file, port 0
//     requested, and the token plus port-file path passed via environment.
//  3. Poll the port-report file (the child writes {port, runtimeToken} once
//     it has bound its OS-assigned port), aborting early if the child dies.
//  4. Reject a token mismatch: it means the file is left over from a
//     different launch.
//  5. Poll the HTTP readiness endpoint on the reported port.
//
// Termination escalates: SIGTERM to the process group, wait up to 30s, then
// SIGKILL and wait up to 5s. ESRCH while signaling counts as already
// exited. Liveness is probed with signal 0, where EPERM still means alive.
package procrun
