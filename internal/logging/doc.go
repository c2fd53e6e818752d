// Package logging provides logging utilities for grove-ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating worktree", "name", name, "base", baseBranch)
//	logging.Warn("health probe timed out", "sandbox", name, "timeout", timeout)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Creating worktree %s...", name)
//	logging.UserSuccess("Worktree %s is running on port %d", name, port)
//	logging.UserWarning("Branch %s was not deleted", branch)
//	logging.UserError("Merge failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
package logging
