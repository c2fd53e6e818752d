package errors

import (
	"errors"
	"fmt"
)

// Exit codes for grove-ctl
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitWorktreeNotFound = 2
	ExitValidation       = 3
	ExitConflict         = 4
	ExitContainerFailed  = 5
	ExitConfigError      = 6
	ExitGitError         = 7
	ExitRuntimeFailed    = 8
)

// Kind classifies an error for callers that need to branch on it.
type Kind string

const (
	// KindValidation marks bad input (name, branch, path) rejected before
	// any side effect.
	KindValidation Kind = "validation"

	// KindConflict marks duplicate names, merge/rebase conflicts and dirty
	// working trees. The error carries structured conflict detail.
	KindConflict Kind = "conflict"

	// KindNotFound marks an unknown worktree id or name.
	KindNotFound Kind = "not_found"

	// KindTransient marks infrastructure failures that are retryable by
	// re-invoking the operation (container unhealthy, registration failed,
	// extraction unacknowledged).
	KindTransient Kind = "transient"
)

// ConflictDetail describes a merge/rebase/dirty-tree conflict in a form the
// caller can act on.
type ConflictDetail struct {
	// Files lists conflicting file paths extracted from command output.
	Files []string `json:"files,omitempty"`

	// Dirty is true when the working tree had uncommitted changes.
	Dirty bool `json:"dirty,omitempty"`

	// Output is the raw command output the detail was extracted from.
	Output string `json:"output,omitempty"`
}

// GroveError is the base error type for grove-ctl
type GroveError struct {
	Code     int
	Kind     Kind
	Message  string
	Cause    error
	Conflict *ConflictDetail
}

func (e *GroveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GroveError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *GroveError) ExitCode() int {
	return e.Code
}

// New creates a new GroveError
func New(code int, kind Kind, message string) *GroveError {
	return &GroveError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an existing error with a GroveError
func Wrap(code int, kind Kind, message string, cause error) *GroveError {
	return &GroveError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// WorktreeNotFound returns an error for an unknown worktree.
func WorktreeNotFound(ref string) *GroveError {
	return New(ExitWorktreeNotFound, KindNotFound, fmt.Sprintf("worktree not found: %s", ref))
}

// ValidationError returns an error for input validation failures.
func ValidationError(message string) *GroveError {
	return New(ExitValidation, KindValidation, message)
}

// DuplicateName returns a conflict error for an already-used worktree name.
func DuplicateName(name string) *GroveError {
	return New(ExitConflict, KindConflict, fmt.Sprintf("worktree %s already exists", name))
}

// MergeConflict returns a conflict error carrying the conflicting file list.
func MergeConflict(message string, detail *ConflictDetail) *GroveError {
	err := New(ExitConflict, KindConflict, message)
	err.Conflict = detail
	return err
}

// DirtyWorkingTree returns a conflict error for an unclean working tree.
func DirtyWorkingTree(path, output string) *GroveError {
	err := New(ExitConflict, KindConflict, fmt.Sprintf("working tree at %s has uncommitted changes", path))
	err.Conflict = &ConflictDetail{Dirty: true, Output: output}
	return err
}

// ContainerFailed returns a transient error for container operations.
func ContainerFailed(op string, cause error) *GroveError {
	return Wrap(ExitContainerFailed, KindTransient, fmt.Sprintf("container %s failed", op), cause)
}

// RuntimeFailed returns a transient error for process-runtime operations.
func RuntimeFailed(op string, cause error) *GroveError {
	return Wrap(ExitRuntimeFailed, KindTransient, fmt.Sprintf("runtime %s failed", op), cause)
}

// GitError returns an error for git operations.
func GitError(message string, cause error) *GroveError {
	return Wrap(ExitGitError, KindTransient, message, cause)
}

// ConfigError returns an error for configuration issues.
func ConfigError(message string, cause error) *GroveError {
	return Wrap(ExitConfigError, KindValidation, message, cause)
}

// Transient returns a generic retryable infrastructure error.
func Transient(message string, cause error) *GroveError {
	return Wrap(ExitGeneralError, KindTransient, message, cause)
}

// InvalidTransition returns a validation error for a rejected status change.
func InvalidTransition(from, to string) *GroveError {
	return New(ExitValidation, KindValidation, fmt.Sprintf("invalid status transition from %s to %s", from, to))
}

// KindOf extracts the Kind from an error chain, or "" if none.
func KindOf(err error) Kind {
	var groveErr *GroveError
	if errors.As(err, &groveErr) {
		return groveErr.Kind
	}
	return ""
}

// ConflictOf extracts structured conflict detail from an error chain.
func ConflictOf(err error) *ConflictDetail {
	var groveErr *GroveError
	if errors.As(err, &groveErr) {
		return groveErr.Conflict
	}
	return nil
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var groveErr *GroveError
	if errors.As(err, &groveErr) {
		return groveErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
