package worktree

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store lookups for unknown worktrees.
var ErrNotFound = errors.New("worktree record not found")

// Store persists worktree records. Implementations serialize their own
// writes; callers coordinate higher-level per-worktree operations.
type Store interface {
	// Create persists a new record, assigning ID and CreatedAt.
	Create(ctx context.Context, rec *Record) error

	// List returns all records.
	List(ctx context.Context) ([]*Record, error)

	// ListByOwner returns all records for an owner project.
	ListByOwner(ctx context.Context, ownerProjectID string) ([]*Record, error)

	// GetByID returns the record with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Record, error)

	// GetByName returns the record with the given name, or ErrNotFound.
	GetByName(ctx context.Context, name string) (*Record, error)

	// GetByContainerID returns the record bound to a container id, or
	// ErrNotFound.
	GetByContainerID(ctx context.Context, containerID string) (*Record, error)

	// ListMonitored returns records whose status is running or error,
	// the set the health monitor keeps truthful.
	ListMonitored(ctx context.Context) ([]*Record, error)

	// Update persists changes to an existing record, bumping UpdatedAt.
	Update(ctx context.Context, rec *Record) error

	// Remove deletes the record with the given id.
	Remove(ctx context.Context, id string) error
}
