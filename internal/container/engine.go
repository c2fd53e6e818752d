// Package container defines the container engine collaborator and a
// docker/podman CLI implementation. The orchestrator and health monitor
// depend only on the Engine interface; tests use the MockEngine.
package container

import (
	"context"
	"time"
)

// CreateOptions configures a new worktree container.
type CreateOptions struct {
	// Name is the worktree name; the engine prefixes it for the container.
	Name string

	// Image is the workspace image to run.
	Image string

	// WorktreePath is bind-mounted as the container workspace.
	WorktreePath string

	// DataPath is bind-mounted as the isolated application data directory.
	DataPath string

	// Env is injected into the container environment.
	Env map[string]string

	// AppPort is the port the application listens on inside the container.
	AppPort int

	// HostPort is the host port AppPort is published to.
	HostPort int

	// Network, when set, attaches the container to this network at create.
	Network string
}

// Created describes a successfully created container.
type Created struct {
	ID       string
	HostPort int
}

// Event is a container lifecycle event from the engine's event stream.
type Event struct {
	ContainerID string
	Name        string
	Action      string
}

// Engine is the container engine collaborator.
type Engine interface {
	// CreateContainer creates and starts a container for a worktree.
	CreateContainer(ctx context.Context, opts CreateOptions) (Created, error)

	// StartContainer starts an existing container.
	StartContainer(ctx context.Context, id string) error

	// StopContainer stops a running container.
	StopContainer(ctx context.Context, id string) error

	// RemoveContainer removes a container, optionally forcing.
	RemoveContainer(ctx context.Context, id string, force bool) error

	// WaitForHealthy blocks until the container reports healthy or the
	// timeout elapses. Returns false on timeout without error.
	WaitForHealthy(ctx context.Context, id string, timeout time.Duration) (bool, error)

	// ContainerLogs returns the last tailLines lines of container output.
	ContainerLogs(ctx context.Context, id string, tailLines int) (string, error)

	// ContainerHostPort returns the host port the container's app port is
	// published on.
	ContainerHostPort(ctx context.Context, id string) (int, error)

	// EnsureOnSharedNetwork creates the network if needed and connects
	// the container to it. Idempotent.
	EnsureOnSharedNetwork(ctx context.Context, network, id string) error

	// RemoveNetwork removes a network.
	RemoveNetwork(ctx context.Context, network string) error

	// CleanupProjectContainers removes containers the worktree's own
	// application spawned (labelled with the worktree name), excluding
	// excludeID.
	CleanupProjectContainers(ctx context.Context, name, excludeID string) error

	// SubscribeEvents streams lifecycle events to handler until the
	// returned cancel function is called or ctx ends.
	SubscribeEvents(ctx context.Context, handler func(Event)) (func(), error)
}
