package worktree

import (
	"time"
)

// RuntimeType selects which execution environment backs a worktree.
type RuntimeType string

const (
	RuntimeContainer RuntimeType = "container"
	RuntimeProcess   RuntimeType = "process"
)

// ContainerRuntime is the runtime binding for container-backed worktrees.
type ContainerRuntime struct {
	// ID is the container engine's container id.
	ID string `json:"id"`

	// Port is the host port the sandbox application is published on.
	Port int `json:"port"`
}

// ProcessRuntime is the runtime binding for process-backed worktrees.
type ProcessRuntime struct {
	// PID is the spawned process id.
	PID int `json:"pid"`

	// Token is the random secret minted for this launch, used to detect
	// stale port reuse by a different process.
	Token string `json:"token"`

	// Port is the OS-assigned port the process reported.
	Port int `json:"port"`

	// StartedAt is when the process was spawned.
	StartedAt time.Time `json:"startedAt"`
}

// Record is the durable state of one worktree.
type Record struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BranchName string `json:"branchName"`
	BaseBranch string `json:"baseBranch"`

	RepoPath     string `json:"repoPath"`
	WorktreePath string `json:"worktreePath,omitempty"`
	DataPath     string `json:"dataPath,omitempty"`

	// RuntimeType is immutable after creation.
	RuntimeType RuntimeType       `json:"runtimeType"`
	Container   *ContainerRuntime `json:"container,omitempty"`
	Process     *ProcessRuntime   `json:"process,omitempty"`

	TemplateSlug      string `json:"templateSlug"`
	OwnerProjectID    string `json:"ownerProjectId"`
	DevchainProjectID string `json:"devchainProjectId"`

	Status         Status   `json:"status"`
	ErrorMessage   string   `json:"errorMessage,omitempty"`
	MergeCommit    string   `json:"mergeCommit,omitempty"`
	MergeConflicts []string `json:"mergeConflicts,omitempty"`

	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Port returns the host port the worktree listens on, regardless of runtime
// type, or 0 if no runtime is bound.
func (r *Record) Port() int {
	switch {
	case r.Container != nil:
		return r.Container.Port
	case r.Process != nil:
		return r.Process.Port
	}
	return 0
}

// ClearRuntime drops the runtime binding, used when a worktree stops.
func (r *Record) ClearRuntime() {
	r.Container = nil
	r.Process = nil
}

// Clone returns a deep copy so callers can mutate without racing readers.
func (r *Record) Clone() *Record {
	out := *r
	if r.Container != nil {
		c := *r.Container
		out.Container = &c
	}
	if r.Process != nil {
		p := *r.Process
		out.Process = &p
	}
	if r.MergeConflicts != nil {
		out.MergeConflicts = append([]string(nil), r.MergeConflicts...)
	}
	return &out
}
