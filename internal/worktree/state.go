package worktree

// Status is one state of the worktree lifecycle.
type Status string

const (
	StatusCreating  Status = "creating"
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusMerged    Status = "merged"
	StatusError     Status = "error"
)

// allowedTransitions is the full transition table. Merged is terminal.
var allowedTransitions = map[Status][]Status{
	StatusCreating:  {StatusRunning, StatusError},
	StatusRunning:   {StatusStopped, StatusCompleted, StatusMerged, StatusError},
	StatusStopped:   {StatusRunning, StatusMerged, StatusError},
	StatusCompleted: {StatusMerged, StatusRunning, StatusError},
	StatusError:     {StatusRunning, StatusStopped},
	StatusMerged:    {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal reports whether no outbound transitions exist from s.
func (s Status) Terminal() bool {
	return len(allowedTransitions[s]) == 0 && s.Valid()
}

// CanTransition reports whether moving from s to target is allowed.
// Same-state transitions are always permitted no-ops.
func (s Status) CanTransition(target Status) bool {
	if s == target {
		return true
	}
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}
