// Package audit provides the append-only activity log for worktree
// lifecycle events. Events are stored as JSON Lines files, one per
// worktree, and written by subscribing to the activity bus so a slow or
// failing disk never stalls a lifecycle operation.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventCreate EventType = "create"
	EventStart  EventType = "start"
	EventStop   EventType = "stop"
	EventDelete EventType = "delete"
	EventMerge  EventType = "merge"
	EventRebase EventType = "rebase"
	EventHealth EventType = "health"
	EventError  EventType = "error"
)

// Event represents a single activity log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Worktree  string    `json:"worktree"`
	Details   string    `json:"details,omitempty"`
}

// Logger writes and reads activity events for worktrees.
// Events are stored in {stateDir}/activity/{name}.events.jsonl.
type Logger struct {
	stateDir string
}

// NewLogger creates an activity logger rooted at stateDir.
func NewLogger(stateDir string) *Logger {
	return &Logger{stateDir: stateDir}
}

// Attach subscribes the logger to the bus so every activity record is
// appended to the worktree's log file.
func (l *Logger) Attach(bus *events.Bus) error {
	return bus.OnActivity(func(act events.Activity) {
		err := l.Log(Event{
			Timestamp: act.Time,
			Type:      EventType(act.Type),
			Worktree:  act.Name,
			Details:   act.Message,
		})
		if err != nil {
			logging.Warn("activity log append failed", "worktree", act.Name, "error", err)
		}
	})
}

// eventPath returns the path to the JSONL event log for a worktree.
func (l *Logger) eventPath(worktree string) string {
	return filepath.Join(l.stateDir, "activity", worktree+".events.jsonl")
}

// Log appends an event to the worktree's activity log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	path := l.eventPath(event.Worktree)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create activity log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Events reads all events for a worktree in chronological order.
func (l *Logger) Events(worktree string) ([]Event, error) {
	path := l.eventPath(worktree)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	defer f.Close()

	var out []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		out = append(out, event)
	}

	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("error reading activity log: %w", err)
	}

	return out, nil
}

// Remove deletes the activity log for a worktree.
func (l *Logger) Remove(worktree string) error {
	path := l.eventPath(worktree)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
