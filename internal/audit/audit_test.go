package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
)

func TestLogAndEventsRoundTrip(t *testing.T) {
	l := NewLogger(t.TempDir())

	if err := l.Log(Event{Type: EventCreate, Worktree: "feature-x", Details: "created"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Log(Event{Type: EventMerge, Worktree: "feature-x", Details: "merged to main"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Log(Event{Type: EventStart, Worktree: "other"}); err != nil {
		t.Fatal(err)
	}

	got, err := l.Events("feature-x")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Type != EventCreate || got[1].Type != EventMerge {
		t.Errorf("event order = %s, %s", got[0].Type, got[1].Type)
	}
	if got[1].Details != "merged to main" {
		t.Errorf("details = %q", got[1].Details)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("zero timestamp was not defaulted on append")
	}
}

func TestEventsMissingLogIsEmpty(t *testing.T) {
	l := NewLogger(t.TempDir())

	got, err := l.Events("never-created")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestEventsSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir)

	if err := l.Log(Event{Type: EventStop, Worktree: "feature-x"}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "activity", "feature-x.events.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("not json\n")
	f.Close()
	if err := l.Log(Event{Type: EventStart, Worktree: "feature-x"}); err != nil {
		t.Fatal(err)
	}

	got, err := l.Events("feature-x")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 with the garbage line skipped", len(got))
	}
}

func TestRemove(t *testing.T) {
	l := NewLogger(t.TempDir())

	if err := l.Log(Event{Type: EventCreate, Worktree: "feature-x"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Remove("feature-x"); err != nil {
		t.Fatal(err)
	}
	got, err := l.Events("feature-x")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("events survived removal: %v", got)
	}

	// Removing an absent log is not an error.
	if err := l.Remove("feature-x"); err != nil {
		t.Fatal(err)
	}
}

func TestAttachWritesBusActivity(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir)

	bus := events.NewBus()
	t.Cleanup(func() { bus.Close() })
	if err := l.Attach(bus); err != nil {
		t.Fatal(err)
	}

	bus.Activity(events.Activity{Type: "merge", Name: "feature-x", Message: "Merge branch grove/feature-x"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := l.Events("feature-x")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) == 1 {
			if got[0].Type != EventMerge {
				t.Errorf("type = %s, want merge", got[0].Type)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("activity never reached the log file")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTaskArchiveCapturesDataDirectory(t *testing.T) {
	state := t.TempDir()
	data := t.TempDir()
	if err := os.MkdirAll(filepath.Join(data, "epics"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(data, "tasks.jsonl"), []byte("{\"id\":\"t1\"}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(data, "epics", "e1.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLogger(state)
	archive := NewTaskArchive(state, nil, l)

	bus := events.NewBus()
	t.Cleanup(func() { bus.Close() })
	bus.OnExtraction(archive.Capture)

	err := bus.PublishExtraction(context.Background(), events.Extraction{
		Name:      "feature-x",
		ProjectID: "p1",
		DataPath:  data,
	})
	if err != nil {
		t.Fatalf("PublishExtraction: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(archive.ArchivePath("feature-x"), "tasks.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{\"id\":\"t1\"}\n" {
		t.Errorf("archived tasks = %q", got)
	}
	if _, err := os.Stat(filepath.Join(archive.ArchivePath("feature-x"), "epics", "e1.json")); err != nil {
		t.Errorf("nested archive file missing: %v", err)
	}

	entries, err := l.Events("feature-x")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Type != EventMerge {
		t.Errorf("audit entries = %+v, want one merge entry", entries)
	}
}

func TestTaskArchiveReplacesPreviousCapture(t *testing.T) {
	state := t.TempDir()
	data := t.TempDir()
	if err := os.WriteFile(filepath.Join(data, "tasks.jsonl"), []byte("first\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive := NewTaskArchive(state, nil, nil)
	ex := events.Extraction{Name: "feature-x", DataPath: data}

	if err := archive.Capture(context.Background(), ex); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(data, "tasks.jsonl"), []byte("second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := archive.Capture(context.Background(), ex); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(archive.ArchivePath("feature-x"), "tasks.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second\n" {
		t.Errorf("archive = %q, want the later capture", got)
	}
	if _, err := os.Stat(archive.ArchivePath("feature-x") + ".staging"); !os.IsNotExist(err) {
		t.Error("staging directory left behind")
	}
}
