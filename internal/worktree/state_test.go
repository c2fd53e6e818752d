package worktree

import "testing"

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusCreating, StatusRunning},
		{StatusCreating, StatusError},
		{StatusRunning, StatusStopped},
		{StatusRunning, StatusCompleted},
		{StatusRunning, StatusMerged},
		{StatusRunning, StatusError},
		{StatusStopped, StatusRunning},
		{StatusStopped, StatusMerged},
		{StatusStopped, StatusError},
		{StatusCompleted, StatusMerged},
		{StatusCompleted, StatusRunning},
		{StatusCompleted, StatusError},
		{StatusError, StatusRunning},
		{StatusError, StatusStopped},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	rejected := []struct{ from, to Status }{
		{StatusCreating, StatusStopped},
		{StatusCreating, StatusMerged},
		{StatusStopped, StatusCompleted},
		{StatusError, StatusMerged},
		{StatusError, StatusCompleted},
	}
	for _, tc := range rejected {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestMergedIsTerminal(t *testing.T) {
	if !StatusMerged.Terminal() {
		t.Fatal("merged must be terminal")
	}
	for _, to := range []Status{StatusCreating, StatusRunning, StatusStopped, StatusCompleted, StatusError} {
		if StatusMerged.CanTransition(to) {
			t.Errorf("merged -> %s should always be rejected", to)
		}
	}
}

func TestSameStateIsPermittedNoOp(t *testing.T) {
	for s := range allowedTransitions {
		if !s.CanTransition(s) {
			t.Errorf("%s -> %s same-state transition should be permitted", s, s)
		}
	}
}

func TestValid(t *testing.T) {
	if !StatusRunning.Valid() {
		t.Error("running should be valid")
	}
	if Status("launching").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestRecordPortAndClearRuntime(t *testing.T) {
	rec := &Record{Container: &ContainerRuntime{ID: "c1", Port: 42001}}
	if rec.Port() != 42001 {
		t.Errorf("Port = %d, want 42001", rec.Port())
	}

	rec = &Record{Process: &ProcessRuntime{PID: 4321, Port: 43123}}
	if rec.Port() != 43123 {
		t.Errorf("Port = %d, want 43123", rec.Port())
	}

	rec.ClearRuntime()
	if rec.Process != nil || rec.Container != nil || rec.Port() != 0 {
		t.Error("ClearRuntime left a runtime binding behind")
	}
}

func TestCloneIsDeep(t *testing.T) {
	rec := &Record{
		Name:           "feature-x",
		Process:        &ProcessRuntime{PID: 1, Token: "t1"},
		MergeConflicts: []string{"a.go"},
	}
	clone := rec.Clone()
	clone.Process.Token = "t2"
	clone.MergeConflicts[0] = "b.go"

	if rec.Process.Token != "t1" {
		t.Error("clone shares the process runtime")
	}
	if rec.MergeConflicts[0] != "a.go" {
		t.Error("clone shares the conflict slice")
	}
}
