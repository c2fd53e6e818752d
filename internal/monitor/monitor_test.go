package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/config"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/container"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/events"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/orchestrator"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/testutil"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

type monitorEnv struct {
	cfg    *config.Config
	store  *worktree.FileStore
	engine *container.MockEngine
	sup    *testutil.StubSupervisor
	app    *testutil.StubApp
	bus    *events.Bus
	mon    *Monitor

	changes []events.Change
}

func newMonitorEnv(t *testing.T) *monitorEnv {
	t.Helper()

	dir := t.TempDir()
	cfg, err := config.Load(dir + "/grove.toml")
	if err != nil {
		t.Fatal(err)
	}
	cfg.RepoPath = dir
	cfg.StateDir = dir + "/state"

	env := &monitorEnv{
		cfg:    cfg,
		store:  worktree.NewFileStore(cfg.RecordsDir()),
		engine: container.NewMockEngine(),
		sup:    &testutil.StubSupervisor{},
		app:    &testutil.StubApp{Token: "t1"},
		bus:    events.NewBus(),
	}
	t.Cleanup(func() { env.bus.Close() })

	env.bus.OnChange(func(ctx context.Context, ch events.Change) error {
		env.changes = append(env.changes, ch)
		return nil
	})

	env.mon = New(Options{
		Config:     cfg,
		Store:      env.store,
		Engine:     env.engine,
		Supervisor: env.sup,
		Bus:        env.bus,
		AppFor: func(port int, timeout time.Duration) orchestrator.AppAPI {
			return env.app
		},
	})
	return env
}

func (e *monitorEnv) addRecord(t *testing.T, rec *worktree.Record) *worktree.Record {
	t.Helper()
	if err := e.store.Create(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func (e *monitorEnv) status(t *testing.T, id string) worktree.Status {
	t.Helper()
	rec, err := e.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return rec.Status
}

func TestContainerFailureThreshold(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	rec := env.addRecord(t, &worktree.Record{
		Name:        "feature-x",
		RuntimeType: worktree.RuntimeContainer,
		Container:   &worktree.ContainerRuntime{ID: "c1", Port: 42001},
		Status:      worktree.StatusRunning,
	})

	env.app.ReadyErr = errors.New("connection refused")

	env.mon.Tick(ctx)
	env.mon.Tick(ctx)
	if got := env.status(t, rec.ID); got != worktree.StatusRunning {
		t.Fatalf("status after 2 failures = %s, want still running", got)
	}

	env.mon.Tick(ctx)
	if got := env.status(t, rec.ID); got != worktree.StatusError {
		t.Fatalf("status after 3 failures = %s, want error", got)
	}

	stored, _ := env.store.GetByID(ctx, rec.ID)
	if !strings.Contains(stored.ErrorMessage, "3 consecutive times") {
		t.Errorf("error message = %q", stored.ErrorMessage)
	}
}

func TestContainerRecoveryRestoresRunning(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	rec := env.addRecord(t, &worktree.Record{
		Name:        "feature-x",
		RuntimeType: worktree.RuntimeContainer,
		Container:   &worktree.ContainerRuntime{ID: "c1", Port: 42001},
		Status:      worktree.StatusError,
	})

	env.mon.Tick(ctx)
	if got := env.status(t, rec.ID); got != worktree.StatusRunning {
		t.Errorf("status after healthy probe = %s, want running", got)
	}
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	rec := env.addRecord(t, &worktree.Record{
		Name:        "feature-x",
		RuntimeType: worktree.RuntimeContainer,
		Container:   &worktree.ContainerRuntime{ID: "c1", Port: 42001},
		Status:      worktree.StatusRunning,
	})

	env.app.ReadyErr = errors.New("connection refused")
	env.mon.Tick(ctx)
	env.mon.Tick(ctx)

	env.app.ReadyErr = nil
	env.mon.Tick(ctx)

	env.app.ReadyErr = errors.New("connection refused")
	env.mon.Tick(ctx)
	env.mon.Tick(ctx)

	if got := env.status(t, rec.ID); got != worktree.StatusRunning {
		t.Errorf("status = %s; counter should have reset on success", got)
	}
}

func TestProcessDeathIsStoppedNotError(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	rec := env.addRecord(t, &worktree.Record{
		Name:        "feature-x",
		RuntimeType: worktree.RuntimeProcess,
		Process:     &worktree.ProcessRuntime{PID: 999, Token: "t1", Port: 43123},
		Status:      worktree.StatusRunning,
	})

	// PID 999 is not in AlivePIDs: the process is gone.
	env.mon.Tick(ctx)

	if got := env.status(t, rec.ID); got != worktree.StatusStopped {
		t.Fatalf("status = %s, want stopped", got)
	}
	stored, _ := env.store.GetByID(ctx, rec.ID)
	if stored.Process != nil {
		t.Error("process binding survived death")
	}
}

func TestProcessTokenMismatchIsStopped(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	rec := env.addRecord(t, &worktree.Record{
		Name:        "feature-x",
		RuntimeType: worktree.RuntimeProcess,
		Process:     &worktree.ProcessRuntime{PID: 999, Token: "t1", Port: 43123},
		Status:      worktree.StatusRunning,
	})

	env.sup.AlivePIDs = map[int]bool{999: true}
	env.app.Token = "someone-else"

	env.mon.Tick(ctx)

	if got := env.status(t, rec.ID); got != worktree.StatusStopped {
		t.Fatalf("status = %s, want stopped on token mismatch", got)
	}
	stored, _ := env.store.GetByID(ctx, rec.ID)
	if stored.Process != nil {
		t.Error("stale process binding kept after token mismatch")
	}
}

func TestProcessProbeFailureCountsTowardThreshold(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	rec := env.addRecord(t, &worktree.Record{
		Name:        "feature-x",
		RuntimeType: worktree.RuntimeProcess,
		Process:     &worktree.ProcessRuntime{PID: 999, Token: "t1", Port: 43123},
		Status:      worktree.StatusRunning,
	})

	env.sup.AlivePIDs = map[int]bool{999: true}
	env.app.ReadyErr = errors.New("connection refused")

	env.mon.Tick(ctx)
	env.mon.Tick(ctx)
	env.mon.Tick(ctx)

	if got := env.status(t, rec.ID); got != worktree.StatusError {
		t.Errorf("status = %s, want error after threshold", got)
	}
}

func TestSweepDemotesOrphanedProcessRecords(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	dead := env.addRecord(t, &worktree.Record{
		Name:        "dead-proc",
		RuntimeType: worktree.RuntimeProcess,
		Process:     &worktree.ProcessRuntime{PID: 111, Token: "t1", Port: 43100},
		Status:      worktree.StatusRunning,
	})
	alive := env.addRecord(t, &worktree.Record{
		Name:        "alive-proc",
		RuntimeType: worktree.RuntimeProcess,
		Process:     &worktree.ProcessRuntime{PID: 222, Token: "t1", Port: 43101},
		Status:      worktree.StatusRunning,
	})

	env.sup.AlivePIDs = map[int]bool{222: true}

	env.mon.Sweep(ctx)

	if got := env.status(t, dead.ID); got != worktree.StatusStopped {
		t.Errorf("dead record status = %s, want stopped", got)
	}
	if got := env.status(t, alive.ID); got != worktree.StatusRunning {
		t.Errorf("alive record status = %s, want running", got)
	}
}

func TestContainerEventsMapToStatus(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	rec := env.addRecord(t, &worktree.Record{
		Name:        "feature-x",
		RuntimeType: worktree.RuntimeContainer,
		Container:   &worktree.ContainerRuntime{ID: "c1", Port: 42001},
		Status:      worktree.StatusRunning,
	})

	env.mon.handleContainerEvent(ctx, container.Event{ContainerID: "c1", Action: "die"})
	if got := env.status(t, rec.ID); got != worktree.StatusStopped {
		t.Fatalf("status after die = %s, want stopped", got)
	}

	// Repeating the event is a no-op.
	before := len(env.changes)
	env.mon.handleContainerEvent(ctx, container.Event{ContainerID: "c1", Action: "stop"})
	if len(env.changes) != before {
		t.Error("idempotent event emitted a change notification")
	}

	env.mon.handleContainerEvent(ctx, container.Event{ContainerID: "c1", Action: "start"})
	if got := env.status(t, rec.ID); got != worktree.StatusRunning {
		t.Fatalf("status after start = %s, want running", got)
	}

	// Unknown container ids and irrelevant actions are ignored.
	env.mon.handleContainerEvent(ctx, container.Event{ContainerID: "ghost", Action: "die"})
	env.mon.handleContainerEvent(ctx, container.Event{ContainerID: "c1", Action: "pause"})
	if got := env.status(t, rec.ID); got != worktree.StatusRunning {
		t.Errorf("status moved to %s on ignored events", got)
	}
}
