package procrun

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// fakeProcs simulates the process table behind the signal hook.
type fakeProcs struct {
	mu      sync.Mutex
	alive   map[int]bool
	signals []sigCall

	// onTerm, when set, runs after a SIGTERM is delivered.
	onTerm func()
}

type sigCall struct {
	pid int
	sig syscall.Signal
}

func newFakeProcs() *fakeProcs {
	return &fakeProcs{alive: map[int]bool{}}
}

func (f *fakeProcs) signal(pid int, sig syscall.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := pid
	if target < 0 {
		target = -target
	}
	if sig != 0 {
		f.signals = append(f.signals, sigCall{pid: pid, sig: sig})
	}
	if !f.alive[target] {
		return syscall.ESRCH
	}
	switch sig {
	case syscall.SIGTERM:
		if f.onTerm != nil {
			f.onTerm()
		} else {
			f.alive[target] = false
		}
	case syscall.SIGKILL:
		f.alive[target] = false
	}
	return nil
}

func (f *fakeProcs) sigtermCount(pid int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.signals {
		if c.pid == -pid && c.sig == syscall.SIGTERM {
			n++
		}
	}
	return n
}

func testSupervisor(t *testing.T, procs *fakeProcs) *Supervisor {
	t.Helper()
	s := NewSupervisor(t.TempDir(), []string{"devchain", "serve"})
	s.StartupTimeout = 2 * time.Second
	s.PollInterval = 10 * time.Millisecond
	s.TermWait = 100 * time.Millisecond
	s.KillWait = 100 * time.Millisecond
	s.signal = procs.signal
	s.probeReady = func(ctx context.Context, port int) error { return nil }
	return s
}

// envValue extracts a variable from the env slice the launch hook receives.
func envValue(env []string, key string) string {
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			return strings.TrimPrefix(kv, key+"=")
		}
	}
	return ""
}

func writeReport(t *testing.T, path string, port int, token string) {
	t.Helper()
	data, err := json.Marshal(portReport{Port: port, RuntimeToken: token})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStartHappyPath(t *testing.T) {
	procs := newFakeProcs()
	s := testSupervisor(t, procs)

	s.launch = func(spec StartSpec, env []string, logPath string) (int, error) {
		procs.alive[4321] = true
		writeReport(t, envValue(env, EnvPortFile), 43123, envValue(env, EnvRuntimeToken))
		return 4321, nil
	}

	res, err := s.Start(context.Background(), StartSpec{Name: "feature-x"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.PID != 4321 {
		t.Errorf("PID = %d, want 4321", res.PID)
	}
	if res.Port != 43123 {
		t.Errorf("Port = %d, want 43123", res.Port)
	}
	if res.Token == "" {
		t.Error("Token is empty")
	}
	if res.StartedAt.IsZero() {
		t.Error("StartedAt is zero")
	}
}

func TestStartTokenMismatchTerminatesOnce(t *testing.T) {
	procs := newFakeProcs()
	s := testSupervisor(t, procs)

	s.launch = func(spec StartSpec, env []string, logPath string) (int, error) {
		procs.alive[4321] = true
		writeReport(t, envValue(env, EnvPortFile), 43123, "some-other-launch")
		return 4321, nil
	}

	_, err := s.Start(context.Background(), StartSpec{Name: "feature-x"})
	if err == nil {
		t.Fatal("Start succeeded with mismatched token")
	}
	if !strings.Contains(err.Error(), "token mismatch") {
		t.Errorf("error = %q, want token mismatch", err)
	}
	if got := procs.sigtermCount(4321); got != 1 {
		t.Errorf("SIGTERM delivered %d times, want exactly 1", got)
	}
}

func TestStartChildDiesBeforeReporting(t *testing.T) {
	procs := newFakeProcs()
	s := testSupervisor(t, procs)

	s.launch = func(spec StartSpec, env []string, logPath string) (int, error) {
		// Never alive: the child crashed immediately.
		return 4321, nil
	}

	start := time.Now()
	_, err := s.Start(context.Background(), StartSpec{Name: "feature-x"})
	if err == nil {
		t.Fatal("Start succeeded without a port report")
	}
	if !strings.Contains(err.Error(), "exited before reporting its port") {
		t.Errorf("error = %q, want early-exit message", err)
	}
	if elapsed := time.Since(start); elapsed > s.StartupTimeout {
		t.Errorf("dead child poll lasted %s, want early abort", elapsed)
	}
}

func TestStartRemovesStalePortFile(t *testing.T) {
	procs := newFakeProcs()
	s := testSupervisor(t, procs)

	// A leftover report from a previous launch with a then-valid token.
	stale := s.PortFilePath("feature-x")
	if err := os.MkdirAll(s.LogsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeReport(t, stale, 40001, "previous-token")

	var sawStale bool
	s.launch = func(spec StartSpec, env []string, logPath string) (int, error) {
		if _, err := os.Stat(stale); err == nil {
			sawStale = true
		}
		procs.alive[4321] = true
		writeReport(t, envValue(env, EnvPortFile), 43123, envValue(env, EnvRuntimeToken))
		return 4321, nil
	}

	if _, err := s.Start(context.Background(), StartSpec{Name: "feature-x"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sawStale {
		t.Error("stale port file survived into the new launch")
	}
}

func TestStartReadinessFailureTerminates(t *testing.T) {
	procs := newFakeProcs()
	s := testSupervisor(t, procs)
	s.StartupTimeout = 100 * time.Millisecond
	s.probeReady = func(ctx context.Context, port int) error {
		return context.DeadlineExceeded
	}

	s.launch = func(spec StartSpec, env []string, logPath string) (int, error) {
		procs.alive[4321] = true
		writeReport(t, envValue(env, EnvPortFile), 43123, envValue(env, EnvRuntimeToken))
		return 4321, nil
	}

	_, err := s.Start(context.Background(), StartSpec{Name: "feature-x"})
	if err == nil {
		t.Fatal("Start succeeded while readiness never passed")
	}
	if !strings.Contains(err.Error(), "did not become healthy") {
		t.Errorf("error = %q, want unhealthy message", err)
	}
	if got := procs.sigtermCount(4321); got != 1 {
		t.Errorf("SIGTERM delivered %d times, want 1", got)
	}
}

func TestTerminateEscalatesToSigkill(t *testing.T) {
	procs := newFakeProcs()
	s := testSupervisor(t, procs)

	procs.alive[99] = true
	procs.onTerm = func() {} // ignore SIGTERM; stay alive

	if err := s.Terminate(99); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	procs.mu.Lock()
	defer procs.mu.Unlock()
	var sigs []syscall.Signal
	for _, c := range procs.signals {
		if c.pid == -99 {
			sigs = append(sigs, c.sig)
		}
	}
	if len(sigs) != 2 || sigs[0] != syscall.SIGTERM || sigs[1] != syscall.SIGKILL {
		t.Errorf("signals = %v, want [SIGTERM SIGKILL]", sigs)
	}
	if procs.alive[99] {
		t.Error("process still alive after Terminate")
	}
}

func TestTerminateGoneProcessIsSuccess(t *testing.T) {
	procs := newFakeProcs()
	s := testSupervisor(t, procs)

	if err := s.Terminate(12345); err != nil {
		t.Errorf("Terminate of exited process: %v", err)
	}
}

func TestAliveTreatsEPERMAsAlive(t *testing.T) {
	s := NewSupervisor(t.TempDir(), nil)
	s.signal = func(pid int, sig syscall.Signal) error { return syscall.EPERM }
	if !s.Alive(1) {
		t.Error("EPERM should count as alive")
	}
	s.signal = func(pid int, sig syscall.Signal) error { return syscall.ESRCH }
	if s.Alive(1) {
		t.Error("ESRCH should count as dead")
	}
}

func TestTailLines(t *testing.T) {
	text := "one\ntwo\nthree\nfour\n"
	if got := tailLines(text, 2); got != "three\nfour" {
		t.Errorf("tailLines = %q", got)
	}
	if got := tailLines(text, 10); got != "one\ntwo\nthree\nfour" {
		t.Errorf("tailLines beyond length = %q", got)
	}
	if got := tailLines("", 3); got != "" {
		t.Errorf("tailLines empty = %q", got)
	}
}
