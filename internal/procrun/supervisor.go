package procrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/appclient"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
)

// Environment variables passed to the spawned sandbox application.
const (
	EnvRuntimeToken = "GROVE_RUNTIME_TOKEN"
	EnvPortFile     = "GROVE_PORT_FILE"
	EnvProjectID    = "DEVCHAIN_PROJECT_ID"
	EnvDataDir      = "DEVCHAIN_DATA_DIR"
	EnvPort         = "PORT"
)

// StartSpec describes one process-runtime launch.
type StartSpec struct {
	// Name is the worktree name; log and port-report files derive from it.
	Name string

	// WorktreePath is the child's working directory.
	WorktreePath string

	// DataPath is the isolated application data directory.
	DataPath string

	// ProjectID is the devchain project identity passed to the child.
	ProjectID string
}

// StartResult is the proven-healthy outcome of a launch.
type StartResult struct {
	PID       int
	Port      int
	Token     string
	StartedAt time.Time
}

// portReport is the file the child writes once it has bound its port.
type portReport struct {
	Port         int    `json:"port"`
	RuntimeToken string `json:"runtimeToken"`
}

// Supervisor spawns, health-checks and terminates process-runtime children.
type Supervisor struct {
	// LogsDir holds per-worktree log and port-report files.
	LogsDir string

	// Command is the command line that runs the sandbox application.
	Command []string

	// StartupTimeout bounds port discovery and readiness probing, each.
	StartupTimeout time.Duration

	// PollInterval is the wait between polls of the port file and the
	// readiness endpoint.
	PollInterval time.Duration

	// TermWait and KillWait bound the two termination phases.
	TermWait time.Duration
	KillWait time.Duration

	// Test hooks; defaults launch a real child and signal real processes.
	launch     func(spec StartSpec, env []string, logPath string) (int, error)
	signal     func(pid int, sig syscall.Signal) error
	probeReady func(ctx context.Context, port int) error
}

// NewSupervisor creates a Supervisor with protocol defaults.
func NewSupervisor(logsDir string, command []string) *Supervisor {
	s := &Supervisor{
		LogsDir:        logsDir,
		Command:        command,
		StartupTimeout: 60 * time.Second,
		PollInterval:   time.Second,
		TermWait:       30 * time.Second,
		KillWait:       5 * time.Second,
	}
	s.launch = s.launchChild
	s.signal = syscall.Kill
	s.probeReady = func(ctx context.Context, port int) error {
		return appclient.New(port, 0).Ready(ctx)
	}
	return s
}

// PortFilePath returns the port-report file path for a worktree.
func (s *Supervisor) PortFilePath(name string) string {
	return filepath.Join(s.LogsDir, name+".port.json")
}

// LogFilePath returns the append-only log file path for a worktree.
func (s *Supervisor) LogFilePath(name string) string {
	return filepath.Join(s.LogsDir, name+".log")
}

// Start runs the full launch protocol and returns only once the child has
// reported its port with the right token and passed the readiness probe.
// Any failure terminates the child before returning.
func (s *Supervisor) Start(ctx context.Context, spec StartSpec) (StartResult, error) {
	token := uuid.NewString()
	portFile := s.PortFilePath(spec.Name)

	// A stale report from a previous attempt must not satisfy this launch.
	if err := os.Remove(portFile); err != nil && !os.IsNotExist(err) {
		return StartResult{}, fmt.Errorf("remove stale port file: %w", err)
	}
	if err := os.MkdirAll(s.LogsDir, 0o755); err != nil {
		return StartResult{}, fmt.Errorf("create logs directory: %w", err)
	}

	env := append(os.Environ(),
		EnvRuntimeToken+"="+token,
		EnvPortFile+"="+portFile,
		EnvProjectID+"="+spec.ProjectID,
		EnvDataDir+"="+spec.DataPath,
		EnvPort+"=0",
	)

	startedAt := time.Now().UTC()
	pid, err := s.launch(spec, env, s.LogFilePath(spec.Name))
	if err != nil {
		return StartResult{}, fmt.Errorf("spawn %s: %w", shellquote.Join(s.Command...), err)
	}
	logging.Debug("spawned sandbox process", "worktree", spec.Name, "pid", pid,
		"command", shellquote.Join(s.Command...))

	report, err := s.awaitPortReport(ctx, pid, portFile)
	if err != nil {
		s.Terminate(pid)
		return StartResult{}, err
	}

	if report.RuntimeToken != token {
		s.Terminate(pid)
		return StartResult{}, fmt.Errorf("process %d reported token mismatch (stale port file from another launch?)", pid)
	}

	if err := s.awaitReady(ctx, pid, report.Port); err != nil {
		s.Terminate(pid)
		return StartResult{}, err
	}

	return StartResult{PID: pid, Port: report.Port, Token: token, StartedAt: startedAt}, nil
}

// launchChild spawns the sandbox application detached in its own process
// group, stdio appended to logPath.
func (s *Supervisor) launchChild(spec StartSpec, env []string, logPath string) (int, error) {
	if len(s.Command) == 0 {
		return 0, errors.New("no runtime command configured")
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(s.Command[0], s.Command[1:]...)
	cmd.Dir = spec.WorktreePath
	cmd.Env = env
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid

	// Reap the child in the background so it never becomes a zombie while
	// this supervisor process is alive.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

// awaitPortReport polls for the port-report file, giving up at the startup
// timeout or as soon as the child is no longer alive.
func (s *Supervisor) awaitPortReport(ctx context.Context, pid int, portFile string) (portReport, error) {
	deadline := time.Now().Add(s.StartupTimeout)

	for {
		data, err := os.ReadFile(portFile)
		if err == nil {
			var report portReport
			if jerr := json.Unmarshal(data, &report); jerr == nil && report.Port > 0 {
				return report, nil
			}
			// Partially written file; keep polling.
		}

		if !s.Alive(pid) {
			return portReport{}, fmt.Errorf("process %d exited before reporting its port", pid)
		}
		if time.Now().After(deadline) {
			return portReport{}, fmt.Errorf("process %d did not report its port within %s", pid, s.StartupTimeout)
		}

		select {
		case <-ctx.Done():
			return portReport{}, ctx.Err()
		case <-time.After(s.PollInterval):
		}
	}
}

// awaitReady polls the readiness endpoint until it succeeds, the child
// dies, or the startup timeout elapses.
func (s *Supervisor) awaitReady(ctx context.Context, pid, port int) error {
	deadline := time.Now().Add(s.StartupTimeout)

	for {
		if err := s.probeReady(ctx, port); err == nil {
			return nil
		}

		if !s.Alive(pid) {
			return fmt.Errorf("process %d exited before becoming healthy", pid)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("process %d did not become healthy within %s", pid, s.StartupTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.PollInterval):
		}
	}
}

// Alive probes PID liveness with signal 0. ESRCH means exited; EPERM means
// the process exists but is inaccessible, which still counts as alive.
func (s *Supervisor) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := s.signal(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

// Terminate stops the child's process group: SIGTERM, wait, then SIGKILL,
// wait. An already-exited process is success, not an error.
func (s *Supervisor) Terminate(pid int) error {
	if pid <= 0 {
		return nil
	}

	// Negative pid signals the whole process group on POSIX.
	if err := s.signal(-pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("signal process group %d: %w", pid, err)
	}

	if s.waitExit(pid, s.TermWait) {
		return nil
	}

	logging.Warn("process did not exit after SIGTERM, escalating", "pid", pid)
	if err := s.signal(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", pid, err)
	}

	if !s.waitExit(pid, s.KillWait) {
		return fmt.Errorf("process %d still alive after SIGKILL", pid)
	}
	return nil
}

// waitExit polls liveness until the process exits or the timeout elapses.
func (s *Supervisor) waitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	interval := s.PollInterval
	if interval > 500*time.Millisecond {
		interval = 500 * time.Millisecond
	}

	for time.Now().Before(deadline) {
		if !s.Alive(pid) {
			return true
		}
		time.Sleep(interval)
	}
	return !s.Alive(pid)
}

// TailLog returns up to n trailing lines of a worktree's process log, used
// to annotate failure reports.
func (s *Supervisor) TailLog(name string, n int) string {
	data, err := os.ReadFile(s.LogFilePath(name))
	if err != nil {
		return ""
	}
	return tailLines(string(data), n)
}

func tailLines(text string, n int) string {
	if n <= 0 {
		return ""
	}
	end := len(text)
	for end > 0 && (text[end-1] == '\n' || text[end-1] == '\r') {
		end--
	}
	count := 0
	i := end
	for i > 0 {
		if text[i-1] == '\n' {
			count++
			if count == n {
				break
			}
		}
		i--
	}
	return text[i:end]
}
