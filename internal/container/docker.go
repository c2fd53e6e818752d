package container

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/config"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/system"
)

// Labels identifying containers managed by grove-ctl.
const (
	labelWorktree = "grove.worktree"
	labelProject  = "grove.project"
)

// Docker implements Engine by running the docker (or podman) CLI.
type Docker struct {
	// Command is the engine binary, docker or podman.
	Command string

	exec system.CommandExecutor
}

// NewDocker creates a Docker engine using the given command and executor.
func NewDocker(command string, exec system.CommandExecutor) *Docker {
	if command == "" {
		command = "docker"
	}
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &Docker{Command: command, exec: exec}
}

func (d *Docker) run(ctx context.Context, args ...string) (string, error) {
	out, err := d.exec.Execute(ctx, d.Command, args...)
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %s: %w", d.Command, args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

func (d *Docker) CreateContainer(ctx context.Context, opts CreateOptions) (Created, error) {
	name := config.ContainerPrefix + opts.Name
	logging.Debug("creating container", "name", name, "image", opts.Image)

	args := []string{
		"run", "-d",
		"--name", name,
		"--label", labelWorktree + "=" + opts.Name,
	}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}
	if opts.WorktreePath != "" {
		args = append(args, "-v", opts.WorktreePath+":/workspace")
	}
	if opts.DataPath != "" {
		args = append(args, "-v", opts.DataPath+":/data")
	}
	if opts.AppPort > 0 {
		host := strconv.Itoa(opts.HostPort)
		if opts.HostPort == 0 {
			host = "0"
		}
		args = append(args, "-p", fmt.Sprintf("127.0.0.1:%s:%d", host, opts.AppPort))
	}

	keys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+opts.Env[k])
	}

	args = append(args, opts.Image)

	out, err := d.run(ctx, args...)
	if err != nil {
		return Created{}, err
	}
	id := strings.TrimSpace(out)

	hostPort := opts.HostPort
	if opts.AppPort > 0 && hostPort == 0 {
		hostPort, err = d.publishedPort(ctx, id, opts.AppPort)
		if err != nil {
			return Created{ID: id}, err
		}
	}

	return Created{ID: id, HostPort: hostPort}, nil
}

func (d *Docker) StartContainer(ctx context.Context, id string) error {
	_, err := d.run(ctx, "start", id)
	return err
}

func (d *Docker) StopContainer(ctx context.Context, id string) error {
	_, err := d.run(ctx, "stop", id)
	return err
}

func (d *Docker) RemoveContainer(ctx context.Context, id string, force bool) error {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, id)

	_, err := d.run(ctx, args...)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "no such container") {
		return nil
	}
	return err
}

// healthState is the subset of docker inspect used by WaitForHealthy.
type healthState struct {
	State struct {
		Running bool `json:"Running"`
		Health  *struct {
			Status string `json:"Status"`
		} `json:"Health"`
	} `json:"State"`
}

func (d *Docker) inspectHealth(ctx context.Context, id string) (running bool, health string, err error) {
	out, err := d.run(ctx, "inspect", id)
	if err != nil {
		return false, "", err
	}

	var inspects []healthState
	if err := json.Unmarshal([]byte(out), &inspects); err != nil || len(inspects) == 0 {
		return false, "", fmt.Errorf("unexpected inspect output for %s", id)
	}

	st := inspects[0].State
	if st.Health != nil {
		return st.Running, st.Health.Status, nil
	}
	return st.Running, "", nil
}

func (d *Docker) WaitForHealthy(ctx context.Context, id string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	healthy := false
	err := retry.Retry(func(attempt uint) error {
		if time.Now().After(deadline) {
			return nil
		}
		running, health, err := d.inspectHealth(ctx, id)
		if err != nil {
			return err
		}
		// A container without a healthcheck counts as healthy once running.
		if running && (health == "" || health == "healthy") {
			healthy = true
			return nil
		}
		return fmt.Errorf("container %s not healthy yet", id)
	}, strategy.Limit(uint(timeout/time.Second)+1), strategy.Wait(time.Second))

	if healthy {
		return true, nil
	}
	if err != nil && ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

func (d *Docker) ContainerLogs(ctx context.Context, id string, tailLines int) (string, error) {
	out, err := d.run(ctx, "logs", "--tail", strconv.Itoa(tailLines), id)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (d *Docker) publishedPort(ctx context.Context, id string, appPort int) (int, error) {
	out, err := d.run(ctx, "port", id, strconv.Itoa(appPort))
	if err != nil {
		return 0, err
	}
	// Output like "127.0.0.1:43123" (possibly several lines for v4/v6).
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}
		if port, err := strconv.Atoi(strings.TrimSpace(line[idx+1:])); err == nil {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no published port for %s port %d", id, appPort)
}

func (d *Docker) ContainerHostPort(ctx context.Context, id string) (int, error) {
	out, err := d.run(ctx, "inspect", "-f",
		`{{range $p, $conf := .NetworkSettings.Ports}}{{(index $conf 0).HostPort}}{{break}}{{end}}`, id)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse host port %q for %s: %w", strings.TrimSpace(out), id, err)
	}
	return port, nil
}

func (d *Docker) EnsureOnSharedNetwork(ctx context.Context, network, id string) error {
	if _, err := d.run(ctx, "network", "inspect", network); err != nil {
		if _, cerr := d.run(ctx, "network", "create", network); cerr != nil &&
			!strings.Contains(cerr.Error(), "already exists") {
			return cerr
		}
	}

	_, err := d.run(ctx, "network", "connect", network, id)
	if err != nil && strings.Contains(err.Error(), "already exists in network") {
		return nil
	}
	return err
}

func (d *Docker) RemoveNetwork(ctx context.Context, network string) error {
	_, err := d.run(ctx, "network", "rm", network)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "not found") {
		return nil
	}
	return err
}

func (d *Docker) CleanupProjectContainers(ctx context.Context, name, excludeID string) error {
	out, err := d.run(ctx, "ps", "-aq", "--filter", "label="+labelProject+"="+name)
	if err != nil {
		return err
	}

	for _, id := range strings.Fields(out) {
		if id == "" || strings.HasPrefix(excludeID, id) || strings.HasPrefix(id, excludeID) {
			continue
		}
		if err := d.RemoveContainer(ctx, id, true); err != nil {
			logging.Warn("failed to remove project container", "id", id, "error", err)
		}
	}
	return nil
}

// dockerEvent is the JSON shape of `docker events --format '{{json .}}'`.
type dockerEvent struct {
	ID     string `json:"id"`
	Action string `json:"Action"`
	Actor  struct {
		Attributes map[string]string `json:"Attributes"`
	} `json:"Actor"`
}

// SubscribeEvents runs `docker events` as a streaming child process and
// feeds container lifecycle events to handler. This bypasses the
// CommandExecutor abstraction because event streaming never terminates on
// its own; tests use MockEngine instead.
func (d *Docker) SubscribeEvents(ctx context.Context, handler func(Event)) (func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(streamCtx, d.Command,
		"events",
		"--filter", "type=container",
		"--filter", "label="+labelWorktree,
		"--format", "{{json .}}")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s events: %w", d.Command, err)
	}

	go func() {
		defer func() { _ = cmd.Wait() }()

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			var ev dockerEvent
			if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
				continue
			}
			handler(Event{
				ContainerID: ev.ID,
				Name:        ev.Actor.Attributes[labelWorktree],
				Action:      ev.Action,
			})
		}
	}()

	return cancel, nil
}

var _ Engine = (*Docker)(nil)
