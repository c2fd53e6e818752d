package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// ContainerPrefix is prepended to worktree names to form container names.
	ContainerPrefix = "grove-"

	// DefaultSharedNetwork is the docker network all worktree containers join.
	DefaultSharedNetwork = "grove-net"

	// DefaultConfigFile is the config file name looked up in the repo root.
	DefaultConfigFile = "grove.toml"
)

// ContainerConfig holds container engine settings.
type ContainerConfig struct {
	// Engine is the container command to use (docker or podman).
	Engine string `toml:"engine"`

	// Image is the workspace container image.
	Image string `toml:"image"`

	// SharedNetwork is the network containers are attached to.
	SharedNetwork string `toml:"shared_network"`

	// AppPort is the port the sandbox application listens on inside the
	// container.
	AppPort int `toml:"app_port"`

	// HealthTimeoutSeconds bounds the wait for a container to become healthy.
	HealthTimeoutSeconds int `toml:"health_timeout_seconds"`
}

// RuntimeConfig holds process-runtime supervisor settings.
type RuntimeConfig struct {
	// Command is the command line used to spawn the sandbox application.
	Command []string `toml:"command"`

	// StartupTimeoutSeconds bounds port discovery and readiness probing.
	StartupTimeoutSeconds int `toml:"startup_timeout_seconds"`
}

// MonitorConfig holds health monitor tuning.
type MonitorConfig struct {
	IntervalSeconds  int `toml:"interval_seconds"`
	FailureThreshold int `toml:"failure_threshold"`
	ProbeTimeoutMS   int `toml:"probe_timeout_ms"`
}

// EventsConfig holds the optional event relay settings.
type EventsConfig struct {
	// RedisURL, when set, enables relaying activity events to a Redis
	// stream so other processes can observe worktree changes.
	RedisURL string `toml:"redis_url"`

	// Stream is the Redis stream name for relayed events.
	Stream string `toml:"stream"`
}

// Config is the top-level grove-ctl configuration.
type Config struct {
	// RepoPath is the primary repository worktrees are created from.
	RepoPath string `toml:"repo_path"`

	// WorktreesRoot is where worktree checkouts live.
	// Defaults to <repo>/.grove/worktrees.
	WorktreesRoot string `toml:"worktrees_root"`

	// DataRoot is where isolated per-worktree data directories live.
	// Defaults to <repo>/.grove/data.
	DataRoot string `toml:"data_root"`

	// StateDir holds worktree records, logs and the activity log.
	// Defaults to <repo>/.grove/state.
	StateDir string `toml:"state_dir"`

	// SeedDir, when set, is copied into each new worktree's data
	// directory. Empty means worktrees start with an empty data dir.
	SeedDir string `toml:"seed_dir"`

	Container ContainerConfig `toml:"container"`
	Runtime   RuntimeConfig   `toml:"runtime"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Events    EventsConfig    `toml:"events"`
}

// Load reads configuration from path. A missing file yields defaults; the
// repo path then falls back to the current directory.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RepoPath == "" {
		if wd, err := os.Getwd(); err == nil {
			c.RepoPath = wd
		}
	}
	if abs, err := filepath.Abs(c.RepoPath); err == nil {
		c.RepoPath = abs
	}

	if c.WorktreesRoot == "" {
		c.WorktreesRoot = filepath.Join(c.RepoPath, ".grove", "worktrees")
	}
	if c.DataRoot == "" {
		c.DataRoot = filepath.Join(c.RepoPath, ".grove", "data")
	}
	if c.StateDir == "" {
		c.StateDir = filepath.Join(c.RepoPath, ".grove", "state")
	}

	if c.Container.Engine == "" {
		c.Container.Engine = "docker"
	}
	if c.Container.SharedNetwork == "" {
		c.Container.SharedNetwork = DefaultSharedNetwork
	}
	if c.Container.AppPort == 0 {
		c.Container.AppPort = 3000
	}
	if c.Container.HealthTimeoutSeconds == 0 {
		c.Container.HealthTimeoutSeconds = 60
	}

	if len(c.Runtime.Command) == 0 {
		c.Runtime.Command = []string{"devchain", "serve"}
	}
	if c.Runtime.StartupTimeoutSeconds == 0 {
		c.Runtime.StartupTimeoutSeconds = 60
	}

	if c.Monitor.IntervalSeconds == 0 {
		c.Monitor.IntervalSeconds = 15
	}
	if c.Monitor.FailureThreshold == 0 {
		c.Monitor.FailureThreshold = 3
	}
	if c.Monitor.ProbeTimeoutMS == 0 {
		c.Monitor.ProbeTimeoutMS = 1500
	}

	if c.Events.Stream == "" {
		c.Events.Stream = "grove:activity"
	}
}

// MonitorInterval returns the monitor loop interval.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// ProbeTimeout returns the per-probe HTTP timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Monitor.ProbeTimeoutMS) * time.Millisecond
}

// StartupTimeout returns the bounded deadline for process-runtime startup.
func (c *Config) StartupTimeout() time.Duration {
	return time.Duration(c.Runtime.StartupTimeoutSeconds) * time.Second
}

// HealthTimeout returns the bounded deadline for container health.
func (c *Config) HealthTimeout() time.Duration {
	return time.Duration(c.Container.HealthTimeoutSeconds) * time.Second
}

// RecordsDir returns the directory holding persisted worktree records.
func (c *Config) RecordsDir() string {
	return filepath.Join(c.StateDir, "worktrees")
}

// LogsDir returns the directory holding process-runtime log files.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}
