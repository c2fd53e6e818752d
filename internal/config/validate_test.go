package config

import (
	"strings"
	"testing"
)

func TestValidateWorktreeName(t *testing.T) {
	valid := []string{
		"feature-x",
		"a",
		"abc123",
		"a1-b2-c3",
		strings.Repeat("a", 63),
	}
	for _, name := range valid {
		if err := ValidateWorktreeName(name); err != nil {
			t.Errorf("ValidateWorktreeName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"Feature-X",
		"-leading",
		"trailing-",
		"under_score",
		"dot.name",
		"has space",
		strings.Repeat("a", 64),
	}
	for _, name := range invalid {
		if err := ValidateWorktreeName(name); err == nil {
			t.Errorf("ValidateWorktreeName(%q) succeeded, want error", name)
		}
	}
}

func TestValidateBranchName(t *testing.T) {
	valid := []string{
		"main",
		"feature-x",
		"feature/nested",
		"release-1.2",
		"users/alice/wip",
	}
	for _, branch := range valid {
		if err := ValidateBranchName(branch); err != nil {
			t.Errorf("ValidateBranchName(%q) = %v, want nil", branch, err)
		}
	}

	invalid := []string{
		"",
		"bad..branch",
		"bad@{reflog}",
		"/leading",
		"trailing/",
		".hidden",
		"trailing.",
		"branch.lock",
		"-dashed",
		"has space",
		"has\ttab",
		"tilde~1",
		"caret^2",
		"colon:ref",
		"glob*",
		"question?",
		"bracket[",
		"back\\slash",
		"double//slash",
		"feature/.hidden",
		"ctrl\x01char",
	}
	for _, branch := range invalid {
		if err := ValidateBranchName(branch); err == nil {
			t.Errorf("ValidateBranchName(%q) succeeded, want error", branch)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir() + "/grove.toml")
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}

	if cfg.Container.Engine != "docker" {
		t.Errorf("engine = %q", cfg.Container.Engine)
	}
	if cfg.Container.AppPort != 3000 {
		t.Errorf("app port = %d", cfg.Container.AppPort)
	}
	if cfg.Container.SharedNetwork != DefaultSharedNetwork {
		t.Errorf("shared network = %q", cfg.Container.SharedNetwork)
	}
	if cfg.Monitor.FailureThreshold != 3 {
		t.Errorf("failure threshold = %d", cfg.Monitor.FailureThreshold)
	}
	if got := cfg.MonitorInterval().Seconds(); got != 15 {
		t.Errorf("monitor interval = %vs", got)
	}
	if got := cfg.StartupTimeout().Seconds(); got != 60 {
		t.Errorf("startup timeout = %vs", got)
	}
	if len(cfg.Runtime.Command) == 0 {
		t.Error("runtime command default missing")
	}
	if cfg.WorktreesRoot == "" || cfg.DataRoot == "" || cfg.StateDir == "" {
		t.Error("directory defaults missing")
	}
}
