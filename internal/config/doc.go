// Package config handles grove-ctl configuration and input validation.
//
// Configuration is loaded from a TOML file (grove.toml by default) and
// covers the filesystem roots, the container engine settings, the health
// monitor tuning and the optional event relay:
//
//	repo_path = "/home/dev/devchain"
//
//	[container]
//	image = "devchain/workspace:latest"
//	shared_network = "grove-net"
//
//	[monitor]
//	interval_seconds = 15
//	failure_threshold = 3
//
// All values have working defaults; a missing config file is not an error.
//
// The package also owns input validation for worktree names (DNS-label
// rules) and branch names (git ref syntax restrictions), applied before any
// side effect.
package config
