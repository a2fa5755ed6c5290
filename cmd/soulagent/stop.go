// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"syscall"

	"github.com/AustinWp/soul-agent/internal/agenterr"
	"github.com/AustinWp/soul-agent/internal/config"
	"github.com/AustinWp/soul-agent/internal/ui"
)

func runStop(configPath string, jsonOutput bool) {
	cfg, err := config.Load(configPath)
	if err != nil {
		agenterr.FatalError(agenterr.NewConfigError(
			"Cannot load configuration", err.Error(), "Check that "+configPath+" exists", err,
		), jsonOutput)
	}

	lock := NewLock(cfg.VaultPath)
	pid, _, err := lock.Holder()
	if err != nil {
		agenterr.FatalError(agenterr.NewVaultError(
			"Cannot read lock file", err.Error(), "Check file permissions on the vault directory", err,
		), jsonOutput)
	}
	if pid == 0 || lock.IsStale() {
		if !jsonOutput {
			ui.Warning("soul-agent is not running")
		}
		return
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		agenterr.FatalError(agenterr.NewNotFoundError(
			"No such process", err.Error(), "The daemon may have already exited",
		), jsonOutput)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		agenterr.FatalError(agenterr.NewInternalError(
			"Failed to signal daemon", err.Error(), "Try killing the process manually", err,
		), jsonOutput)
	}

	if !jsonOutput {
		ui.Success("Sent shutdown signal to soul-agent")
	}
}
