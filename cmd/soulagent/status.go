// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AustinWp/soul-agent/internal/agenterr"
	"github.com/AustinWp/soul-agent/internal/config"
	"github.com/AustinWp/soul-agent/internal/output"
	"github.com/AustinWp/soul-agent/internal/ui"
)

func runStatus(configPath string, jsonOutput bool) {
	cfg, err := config.Load(configPath)
	if err != nil {
		agenterr.FatalError(agenterr.NewConfigError(
			"Cannot load configuration", err.Error(), "Check that "+configPath+" exists", err,
		), jsonOutput)
	}

	lock := NewLock(cfg.VaultPath)
	pid, startedAt, err := lock.Holder()
	if err != nil || pid == 0 || lock.IsStale() {
		if jsonOutput {
			_ = output.JSON(map[string]any{"running": false})
		} else {
			ui.Warning("soul-agent is not running")
		}
		return
	}

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/service/status", cfg.HTTPPort))
	if err != nil {
		if jsonOutput {
			_ = output.JSON(map[string]any{"running": true, "pid": pid, "http_reachable": false})
		} else {
			ui.Warningf("soul-agent process is running (pid %d) but HTTP surface is unreachable: %v", pid, err)
		}
		return
	}
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if jsonOutput {
		body["running"] = true
		body["pid"] = pid
		_ = output.JSON(body)
		return
	}

	ui.Header("soul-agent status")
	fmt.Printf("%s %d\n", ui.Label("PID:"), pid)
	fmt.Printf("%s %s\n", ui.Label("Since:"), startedAt.Format(time.RFC3339))
	fmt.Printf("%s %v\n", ui.Label("Queue pending:"), body["queue_pending"])
}
