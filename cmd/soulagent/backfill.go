// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"

	"github.com/AustinWp/soul-agent/internal/agenterr"
	"github.com/AustinWp/soul-agent/internal/config"
	"github.com/AustinWp/soul-agent/internal/frontmatter"
	"github.com/AustinWp/soul-agent/internal/insight"
	"github.com/AustinWp/soul-agent/internal/output"
	"github.com/AustinWp/soul-agent/internal/ui"
	"github.com/AustinWp/soul-agent/internal/vault"
)

// backfillResult summarizes one pass over an existing vault: how many
// files were readable, how many daily-log lines parsed, and how many
// files had no type field in their frontmatter.
type backfillResult struct {
	Files       int            `json:"files"`
	LogEntries  int            `json:"log_entries"`
	MalformedMD int            `json:"malformed"`
	ByCategory  map[string]int `json:"by_category"`
}

// runBackfill walks every Markdown file already in the vault once, the
// way a fresh soul-agent install does against a vault populated by hand
// or migrated from another tool. It never mutates anything; it only
// reports what it found.
func runBackfill(configPath string, jsonOutput bool) {
	cfg, err := config.Load(configPath)
	if err != nil {
		agenterr.FatalError(agenterr.NewConfigError(
			"Cannot load configuration", err.Error(), "Check that "+configPath+" exists", err,
		), jsonOutput)
	}

	v, err := vault.Open(cfg.VaultPath)
	if err != nil {
		agenterr.FatalError(agenterr.NewVaultError(
			"Cannot open vault", err.Error(), "Check that vault_path is a writable directory", err,
		), jsonOutput)
	}

	var names []struct{ dir, name string }
	for _, dir := range []string{vault.DirLogs, vault.DirTodosActive, vault.DirTodosDone, vault.DirInsights, vault.DirCore, vault.DirClassified} {
		files, err := v.List(dir)
		if err != nil {
			continue
		}
		for _, n := range files {
			names = append(names, struct{ dir, name string }{dir, n})
		}
	}

	progressCfg := NewProgressConfig(jsonOutput, false)
	bar := NewProgressBar(progressCfg, int64(len(names)), "scanning vault")

	result := backfillResult{ByCategory: map[string]int{}}
	for _, f := range names {
		data, err := v.Read(f.dir, f.name)
		if err != nil {
			if bar != nil {
				_ = bar.Add(1)
			}
			continue
		}
		result.Files++

		fields, body := frontmatter.Parse(data)
		if _, ok := fields["type"]; !ok {
			result.MalformedMD++
		}
		if f.dir == vault.DirLogs {
			result.LogEntries += len(insight.ParseLines(body))
		}
		if f.dir == vault.DirClassified {
			if category, ok := fields["category"]; ok {
				result.ByCategory[category]++
			}
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if jsonOutput {
		_ = output.JSON(result)
		return
	}

	ui.Header("soul-agent backfill")
	fmt.Printf("%s %d\n", ui.Label("Files scanned:"), result.Files)
	fmt.Printf("%s %d\n", ui.Label("Daily-log entries:"), result.LogEntries)
	for _, category := range []string{"coding", "work", "learning", "communication", "browsing", "life"} {
		if count := result.ByCategory[category]; count > 0 {
			fmt.Printf("  %s: %s\n", ui.CategoryLabel(category), ui.CountText(count))
		}
	}
	if result.MalformedMD > 0 {
		ui.Warningf("%d file(s) missing a recognizable type field in frontmatter", result.MalformedMD)
	}
}
