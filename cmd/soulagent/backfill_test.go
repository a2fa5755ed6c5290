// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AustinWp/soul-agent/internal/vault"
)

func writeTestConfig(t *testing.T, vaultPath string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "soul-agent.json")
	content := `{"vault_path": "` + vaultPath + `"}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	require.NoError(t, w.Close())

	scanner := bufio.NewScanner(r)
	var out string
	for scanner.Scan() {
		out += scanner.Text() + "\n"
	}
	return out
}

func TestRunBackfill_ReportsFileAndEntryCounts(t *testing.T) {
	vaultDir := t.TempDir()
	v, err := vault.Open(vaultDir)
	require.NoError(t, err)
	require.NoError(t, v.Write(vault.DirLogs, "2026-01-01.md", []byte("---\ntype: daily-log\n---\n[09:00] (note) [coding] fixed a bug\n")))
	require.NoError(t, v.Write(vault.DirClassified, "item-1.md", []byte("---\ntype: note\ncategory: coding\n---\nfixed a bug\n")))

	configPath := writeTestConfig(t, vaultDir)

	out := captureStdout(t, func() { runBackfill(configPath, true) })

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.EqualValues(t, 2, result["files"])
	require.EqualValues(t, 1, result["log_entries"])
	byCategory, ok := result["by_category"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 1, byCategory["coding"])
}
