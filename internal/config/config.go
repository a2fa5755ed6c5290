// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the daemon's configuration file, accepting either
// JSON or YAML by file extension and decoding both into the same shape.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LLM holds the classifier's provider settings.
type LLM struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	APIBase  string `json:"api_base" yaml:"api_base"`
}

// Queue holds the ingest queue's tunables, in seconds for the durations.
type Queue struct {
	BatchSize     int `json:"batch_size" yaml:"batch_size"`
	FlushInterval int `json:"flush_interval" yaml:"flush_interval"`
	DedupWindow   int `json:"dedup_window" yaml:"dedup_window"`
}

// InputHook configures the keystroke tap.
type InputHook struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	DedicatedApps []string `json:"dedicated_apps" yaml:"dedicated_apps"`
}

// Insight configures the daily report scheduler.
type Insight struct {
	DailyTime string `json:"daily_time" yaml:"daily_time"`
}

// Config is the decoded shape of the daemon's configuration file,
// identical whether it was loaded from JSON or YAML.
type Config struct {
	VaultPath string    `json:"vault_path" yaml:"vault_path"`
	HTTPPort  int       `json:"http_port" yaml:"http_port"`
	LLM       LLM       `json:"llm" yaml:"llm"`
	Queue     Queue     `json:"queue" yaml:"queue"`
	WatchDirs []string  `json:"watch_dirs" yaml:"watch_dirs"`
	InputHook InputHook `json:"input_hook" yaml:"input_hook"`
	Insight   Insight   `json:"insight" yaml:"insight"`
}

// DefaultHTTPPort is the loopback port the HTTP surface binds when the
// config file does not override it.
const DefaultHTTPPort = 8330

// Load reads and decodes path, choosing the JSON or YAML decoder by file
// extension (.yaml/.yml vs anything else), substituting DEEPSEEK_API_KEY
// into llm.api_key when the field was left blank, and applying defaults
// for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse json: %w", err)
		}
	}

	if cfg.VaultPath == "" {
		return nil, fmt.Errorf("config: vault_path is required")
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = DefaultHTTPPort
	}
	if cfg.Insight.DailyTime == "" {
		cfg.Insight.DailyTime = "20:00"
	}
	if len(cfg.WatchDirs) == 0 {
		cfg.WatchDirs = nil
	}

	return &cfg, nil
}
