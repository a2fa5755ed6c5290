// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package main implements the soul-agent daemon's lifecycle CLI.
//
// Usage:
//
//	soul-agent start --config soul-agent.yaml   Run the daemon in the foreground
//	soul-agent stop --config soul-agent.yaml     Signal a running daemon to shut down
//	soul-agent status --config soul-agent.yaml   Report whether the daemon is running
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/AustinWp/soul-agent/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		showVersion = pflag.Bool("version", false, "Show version and exit")
		configPath  = pflag.String("config", "soul-agent.yaml", "Path to the daemon config file")
		jsonOutput  = pflag.Bool("json", false, "Output status/errors as JSON")
		noColor     = pflag.Bool("no-color", false, "Disable colored output")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, `soul-agent - personal activity daemon

Usage:
  soul-agent <command> [options]

Commands:
  start     Run the daemon in the foreground
  stop      Signal a running daemon to shut down
  status    Report whether the daemon is running
  backfill  Scan an existing vault once and report what it contains

Global Options:
  --config    Path to the daemon config file (default: soul-agent.yaml)
  --json      Output as JSON
  --no-color  Disable colored output
  --version   Show version and exit
`)
	}

	pflag.Parse()
	if *noColor {
		ui.InitColors(true)
	}

	if *showVersion {
		fmt.Printf("soul-agent version %s (%s)\n", version, commit)
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "start":
		runStart(*configPath, *jsonOutput)
	case "stop":
		runStop(*configPath, *jsonOutput)
	case "status":
		runStatus(*configPath, *jsonOutput)
	case "backfill":
		runBackfill(*configPath, *jsonOutput)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		pflag.Usage()
		os.Exit(1)
	}
}
