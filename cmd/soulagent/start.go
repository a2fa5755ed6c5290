// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AustinWp/soul-agent/internal/agenterr"
	"github.com/AustinWp/soul-agent/internal/bootstrap"
	"github.com/AustinWp/soul-agent/internal/config"
	"github.com/AustinWp/soul-agent/internal/ui"
)

func runStart(configPath string, jsonOutput bool) {
	cfg, err := config.Load(configPath)
	if err != nil {
		agenterr.FatalError(agenterr.NewConfigError(
			"Cannot load configuration",
			err.Error(),
			fmt.Sprintf("Check that %s exists and sets vault_path", configPath),
			err,
		), jsonOutput)
	}

	lock := NewLock(cfg.VaultPath)
	acquired, err := lock.TryAcquire()
	if err != nil {
		agenterr.FatalError(agenterr.NewVaultError(
			"Cannot acquire vault lock", err.Error(), "Check file permissions on the vault directory", err,
		), jsonOutput)
	}
	if !acquired {
		agenterr.FatalError(agenterr.NewVaultError(
			"Another soul-agent instance is already running against this vault",
			"The lock file is held by a live process",
			"Stop the other instance or run: soul-agent stop",
			nil,
		), jsonOutput)
	}
	defer lock.Release()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	daemon, err := bootstrap.New(cfg, logger)
	if err != nil {
		agenterr.FatalError(agenterr.NewInternalError(
			"Failed to wire daemon components", err.Error(), "This is likely a bug, please report it", err,
		), jsonOutput)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	daemon.Start(ctx)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: daemon.HTTP.Handler(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("bootstrap.http.serve.error", "err", err)
		}
	}()

	if !jsonOutput {
		ui.Success(fmt.Sprintf("soul-agent listening on :%d, vault %s", cfg.HTTPPort, cfg.VaultPath))
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	daemon.Stop()
}
