// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package bootstrap wires the daemon's components together from a loaded
// configuration: vault, queue, classifier, pipeline consumer, producers,
// cursor store, insight scheduler and HTTP surface.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/classifier"
	"github.com/AustinWp/soul-agent/internal/config"
	"github.com/AustinWp/soul-agent/internal/cursorstore"
	"github.com/AustinWp/soul-agent/internal/dailylog"
	"github.com/AustinWp/soul-agent/internal/httpapi"
	"github.com/AustinWp/soul-agent/internal/insight"
	"github.com/AustinWp/soul-agent/internal/llm"
	"github.com/AustinWp/soul-agent/internal/pipeline"
	"github.com/AustinWp/soul-agent/internal/producers"
	"github.com/AustinWp/soul-agent/internal/queue"
	"github.com/AustinWp/soul-agent/internal/todo"
	"github.com/AustinWp/soul-agent/internal/vault"
)

// runner is anything with the producers' Run()/Stop() shape, so Daemon can
// track a heterogeneous set of background tasks uniformly.
type runner interface {
	Run()
	Stop()
}

// Daemon holds every wired component and the set of background tasks
// started alongside it.
type Daemon struct {
	Config     *config.Config
	Vault      *vault.Vault
	Queue      *queue.Queue
	Cursors    *cursorstore.Store
	DailyLog   *dailylog.Store
	Todos      *todo.Store
	Classifier *classifier.Classifier
	Pipeline   *pipeline.Consumer
	HTTP       *httpapi.Server
	Insight    *insight.Scheduler
	Terminal   *producers.TerminalSink
	Logger     *slog.Logger

	runners []runner
	wg      sync.WaitGroup
}

// New wires every component from cfg. It does not start any background
// task; call Start for that.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("bootstrap.daemon.wiring.start", "vault_path", cfg.VaultPath)

	v, err := vault.Open(cfg.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open vault: %w", err)
	}

	cursors, err := cursorstore.Open(cfg.VaultPath)
	if err != nil {
		logger.Warn("bootstrap.cursorstore.open.error", "err", err)
	}

	q := newQueue(cfg, cursors)

	dl := dailylog.New(v)
	todos := todo.New(v)

	provider, err := llm.NewProvider(llm.ProviderConfig{
		Type:         cfg.LLM.Provider,
		BaseURL:      cfg.LLM.APIBase,
		APIKey:       cfg.LLM.APIKey,
		DefaultModel: cfg.LLM.Model,
	})
	if err != nil {
		logger.Warn("bootstrap.llm.provider.error", "err", err)
	}

	cls := classifier.New(provider)
	consumer := pipeline.New(q, cls, dl, v, todos, logger)

	terminal := producers.NewTerminalSink(q)

	d := &Daemon{
		Config:     cfg,
		Vault:      v,
		Queue:      q,
		Cursors:    cursors,
		DailyLog:   dl,
		Todos:      todos,
		Classifier: cls,
		Pipeline:   consumer,
		Terminal:   terminal,
		Logger:     logger,
	}

	d.HTTP = httpapi.New(q, dl, todos, v, terminal, provider, logger)
	d.Insight = insight.NewScheduler(v, dl, todos, provider, cfg.Insight.DailyTime, logger)

	d.wireProducers(cfg, logger)

	logger.Info("bootstrap.daemon.wiring.success")
	return d, nil
}

func newQueue(cfg *config.Config, cursors *cursorstore.Store) *queue.Queue {
	var opts []queue.Option
	if cfg.Queue.BatchSize > 0 {
		opts = append(opts, queue.WithBatchSize(cfg.Queue.BatchSize))
	}
	if cfg.Queue.FlushInterval > 0 {
		opts = append(opts, queue.WithFlushInterval(time.Duration(cfg.Queue.FlushInterval)*time.Second))
	}
	if cfg.Queue.DedupWindow > 0 {
		opts = append(opts, queue.WithDedupWindow(time.Duration(cfg.Queue.DedupWindow)*time.Second))
	}
	if cursors != nil {
		opts = append(opts, queue.WithCursorStore(cursors))
	}
	return queue.New(opts...)
}

// wireProducers constructs the clipboard poller, both browser-history
// pollers, the filesystem watcher and, when input_hook is enabled, the
// keystroke tap, appending each to d.runners. Every producer degrades silently on an unsupported platform;
// wiring them regardless keeps that degradation path exercised.
func (d *Daemon) wireProducers(cfg *config.Config, logger *slog.Logger) {
	d.runners = append(d.runners, producers.NewClipboardPoller(d.Queue, nil, logger))

	d.runners = append(d.runners,
		producers.NewBrowserHistoryPoller(d.Queue, d.Cursors, producers.Chrome, logger),
		producers.NewBrowserHistoryPoller(d.Queue, d.Cursors, producers.Safari, logger),
	)

	roots := cfg.WatchDirs
	if len(roots) == 0 {
		roots = producers.DefaultWatchRoots()
	}
	d.runners = append(d.runners, producers.NewFilesystemWatcher(d.Queue, roots, logger))

	if cfg.InputHook.Enabled {
		d.runners = append(d.runners, producers.NewKeystrokeTap(d.Queue, nil, cfg.InputHook.DedicatedApps, logger))
	}
}

// Start launches every background task: the pipeline consumer, every wired
// producer, and the insight scheduler. It returns immediately; tasks run
// until Stop is called.
func (d *Daemon) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Pipeline.Run(ctx)
	}()

	for _, p := range d.runners {
		p := p
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			p.Run()
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Insight.Run(ctx)
	}()

	d.Logger.Info("bootstrap.daemon.started", "producers", len(d.runners))
}

// Stop signals every background task and blocks until all have exited.
func (d *Daemon) Stop() {
	d.Pipeline.Stop()
	for _, p := range d.runners {
		p.Stop()
	}
	d.Insight.Stop()
	d.Terminal.Close()
	if d.Cursors != nil {
		_ = d.Cursors.Close()
	}
	d.wg.Wait()
	d.Logger.Info("bootstrap.daemon.stopped")
}
