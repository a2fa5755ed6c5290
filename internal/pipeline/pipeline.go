// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package pipeline implements the long-running consumer that drains
// batches from the ingest queue, classifies them, and fans the results
// out to the daily log, vault, and to-do sinks. Each side-effect is
// attempted independently: a failure in one never aborts the others.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/classifier"
	"github.com/AustinWp/soul-agent/internal/dailylog"
	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/metrics"
	"github.com/AustinWp/soul-agent/internal/queue"
	"github.com/AustinWp/soul-agent/internal/todo"
	"github.com/AustinWp/soul-agent/internal/vault"
)

// batchTimeout is how long GetBatch waits on each iteration before the
// consumer re-checks the stop flag.
const batchTimeout = 2 * time.Second

// drainShutdownBudget bounds how long the final, stop-triggered batch may
// take to process before the consumer exits regardless.
const drainShutdownBudget = 3 * time.Second

// Consumer is the pipeline's long-running task.
type Consumer struct {
	Queue      *queue.Queue
	Classifier *classifier.Classifier
	DailyLog   *dailylog.Store
	Vault      *vault.Vault
	Todos      *todo.Store
	Logger     *slog.Logger

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// New constructs a Consumer wiring together the pipeline's dependencies.
func New(q *queue.Queue, c *classifier.Classifier, dl *dailylog.Store, v *vault.Vault, t *todo.Store, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		Queue:      q,
		Classifier: c,
		DailyLog:   dl,
		Vault:      v,
		Todos:      t,
		Logger:     logger,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run blocks, draining batches until Stop is called, at which point it
// drains one final batch before returning.
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.stopped)

	for {
		select {
		case <-c.stop:
			c.runIteration(ctx)
			c.Logger.Info("pipeline.consumer.stopped")
			return
		default:
		}

		batch := c.Queue.GetBatch(batchTimeout)
		if len(batch) == 0 {
			continue
		}
		c.classifyAndApply(ctx, batch)
	}
}

// runIteration drains and applies exactly one more batch, bounded by
// drainShutdownBudget, used for the final drain on Stop.
func (c *Consumer) runIteration(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainShutdownBudget)
	defer cancel()

	batch := c.Queue.GetBatch(0)
	if len(batch) > 0 {
		c.classifyAndApply(ctx, batch)
	}
}

func (c *Consumer) classifyAndApply(ctx context.Context, batch []ingest.Item) {
	metrics.BatchDrained()

	activeTodos, err := c.Todos.ActiveSummaries()
	if err != nil {
		c.Logger.Warn("pipeline.todos.active_summaries.error", "err", err)
	}

	classified := c.Classifier.Classify(ctx, batch, activeTodos)

	for _, item := range classified {
		c.applySideEffects(item)
	}

	c.Logger.Info("pipeline.batch.drained", "count", len(batch))
}

// applySideEffects runs the four per-item fan-out steps independently;
// a failure in one is logged and counted but never aborts the others.
func (c *Consumer) applySideEffects(item ingest.Classified) {
	if err := c.DailyLog.Append(item.Text, item.Source, item.Timestamp, item.Category, item.Tags, item.Importance); err != nil {
		metrics.SinkFailure("daily_log")
		c.Logger.Warn("pipeline.sink.daily_log.error", "err", err)
	}

	if _, err := c.Vault.IngestText(item.Text, item.Source); err != nil {
		metrics.SinkFailure("vault")
		c.Logger.Warn("pipeline.sink.vault.error", "err", err)
	}

	if item.ActionType == ingest.ActionNewTask && item.ActionDetail != "" {
		if _, err := c.Todos.Create(item.ActionDetail, "P2", true); err != nil {
			metrics.SinkFailure("todo_create")
			c.Logger.Warn("pipeline.sink.todo_create.error", "err", err)
		}
	}

	if (item.ActionType == ingest.ActionTaskProgress || item.ActionType == ingest.ActionTaskDone) && item.RelatedTodoID != "" {
		today := item.Timestamp.Local().Format("2006-01-02")
		if _, err := c.Todos.RecordActivity(item.RelatedTodoID, string(item.Source), today); err != nil {
			metrics.SinkFailure("todo_activity")
			c.Logger.Warn("pipeline.sink.todo_activity.error", "err", err)
		}
		if item.ActionType == ingest.ActionTaskDone {
			if err := c.Todos.Complete(item.RelatedTodoID); err != nil {
				metrics.SinkFailure("todo_activity")
				c.Logger.Warn("pipeline.sink.todo_complete.error", "err", err)
			}
		}
	}
}

// Stop signals the consumer to drain one final batch and exit. It blocks
// until that exit completes.
func (c *Consumer) Stop() {
	c.once.Do(func() { close(c.stop) })
	<-c.stopped
}
