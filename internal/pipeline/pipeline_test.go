// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinWp/soul-agent/internal/classifier"
	"github.com/AustinWp/soul-agent/internal/dailylog"
	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/llm"
	"github.com/AustinWp/soul-agent/internal/queue"
	"github.com/AustinWp/soul-agent/internal/todo"
	"github.com/AustinWp/soul-agent/internal/vault"
)

func newTestConsumer(t *testing.T, mock *llm.MockProvider) (*Consumer, *vault.Vault) {
	t.Helper()
	v, err := vault.Open(t.TempDir())
	require.NoError(t, err)

	q := queue.New(queue.WithBatchSize(1))
	c := classifier.New(mock)
	dl := dailylog.New(v)
	ts := todo.New(v)

	return New(q, c, dl, v, ts, nil), v
}

func TestPipeline_NewTaskCreatesActiveTodo(t *testing.T) {
	mock := &llm.MockProvider{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{
				Content: `[{"category":"work","tags":["planning"],"importance":4,"summary":"写周报",` +
					`"action_type":"new_task","action_detail":"写本周周报"}]`,
			}}, nil
		},
	}
	consumer, v := newTestConsumer(t, mock)

	consumer.Queue.Put(ingest.Item{Text: "明天要写周报", Source: ingest.SourceNote, Timestamp: time.Now()})

	batch := consumer.Queue.GetBatch(time.Second)
	require.Len(t, batch, 1)
	consumer.classifyAndApply(context.Background(), batch)

	names, err := v.List(vault.DirTodosActive)
	require.NoError(t, err)
	require.Len(t, names, 1)

	data, err := v.Read(vault.DirTodosActive, names[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "写本周周报")
	assert.Contains(t, string(data), "auto_detected: true")
	assert.Contains(t, string(data), "priority: P2")
}

func TestPipeline_AppendsDailyLogAndVault(t *testing.T) {
	mock := &llm.MockProvider{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{
				Content: `[{"category":"coding","importance":3,"summary":"git status"}]`,
			}}, nil
		},
	}
	consumer, v := newTestConsumer(t, mock)

	consumer.Queue.Put(ingest.Item{Text: "git status", Source: ingest.SourceTerminal, Timestamp: time.Now()})
	batch := consumer.Queue.GetBatch(time.Second)
	consumer.classifyAndApply(context.Background(), batch)

	logs, err := v.List(vault.DirLogs)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	classified, err := v.List(vault.DirClassified)
	require.NoError(t, err)
	require.Len(t, classified, 1)
}

func TestPipeline_TaskDoneCompletesTodo(t *testing.T) {
	consumer, v := newTestConsumer(t, &llm.MockProvider{})

	id, err := consumer.Todos.Create("existing task", "P2", false)
	require.NoError(t, err)

	consumer.Classifier.Provider = &llm.MockProvider{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{
				Content: `[{"category":"work","importance":3,"summary":"done",` +
					`"action_type":"task_done","related_todo_id":"` + id + `"}]`,
			}}, nil
		},
	}

	consumer.Queue.Put(ingest.Item{Text: "finished the task", Source: ingest.SourceNote, Timestamp: time.Now()})
	batch := consumer.Queue.GetBatch(time.Second)
	consumer.classifyAndApply(context.Background(), batch)

	done, err := v.List(vault.DirTodosDone)
	require.NoError(t, err)
	assert.Len(t, done, 1)

	active, err := v.List(vault.DirTodosActive)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPipeline_StopDrainsFinalBatch(t *testing.T) {
	mock := &llm.MockProvider{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{
				Content: `[{"category":"work","importance":3,"summary":"final"}]`,
			}}, nil
		},
	}
	consumer, v := newTestConsumer(t, mock)

	go consumer.Run(context.Background())

	consumer.Queue.Put(ingest.Item{Text: "last item before shutdown", Source: ingest.SourceNote, Timestamp: time.Now()})
	consumer.Stop()

	logs, err := v.List(vault.DirLogs)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "final batch is drained before the consumer exits")
}
