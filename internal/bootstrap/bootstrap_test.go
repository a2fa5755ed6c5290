// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinWp/soul-agent/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		VaultPath: t.TempDir(),
		HTTPPort:  config.DefaultHTTPPort,
		LLM:       config.LLM{Provider: "mock"},
		Queue:     config.Queue{BatchSize: 5},
		Insight:   config.Insight{DailyTime: "20:00"},
	}
}

func TestNew_WiresEveryComponent(t *testing.T) {
	d, err := New(testConfig(t), nil)
	require.NoError(t, err)

	assert.NotNil(t, d.Vault)
	assert.NotNil(t, d.Queue)
	assert.NotNil(t, d.DailyLog)
	assert.NotNil(t, d.Todos)
	assert.NotNil(t, d.Classifier)
	assert.NotNil(t, d.Pipeline)
	assert.NotNil(t, d.HTTP)
	assert.NotNil(t, d.Insight)
	assert.NotNil(t, d.Terminal)
	assert.NotEmpty(t, d.runners)

	d.Stop()
}

func TestStartStop_ExitsCleanlyWithinBudget(t *testing.T) {
	d, err := New(testConfig(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return in time")
	}
}
