// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package queue

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinWp/soul-agent/internal/cursorstore"
	"github.com/AustinWp/soul-agent/internal/ingest"
)

func item(text string, source ingest.Source) ingest.Item {
	return ingest.Item{Text: text, Source: source, Timestamp: time.Now()}
}

func TestPut_DedupWithinWindow(t *testing.T) {
	q := New(WithDedupWindow(time.Minute))

	ok1 := q.Put(item("hello", ingest.SourceNote))
	ok2 := q.Put(item("hello", ingest.SourceClipboard))

	assert.True(t, ok1)
	assert.False(t, ok2)
	assert.Equal(t, 1, q.PendingCount())
}

func TestPut_DedupExpiresAfterWindow(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	q := New(WithDedupWindow(10*time.Millisecond), WithClock(func() time.Time { return now }))
	_ = clock

	require.True(t, q.Put(item("dup", ingest.SourceNote)))
	now = now.Add(20 * time.Millisecond)
	assert.True(t, q.Put(item("dup", ingest.SourceNote)), "dedup window has expired")
}

func TestGetBatch_ByCount(t *testing.T) {
	q := New(WithBatchSize(10))

	for i := 0; i < 10; i++ {
		require.True(t, q.Put(item(fmt.Sprintf("item-%d", i), ingest.SourceNote)))
	}

	batch := q.GetBatch(2 * time.Second)
	require.Len(t, batch, 10)
	for i, it := range batch {
		assert.Equal(t, fmt.Sprintf("item-%d", i), it.Text, "enqueue order preserved")
	}
}

func TestGetBatch_ByTimeout(t *testing.T) {
	q := New(WithBatchSize(10), WithFlushInterval(300*time.Millisecond))
	require.True(t, q.Put(item("only one", ingest.SourceNote)))

	batch := q.GetBatch(500 * time.Millisecond)
	require.Len(t, batch, 1)
	assert.Equal(t, "only one", batch[0].Text)
}

func TestGetBatch_EmptyQueueZeroTimeout(t *testing.T) {
	q := New()
	batch := q.GetBatch(0)
	assert.Empty(t, batch)
}

func TestPut_TransitionsReadyAtBatchSizeMinusOne(t *testing.T) {
	q := New(WithBatchSize(3))

	require.True(t, q.Put(item("a", ingest.SourceNote)))
	require.True(t, q.Put(item("b", ingest.SourceNote)))
	assert.Equal(t, 2, q.PendingCount())

	require.True(t, q.Put(item("c", ingest.SourceNote)))

	batch := q.GetBatch(time.Second)
	assert.Len(t, batch, 3, "reaching batchSize must make GetBatch return without waiting out the timeout")
}

// TestPut_CursorStoreCatchesDuplicateAfterRestart simulates a process
// restart: a fresh Queue over the same cursorstore.Store still has an
// empty in-memory seen map, but the persisted mirror remembers the hash
// and the duplicate is still dropped.
func TestPut_CursorStoreCatchesDuplicateAfterRestart(t *testing.T) {
	store, err := cursorstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	first := New(WithDedupWindow(time.Minute), WithCursorStore(store))
	require.True(t, first.Put(item("restart me", ingest.SourceNote)))

	restarted := New(WithDedupWindow(time.Minute), WithCursorStore(store))
	assert.False(t, restarted.Put(item("restart me", ingest.SourceNote)),
		"duplicate within the dedup window must be caught even after the in-memory map is lost")
	assert.Equal(t, 0, restarted.PendingCount())
}

func TestPut_ShedsAboveMaxPending(t *testing.T) {
	q := New(WithBatchSize(1 << 20))
	for i := 0; i < maxPending; i++ {
		require.True(t, q.Put(item(fmt.Sprintf("bulk-%d", i), ingest.SourceNote)))
	}
	assert.False(t, q.Put(item("overflow", ingest.SourceNote)))
}
