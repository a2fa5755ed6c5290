// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package producers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/queue"
)

func TestFilesystemWatcher_EmitsOnNewFile(t *testing.T) {
	root := t.TempDir()
	q := queue.New(queue.WithBatchSize(100))
	w := NewFilesystemWatcher(q, []string{root}, nil)

	go w.Run()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello world"), 0o644))
	time.Sleep(700 * time.Millisecond)
	w.Stop()

	batch := q.GetBatch(0)
	require.NotEmpty(t, batch)
	assert.Equal(t, ingest.SourceFile, batch[0].Source)
	assert.Contains(t, batch[0].Text, "notes.txt")
	assert.Contains(t, batch[0].Text, "hello world")
}

func TestFilesystemWatcher_DebouncesRapidWrites(t *testing.T) {
	root := t.TempDir()
	q := queue.New(queue.WithBatchSize(100))
	w := NewFilesystemWatcher(q, []string{root}, nil)

	go w.Run()
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(root, "draft.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("revision "+string(rune('0'+i))), 0o644))
		time.Sleep(50 * time.Millisecond)
	}

	// Nothing should land until the path has gone quiet for debounceInterval.
	assert.Empty(t, q.GetBatch(0))

	time.Sleep(700 * time.Millisecond)
	w.Stop()

	batch := q.GetBatch(0)
	require.Len(t, batch, 1)
	assert.Contains(t, batch[0].Text, "revision 4")
}

func TestFilesystemWatcher_IgnoresExcludedDirAndFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	q := queue.New(queue.WithBatchSize(100))
	w := NewFilesystemWatcher(q, []string{root}, nil)

	go w.Run()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".DS_Store"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg.js"), []byte("junk"), 0o644))
	time.Sleep(700 * time.Millisecond)
	w.Stop()

	batch := q.GetBatch(0)
	assert.Empty(t, batch)
}

func TestFilesystemWatcher_GoFileUsesSourcePreview(t *testing.T) {
	root := t.TempDir()
	q := queue.New(queue.WithBatchSize(100))
	w := NewFilesystemWatcher(q, []string{root}, nil)

	go w.Run()
	time.Sleep(100 * time.Millisecond)

	src := "package main\n\nfunc Hello() {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(src), 0o644))
	time.Sleep(700 * time.Millisecond)
	w.Stop()

	batch := q.GetBatch(0)
	require.NotEmpty(t, batch)
	assert.Contains(t, batch[0].Text, "func Hello")
}
