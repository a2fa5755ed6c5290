// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package producers

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinWp/soul-agent/internal/cursorstore"
	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/queue"
)

func buildChromeFixture(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE urls (id INTEGER PRIMARY KEY, url TEXT, title TEXT, last_visit_time INTEGER)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO urls (url, title, last_visit_time) VALUES
		('https://example.com/a', 'A Page', 100),
		('https://example.com/b', 'B Page', 200),
		('chrome://settings', 'Settings', 300)`)
	require.NoError(t, err)
}

func TestQueryChromeHistory_FiltersByCursorAndAdvances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "History")
	buildChromeFixture(t, path)

	rows, cursor, err := queryChromeHistory(path, "100")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "https://example.com/b", rows[0].URL)
	assert.Equal(t, "300", cursor)
}

func TestIgnoredURL_FiltersKnownSchemes(t *testing.T) {
	assert.True(t, ignoredURL("chrome://settings"))
	assert.True(t, ignoredURL("about:blank"))
	assert.True(t, ignoredURL("file:///etc/passwd"))
	assert.False(t, ignoredURL("https://example.com"))
}

func TestBrowserHistoryPoller_EmitsFilteredRowsAndPersistsCursor(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "History")
	buildChromeFixture(t, dbPath)

	q := queue.New(queue.WithBatchSize(100))
	cursors, err := cursorstore.Open(t.TempDir())
	require.NoError(t, err)
	defer cursors.Close()

	testBrowser := Browser{
		Name:        "chrome",
		HistoryPath: func() (string, bool) { return dbPath, true },
		Query:       queryChromeHistory,
	}

	p := NewBrowserHistoryPoller(q, cursors, testBrowser, nil)
	p.Interval = time.Hour

	go p.Run()
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	batch := q.GetBatch(0)
	require.Len(t, batch, 2, "chrome:// row is filtered out")
	for _, item := range batch {
		assert.Equal(t, ingest.SourceBrowser, item.Source)
	}

	cursor, ok := cursors.GetCursor("chrome")
	require.True(t, ok)
	assert.Equal(t, "300", cursor)
}

func TestBrowserHistoryPoller_UnsupportedBrowserReturnsImmediately(t *testing.T) {
	q := queue.New()
	cursors, err := cursorstore.Open(t.TempDir())
	require.NoError(t, err)
	defer cursors.Close()

	unsupported := Browser{
		Name:        "safari",
		HistoryPath: func() (string, bool) { return "", false },
	}
	p := NewBrowserHistoryPoller(q, cursors, unsupported, nil)

	done := make(chan struct{})
	go func() {
		p.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return promptly for an unsupported browser")
	}
}
