// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package producers

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AustinWp/soul-agent/internal/cursorstore"
	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/queue"
)

// BrowserHistoryPollInterval is how often each browser's history file is scanned.
const BrowserHistoryPollInterval = 5 * time.Minute

// ignoredURLPrefixes are never emitted, regardless of browser.
var ignoredURLPrefixes = []string{
	"chrome://", "about:", "data:", "blob:", "file://", "chrome-extension://",
}

// Browser identifies one supported browser's history store.
type Browser struct {
	Name string // cursor key: "chrome" or "safari"

	// HistoryPath locates the browser's live history database for the
	// current platform. Returns ok=false when the browser is not
	// installed or not supported on this OS.
	HistoryPath func() (string, bool)

	// Query returns rows newer than sinceCursor (the browser's own
	// monotonic visit-time representation, opaque to the poller) from
	// the read-only copy at dbPath, along with the new high-water
	// cursor to persist.
	Query func(dbPath, sinceCursor string) (rows []historyRow, newCursor string, err error)
}

type historyRow struct {
	URL   string
	Title string
}

// Chrome describes the Chrome/Chromium history store.
var Chrome = Browser{
	Name:        "chrome",
	HistoryPath: chromeHistoryPath,
	Query:       queryChromeHistory,
}

// Safari describes the Safari history store (macOS only).
var Safari = Browser{
	Name:        "safari",
	HistoryPath: safariHistoryPath,
	Query:       querySafariHistory,
}

func chromeHistoryPath() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "History"), true
	case "linux":
		return filepath.Join(home, ".config", "google-chrome", "Default", "History"), true
	case "windows":
		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", "Default", "History"), true
	default:
		return "", false
	}
}

func safariHistoryPath() (string, bool) {
	if runtime.GOOS != "darwin" {
		return "", false
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, "Library", "Safari", "History.db"), true
}

// queryChromeHistory reads Chrome's urls table, whose last_visit_time
// is microseconds since the Windows epoch (1601-01-01).
func queryChromeHistory(dbPath, sinceCursor string) ([]historyRow, string, error) {
	since, _ := strconv.ParseInt(sinceCursor, 10, 64)

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&immutable=1")
	if err != nil {
		return nil, sinceCursor, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT url, title, last_visit_time FROM urls WHERE last_visit_time > ? ORDER BY last_visit_time ASC`,
		since,
	)
	if err != nil {
		return nil, sinceCursor, err
	}
	defer rows.Close()

	var out []historyRow
	maxCursor := since
	for rows.Next() {
		var url, title string
		var visitTime int64
		if err := rows.Scan(&url, &title, &visitTime); err != nil {
			return out, strconv.FormatInt(maxCursor, 10), err
		}
		out = append(out, historyRow{URL: url, Title: title})
		if visitTime > maxCursor {
			maxCursor = visitTime
		}
	}
	return out, strconv.FormatInt(maxCursor, 10), rows.Err()
}

// querySafariHistory reads Safari's history_items/history_visits
// tables, whose visit_time is seconds since the Mac epoch (2001-01-01).
func querySafariHistory(dbPath, sinceCursor string) ([]historyRow, string, error) {
	since, _ := strconv.ParseFloat(sinceCursor, 64)

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&immutable=1")
	if err != nil {
		return nil, sinceCursor, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT history_items.url, COALESCE(history_visits.title, ''), history_visits.visit_time
		FROM history_visits
		JOIN history_items ON history_items.id = history_visits.history_item
		WHERE history_visits.visit_time > ?
		ORDER BY history_visits.visit_time ASC`,
		since,
	)
	if err != nil {
		return nil, sinceCursor, err
	}
	defer rows.Close()

	var out []historyRow
	maxCursor := since
	for rows.Next() {
		var url, title string
		var visitTime float64
		if err := rows.Scan(&url, &title, &visitTime); err != nil {
			return out, strconv.FormatFloat(maxCursor, 'f', -1, 64), err
		}
		out = append(out, historyRow{URL: url, Title: title})
		if visitTime > maxCursor {
			maxCursor = visitTime
		}
	}
	return out, strconv.FormatFloat(maxCursor, 'f', -1, 64), rows.Err()
}

// ignoredURL reports whether url starts with one of ignoredURLPrefixes.
func ignoredURL(url string) bool {
	for _, prefix := range ignoredURLPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// BrowserHistoryPoller periodically snapshots one browser's history
// database and enqueues rows newer than its persisted cursor.
type BrowserHistoryPoller struct {
	Queue    *queue.Queue
	Cursors  *cursorstore.Store
	Browser  Browser
	Interval time.Duration
	Logger   *slog.Logger

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewBrowserHistoryPoller constructs a poller for browser, persisting
// its cursor in cursors under the key browser.Name.
func NewBrowserHistoryPoller(q *queue.Queue, cursors *cursorstore.Store, browser Browser, logger *slog.Logger) *BrowserHistoryPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserHistoryPoller{
		Queue:    q,
		Cursors:  cursors,
		Browser:  browser,
		Interval: BrowserHistoryPollInterval,
		Logger:   logger,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run polls until Stop is called. A tick on which the browser's history
// file is absent is skipped without a log line; a failed copy or query
// logs a warning for that tick. Either way the next tick tries again.
// Run returns at once when the browser is unsupported on this platform.
func (p *BrowserHistoryPoller) Run() {
	defer close(p.stopped)

	if _, ok := p.Browser.HistoryPath(); !ok {
		p.Logger.Info("producer.browser_history.unsupported", "browser", p.Browser.Name, "os", runtime.GOOS)
		return
	}

	interval := p.Interval
	if interval <= 0 {
		interval = BrowserHistoryPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.poll()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *BrowserHistoryPoller) poll() {
	liveDBPath, ok := p.Browser.HistoryPath()
	if !ok {
		return
	}
	if _, err := os.Stat(liveDBPath); err != nil {
		return
	}

	tmpPath, err := copyToTemp(liveDBPath, p.Browser.Name)
	if err != nil {
		p.Logger.Warn("producer.browser_history.copy_error", "browser", p.Browser.Name, "err", err)
		return
	}
	defer os.Remove(tmpPath)

	cursor, _ := p.Cursors.GetCursor(p.Browser.Name)

	rows, newCursor, err := p.Browser.Query(tmpPath, cursor)
	if err != nil {
		p.Logger.Warn("producer.browser_history.query_error", "browser", p.Browser.Name, "err", err)
		return
	}

	for _, row := range rows {
		if ignoredURL(row.URL) {
			continue
		}
		p.Queue.Put(ingest.Item{
			Text:      fmt.Sprintf("%s — %s", row.Title, row.URL),
			Source:    ingest.SourceBrowser,
			Timestamp: time.Now(),
			Meta:      map[string]string{"url": row.URL, "title": row.Title},
		})
	}

	if newCursor != cursor {
		p.Cursors.SetCursor(p.Browser.Name, newCursor)
	}
}

// copyToTemp copies src to a fresh temp file so the browser's own
// write lock on the live database is never contended.
func copyToTemp(src, label string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp("", "soul-agent-"+label+"-history-*.sqlite")
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

// Stop signals the poller to exit and blocks until it does.
func (p *BrowserHistoryPoller) Stop() {
	p.once.Do(func() { close(p.stop) })
	<-p.stopped
}
