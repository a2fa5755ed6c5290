// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package cursorstore persists producer cursors and a mirror of the
// ingest queue's dedup window across restarts, in a single SQLite file
// under the vault's state directory. Every call is best-effort: a
// failed read or write never blocks ingestion, it only forfeits the
// restart-survives-dedup guarantee for that one call.
package cursorstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cursors (
	producer   TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS dedup_hashes (
	hash16  TEXT PRIMARY KEY,
	seen_at TEXT NOT NULL
);
`

// StateDir is the vault-relative directory holding the database file.
const StateDir = ".soul-agent"

// dbFile is the database's filename within StateDir.
const dbFile = "state.db"

// Store wraps the persistent cursor/dedup database. All methods are
// safe for concurrent use.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens <vaultRoot>/.soul-agent/state.db in WAL mode
// and ensures its schema exists.
func Open(vaultRoot string) (*Store, error) {
	dir := filepath.Join(vaultRoot, StateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cursorstore: create state dir: %w", err)
	}

	path := filepath.Join(dir, dbFile)
	escaped := strings.ReplaceAll(path, " ", "%20")
	db, err := sql.Open("sqlite", "file:"+escaped+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("cursorstore: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cursorstore: init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetCursor returns the last persisted value for producer, and whether
// one was found. A query error is treated as not-found: the caller
// falls back to its zero-value cursor.
func (s *Store) GetCursor(producer string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM cursors WHERE producer = ?`, producer).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetCursor persists value as producer's new high-water mark. Errors
// are swallowed: cursor persistence is an optimization, not a
// correctness requirement for the in-flight session.
func (s *Store) SetCursor(producer, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.db.Exec(
		`INSERT INTO cursors (producer, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(producer) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		producer, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
}

// SeenRecently reports whether hash16 was recorded within window of now.
func (s *Store) SeenRecently(hash16 string, now time.Time, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seenAt string
	err := s.db.QueryRow(`SELECT seen_at FROM dedup_hashes WHERE hash16 = ?`, hash16).Scan(&seenAt)
	if err != nil {
		return false
	}
	t, err := time.Parse(time.RFC3339Nano, seenAt)
	if err != nil {
		return false
	}
	return now.Sub(t) <= window
}

// RecordSeen marks hash16 as seen at now, replacing any prior record.
func (s *Store) RecordSeen(hash16 string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.db.Exec(
		`INSERT INTO dedup_hashes (hash16, seen_at) VALUES (?, ?)
		 ON CONFLICT(hash16) DO UPDATE SET seen_at = excluded.seen_at`,
		hash16, now.UTC().Format(time.RFC3339Nano),
	)
}

// Prune drops dedup_hashes entries older than window relative to now.
// The queue calls this on every Put it accepts, to bound table growth.
func (s *Store) Prune(now time.Time, window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window).UTC().Format(time.RFC3339Nano)
	_, _ = s.db.Exec(`DELETE FROM dedup_hashes WHERE seen_at < ?`, cutoff)
}
