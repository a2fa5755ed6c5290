// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package dailylog implements the per-date append-only activity log: one
// Markdown file per calendar date, written under logs/YYYY-MM-DD.md, with
// a small in-memory cache of recently read bodies.
package dailylog

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/frontmatter"
	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/vault"
)

const dateLayout = "2006-01-02"

// cacheSize bounds the in-memory body cache to the last few days, since
// insight generation only ever looks back a handful of days.
const cacheSize = 3

// Store is the daily-log component: append-only writes guarded per date,
// reads accelerated by a small LRU cache.
type Store struct {
	v *vault.Vault

	fileLocksMu sync.Mutex
	fileLocks   map[string]*sync.Mutex

	cacheMu sync.Mutex
	cache   map[string]*list.Element // date -> LRU element
	lru     *list.List               // front = most recently used
}

type cacheEntry struct {
	date string
	body string
}

// New constructs a Store backed by v.
func New(v *vault.Vault) *Store {
	return &Store{
		v:         v,
		fileLocks: make(map[string]*sync.Mutex),
		cache:     make(map[string]*list.Element),
		lru:       list.New(),
	}
}

func (s *Store) lockFor(date string) *sync.Mutex {
	s.fileLocksMu.Lock()
	defer s.fileLocksMu.Unlock()
	m, ok := s.fileLocks[date]
	if !ok {
		m = &sync.Mutex{}
		s.fileLocks[date] = m
	}
	return m
}

func filename(date string) string {
	return date + ".md"
}

// Append adds one classified-activity line to the log for the calendar
// date (local time) of ts. text has embedded newlines flattened to
// spaces. category may be empty, in which case the "[category]" segment
// is omitted from the line.
func (s *Store) Append(text string, source ingest.Source, ts time.Time, category ingest.Category, tags []string, importance int) error {
	date := ts.Local().Format(dateLayout)
	lock := s.lockFor(date)
	lock.Lock()
	defer lock.Unlock()

	name := filename(date)
	existing, err := s.v.Read(vault.DirLogs, name)
	if err != nil {
		return err
	}

	var fields map[string]string
	var body string
	if existing == nil {
		fields = map[string]string{
			"priority": "P2",
			"date":     date,
		}
		if category != "" {
			frontmatter.AddClassification(fields, string(category), tags, importance)
		}
		body = ""
	} else {
		fields, body = frontmatter.Parse(existing)
	}

	flat := strings.ReplaceAll(text, "\n", " ")
	line := formatLine(ts, source, category, flat)
	body += line

	if err := s.v.Write(vault.DirLogs, name, frontmatter.Build(fields, body)); err != nil {
		return err
	}

	s.invalidate(date)
	return nil
}

func formatLine(ts time.Time, source ingest.Source, category ingest.Category, text string) string {
	hhmm := ts.Local().Format("15:04")
	if category == "" {
		return fmt.Sprintf("[%s] (%s) %s\n", hhmm, source, text)
	}
	return fmt.Sprintf("[%s] (%s) [%s] %s\n", hhmm, source, category, text)
}

// Read returns the body (post-frontmatter content) of the log for date,
// preferring the in-memory cache. Returns an empty string, no error, if
// no log exists for that date.
func (s *Store) Read(date string) (string, error) {
	if body, ok := s.fromCache(date); ok {
		return body, nil
	}

	data, err := s.v.Read(vault.DirLogs, filename(date))
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", nil
	}

	_, body := frontmatter.Parse(data)
	s.storeInCache(date, body)
	return body, nil
}

func (s *Store) fromCache(date string) (string, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	elem, ok := s.cache[date]
	if !ok {
		return "", false
	}
	s.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).body, true
}

func (s *Store) storeInCache(date, body string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if elem, ok := s.cache[date]; ok {
		elem.Value.(*cacheEntry).body = body
		s.lru.MoveToFront(elem)
		return
	}

	elem := s.lru.PushFront(&cacheEntry{date: date, body: body})
	s.cache[date] = elem

	for s.lru.Len() > cacheSize {
		oldest := s.lru.Back()
		if oldest == nil {
			break
		}
		s.lru.Remove(oldest)
		delete(s.cache, oldest.Value.(*cacheEntry).date)
	}
}

// invalidate evicts date from the cache; called after any append.
func (s *Store) invalidate(date string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if elem, ok := s.cache[date]; ok {
		s.lru.Remove(elem)
		delete(s.cache, date)
	}
}
