// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package todo implements CRUD over the to-do store: active/done
// directories, priority, activity-log aggregation and stall detection.
package todo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/frontmatter"
	"github.com/AustinWp/soul-agent/internal/vault"
)

const dateLayout = "2006-01-02"

// Status is the lifecycle state of a to-do item.
type Status string

const (
	StatusActive Status = "active"
	StatusDone   Status = "done"
)

// Filter selects which to-dos List returns.
type Filter string

const (
	FilterActive  Filter = "active"
	FilterDone    Filter = "done"
	FilterAll     Filter = "all"
	FilterStalled Filter = "stalled"
)

// DefaultStaleDays is the stall window used by Stalled when none is given.
const DefaultStaleDays = 3

// Item is a to-do's decoded frontmatter plus body text.
type Item struct {
	ID           string
	Priority     string
	Status       Status
	Created      string
	LastActivity string
	AutoDetected bool
	ActivityLog  []frontmatter.ActivityEntry
	Text         string
}

// Summary is the compact {id, text} view the classifier embeds in its prompt.
type Summary struct {
	ID   string
	Text string
}

// Store is the to-do component: one file per item, named task-<id8>.md,
// under todos/active/ or todos/done/.
type Store struct {
	v *vault.Vault

	idLocksMu sync.Mutex
	idLocks   map[string]*sync.Mutex

	now func() time.Time
}

// New constructs a Store backed by v.
func New(v *vault.Vault) *Store {
	return &Store{v: v, idLocks: make(map[string]*sync.Mutex), now: time.Now}
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.idLocksMu.Lock()
	defer s.idLocksMu.Unlock()
	m, ok := s.idLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.idLocks[id] = m
	}
	return m
}

func filename(id string) string {
	return "task-" + id + ".md"
}

func dirFor(status Status) string {
	if status == StatusDone {
		return vault.DirTodosDone
	}
	return vault.DirTodosActive
}

// Create writes a new to-do with an id derived from a SHA-256 of the
// creation-time text and timestamp, and returns that id.
func (s *Store) Create(text string, priority string, autoDetected bool) (string, error) {
	now := s.now()
	id := newID(text, now)

	fields := map[string]string{
		"id":            id,
		"type":          "todo",
		"status":        string(StatusActive),
		"auto_detected": strconv.FormatBool(autoDetected),
	}
	frontmatter.AddLifecycle(fields, priority)
	fields["created"] = now.UTC().Format(dateLayout)
	fields["last_activity"] = fields["created"]

	content := frontmatter.Build(fields, text)
	if err := s.v.Write(vault.DirTodosActive, filename(id), content); err != nil {
		return "", err
	}
	return id, nil
}

func newID(text string, ts time.Time) string {
	sum := sha256.Sum256([]byte(text + ts.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:8]
}

func decode(name string, data []byte) Item {
	fields, body := frontmatter.Parse(data)
	autoDetected, _ := strconv.ParseBool(fields["auto_detected"])
	return Item{
		ID:           fields["id"],
		Priority:     fields["priority"],
		Status:       Status(fields["status"]),
		Created:      fields["created"],
		LastActivity: fields["last_activity"],
		AutoDetected: autoDetected,
		ActivityLog:  frontmatter.ParseActivityLog(fields["activity_log"]),
		Text:         body,
	}
}

// List returns to-dos matching filter, sorted by priority ascending then
// created descending.
func (s *Store) List(filter Filter) ([]Item, error) {
	var items []Item

	switch filter {
	case FilterActive, FilterStalled:
		active, err := s.listDir(StatusActive)
		if err != nil {
			return nil, err
		}
		items = active
	case FilterDone:
		done, err := s.listDir(StatusDone)
		if err != nil {
			return nil, err
		}
		items = done
	case FilterAll:
		active, err := s.listDir(StatusActive)
		if err != nil {
			return nil, err
		}
		done, err := s.listDir(StatusDone)
		if err != nil {
			return nil, err
		}
		items = append(active, done...)
	default:
		return nil, fmt.Errorf("todo: unknown filter %q", filter)
	}

	if filter == FilterStalled {
		items = filterStalled(items, DefaultStaleDays, s.now())
	}

	sortItems(items)
	return items, nil
}

func (s *Store) listDir(status Status) ([]Item, error) {
	names, err := s.v.List(dirFor(status))
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(names))
	for _, name := range names {
		data, err := s.v.Read(dirFor(status), name)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		items = append(items, decode(name, data))
	}
	return items, nil
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].Created > items[j].Created
	})
}

// ActiveSummaries returns the compact {id, text} view of every active
// to-do, for embedding in the classifier's prompt.
func (s *Store) ActiveSummaries() ([]Summary, error) {
	items, err := s.listDir(StatusActive)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(items))
	for _, it := range items {
		summaries = append(summaries, Summary{ID: it.ID, Text: it.Text})
	}
	return summaries, nil
}

// findActive locates the active to-do whose id begins with id (the
// spec's id[:8] matching convention — ids are themselves 8 hex chars, so
// this is an exact match in practice but tolerates a longer id).
func (s *Store) findActive(id string) (string, Item, bool, error) {
	names, err := s.v.List(vault.DirTodosActive)
	if err != nil {
		return "", Item{}, false, err
	}
	for _, name := range names {
		data, err := s.v.Read(vault.DirTodosActive, name)
		if err != nil {
			return "", Item{}, false, err
		}
		if data == nil {
			continue
		}
		item := decode(name, data)
		if strings.HasPrefix(item.ID, id) || strings.HasPrefix(id, item.ID) {
			return name, item, true, nil
		}
	}
	return "", Item{}, false, nil
}

// RecordActivity appends a (date, source) observation to the to-do's
// activity log and reports whether a matching active item was found.
func (s *Store) RecordActivity(id, source, date string) (bool, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	name, _, found, err := s.findActive(id)
	if err != nil || !found {
		return false, err
	}

	data, err := s.v.Read(vault.DirTodosActive, name)
	if err != nil {
		return false, err
	}
	fields, body := frontmatter.Parse(data)
	frontmatter.AddActivityEntry(fields, date, source)

	if err := s.v.Write(vault.DirTodosActive, name, frontmatter.Build(fields, body)); err != nil {
		return false, err
	}
	return true, nil
}

// Complete moves a to-do from active/ to done/, setting status: done.
func (s *Store) Complete(id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	name, _, found, err := s.findActive(id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	data, err := s.v.Read(vault.DirTodosActive, name)
	if err != nil {
		return err
	}
	fields, body := frontmatter.Parse(data)
	fields["status"] = string(StatusDone)

	if err := s.v.Write(vault.DirTodosActive, name, frontmatter.Build(fields, body)); err != nil {
		return err
	}
	return s.v.Move(vault.DirTodosActive, vault.DirTodosDone, name)
}

func filterStalled(items []Item, staleDays int, now time.Time) []Item {
	threshold := now.AddDate(0, 0, -staleDays).Format(dateLayout)

	var stalled []Item
	for _, it := range items {
		last := it.LastActivity
		if last == "" {
			last = it.Created
		}
		if last <= threshold {
			stalled = append(stalled, it)
		}
	}
	return stalled
}

// Stalled returns active items whose last_activity (or created, when no
// activity is recorded) is at least staleDays before now.
func (s *Store) Stalled(staleDays int) ([]Item, error) {
	items, err := s.listDir(StatusActive)
	if err != nil {
		return nil, err
	}
	stalled := filterStalled(items, staleDays, s.now())
	sortItems(stalled)
	return stalled, nil
}
