// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package queue implements the bounded, thread-safe ingest FIFO that
// couples producers to the pipeline consumer: content-hash deduplication
// on Put, batch-ready signaling on GetBatch.
package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/cursorstore"
	"github.com/AustinWp/soul-agent/internal/ingest"
)

const (
	// DefaultBatchSize is the number of items that triggers a ready signal.
	DefaultBatchSize = 10
	// DefaultFlushInterval bounds how long GetBatch waits when timeout < 0.
	DefaultFlushInterval = 60 * time.Second
	// DefaultDedupWindow is how long a content hash is remembered for dedup.
	DefaultDedupWindow = 60 * time.Second
	// maxPending sheds new Puts once the queue grows beyond this, so a slow
	// consumer never makes producers block each other.
	maxPending = 10_000
)

// Queue is a bounded FIFO of ingest items with a sliding dedup window.
type Queue struct {
	mu sync.Mutex

	items []ingest.Item
	seen  map[string]time.Time

	ready         chan struct{}
	readySignaled bool

	batchSize     int
	flushInterval time.Duration
	dedupWindow   time.Duration

	now func() time.Time

	// cursors mirrors the dedup window to disk, if set, so a restart
	// within dedupWindow still catches an immediate duplicate that the
	// in-memory seen map lost when the process exited.
	cursors *cursorstore.Store
}

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(q *Queue) { q.batchSize = n }
}

// WithFlushInterval overrides DefaultFlushInterval.
func WithFlushInterval(d time.Duration) Option {
	return func(q *Queue) { q.flushInterval = d }
}

// WithDedupWindow overrides DefaultDedupWindow.
func WithDedupWindow(d time.Duration) Option {
	return func(q *Queue) { q.dedupWindow = d }
}

// WithClock overrides the time source; used by tests to control dedup
// window expiry deterministically.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithCursorStore mirrors the dedup window to store, so a duplicate
// arriving just after a restart (before the in-memory map has any
// entries) is still caught.
func WithCursorStore(store *cursorstore.Store) Option {
	return func(q *Queue) { q.cursors = store }
}

// New constructs a Queue with the given options applied over the defaults.
func New(opts ...Option) *Queue {
	q := &Queue{
		items:         make([]ingest.Item, 0, DefaultBatchSize),
		seen:          make(map[string]time.Time),
		ready:         make(chan struct{}),
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		dedupWindow:   DefaultDedupWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// hash16 returns the first 16 hex characters of SHA-256(text), the dedup key.
func hash16(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// Put enqueues item unless its content hash was seen within the dedup
// window or the queue has exceeded its pragmatic pending limit. Returns
// whether the item was enqueued.
func (q *Queue) Put(item ingest.Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	q.evictExpiredLocked(now)

	if len(q.items) >= maxPending {
		return false
	}

	h := hash16(item.Text)
	if _, dup := q.seen[h]; dup {
		return false
	}
	if q.cursors != nil && q.cursors.SeenRecently(h, now, q.dedupWindow) {
		q.seen[h] = now
		return false
	}

	q.seen[h] = now
	q.items = append(q.items, item)

	if q.cursors != nil {
		q.cursors.RecordSeen(h, now)
		q.cursors.Prune(now, q.dedupWindow)
	}

	if len(q.items) >= q.batchSize && !q.readySignaled {
		q.readySignaled = true
		close(q.ready)
	}
	return true
}

// evictExpiredLocked drops dedup entries older than the dedup window.
// Caller must hold q.mu.
func (q *Queue) evictExpiredLocked(now time.Time) {
	for h, t := range q.seen {
		if now.Sub(t) > q.dedupWindow {
			delete(q.seen, h)
		}
	}
}

// PendingCount returns the number of items currently queued.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// GetBatch waits for the queue to reach batchSize, or for timeout to
// elapse, whichever comes first, then drains up to batchSize items in
// enqueue order. A negative timeout waits up to the configured flush
// interval; a zero timeout returns immediately without waiting. An empty
// result is legal when nothing arrived in time.
func (q *Queue) GetBatch(timeout time.Duration) []ingest.Item {
	if timeout < 0 {
		timeout = q.flushInterval
	}

	q.mu.Lock()
	if len(q.items) < q.batchSize && timeout > 0 {
		ch := q.ready
		q.mu.Unlock()

		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-ch:
		case <-timer.C:
		}
		q.mu.Lock()
	}
	defer q.mu.Unlock()

	n := len(q.items)
	if n > q.batchSize {
		n = q.batchSize
	}
	batch := make([]ingest.Item, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]

	if q.readySignaled {
		q.ready = make(chan struct{})
		q.readySignaled = false
	}

	return batch
}
