// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package producers

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/queue"
)

// KeystrokeIdleFlush is how long the buffer must sit untouched before it is flushed.
const KeystrokeIdleFlush = 5 * time.Second

// KeystrokeMinChars is the minimum buffered length that is worth emitting.
const KeystrokeMinChars = 10

// KeyEvent is one captured character plus the context needed to decide
// whether it should be suppressed.
type KeyEvent struct {
	Char              rune
	FrontmostBundleID string
	FieldIsSecure     bool
}

// KeySource is the platform-specific keyboard event source. The
// production implementation is a system-wide event tap, necessarily
// platform-specific and requiring an accessibility-style permission
// grant; it is isolated behind this interface so the buffering and
// suppression logic stays pure Go and testable. A nil source means
// the platform denied (or does not support) the capture, and the tap
// degrades silently per its producer contract.
type KeySource interface {
	// Events returns a channel of captured key events, closed when the
	// source itself is done (platform shutdown, permission revoked).
	Events() <-chan KeyEvent
}

// KeystrokeTap buffers captured characters and flushes them as one
// ingest item per idle period, suppressing input from dedicated
// applications (terminals, tool clients) and secure fields.
type KeystrokeTap struct {
	Queue            *queue.Queue
	Source           KeySource
	DedicatedBundles map[string]bool
	IdleFlush        time.Duration
	Logger           *slog.Logger

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewKeystrokeTap constructs a tap. dedicatedBundles names the bundle
// identifiers (terminal apps, tool clients) whose input is never
// captured. A nil source disables the tap.
func NewKeystrokeTap(q *queue.Queue, source KeySource, dedicatedBundles []string, logger *slog.Logger) *KeystrokeTap {
	if logger == nil {
		logger = slog.Default()
	}
	dedicated := make(map[string]bool, len(dedicatedBundles))
	for _, b := range dedicatedBundles {
		dedicated[b] = true
	}
	return &KeystrokeTap{
		Queue:            q,
		Source:           source,
		DedicatedBundles: dedicated,
		IdleFlush:        KeystrokeIdleFlush,
		Logger:           logger,
		stop:             make(chan struct{}),
		stopped:          make(chan struct{}),
	}
}

// Run consumes key events until Stop is called or the source closes
// its channel (platform denied permission). It returns promptly,
// logging once, when no source is configured.
func (k *KeystrokeTap) Run() {
	defer close(k.stopped)

	if k.Source == nil {
		k.Logger.Warn("producer.keystroke.unavailable", "reason", "no platform key source")
		return
	}

	idle := k.IdleFlush
	if idle <= 0 {
		idle = KeystrokeIdleFlush
	}

	var buf strings.Builder
	timer := time.NewTimer(idle)
	defer timer.Stop()

	events := k.Source.Events()
	for {
		select {
		case <-k.stop:
			return
		case ev, ok := <-events:
			if !ok {
				k.flush(&buf)
				return
			}
			if k.DedicatedBundles[ev.FrontmostBundleID] || ev.FieldIsSecure {
				continue
			}
			buf.WriteRune(ev.Char)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)
		case <-timer.C:
			k.flush(&buf)
			timer.Reset(idle)
		}
	}
}

func (k *KeystrokeTap) flush(buf *strings.Builder) {
	text := buf.String()
	buf.Reset()
	if len([]rune(text)) < KeystrokeMinChars {
		return
	}
	k.Queue.Put(ingest.Item{
		Text:      text,
		Source:    ingest.SourceInputMethod,
		Timestamp: time.Now(),
	})
}

// Stop signals the tap to exit and blocks until it does.
func (k *KeystrokeTap) Stop() {
	k.once.Do(func() { close(k.stop) })
	<-k.stopped
}
