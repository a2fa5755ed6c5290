// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package producers implements the long-running tasks that push raw
// ingest items into the shared queue: clipboard polling, browser
// history polling, filesystem watching, keystroke tapping, and the
// terminal-command sink fed by the HTTP surface. Each runs on its own
// task with a dedicated stop flag and never blocks the others.
package producers

import (
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/queue"
)

// ClipboardPollInterval is how often the clipboard poller samples the platform clipboard.
const ClipboardPollInterval = 3 * time.Second

// ClipboardMaxChars truncates an over-long clipboard read before it is enqueued.
const ClipboardMaxChars = 10_000

// ClipboardReader reads the current platform clipboard text.
type ClipboardReader interface {
	Read() (string, error)
}

// execClipboardReader shells out to a platform paste command. It is
// chosen at construction time by probing PATH for a known command;
// construction yields a nil reader (disabling the poller) when none
// is found.
type execClipboardReader struct {
	name string
	args []string
}

func (r execClipboardReader) Read() (string, error) {
	out, err := exec.Command(r.name, r.args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// detectClipboardReader probes PATH for a supported clipboard command
// in order of preference, returning nil if none is available.
func detectClipboardReader() ClipboardReader {
	candidates := []execClipboardReader{
		{name: "pbpaste"},
		{name: "wl-paste", args: []string{"-n"}},
		{name: "xclip", args: []string{"-selection", "clipboard", "-o"}},
		{name: "xsel", args: []string{"--clipboard", "--output"}},
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c.name); err == nil {
			return c
		}
	}
	return nil
}

// ClipboardPoller polls the platform clipboard and enqueues new,
// non-empty text that differs from the last emitted value.
type ClipboardPoller struct {
	Queue    *queue.Queue
	Reader   ClipboardReader
	Interval time.Duration
	Logger   *slog.Logger

	last    string
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewClipboardPoller constructs a poller. If reader is nil, the
// platform is probed for a supported clipboard command; when none is
// found, Run logs once and returns immediately, degrading silently.
func NewClipboardPoller(q *queue.Queue, reader ClipboardReader, logger *slog.Logger) *ClipboardPoller {
	if logger == nil {
		logger = slog.Default()
	}
	if reader == nil {
		reader = detectClipboardReader()
	}
	return &ClipboardPoller{
		Queue:    q,
		Reader:   reader,
		Interval: ClipboardPollInterval,
		Logger:   logger,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run polls until Stop is called. It returns immediately, without
// blocking, if no clipboard backend is available.
func (p *ClipboardPoller) Run() {
	defer close(p.stopped)

	if p.Reader == nil {
		p.Logger.Warn("producer.clipboard.unavailable", "reason", "no clipboard backend on PATH")
		return
	}

	interval := p.Interval
	if interval <= 0 {
		interval = ClipboardPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *ClipboardPoller) poll() {
	text, err := p.Reader.Read()
	if err != nil {
		return
	}
	if text == "" || text == p.last {
		return
	}
	p.last = text

	if len(text) > ClipboardMaxChars {
		text = text[:ClipboardMaxChars]
	}

	p.Queue.Put(ingest.Item{
		Text:      strings.TrimRight(text, "\n"),
		Source:    ingest.SourceClipboard,
		Timestamp: time.Now(),
	})
}

// Stop signals the poller to exit and blocks until it does.
func (p *ClipboardPoller) Stop() {
	p.once.Do(func() { close(p.stop) })
	<-p.stopped
}
