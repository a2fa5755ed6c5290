// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package producers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/queue"
)

// TerminalFlushIdle is how long a connection's buffer must sit untouched before it is flushed.
const TerminalFlushIdle = 5 * time.Second

// TerminalFlushCount is the buffered-command count that forces an immediate flush.
const TerminalFlushCount = 10

// Command is one shell invocation reported by the external hook.
type Command struct {
	Command  string
	ExitCode int
	Duration time.Duration
}

// TerminalSink buffers commands per connection (the HTTP surface's
// shell-hook identifier, typically the hook's PID or session id) and
// flushes each connection's buffer independently, either on command
// count or idle timeout.
type TerminalSink struct {
	Queue *queue.Queue

	mu      sync.Mutex
	buffers map[string]*terminalBuffer
	closed  bool
}

type terminalBuffer struct {
	mu       sync.Mutex
	commands []Command
	timer    *time.Timer
}

// NewTerminalSink constructs an empty sink.
func NewTerminalSink(q *queue.Queue) *TerminalSink {
	return &TerminalSink{Queue: q, buffers: make(map[string]*terminalBuffer)}
}

// Record appends cmd to connID's buffer, flushing immediately if the
// buffer reaches TerminalFlushCount, and otherwise (re)starting the
// idle timer.
func (s *TerminalSink) Record(connID string, cmd Command) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	buf, ok := s.buffers[connID]
	if !ok {
		buf = &terminalBuffer{}
		s.buffers[connID] = buf
	}
	s.mu.Unlock()

	buf.mu.Lock()
	buf.commands = append(buf.commands, cmd)
	full := len(buf.commands) >= TerminalFlushCount
	if buf.timer != nil {
		buf.timer.Stop()
	}
	if !full {
		buf.timer = time.AfterFunc(TerminalFlushIdle, func() { s.flush(connID) })
	}
	buf.mu.Unlock()

	if full {
		s.flush(connID)
	}
}

// flush drains connID's buffer and enqueues a single concatenated item, if non-empty.
func (s *TerminalSink) flush(connID string) {
	s.mu.Lock()
	buf, ok := s.buffers[connID]
	s.mu.Unlock()
	if !ok {
		return
	}

	buf.mu.Lock()
	commands := buf.commands
	buf.commands = nil
	if buf.timer != nil {
		buf.timer.Stop()
	}
	buf.mu.Unlock()

	if len(commands) == 0 {
		return
	}

	s.Queue.Put(ingest.Item{
		Text:      summarizeCommands(commands),
		Source:    ingest.SourceTerminal,
		Timestamp: time.Now(),
	})
}

func summarizeCommands(commands []Command) string {
	var parts []string
	for _, c := range commands {
		parts = append(parts, fmt.Sprintf("%s (exit %d, %s)", c.Command, c.ExitCode, c.Duration))
	}
	return strings.Join(parts, "; ")
}

// Close flushes every pending connection buffer and stops accepting new records.
func (s *TerminalSink) Close() {
	s.mu.Lock()
	s.closed = true
	connIDs := make([]string, 0, len(s.buffers))
	for id := range s.buffers {
		connIDs = append(connIDs, id)
	}
	s.mu.Unlock()

	for _, id := range connIDs {
		s.flush(id)
	}
}
