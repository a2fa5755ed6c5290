// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package producers

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/queue"
)

// ignoredDirNames are never descended into or watched.
var ignoredDirNames = map[string]bool{
	".git": true, "node_modules": true, "__pycache__": true, ".venv": true, "venv": true, ".tox": true,
}

// ignoredFileNames are never emitted regardless of extension.
var ignoredFileNames = map[string]bool{
	".DS_Store": true, "Thumbs.db": true, ".gitkeep": true,
}

// binaryExtensions are skipped outright; their content is not useful as a text preview.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".exe": true, ".dll": true,
	".so": true, ".dylib": true, ".bin": true, ".mp3": true, ".mp4": true, ".mov": true,
}

// DefaultWatchRoots names the Desktop/Documents/Downloads folders
// relative to the user's home directory.
func DefaultWatchRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var roots []string
	for _, name := range []string{"Desktop", "Documents", "Downloads"} {
		roots = append(roots, filepath.Join(home, name))
	}
	return roots
}

// debounceInterval is the minimum quiet period after the last event on a
// path before it is read and enqueued. Editors and build tools routinely
// fire several writes in a row for one logical save; without this, each
// one of those would become its own queue item.
const debounceInterval = 500 * time.Millisecond

// FilesystemWatcher subscribes to create/write events under a set of
// roots, filters out noise, and enqueues one item per surviving event
// once the event has gone debounceInterval without a follow-up write.
type FilesystemWatcher struct {
	Queue  *queue.Queue
	Roots  []string
	Logger *slog.Logger

	watcher *fsnotify.Watcher
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Event
	timer     *time.Timer
}

// NewFilesystemWatcher constructs a watcher over roots (DefaultWatchRoots if empty).
func NewFilesystemWatcher(q *queue.Queue, roots []string, logger *slog.Logger) *FilesystemWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(roots) == 0 {
		roots = DefaultWatchRoots()
	}
	return &FilesystemWatcher{
		Queue:   q,
		Roots:   roots,
		Logger:  logger,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		pending: make(map[string]fsnotify.Event),
	}
}

// Run subscribes to fsnotify events under every root and processes
// them until Stop is called. It returns promptly, logging once, if
// the platform denies the watch subscription.
func (w *FilesystemWatcher) Run() {
	defer close(w.stopped)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.Logger.Warn("producer.filesystem.unavailable", "err", err)
		return
	}
	w.watcher = watcher
	defer watcher.Close()

	for _, root := range w.Roots {
		if err := w.addWatches(root); err != nil {
			w.Logger.Warn("producer.filesystem.watch_root.error", "root", root, "err", err)
		}
	}

	w.wg.Add(1)
	go w.processEvents()

	<-w.stop
	w.wg.Wait()
}

// addWatches recursively subscribes to root and its subdirectories,
// skipping ignored directory names and symlink cycles.
func (w *FilesystemWatcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if ignoredDirNames[filepath.Base(path)] {
			return filepath.SkipDir
		}

		real, err := filepath.EvalSymlinks(path)
		if err == nil {
			if visited[real] {
				return filepath.SkipDir
			}
			visited[real] = true
		}

		if err := w.watcher.Add(path); err != nil {
			w.Logger.Warn("producer.filesystem.watch_dir.error", "path", path, "err", err)
		}
		return nil
	})
}

func (w *FilesystemWatcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// handleEvent applies the cheap, stateless filters (event kind, ignored
// names, binary extensions) and hands anything left to the debouncer.
// It never reads file content itself; that happens in flushPending once
// a path has gone quiet.
func (w *FilesystemWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	base := filepath.Base(event.Name)
	if ignoredFileNames[base] {
		return
	}
	if binaryExtensions[strings.ToLower(filepath.Ext(base))] {
		return
	}
	for _, part := range strings.Split(event.Name, string(filepath.Separator)) {
		if ignoredDirNames[part] {
			return
		}
	}

	w.addPending(event)
}

// addPending records the latest event for a path and resets the shared
// debounce timer, so a burst of writes to one path collapses to a
// single flush debounceInterval after the last one.
func (w *FilesystemWatcher) addPending(event fsnotify.Event) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[event.Name] = event
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceInterval, w.flushPending)
}

// flushPending emits one queue item per path that survived the debounce
// window, re-checking the path (it may have disappeared, or turned into
// a directory) before reading its content.
func (w *FilesystemWatcher) flushPending() {
	w.pendingMu.Lock()
	events := w.pending
	w.pending = make(map[string]fsnotify.Event)
	w.pendingMu.Unlock()

	for path, event := range events {
		w.emit(path, event)
	}
}

func (w *FilesystemWatcher) emit(path string, event fsnotify.Event) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	base := filepath.Base(path)
	action := "modified"
	if event.Op&fsnotify.Create != 0 {
		action = "created"
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return
	}

	preview := rawPreview(content)
	if strings.ToLower(filepath.Ext(base)) == ".go" {
		if goPreview, ok := goSourcePreview(content); ok {
			preview = goPreview
		}
	}

	w.Queue.Put(ingest.Item{
		Text:      fmt.Sprintf("[%s] %s: %s", action, base, preview),
		Source:    ingest.SourceFile,
		Timestamp: time.Now(),
		Meta:      map[string]string{"path": path, "action": action, "filename": base},
	})
}

func rawPreview(content []byte) string {
	if len(content) > maxPreviewChars {
		content = content[:maxPreviewChars]
	}
	return string(content)
}

// Stop signals the watcher to exit and blocks until it does. Events still
// inside the debounce window at shutdown are dropped rather than flushed;
// retrying a flush against a queue that may already be draining for
// shutdown risks a deadlock for no benefit, since the process is exiting
// anyway.
func (w *FilesystemWatcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.stopped
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
}
