// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package httpapi implements the daemon's local-loopback HTTP surface:
// note/terminal/claude-code ingestion, search/recall/insight/categories
// reads, to-do listing, core memory, service status, and Prometheus
// metrics.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AustinWp/soul-agent/internal/dailylog"
	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/insight"
	"github.com/AustinWp/soul-agent/internal/llm"
	"github.com/AustinWp/soul-agent/internal/metrics"
	"github.com/AustinWp/soul-agent/internal/producers"
	"github.com/AustinWp/soul-agent/internal/queue"
	"github.com/AustinWp/soul-agent/internal/todo"
	"github.com/AustinWp/soul-agent/internal/vault"
)

// Server holds every dependency the HTTP handlers read from or write to.
type Server struct {
	Queue     *queue.Queue
	DailyLog  *dailylog.Store
	Todos     *todo.Store
	Vault     *vault.Vault
	Terminal  *producers.TerminalSink
	Provider  llm.Provider
	Logger    *slog.Logger
	StartedAt time.Time
}

// New constructs a Server and its routed mux.
func New(q *queue.Queue, dl *dailylog.Store, todos *todo.Store, v *vault.Vault, terminal *producers.TerminalSink, provider llm.Provider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Queue:     q,
		DailyLog:  dl,
		Todos:     todos,
		Vault:     v,
		Terminal:  terminal,
		Provider:  provider,
		Logger:    logger,
		StartedAt: time.Now(),
	}
}

// Handler returns the routed http.Handler, instrumenting every request
// with the shared metrics package.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/note", s.handleNote)
	mux.HandleFunc("/terminal/cmd", s.handleTerminalCmd)
	mux.HandleFunc("/ingest/claudecode", s.handleIngestClaudeCode)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/recall", s.handleRecall)
	mux.HandleFunc("/insight", s.handleInsight)
	mux.HandleFunc("/categories", s.handleCategories)
	mux.HandleFunc("/todo/list", s.handleTodoList)
	mux.HandleFunc("/todo/progress/", s.handleTodoProgress)
	mux.HandleFunc("/core", s.handleCore)
	mux.HandleFunc("/service/status", s.handleServiceStatus)
	mux.Handle("/metrics", metrics.Handler())

	return instrument(mux)
}

// instrument wraps h so every request's path and outcome feed the shared
// HTTP metrics, using the request's registered pattern rather than the raw
// path so dynamic segments (/todo/progress/{id}) collapse to one series.
// A request that matched no pattern is recorded under its raw path.
func instrument(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		metrics.ObserveHTTP(route, statusClass(rec.status), time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

func (s *Server) enqueue(source ingest.Source, text string) {
	if s.Queue.Put(ingest.Item{Text: text, Source: source, Timestamp: time.Now()}) {
		metrics.ItemPut(string(source))
	} else {
		metrics.ItemDropped(string(source))
	}
}
