// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/insight"
	"github.com/AustinWp/soul-agent/internal/producers"
	"github.com/AustinWp/soul-agent/internal/todo"
	"github.com/AustinWp/soul-agent/internal/vault"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.enqueue(ingest.SourceNote, body.Text)
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (s *Server) handleTerminalCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var body struct {
		ConnID   string `json:"conn_id"`
		Command  string `json:"command"`
		ExitCode int    `json:"exit_code"`
		Duration int64  `json:"duration_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Command) == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}
	connID := body.ConnID
	if connID == "" {
		connID = r.RemoteAddr
	}
	if s.Terminal != nil {
		s.Terminal.Record(connID, producers.Command{
			Command:  body.Command,
			ExitCode: body.ExitCode,
			Duration: time.Duration(body.Duration) * time.Millisecond,
		})
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (s *Server) handleIngestClaudeCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.enqueue(ingest.SourceClaudeCode, body.Text)
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	var matches []string
	for _, date := range recentDates(14) {
		body, err := s.DailyLog.Read(date)
		if err != nil || body == "" {
			continue
		}
		for _, line := range strings.Split(body, "\n") {
			if line == "" {
				continue
			}
			if strings.Contains(strings.ToLower(line), strings.ToLower(q)) {
				matches = append(matches, line)
				if len(matches) >= limit {
					writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
					return
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	dates, err := periodDates(period)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var sections []map[string]string
	for _, date := range dates {
		body, err := s.DailyLog.Read(date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "read daily log: "+err.Error())
			return
		}
		if body == "" {
			continue
		}
		sections = append(sections, map[string]string{"date": date, "body": body})
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "logs": sections})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" || date == "today" {
		date = time.Now().Local().Format(dateLayout)
	}

	report, err := insight.Generate(r.Context(), date, s.DailyLog, s.Todos, s.Provider)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate insight: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "markdown": report.Markdown(), "has_data": report.HasData})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	dates, err := periodDates(period)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var all []insight.Entry
	for _, date := range dates {
		body, err := s.DailyLog.Read(date)
		if err != nil || body == "" {
			continue
		}
		all = append(all, insight.ParseLines(body)...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "categories": insight.Categorize(all)})
}

func (s *Server) handleTodoList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "active"
	}

	var filter todo.Filter
	switch status {
	case "active":
		filter = todo.FilterActive
	case "stalled":
		filter = todo.FilterStalled
	case "all":
		filter = todo.FilterAll
	default:
		writeError(w, http.StatusBadRequest, "status must be active, stalled, or all")
		return
	}

	items, err := s.Todos.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list todos: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": items})
}

func (s *Server) handleTodoProgress(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/todo/progress/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	items, err := s.Todos.List(todo.FilterAll)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list todos: "+err.Error())
		return
	}
	for _, item := range items {
		if item.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{
				"id":       item.ID,
				"text":     item.Text,
				"activity": item.ActivityLog,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "todo not found: "+id)
}

func (s *Server) handleCore(w http.ResponseWriter, r *http.Request) {
	data, err := s.Vault.Read(vault.DirCore, "MEMORY.md")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read core memory: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": string(data)})
}

func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptime_secs":   int(time.Since(s.StartedAt).Seconds()),
		"queue_pending": s.Queue.PendingCount(),
	})
}

func recentDates(n int) []string {
	dates := make([]string, n)
	now := time.Now().Local()
	for i := 0; i < n; i++ {
		dates[i] = now.AddDate(0, 0, -i).Format(dateLayout)
	}
	return dates
}

func periodDates(period string) ([]string, error) {
	now := time.Now().Local()
	switch period {
	case "", "today":
		return []string{now.Format(dateLayout)}, nil
	case "week":
		return recentDates(7), nil
	case "month":
		return recentDates(30), nil
	default:
		return nil, errUnknownPeriod(period)
	}
}

type errUnknownPeriod string

func (e errUnknownPeriod) Error() string {
	return "unknown period: " + string(e)
}
