// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinWp/soul-agent/internal/dailylog"
	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/producers"
	"github.com/AustinWp/soul-agent/internal/queue"
	"github.com/AustinWp/soul-agent/internal/todo"
	"github.com/AustinWp/soul-agent/internal/vault"
)

func newTestServer(t *testing.T) (*Server, *vault.Vault) {
	t.Helper()
	v, err := vault.Open(t.TempDir())
	require.NoError(t, err)
	q := queue.New(queue.WithBatchSize(100))
	dl := dailylog.New(v)
	todos := todo.New(v)
	term := producers.NewTerminalSink(q)
	return New(q, dl, todos, v, term, nil, nil), v
}

func TestHandleNote_EnqueuesItem(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"text": "remember to call mom"})
	req := httptest.NewRequest(http.MethodPost, "/note", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, s.Queue.PendingCount())
}

func TestHandleNote_RejectsEmptyText(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"text": ""})
	req := httptest.NewRequest(http.MethodPost, "/note", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTerminalCmd_RecordsAgainstSink(t *testing.T) {
	s, _ := newTestServer(t)
	for i := 0; i < producers.TerminalFlushCount; i++ {
		body, _ := json.Marshal(map[string]any{"conn_id": "conn-1", "command": "ls", "exit_code": 0})
		req := httptest.NewRequest(http.MethodPost, "/terminal/cmd", bytes.NewReader(body))
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	batch := s.Queue.GetBatch(0)
	require.Len(t, batch, 1)
	assert.Equal(t, ingest.SourceTerminal, batch[0].Source)
}

func TestHandleTodoList_DefaultsToActive(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.Todos.Create("write tests", "P2", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/todo/list", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "write tests")
}

func TestHandleTodoProgress_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/todo/progress/deadbeef", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSearch_FindsSubstringAcrossDays(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.DailyLog.Append("fixed the flaky test", ingest.SourceTerminal, time.Now(), ingest.CategoryCoding, nil, 3))
	require.NoError(t, s.DailyLog.Append("flaky network again", ingest.SourceNote, time.Now().AddDate(0, 0, -1), ingest.CategoryWork, nil, 3))

	req := httptest.NewRequest(http.MethodGet, "/search?q=flaky", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "flaky")
	assert.Contains(t, w.Body.String(), "fixed the flaky test")
	assert.Contains(t, w.Body.String(), "flaky network again")
}

func TestHandleServiceStatus_ReportsOK(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/service/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHandleCore_ReturnsVaultContent(t *testing.T) {
	s, v := newTestServer(t)
	require.NoError(t, v.Write(vault.DirCore, "MEMORY.md", []byte("hello core")))

	req := httptest.NewRequest(http.MethodGet, "/core", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello core")
}
