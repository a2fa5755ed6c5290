// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinWp/soul-agent/internal/ingest"
)

func openTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := Open(t.TempDir())
	require.NoError(t, err)
	return v
}

func TestRead_MissingFileReturnsNilNoError(t *testing.T) {
	v := openTestVault(t)
	data, err := v.Read(DirLogs, "absent.md")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	v := openTestVault(t)
	require.NoError(t, v.Write(DirLogs, "2026-03-01.md", []byte("hello vault")))

	data, err := v.Read(DirLogs, "2026-03-01.md")
	require.NoError(t, err)
	assert.Equal(t, "hello vault", string(data))
}

func TestWrite_Overwrites(t *testing.T) {
	v := openTestVault(t)
	require.NoError(t, v.Write(DirLogs, "f.md", []byte("first")))
	require.NoError(t, v.Write(DirLogs, "f.md", []byte("second")))

	data, err := v.Read(DirLogs, "f.md")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestDelete_ReportsWhetherRemoved(t *testing.T) {
	v := openTestVault(t)
	require.NoError(t, v.Write(DirLogs, "f.md", []byte("x")))

	removed, err := v.Delete(DirLogs, "f.md")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = v.Delete(DirLogs, "f.md")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestList_LexicographicMarkdownOnly(t *testing.T) {
	v := openTestVault(t)
	require.NoError(t, v.Write(DirLogs, "b.md", []byte("b")))
	require.NoError(t, v.Write(DirLogs, "a.md", []byte("a")))
	require.NoError(t, v.Write(DirLogs, "notes.txt", []byte("skip")))

	names, err := v.List(DirLogs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, names)
}

func TestList_MissingDirReturnsEmpty(t *testing.T) {
	v := openTestVault(t)
	names, err := v.List("nope")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPathTraversal_Rejected(t *testing.T) {
	v := openTestVault(t)

	_, err := v.Read(DirLogs, "../../etc/passwd")
	assert.Error(t, err)

	err = v.Write(DirLogs, "a/b.md", []byte("x"))
	assert.Error(t, err)

	_, err = v.Delete(DirLogs, "..")
	assert.Error(t, err)
}

func TestMove_RelocatesFile(t *testing.T) {
	v := openTestVault(t)
	require.NoError(t, v.Write(DirTodosActive, "task-deadbeef.md", []byte("task body")))

	require.NoError(t, v.Move(DirTodosActive, DirTodosDone, "task-deadbeef.md"))

	data, err := v.Read(DirTodosDone, "task-deadbeef.md")
	require.NoError(t, err)
	assert.Equal(t, "task body", string(data))

	data, err = v.Read(DirTodosActive, "task-deadbeef.md")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestIngestText_DeterministicFilename(t *testing.T) {
	v := openTestVault(t)

	name1, err := v.IngestText("same content", ingest.SourceNote)
	require.NoError(t, err)
	name2, err := v.IngestText("same content", ingest.SourceNote)
	require.NoError(t, err)

	assert.Equal(t, name1, name2, "identical text from the same source maps to the same file")

	data, err := v.Read(DirClassified, name1)
	require.NoError(t, err)
	assert.Contains(t, string(data), "same content")
}
