// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryCoding))
	assert.True(t, ValidCategory(CategoryLife))
	assert.False(t, ValidCategory(Category("unknown")))
}

func TestValidActionType(t *testing.T) {
	assert.True(t, ValidActionType(ActionTaskDone))
	assert.False(t, ValidActionType(ActionType("bogus")))
}

func TestClampImportance(t *testing.T) {
	assert.Equal(t, 1, ClampImportance(0))
	assert.Equal(t, 1, ClampImportance(-5))
	assert.Equal(t, 5, ClampImportance(9))
	assert.Equal(t, 3, ClampImportance(3))
}

func TestTruncateSummary(t *testing.T) {
	assert.Equal(t, "short", TruncateSummary("short"))
	long := strings.Repeat("a", 40)
	assert.Len(t, TruncateSummary(long), 30)
}
