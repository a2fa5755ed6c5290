// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package producers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoSourcePreview_FunctionsAndTypes(t *testing.T) {
	src := []byte(`package classifier

type Batch struct {
	Items []string
}

func New() *Classifier {
	return nil
}

func (c *Classifier) Classify() {
}
`)
	preview, ok := goSourcePreview(src)
	require.True(t, ok)
	assert.Contains(t, preview, "type Batch struct")
	assert.Contains(t, preview, "func New")
	assert.Contains(t, preview, "func (c *Classifier) Classify")
}

func TestGoSourcePreview_EmptyFileFallsBack(t *testing.T) {
	_, ok := goSourcePreview([]byte("package empty\n"))
	assert.False(t, ok)
}

func TestGoSourcePreview_InvalidGoFallsBack(t *testing.T) {
	_, ok := goSourcePreview([]byte("{ this is not go at all !!! "))
	assert.False(t, ok)
}
