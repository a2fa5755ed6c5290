// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package classifier turns a batch of ingest items into classified items
// by prompting an LLM for strict-JSON output, degrading to a rule table
// on any failure: network error, timeout, invalid JSON, or a response
// whose length does not match the batch.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AustinWp/soul-agent/internal/ingest"
	"github.com/AustinWp/soul-agent/internal/llm"
	"github.com/AustinWp/soul-agent/internal/metrics"
	"github.com/AustinWp/soul-agent/internal/todo"
)

// DefaultTimeout bounds a single Classify call's LLM round-trip.
const DefaultTimeout = 30 * time.Second

// DefaultMaxTokens is the requested completion length for the batch prompt.
const DefaultMaxTokens = 1024

const systemDirective = `You are an activity classifier. You will be given a list of active ` +
	`to-do items and a batch of raw activity entries. Respond with ONLY a JSON array, one ` +
	`object per entry in the same order, with fields: category (one of coding, work, ` +
	`learning, communication, browsing, life), tags (array of up to 5 short strings), ` +
	`importance (integer 1-5), summary (<=30 characters), action_type (one of new_task, ` +
	`task_progress, task_done, or null), action_detail (string, required when action_type ` +
	`is set), related_todo_id (string id from the active to-do list, or null). Do not ` +
	`include any text outside the JSON array.`

// fallbackTable is the source -> category table applied whenever the LLM
// path fails for any reason; fallback always assigns importance 3.
var fallbackTable = map[ingest.Source]ingest.Category{
	ingest.SourceTerminal:    ingest.CategoryCoding,
	ingest.SourceBrowser:     ingest.CategoryBrowsing,
	ingest.SourceClaudeCode:  ingest.CategoryCoding,
	ingest.SourceInputMethod: ingest.CategoryCommunication,
}

// Classifier calls an LLM provider to classify a batch, falling back to
// the rule table on any error.
type Classifier struct {
	Provider llm.Provider
	Timeout  time.Duration
	Model    string
}

// New constructs a Classifier backed by provider with the default timeout.
func New(provider llm.Provider) *Classifier {
	return &Classifier{Provider: provider, Timeout: DefaultTimeout}
}

// llmItem is one element of the LLM's expected JSON array response.
type llmItem struct {
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	Importance    int      `json:"importance"`
	Summary       string   `json:"summary"`
	ActionType    *string  `json:"action_type"`
	ActionDetail  *string  `json:"action_detail"`
	RelatedTodoID *string  `json:"related_todo_id"`
}

// Classify returns exactly len(batch) ClassifiedItems, one per input item
// in order. It never returns an error: any failure (no provider, provider
// error, invalid JSON, or a response whose length differs from the batch)
// degrades the whole batch to the fallback rule.
func (c *Classifier) Classify(ctx context.Context, batch []ingest.Item, activeTodos []todo.Summary) []ingest.Classified {
	start := time.Now()
	defer func() {
		metrics.ObserveClassifyDuration(time.Since(start).Seconds())
	}()

	if len(batch) == 0 {
		return nil
	}

	parsed, ok := c.callLLM(ctx, batch, activeTodos)
	out := make([]ingest.Classified, len(batch))

	for i, item := range batch {
		if ok && i < len(parsed) {
			out[i] = coerce(item, parsed[i])
			metrics.ClassifySuccess()
		} else {
			out[i] = fallback(item)
			metrics.ClassifyFallback()
		}
	}
	return out
}

// callLLM builds the prompt, invokes the provider and parses its
// response. ok is false for any failure: network, timeout, invalid JSON,
// or array-length mismatch.
func (c *Classifier) callLLM(ctx context.Context, batch []ingest.Item, activeTodos []todo.Summary) ([]llmItem, bool) {
	if c.Provider == nil {
		return nil, false
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := buildPrompt(batch, activeTodos)
	resp, err := c.Provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemDirective},
			{Role: "user", Content: prompt},
		},
		MaxTokens: DefaultMaxTokens,
		Model:     c.Model,
	})
	if err != nil || resp == nil {
		return nil, false
	}

	items, ok := parseResponse(resp.Message.Content)
	if !ok || len(items) != len(batch) {
		return nil, false
	}
	return items, true
}

// buildPrompt embeds the active to-dos as JSON and the batch as one
// "[source, HH:MM] text" line per item.
func buildPrompt(batch []ingest.Item, activeTodos []todo.Summary) string {
	todosJSON, err := json.Marshal(activeTodos)
	if err != nil {
		todosJSON = []byte("[]")
	}

	var lines strings.Builder
	for _, item := range batch {
		fmt.Fprintf(&lines, "[%s, %s] %s\n", item.Source, item.Timestamp.Local().Format("15:04"), item.Text)
	}

	return fmt.Sprintf("Active to-dos:\n%s\n\nBatch entries:\n%s", todosJSON, lines.String())
}

// parseResponse strips Markdown code fences and decodes a JSON array of
// llmItem. ok is false if the response is not a well-formed array.
func parseResponse(content string) ([]llmItem, bool) {
	content = stripCodeFence(content)

	var items []llmItem
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, false
	}
	return items, true
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "json" || firstLine == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// coerce validates and clamps one LLM-produced element into a
// ClassifiedItem, substituting safe defaults for invalid fields.
func coerce(item ingest.Item, li llmItem) ingest.Classified {
	category := ingest.Category(li.Category)
	if !ingest.ValidCategory(category) {
		category = ingest.CategoryWork
	}

	tags := li.Tags
	if len(tags) > 5 {
		tags = tags[:5]
	}

	summary := li.Summary
	if summary == "" {
		summary = ingest.TruncateSummary(item.Text)
	} else {
		summary = ingest.TruncateSummary(summary)
	}

	c := ingest.Classified{
		Item:       item,
		Category:   category,
		Tags:       tags,
		Importance: ingest.ClampImportance(orDefault(li.Importance, 3)),
		Summary:    summary,
	}

	if li.ActionType != nil {
		at := ingest.ActionType(*li.ActionType)
		if ingest.ValidActionType(at) {
			c.ActionType = at
			if li.ActionDetail != nil {
				c.ActionDetail = *li.ActionDetail
			}
			if li.RelatedTodoID != nil {
				c.RelatedTodoID = *li.RelatedTodoID
			}
		}
	}
	return c
}

func orDefault(n, def int) int {
	if n == 0 {
		return def
	}
	return n
}

// fallback applies the source -> category rule table. Any source not in
// the table defaults to "work".
func fallback(item ingest.Item) ingest.Classified {
	category, ok := fallbackTable[item.Source]
	if !ok {
		category = ingest.CategoryWork
	}

	return ingest.Classified{
		Item:       item,
		Category:   category,
		Importance: 3,
		Summary:    ingest.TruncateSummary(item.Text),
	}
}
