// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package insight generates the daily activity report: per-category time
// allocation, to-do tracking, representative entries, and an optional
// LLM-authored work-advice section.
package insight

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/AustinWp/soul-agent/internal/dailylog"
	"github.com/AustinWp/soul-agent/internal/llm"
	"github.com/AustinWp/soul-agent/internal/todo"
)

const dateLayout = "2006-01-02"

// lineRe matches one daily-log line, category optional per spec.md §6.
var lineRe = regexp.MustCompile(`\[(\d{2}:\d{2})\]\s+\((\w[\w-]*)\)\s*(?:\[(\w+)\])?\s*(.*)`)

// Entry is one parsed daily-log line.
type Entry struct {
	Time     string
	Source   string
	Category string
	Text     string
}

// Report is a generated insight report, Markdown-ready.
type Report struct {
	Date       string
	HasData    bool
	Categories map[string]CategoryStat
	DoneToday  []string
	Active     []string
	Stalled    []string
	WorkAdvice string
}

// CategoryStat is one category's share of a day's classified entries.
type CategoryStat struct {
	Count   int
	Percent int
	Top     []string
}

// Generate produces the report for date (YYYY-MM-DD, local calendar day),
// reading dailyLog and todos, and calling provider for the work-advice
// section if non-nil. A missing daily log yields a report with
// HasData == false rather than an error.
func Generate(ctx context.Context, date string, dl *dailylog.Store, todos *todo.Store, provider llm.Provider) (*Report, error) {
	body, err := dl.Read(date)
	if err != nil {
		return nil, err
	}

	r := &Report{Date: date, Categories: make(map[string]CategoryStat)}
	if body == "" {
		return r, nil
	}
	r.HasData = true

	entries := ParseLines(body)
	r.Categories = Categorize(entries)

	if err := addTodoSections(r, todos, date); err != nil {
		return nil, err
	}

	if provider != nil {
		r.WorkAdvice = workAdvice(ctx, provider, r)
	}

	return r, nil
}

// ParseLines parses every daily-log line in body via the daemon's standard
// line regex, silently skipping anything that doesn't match.
func ParseLines(body string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(body, "\n") {
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, Entry{Time: m[1], Source: m[2], Category: m[3], Text: m[4]})
	}
	return entries
}

// Categorize computes per-category counts, percentages rounded down and up to
// three representative entries per category, ignoring entries with no
// category.
func Categorize(entries []Entry) map[string]CategoryStat {
	counts := make(map[string]int)
	texts := make(map[string][]string)
	total := 0

	for _, e := range entries {
		cat := e.Category
		if cat == "" {
			continue
		}
		counts[cat]++
		texts[cat] = append(texts[cat], e.Text)
		total++
	}

	stats := make(map[string]CategoryStat, len(counts))
	for cat, n := range counts {
		top := texts[cat]
		if len(top) > 3 {
			top = top[:3]
		}
		pct := 0
		if total > 0 {
			pct = (n * 100) / total
		}
		stats[cat] = CategoryStat{Count: n, Percent: pct, Top: top}
	}
	return stats
}

func addTodoSections(r *Report, todos *todo.Store, date string) error {
	active, err := todos.List(todo.FilterActive)
	if err != nil {
		return err
	}
	for _, item := range active {
		r.Active = append(r.Active, summarize(item))
	}

	stalled, err := todos.Stalled(todo.DefaultStaleDays)
	if err != nil {
		return err
	}
	for _, item := range stalled {
		r.Stalled = append(r.Stalled, summarize(item))
	}

	done, err := todos.List(todo.FilterDone)
	if err != nil {
		return err
	}
	for _, item := range done {
		if completedOn(item, date) {
			r.DoneToday = append(r.DoneToday, summarize(item))
		}
	}
	return nil
}

func summarize(item todo.Item) string {
	text := item.Text
	if len(text) > 60 {
		text = text[:60]
	}
	return strings.TrimSpace(text)
}

// completedOn reports whether item's most recent activity_log entry (its
// last touch before the active->done move) falls on date; to-dos carry no
// separate completion timestamp, so last_activity is the best signal.
func completedOn(item todo.Item, date string) bool {
	if item.LastActivity != "" {
		return item.LastActivity == date
	}
	return item.Created == date
}

// workAdvice makes a single LLM call with the partial report as context,
// returning an empty string (omitting the section) on any failure.
func workAdvice(ctx context.Context, provider llm.Provider, r *Report) string {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a concise productivity coach. Given a day's activity summary, offer 2-3 sentences of actionable work advice. No preamble."},
			{Role: "user", Content: r.promptContext()},
		},
		MaxTokens: 256,
	})
	if err != nil || resp == nil {
		return ""
	}
	return strings.TrimSpace(resp.Message.Content)
}

func (r *Report) promptContext() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", r.Date)
	for cat, stat := range r.Categories {
		fmt.Fprintf(&b, "%s: %d%%\n", cat, stat.Percent)
	}
	fmt.Fprintf(&b, "Active to-dos: %d, stalled: %d, done today: %d\n", len(r.Active), len(r.Stalled), len(r.DoneToday))
	return b.String()
}

// Markdown assembles the report into its fixed section order: time
// allocation, task tracking, core topics, work advice. The last section
// is omitted entirely when WorkAdvice is empty.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Insight Report — %s\n\n", r.Date)

	if !r.HasData {
		b.WriteString("No activity recorded for this date.\n")
		return b.String()
	}

	b.WriteString("## Time Allocation\n\n")
	for _, cat := range sortedCategories(r.Categories) {
		stat := r.Categories[cat]
		fmt.Fprintf(&b, "- **%s**: %d%% (%d entries)\n", cat, stat.Percent, stat.Count)
	}
	b.WriteString("\n## Task Tracking\n\n")
	writeList(&b, "Done today", r.DoneToday)
	writeList(&b, "Active", r.Active)
	writeList(&b, "Stalled", r.Stalled)

	b.WriteString("\n## Core Topics\n\n")
	for _, cat := range sortedCategories(r.Categories) {
		stat := r.Categories[cat]
		if len(stat.Top) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", cat, strings.Join(stat.Top, "; "))
	}

	if r.WorkAdvice != "" {
		b.WriteString("\n## Work Advice\n\n")
		b.WriteString(r.WorkAdvice)
		b.WriteString("\n")
	}

	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	fmt.Fprintf(b, "**%s** (%d)\n", label, len(items))
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func sortedCategories(m map[string]CategoryStat) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
