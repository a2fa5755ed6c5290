// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package frontmatter parses and serializes the `---`-delimited key: value
// header that prefixes every vault Markdown file.
//
// The grammar is deliberately a restricted subset of YAML: a run of
// `key: value` lines between two `---` lines, values trimmed, no nesting,
// no multi-line scalars. It is not a general YAML parser.
package frontmatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CanonicalOrder is the fixed key order used when serializing frontmatter.
// Keys not present in this list are emitted afterward in lexicographic order.
var CanonicalOrder = []string{
	"id", "type", "priority", "status", "category", "tags", "importance",
	"created", "expires", "last_activity", "activity_log", "auto_detected", "date",
}

// ttlByPriority maps a priority level to its frontmatter TTL. A zero
// duration means no expires field is set.
var ttlByPriority = map[string]time.Duration{
	"P0": 0,
	"P1": 30 * 24 * time.Hour,
	"P2": 14 * 24 * time.Hour,
	"P3": 7 * 24 * time.Hour,
}

const dateLayout = "2006-01-02"

// Parse splits raw file content into its frontmatter fields and body.
//
// If the content does not begin with a `---` line, the entire input is
// treated as body and an empty fields map is returned.
func Parse(data []byte) (fields map[string]string, body string) {
	fields = make(map[string]string)
	text := string(data)

	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return fields, text
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			for _, line := range lines[1:i] {
				key, value, ok := splitKV(line)
				if ok {
					fields[key] = value
				}
			}
			return fields, strings.Join(lines[i+1:], "\n")
		}
	}

	// Opening delimiter with no terminator: treat everything as body.
	return make(map[string]string), text
}

func splitKV(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(line[idx+1:])
	return key, value, true
}

// Build serializes fields and body back into frontmatter-prefixed content.
//
// Keys are emitted in CanonicalOrder first, then any remaining keys in
// lexicographic order. Keys with an empty value are still emitted, since
// their presence can be load-bearing (e.g. an empty activity_log).
func Build(fields map[string]string, body string) []byte {
	var out strings.Builder
	out.WriteString("---\n")

	emitted := make(map[string]bool, len(fields))
	for _, key := range CanonicalOrder {
		value, present := fields[key]
		if !present {
			continue
		}
		fmt.Fprintf(&out, "%s: %s\n", key, value)
		emitted[key] = true
	}

	var rest []string
	for key := range fields {
		if !emitted[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		fmt.Fprintf(&out, "%s: %s\n", key, fields[key])
	}

	out.WriteString("---\n")
	out.WriteString(body)
	return []byte(out.String())
}

// AddClassification sets the category, tags and importance fields.
func AddClassification(fields map[string]string, category string, tags []string, importance int) {
	fields["category"] = category
	fields["tags"] = strings.Join(tags, ",")
	fields["importance"] = strconv.Itoa(importance)
}

// AddLifecycle sets priority, created (now, UTC date) and expires per the
// fixed TTL table (P0 never expires).
func AddLifecycle(fields map[string]string, priority string) {
	now := time.Now().UTC()
	fields["priority"] = priority
	fields["created"] = now.Format(dateLayout)

	ttl, ok := ttlByPriority[priority]
	if ok && ttl > 0 {
		fields["expires"] = now.Add(ttl).Format(dateLayout)
	} else {
		delete(fields, "expires")
	}
}

// ActivityEntry is one date's worth of recorded activity.
type ActivityEntry struct {
	Date    string
	Count   int
	Sources []string
}

// ParseActivityLog decodes the `YYYY-MM-DD:N:src1,src2|...` encoding.
// An empty string yields a nil slice.
func ParseActivityLog(s string) []ActivityEntry {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	entries := make([]ActivityEntry, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 3)
		if len(fields) != 3 {
			continue
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		var sources []string
		if fields[2] != "" {
			sources = strings.Split(fields[2], ",")
		}
		entries = append(entries, ActivityEntry{
			Date:    fields[0],
			Count:   count,
			Sources: sources,
		})
	}
	return entries
}

// FormatActivityLog encodes entries back into the `YYYY-MM-DD:N:src1,src2|...` form.
func FormatActivityLog(entries []ActivityEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s:%d:%s", e.Date, e.Count, strings.Join(e.Sources, ",")))
	}
	return strings.Join(parts, "|")
}

// AddActivityEntry appends or merges a (date, source) observation into the
// activity_log field. A duplicate date increments its count and unions its
// source list (without duplicating source); entries stay date-ordered.
func AddActivityEntry(fields map[string]string, date, source string) {
	entries := ParseActivityLog(fields["activity_log"])

	idx := -1
	for i, e := range entries {
		if e.Date == date {
			idx = i
			break
		}
	}

	if idx >= 0 {
		entries[idx].Count++
		if !containsString(entries[idx].Sources, source) {
			entries[idx].Sources = append(entries[idx].Sources, source)
		}
	} else {
		entries = append(entries, ActivityEntry{Date: date, Count: 1, Sources: []string{source}})
		sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	}

	fields["activity_log"] = FormatActivityLog(entries)
	fields["last_activity"] = maxDate(entries)
}

func maxDate(entries []ActivityEntry) string {
	max := ""
	for _, e := range entries {
		if e.Date > max {
			max = e.Date
		}
	}
	return max
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// ParseTags splits a comma-separated tags value into a trimmed slice.
// An empty string yields a nil slice.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
