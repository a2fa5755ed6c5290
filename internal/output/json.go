// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package output provides the --json encoding helpers shared by the
// soul-agent CLI commands (status, backfill) and the agenterr package's
// fatal-error path. It complements ui (human-readable output).
//
// # Usage
//
//	type Result struct {
//	    Files int `json:"files"`
//	}
//	if err := output.JSON(&Result{Files: 42}); err != nil {
//	    agenterr.FatalError(err, true)
//	}
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSON writes data as pretty-printed JSON to stdout.
//
// The output is formatted with 2-space indentation for readability.
// This is the standard format for soul-agent's --json output.
//
// Returns an error if JSON encoding fails (e.g., for unencodable types
// like channels or functions).
func JSON(data any) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo writes data as pretty-printed JSON to the specified writer.
// agenterr.FatalError uses this to write a UserError's wire shape to stderr.
func JSONTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("JSON encoding failed: %w", err)
	}
	return nil
}
