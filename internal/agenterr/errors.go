// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package agenterr provides structured error handling for the soul-agent daemon and CLI.
//
// UserError carries three layers of context for a CLI failure: what went
// wrong, why, and how to fix it, plus an exit code so every subcommand
// exits consistently whether it's talking to a human or to --json.
//
// # Exit Codes
//
//   - ExitSuccess (0): Successful execution
//   - ExitConfig (1): Configuration errors (missing/invalid config)
//   - ExitVault (2): Vault errors (locked, unwritable, corrupted frontmatter)
//   - ExitNetwork (3): Network/API errors (LLM provider unreachable, timeout)
//   - ExitInput (4): Invalid user input (bad arguments, validation errors)
//   - ExitPermission (5): Permission denied (file access, etc.)
//   - ExitNotFound (6): Resource not found (todo, file, etc.)
//   - ExitInternal (10): Internal errors (bugs, panics)
package agenterr

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/AustinWp/soul-agent/internal/output"
)

// Exit codes for different error categories.
const (
	ExitSuccess    = 0
	ExitConfig     = 1
	ExitVault      = 2
	ExitNetwork    = 3
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6
	ExitInternal   = 10
)

// UserError represents an error with structured context for end users:
// Message (what went wrong), Cause (why), and Fix (how to resolve it).
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int

	// Err is the wrapped underlying error, if any.
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// taxonomy is the exit-code table the wrapping NewXError constructors draw
// from. NewInputError and NewNotFoundError never wrap an underlying error
// and pass their exit codes to newError directly.
var taxonomy = struct {
	config, vault, network, permission, internal struct{ exitCode int }
}{
	config:     struct{ exitCode int }{ExitConfig},
	vault:      struct{ exitCode int }{ExitVault},
	network:    struct{ exitCode int }{ExitNetwork},
	permission: struct{ exitCode int }{ExitPermission},
	internal:   struct{ exitCode int }{ExitInternal},
}

func newError(msg, cause, fix string, exitCode int, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: exitCode, Err: err}
}

// NewConfigError creates a configuration error (missing/invalid config file).
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return newError(msg, cause, fix, taxonomy.config.exitCode, err)
}

// NewVaultError creates a vault error: a locked vault directory, a write
// that could not be made atomic, or frontmatter that failed to parse.
func NewVaultError(msg, cause, fix string, err error) *UserError {
	return newError(msg, cause, fix, taxonomy.vault.exitCode, err)
}

// NewNetworkError creates a network error for an unreachable or timed-out LLM provider.
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return newError(msg, cause, fix, taxonomy.network.exitCode, err)
}

// NewInputError creates an invalid-argument error. Never wraps an underlying error.
func NewInputError(msg, cause, fix string) *UserError {
	return newError(msg, cause, fix, ExitInput, nil)
}

// NewPermissionError creates a permission-denied error (vault or lock-file access).
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return newError(msg, cause, fix, taxonomy.permission.exitCode, err)
}

// NewNotFoundError creates a resource-not-found error (a todo id, a named file). Never wraps.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return newError(msg, cause, fix, ExitNotFound, nil)
}

// NewInternalError creates an error for bugs: assertion failures, unreachable branches.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return newError(msg, cause, fix, taxonomy.internal.exitCode, err)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a colored, human-readable rendering of the error. Color
// respects NO_COLOR and the noColor argument; empty Cause/Fix are omitted.
func (e *UserError) Format(noColor bool) string {
	original := color.NoColor
	defer func() { color.NoColor = original }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteByte('\n')

	for _, line := range []struct {
		label string
		value string
		color *color.Color
	}{
		{"Cause: ", e.Cause, colorCause},
		{"Fix:   ", e.Fix, colorFix},
	} {
		if line.value == "" {
			continue
		}
		out.WriteString(line.color.Sprint(line.label))
		out.WriteString(line.value)
		out.WriteByte('\n')
	}

	return out.String()
}

// ErrorJSON is the wire shape of a UserError for --json mode and the HTTP surface.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to its wire representation.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints err and exits with its exit code. Non-UserError values
// print a bare message and exit ExitInternal. Never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			_ = output.JSONTo(os.Stderr, ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
