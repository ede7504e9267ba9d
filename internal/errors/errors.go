// Copyright 2026 Skald Labs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for Skald.
//
// It defines UserError, a type that carries what went wrong, why it happened,
// and how to fix it, together with a semantic exit code for the CLI and an
// HTTP status for the API surface.
//
// Creating and displaying errors:
//
//	err := errors.NewConfigError(
//	    "Graph store is not configured",
//	    "GRAPH_URI is empty",
//	    "Set GRAPH_URI, GRAPH_USER and GRAPH_PASSWORD in the environment or skald.yaml",
//	    nil,
//	)
//	errors.FatalError(err, false)
//
// # Exit Codes
//
//   - ExitSuccess (0): successful execution
//   - ExitConfig (1): configuration errors (missing credentials, bad config file)
//   - ExitDatabase (2): state-store errors (locked, corrupted, failed transaction)
//   - ExitNetwork (3): network errors and upstream timeouts
//   - ExitInput (4): invalid user input (bad arguments, validation failures)
//   - ExitPermission (5): permission or authorization failures
//   - ExitNotFound (6): resource not found (data source, session, file)
//   - ExitUpstream (7): an upstream service (LLM, graph, vector) returned a failure
//   - ExitInternal (10): internal errors (bugs, panics)
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitConfig indicates configuration errors (missing/invalid configuration).
	ExitConfig = 1

	// ExitDatabase indicates state-store errors (locked, corrupted, etc.).
	ExitDatabase = 2

	// ExitNetwork indicates network errors or upstream timeouts.
	ExitNetwork = 3

	// ExitInput indicates invalid user input (bad arguments, validation errors).
	ExitInput = 4

	// ExitPermission indicates permission or authorization failures.
	ExitPermission = 5

	// ExitNotFound indicates resource not found errors (data source, session, file).
	ExitNotFound = 6

	// ExitUpstream indicates an upstream service returned a failure response.
	ExitUpstream = 7

	// ExitInternal indicates internal errors (bugs, unexpected panics).
	// Exit code 10 signals "this is a bug that should be reported".
	ExitInternal = 10
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: what went wrong (user-facing error description)
//   - Cause: why it happened (diagnostic information)
//   - Fix: how to fix it (actionable suggestion)
//
// UserError also carries an exit code for consistent CLI exit behavior
// and optionally wraps an underlying error for error chain compatibility.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred (diagnostic information).
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// ExitCode is the exit code that should be used when exiting due to this error.
	ExitCode int

	// Err is the underlying error that caused this error (optional).
	// This enables error wrapping and compatibility with errors.Is/As.
	Err error
}

// Error implements the error interface. If an underlying error is present,
// its message is appended for context.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *UserError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error category onto the HTTP surface.
//
// The mapping follows the API contract: bad input is 400, missing
// authorization is 401, unknown resources are 404, misconfiguration
// (including undecryptable secrets) is 503, upstream failures are 502,
// and upstream timeouts are 504. Everything else is a 500.
func (e *UserError) HTTPStatus() int {
	switch e.ExitCode {
	case ExitInput:
		return http.StatusBadRequest
	case ExitPermission:
		return http.StatusUnauthorized
	case ExitNotFound:
		return http.StatusNotFound
	case ExitConfig:
		return http.StatusServiceUnavailable
	case ExitUpstream:
		return http.StatusBadGateway
	case ExitNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewConfigError creates a configuration error with exit code ExitConfig.
//
// Use this for missing or invalid configuration, including credentials the
// secret store cannot produce.
//
// Example:
//
//	return NewConfigError(
//	    "LLM API key is not configured",
//	    "No key stored for service 'gemini' and LLM_API_KEY is empty",
//	    "Store a key with 'skald models --set-key' or export LLM_API_KEY",
//	    nil,
//	)
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitConfig,
		Err:      err,
	}
}

// NewDatabaseError creates a state-store error with exit code ExitDatabase.
//
// Use this for errors from the relational state store: locked files,
// failed transactions, schema problems.
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitDatabase,
		Err:      err,
	}
}

// NewNetworkError creates a network error with exit code ExitNetwork.
//
// Use this for connectivity failures and timeouts talking to the graph
// store, vector index, model providers, or the job broker.
//
// Example:
//
//	return NewNetworkError(
//	    "Cannot reach the graph store",
//	    "Connection to neo4j://localhost:7687 timed out",
//	    "Check that Neo4j is running and GRAPH_URI is correct",
//	    err,
//	)
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitNetwork,
		Err:      err,
	}
}

// NewInputError creates an input validation error with exit code ExitInput.
//
// Input errors typically do not wrap an underlying error.
//
// Example:
//
//	return NewInputError(
//	    "Missing required field 'query'",
//	    "The chat request body did not include a question",
//	    "Send {query, model, data_source_id, session_id}",
//	)
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitInput,
		Err:      nil,
	}
}

// NewPermissionError creates an authorization error with exit code ExitPermission.
//
// Use this for missing or invalid auth tokens and filesystem permission
// failures alike.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitPermission,
		Err:      err,
	}
}

// NewNotFoundError creates a resource not found error with exit code ExitNotFound.
//
// Not found errors typically do not wrap an underlying error.
//
// Example:
//
//	return NewNotFoundError(
//	    "Data source not found",
//	    "No repository registered under id 'ds_7f3a'",
//	    "Run 'skald status' to list registered repositories",
//	)
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitNotFound,
		Err:      nil,
	}
}

// NewUpstreamError creates an upstream failure error with exit code ExitUpstream.
//
// Use this when an upstream service (model provider, graph store, vector
// index) answered with a failure rather than not answering at all.
func NewUpstreamError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitUpstream,
		Err:      err,
	}
}

// NewInternalError creates an internal error with exit code ExitInternal.
//
// Use this for unexpected errors that indicate bugs: assertion failures,
// unexpected nil values, unhandled cases. Internal errors should be
// reported to the maintainers.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitInternal,
		Err:      err,
	}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// The output includes colored sections for Error (red/bold), Cause (yellow),
// and Fix (green). Color output respects the NO_COLOR environment variable
// and can be explicitly disabled with the noColor parameter. Empty Cause or
// Fix fields are omitted.
//
// Example output:
//
//	Error: Data source not found
//	Cause: No repository registered under id 'ds_7f3a'
//	Fix:   Run 'skald status' to list registered repositories
func (e *UserError) Format(noColor bool) string {
	// Save and restore global color state to avoid side effects
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
// Empty Cause and Fix fields are omitted via omitempty.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with the appropriate code.
//
// If the error is a UserError, it uses Format() for colored output or
// ToJSON() for JSON mode. For non-UserError types, it prints a simple
// error message and exits with ExitInternal.
//
// This function never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			// Encode error is intentionally ignored since we're about to exit.
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
