// Copyright 2026 Skald Labs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
)

// TestUserError_Error verifies the Error() method implementation.
func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want string
	}{
		{
			name: "with underlying error",
			err: &UserError{
				Message: "Cannot open state store",
				Err:     fmt.Errorf("file locked"),
			},
			want: "Cannot open state store: file locked",
		},
		{
			name: "without underlying error",
			err: &UserError{
				Message: "Invalid input",
				Err:     nil,
			},
			want: "Invalid input",
		},
		{
			name: "empty message with underlying error",
			err: &UserError{
				Message: "",
				Err:     fmt.Errorf("some error"),
			},
			want: ": some error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("UserError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestUserError_Unwrap verifies the Unwrap() method implementation.
func TestUserError_Unwrap(t *testing.T) {
	underlyingErr := fmt.Errorf("underlying error")

	withErr := &UserError{Message: "test", Err: underlyingErr}
	if got := withErr.Unwrap(); got != underlyingErr {
		t.Errorf("UserError.Unwrap() = %v, want %v", got, underlyingErr)
	}

	withoutErr := &UserError{Message: "test"}
	if got := withoutErr.Unwrap(); got != nil {
		t.Errorf("UserError.Unwrap() = %v, want nil", got)
	}
}

// TestExitCodes verifies that exit code constants have the correct values.
func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		want     int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitConfig", ExitConfig, 1},
		{"ExitDatabase", ExitDatabase, 2},
		{"ExitNetwork", ExitNetwork, 3},
		{"ExitInput", ExitInput, 4},
		{"ExitPermission", ExitPermission, 5},
		{"ExitNotFound", ExitNotFound, 6},
		{"ExitUpstream", ExitUpstream, 7},
		{"ExitInternal", ExitInternal, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.exitCode != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.exitCode, tt.want)
			}
		})
	}
}

// TestConstructors verifies that constructors set fields and exit codes.
func TestConstructors(t *testing.T) {
	underlyingErr := fmt.Errorf("underlying error")

	tests := []struct {
		name         string
		constructor  func() *UserError
		wantExitCode int
		wantHasErr   bool
	}{
		{
			name:         "NewConfigError",
			constructor:  func() *UserError { return NewConfigError("msg", "cause", "fix", underlyingErr) },
			wantExitCode: ExitConfig,
			wantHasErr:   true,
		},
		{
			name:         "NewDatabaseError",
			constructor:  func() *UserError { return NewDatabaseError("msg", "cause", "fix", underlyingErr) },
			wantExitCode: ExitDatabase,
			wantHasErr:   true,
		},
		{
			name:         "NewNetworkError",
			constructor:  func() *UserError { return NewNetworkError("msg", "cause", "fix", underlyingErr) },
			wantExitCode: ExitNetwork,
			wantHasErr:   true,
		},
		{
			name:         "NewInputError",
			constructor:  func() *UserError { return NewInputError("msg", "cause", "fix") },
			wantExitCode: ExitInput,
			wantHasErr:   false,
		},
		{
			name:         "NewPermissionError",
			constructor:  func() *UserError { return NewPermissionError("msg", "cause", "fix", underlyingErr) },
			wantExitCode: ExitPermission,
			wantHasErr:   true,
		},
		{
			name:         "NewNotFoundError",
			constructor:  func() *UserError { return NewNotFoundError("msg", "cause", "fix") },
			wantExitCode: ExitNotFound,
			wantHasErr:   false,
		},
		{
			name:         "NewUpstreamError",
			constructor:  func() *UserError { return NewUpstreamError("msg", "cause", "fix", underlyingErr) },
			wantExitCode: ExitUpstream,
			wantHasErr:   true,
		},
		{
			name:         "NewInternalError",
			constructor:  func() *UserError { return NewInternalError("msg", "cause", "fix", underlyingErr) },
			wantExitCode: ExitInternal,
			wantHasErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.constructor()

			if got.Message != "msg" || got.Cause != "cause" || got.Fix != "fix" {
				t.Errorf("fields = %q/%q/%q, want msg/cause/fix", got.Message, got.Cause, got.Fix)
			}
			if got.ExitCode != tt.wantExitCode {
				t.Errorf("ExitCode = %d, want %d", got.ExitCode, tt.wantExitCode)
			}
			hasErr := got.Err != nil
			if hasErr != tt.wantHasErr {
				t.Errorf("has underlying error = %v, want %v", hasErr, tt.wantHasErr)
			}
		})
	}
}

// TestHTTPStatus verifies the category-to-status mapping used by the API.
func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want int
	}{
		{"input is 400", NewInputError("m", "c", "f"), http.StatusBadRequest},
		{"permission is 401", NewPermissionError("m", "c", "f", nil), http.StatusUnauthorized},
		{"not found is 404", NewNotFoundError("m", "c", "f"), http.StatusNotFound},
		{"config is 503", NewConfigError("m", "c", "f", nil), http.StatusServiceUnavailable},
		{"upstream is 502", NewUpstreamError("m", "c", "f", nil), http.StatusBadGateway},
		{"network is 504", NewNetworkError("m", "c", "f", nil), http.StatusGatewayTimeout},
		{"database is 500", NewDatabaseError("m", "c", "f", nil), http.StatusInternalServerError},
		{"internal is 500", NewInternalError("m", "c", "f", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestErrorChain verifies error wrapping compatibility with stdlib errors package.
func TestErrorChain(t *testing.T) {
	t.Run("errors.Is works with UserError", func(t *testing.T) {
		sentinel := fmt.Errorf("sentinel error")
		wrapped := fmt.Errorf("wrapped: %w", sentinel)
		userErr := NewDatabaseError("state-store error", "cause", "fix", wrapped)

		if !errors.Is(userErr, sentinel) {
			t.Error("errors.Is should find sentinel error in chain")
		}
	})

	t.Run("errors.As finds nested UserError", func(t *testing.T) {
		innerErr := NewConfigError("config error", "cause", "fix", nil)
		outerErr := NewDatabaseError("state-store error", "cause", "fix", innerErr)

		var dbErr *UserError
		if !errors.As(outerErr, &dbErr) {
			t.Fatal("errors.As should extract the outer UserError")
		}
		if dbErr.ExitCode != ExitDatabase {
			t.Errorf("first unwrap: ExitCode = %d, want %d", dbErr.ExitCode, ExitDatabase)
		}

		var cfgErr *UserError
		if !errors.As(dbErr.Err, &cfgErr) {
			t.Fatal("errors.As should extract the nested UserError")
		}
		if cfgErr.ExitCode != ExitConfig {
			t.Errorf("second unwrap: ExitCode = %d, want %d", cfgErr.ExitCode, ExitConfig)
		}
	})
}

// TestUserError_Format verifies the Format() method implementation.
func TestUserError_Format(t *testing.T) {
	tests := []struct {
		name    string
		err     *UserError
		noColor bool
		want    []string // Substrings that must be present
	}{
		{
			name: "full error with color disabled",
			err: &UserError{
				Message:  "Cannot open state store",
				Cause:    "The database file is locked",
				Fix:      "Close other skald instances",
				ExitCode: ExitDatabase,
			},
			noColor: true,
			want:    []string{"Error: Cannot open state store", "Cause: The database file is locked", "Fix:   Close other skald instances"},
		},
		{
			name: "error without cause",
			err: &UserError{
				Message:  "Invalid input",
				Fix:      "Use valid format",
				ExitCode: ExitInput,
			},
			noColor: true,
			want:    []string{"Error: Invalid input", "Fix:   Use valid format"},
		},
		{
			name: "minimal error (message only)",
			err: &UserError{
				Message:  "Something failed",
				ExitCode: ExitInternal,
			},
			noColor: true,
			want:    []string{"Error: Something failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Format(tt.noColor)
			for _, substr := range tt.want {
				if !strings.Contains(got, substr) {
					t.Errorf("Format() output missing %q\nGot: %s", substr, got)
				}
			}
		})
	}
}

// TestUserError_Format_NoColor verifies that NO_COLOR environment variable is respected.
func TestUserError_Format_NoColor(t *testing.T) {
	oldNoColor := os.Getenv("NO_COLOR")
	defer func() {
		if oldNoColor != "" {
			os.Setenv("NO_COLOR", oldNoColor)
		} else {
			os.Unsetenv("NO_COLOR")
		}
	}()

	err := &UserError{
		Message:  "Test error",
		Cause:    "Test cause",
		Fix:      "Test fix",
		ExitCode: ExitConfig,
	}

	os.Setenv("NO_COLOR", "1")
	output := err.Format(false) // noColor=false, but env var set

	if strings.Contains(output, "\x1b[") {
		t.Error("Format() output contains ANSI codes despite NO_COLOR being set")
	}
}

// TestUserError_ToJSON verifies the ToJSON() method implementation.
func TestUserError_ToJSON(t *testing.T) {
	err := &UserError{
		Message:  "Invalid configuration",
		Cause:    "Missing required field",
		Fix:      "Set GRAPH_URI",
		ExitCode: ExitConfig,
	}

	got := err.ToJSON()
	if got.Error != "Invalid configuration" {
		t.Errorf("ToJSON().Error = %q", got.Error)
	}
	if got.Cause != "Missing required field" {
		t.Errorf("ToJSON().Cause = %q", got.Cause)
	}
	if got.Fix != "Set GRAPH_URI" {
		t.Errorf("ToJSON().Fix = %q", got.Fix)
	}
	if got.ExitCode != ExitConfig {
		t.Errorf("ToJSON().ExitCode = %d, want %d", got.ExitCode, ExitConfig)
	}
}

// TestFatalError verifies FatalError ignores nil errors.
// Actual os.Exit() behavior cannot be covered in unit tests.
func TestFatalError(t *testing.T) {
	FatalError(nil, false)
	FatalError(nil, true)
}
