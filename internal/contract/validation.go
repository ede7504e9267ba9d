// Copyright 2025 Skald Labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@skaldlabs.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultMaxSourceFileBytes is the baseline soft limit for source files
	// handed to the analyzer during ingestion.
	DefaultMaxSourceFileBytes = 2 << 20 // 2 MiB

	// SessionIDMaxBytes is the maximum length for session_id field.
	SessionIDMaxBytes = 128

	// QuestionMaxBytes is the maximum length for a chat question.
	QuestionMaxBytes = 32 << 10 // 32 KiB
)

// MaxSourceFileBytes returns the effective soft limit for source file size.
// Controlled via env SKALD_MAX_FILE_BYTES; falls back to DefaultMaxSourceFileBytes.
func MaxSourceFileBytes() int {
	if v := os.Getenv("SKALD_MAX_FILE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxSourceFileBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateChatRequest performs basic validation on an incoming chat request.
// Both repo_id and question are required; the question is size-limited.
func ValidateChatRequest(repoID, question, sessionID string) *ValidationResult {
	if strings.TrimSpace(repoID) == "" {
		return &ValidationResult{OK: false, Message: "repo_id is required"}
	}
	if strings.TrimSpace(question) == "" {
		return &ValidationResult{OK: false, Message: "question is required"}
	}
	if len(question) > QuestionMaxBytes {
		return &ValidationResult{OK: false, Message: "question exceeds size limit"}
	}
	if len(sessionID) > SessionIDMaxBytes {
		return &ValidationResult{OK: false, Message: "session_id exceeds size limit"}
	}
	return &ValidationResult{OK: true}
}

// ValidateDataSource performs basic validation on a data source
// registration. locator is the repo URL for github sources or the
// directory for local ones.
func ValidateDataSource(name, sourceType, locator string) *ValidationResult {
	if strings.TrimSpace(name) == "" {
		return &ValidationResult{OK: false, Message: "name is required"}
	}
	switch sourceType {
	case "github":
		if strings.TrimSpace(locator) == "" {
			return &ValidationResult{OK: false, Message: "connection_details.repo_url is required for github sources"}
		}
	case "local":
		if strings.TrimSpace(locator) == "" {
			return &ValidationResult{OK: false, Message: "connection_details.path is required for local sources"}
		}
	default:
		return &ValidationResult{OK: false, Message: "source_type must be \"github\" or \"local\""}
	}
	return &ValidationResult{OK: true}
}
