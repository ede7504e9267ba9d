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
	"strings"
	"testing"
)

func TestMaxSourceFileBytes(t *testing.T) {
	t.Run("default when unset", func(t *testing.T) {
		t.Setenv("SKALD_MAX_FILE_BYTES", "")
		if got := MaxSourceFileBytes(); got != DefaultMaxSourceFileBytes {
			t.Errorf("MaxSourceFileBytes() = %d, want %d", got, DefaultMaxSourceFileBytes)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("SKALD_MAX_FILE_BYTES", "1024")
		if got := MaxSourceFileBytes(); got != 1024 {
			t.Errorf("MaxSourceFileBytes() = %d, want 1024", got)
		}
	})

	t.Run("invalid env falls back to default", func(t *testing.T) {
		t.Setenv("SKALD_MAX_FILE_BYTES", "not-a-number")
		if got := MaxSourceFileBytes(); got != DefaultMaxSourceFileBytes {
			t.Errorf("MaxSourceFileBytes() = %d, want %d", got, DefaultMaxSourceFileBytes)
		}
	})

	t.Run("non-positive env falls back to default", func(t *testing.T) {
		t.Setenv("SKALD_MAX_FILE_BYTES", "-5")
		if got := MaxSourceFileBytes(); got != DefaultMaxSourceFileBytes {
			t.Errorf("MaxSourceFileBytes() = %d, want %d", got, DefaultMaxSourceFileBytes)
		}
	})
}

func TestValidateChatRequest(t *testing.T) {
	tests := []struct {
		name      string
		repoID    string
		question  string
		sessionID string
		wantOK    bool
		wantMsg   string
	}{
		{"valid request", "acme/api", "What does main do?", "sess-1", true, ""},
		{"missing repo_id", "", "What does main do?", "sess-1", false, "repo_id is required"},
		{"whitespace repo_id", "   ", "What does main do?", "sess-1", false, "repo_id is required"},
		{"missing question", "acme/api", "", "sess-1", false, "question is required"},
		{"whitespace question", "acme/api", "  \t ", "sess-1", false, "question is required"},
		{"oversized question", "acme/api", strings.Repeat("q", QuestionMaxBytes+1), "sess-1", false, "question exceeds size limit"},
		{"oversized session_id", "acme/api", "ok?", strings.Repeat("s", SessionIDMaxBytes+1), false, "session_id exceeds size limit"},
		{"empty session_id allowed", "acme/api", "ok?", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateChatRequest(tt.repoID, tt.question, tt.sessionID)
			if got.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v (message: %q)", got.OK, tt.wantOK, got.Message)
			}
			if !tt.wantOK && got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateDataSource(t *testing.T) {
	tests := []struct {
		name       string
		dsName     string
		sourceType string
		locator    string
		wantOK     bool
		wantMsg    string
	}{
		{"valid github", "api", "github", "https://github.com/acme/api.git", true, ""},
		{"valid local", "api", "local", "/home/me/src/api", true, ""},
		{"missing name", "", "github", "https://github.com/acme/api.git", false, "name is required"},
		{"missing url", "api", "github", "", false, "connection_details.repo_url is required for github sources"},
		{"missing path", "api", "local", "", false, "connection_details.path is required for local sources"},
		{"bad source type", "api", "svn", "svn://x", false, "source_type must be \"github\" or \"local\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDataSource(tt.dsName, tt.sourceType, tt.locator)
			if got.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v (message: %q)", got.OK, tt.wantOK, got.Message)
			}
			if !tt.wantOK && got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}
