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

// Package contract provides validation constants and utilities for skald.
//
// This internal package contains configuration constants and validation
// functions shared between the HTTP API and the ingestion pipeline.
//
// # Request Validation
//
// Incoming API payloads are validated before any stateful work happens:
//
//	result := contract.ValidateChatRequest(repoID, question, sessionID)
//	if !result.OK {
//	    return errors.NewInputError("Invalid chat request", result.Message, "")
//	}
//
// # Source File Limits
//
// Ingestion enforces a soft limit on individual source file size to keep
// parser memory bounded on pathological repositories:
//
//	// Default limit is 2 MiB
//	limit := contract.MaxSourceFileBytes()
//
// The limit can be adjusted via the SKALD_MAX_FILE_BYTES environment
// variable:
//
//	export SKALD_MAX_FILE_BYTES=8388608  # 8 MiB
//
// If the environment variable is not set or invalid, the default limit
// of 2 MiB (DefaultMaxSourceFileBytes) is used.
//
// # Constants
//
// The package exports these constants:
//
//   - DefaultMaxSourceFileBytes: Baseline source file soft limit (2 MiB)
//   - SessionIDMaxBytes: Maximum length for session identifiers (128 bytes)
//   - QuestionMaxBytes: Maximum length for chat questions (32 KiB)
package contract
