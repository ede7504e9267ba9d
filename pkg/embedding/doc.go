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

// Package embedding turns text chunks into fixed-dimension vectors.
//
// Providers: Gemini (google.golang.org/genai), OpenAI and Ollama over
// plain HTTP, and a deterministic mock for tests. The Batcher drives a
// provider in rate-limit-friendly batches (default 100 texts, 1.5s apart)
// and skips a failed batch instead of failing the run; ingestion tolerates
// partial vector coverage.
package embedding
