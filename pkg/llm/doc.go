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

// Package llm is the uniform call surface over chat model providers.
//
// Every Request carries its own model id and API key, because chat requests
// run with the requesting user's credentials while internal maintenance
// (summaries, fact extraction) runs with the operator's key. Providers:
// Gemini through google.golang.org/genai, OpenAI-compatible and Ollama over
// plain HTTP, and a scripted mock for tests.
//
// Structured output is layered on top of plain chat: Structured[T] appends
// a JSON-only instruction, recovers the first balanced JSON object from the
// reply with ExtractJSON, and unmarshals into the schema type. The schema
// types used across skald (PlanOutput, SummaryOutput, FactsOutput) live
// here so planner, memory maintainer and tests share one contract.
//
// Provider errors carry the upstream taxonomy: request timeouts surface as
// network errors (504 on the API), 401/403 from the provider as
// configuration errors (503), and other provider failures as upstream
// errors (502).
package llm
