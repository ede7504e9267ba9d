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

// Package agent answers questions about an indexed repository.
//
// The agent is a small directed state graph. Each node reads the shared
// State and returns a Delta with only the fields it changed; the runtime
// merges deltas, follows static or conditional edges, and aborts past a
// recursion limit.
//
// Wiring:
//
//	planner -> executor -> (loop while steps < plan) -> grader
//	       -> synthesizer -> critic -> end
//
// The planner rewrites the user's latest turn into a standalone question
// and emits a short tool plan. The executor runs exactly one plan step per
// visit; a graph-search step runs the information gathering loop, asking
// the query generator for up to three distinct read-only graph queries and
// accumulating their results. The grader vouches for the gathered context,
// the synthesizer writes the Markdown answer, and the critic passes the
// answer through to the terminal state.
package agent
