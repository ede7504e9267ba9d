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

package agent

import "github.com/skaldlabs/skald/pkg/llm"

// Tool names the planner may reference in plan steps.
const (
	ToolGraphSearch    = "knowledge_graph_search"
	ToolSemanticSearch = "semantic_code_search"
	ToolFileReader     = "file_reader_tool"
)

// Step is one executed tool invocation and its result text.
type Step struct {
	Tool   string
	Result string
}

// State is the shared whiteboard the agent nodes read from and write to.
type State struct {
	// Inputs from the API layer.
	OriginalQuery string
	ChatHistory   []llm.Message
	RepoID        string
	SessionID     string
	APIKey        string
	ModelID       string

	// Planner outputs.
	DecomposedQuery string
	Plan            []string

	// Executor progress.
	Steps []Step

	// Grading and synthesis.
	ContextRelevant bool
	FinalAnswer     string
}

// Delta carries only the fields a node changed. Nil pointers and nil
// slices leave the state untouched; Steps are appended, never replaced.
type Delta struct {
	DecomposedQuery *string
	Plan            []string
	Steps           []Step
	ContextRelevant *bool
	FinalAnswer     *string
}

// apply merges the delta into the state.
func (s *State) apply(d Delta) {
	if d.DecomposedQuery != nil {
		s.DecomposedQuery = *d.DecomposedQuery
	}
	if d.Plan != nil {
		s.Plan = d.Plan
	}
	s.Steps = append(s.Steps, d.Steps...)
	if d.ContextRelevant != nil {
		s.ContextRelevant = *d.ContextRelevant
	}
	if d.FinalAnswer != nil {
		s.FinalAnswer = *d.FinalAnswer
	}
}

func ptr[T any](v T) *T { return &v }
