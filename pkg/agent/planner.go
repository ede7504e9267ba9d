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

import (
	"context"
	"fmt"
	"strings"

	"github.com/skaldlabs/skald/pkg/llm"
)

const plannerPrompt = `You are an expert AI agent system planner. Your role is to analyze a user's query and create the simplest possible plan.

**Core Instruction:**
Your primary goal is to DELEGATE the hard work to your specialist tools, not to create a complex multi-step plan yourself. For almost any question about the codebase, the plan should be a SINGLE step: to use the knowledge graph.

1. **Decompose the Query:** Rewrite the user's latest query into a clear, standalone, and "decomposed" question for the tools.

2. **Create a Plan:** Create a step-by-step plan.
   - If the user is asking a question about the code, the plan MUST be a single step:
     "Use 'knowledge_graph_search' to answer the user's question."
   - Only if the user explicitly asks to read the contents of a named file should you use the 'file_reader_tool', including the file path in the step.

**Available Tools:**
* knowledge_graph_search: The primary tool for ALL questions about code, structure, relationships, or functionality.
* semantic_code_search: Use for "how-to" questions or to find semantically similar code snippets.
* file_reader_tool: Use only when specifically asked to read a file.

**Your Response:**
You MUST provide your response as a single, valid JSON object with "decomposed_query" and "plan" keys.

**Example for a code question:**
{
  "decomposed_query": "Explain the overall architecture of the project and its main components.",
  "plan": [
    "Use 'knowledge_graph_search' to answer the user's question."
  ]
}`

// plannerNode rewrites the latest query into a standalone question and a
// short tool plan. A reply that cannot be parsed yields an empty plan; the
// synthesizer then produces the honest fallback.
func (a *Agent) plannerNode(ctx context.Context, s *State) (Delta, error) {
	messages := []llm.Message{
		{Role: "system", Content: plannerPrompt},
		{Role: "user", Content: fmt.Sprintf("User Query: %s\n\nChat History:\n%s", s.OriginalQuery, renderHistory(s.ChatHistory))},
	}

	out, err := llm.Structured[llm.PlanOutput](ctx, a.LLM, a.request(s, messages, 0))
	if err != nil {
		a.logger().Warn("agent.planner.parse_failed", "error", err)
		return Delta{DecomposedQuery: ptr(s.OriginalQuery), Plan: []string{}}, nil
	}

	a.logger().Info("agent.planner.complete", "plan_steps", len(out.Plan))
	return Delta{DecomposedQuery: ptr(out.DecomposedQuery), Plan: out.Plan}, nil
}

// renderHistory flattens chat turns into the "role: content" lines the
// planner prompt expects.
func renderHistory(history []llm.Message) string {
	if len(history) == 0 {
		return "(no prior messages)"
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
