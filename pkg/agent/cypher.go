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

const cypherPromptTemplate = `You are a Cypher query expert. Your task is to generate a single, precise Cypher query to answer a question about a codebase.

**Graph Schema:**
%s

**Instructions:**
1. Analyze the "User's Query" to understand the user's ultimate goal.
2. Use the "Query Examples" as a guide for the type of query to generate.
3. Review the "Previously Attempted Queries" to avoid repetition. Generate a NEW query that finds different, deeper information. For example, if you already have the summary, try finding the function's calls next.
4. You MUST filter every repository node by repo_id: '%s'.
5. Return ONLY the Cypher query. If you cannot generate a new, useful query, return an empty string.

**Query Examples:**
# Goal: Get a function's documentation.
MATCH (f:Function {name: 'command_loop', file_path: 'ui_handler.py', repo_id: '%s'}) RETURN f.summary AS summary
# Goal: List the methods in a class.
MATCH (c:Class {name: 'Peer', repo_id: '%s'})-[:HAS_METHOD]->(m:Function) RETURN m.name AS method_name
# Goal: Trace what a function calls.
MATCH (start:Function {name: 'command_loop', repo_id: '%s'})-[:CALLS]->(callee:Function) RETURN callee.name AS called_function

**Your Task:**

User's Query: %s
Repository ID: %s
Previously Attempted Queries:
%s

New, Different Cypher Query:`

// generateQuery asks the model for one new read-only graph query. An empty
// reply or a "no new query" refusal comes back as "", the loop's exit
// signal.
func (a *Agent) generateQuery(ctx context.Context, s *State, tried []string) (string, error) {
	prompt := fmt.Sprintf(cypherPromptTemplate,
		a.Graph.SchemaDescription(),
		s.RepoID, s.RepoID, s.RepoID, s.RepoID,
		s.DecomposedQuery, s.RepoID,
		strings.Join(tried, "\n"),
	)

	reply, err := a.LLM.Chat(ctx, a.request(s, []llm.Message{{Role: "user", Content: prompt}}, 0))
	if err != nil {
		return "", err
	}

	query := strings.TrimSpace(llm.StripFences(reply))
	if query == "" || strings.Contains(strings.ToLower(query), "no new query") {
		return "", nil
	}
	return query, nil
}
