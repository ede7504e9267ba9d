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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/skaldlabs/skald/pkg/embedding"
	"github.com/skaldlabs/skald/pkg/graph"
)

// maxGatherAttempts bounds the information gathering loop.
const maxGatherAttempts = 3

// noGraphResults is the sentinel recorded when every gathering attempt
// came back empty. The synthesizer treats it as honest "nothing found"
// context rather than an error.
const noGraphResults = "No information was found in the knowledge graph after multiple attempts."

// executorNode runs exactly one plan step per visit, dispatching on the
// tool named in the step. The graph loops back here until every plan entry
// has a recorded step.
func (a *Agent) executorNode(ctx context.Context, s *State) (Delta, error) {
	idx := len(s.Steps)
	if idx >= len(s.Plan) {
		return Delta{}, nil
	}
	step := s.Plan[idx]
	lower := strings.ToLower(step)

	switch {
	case strings.Contains(lower, ToolGraphSearch):
		return Delta{Steps: []Step{a.gatherFromGraph(ctx, s)}}, nil
	case strings.Contains(lower, ToolSemanticSearch):
		return Delta{Steps: []Step{a.semanticSearch(ctx, s)}}, nil
	case strings.Contains(lower, ToolFileReader):
		return Delta{Steps: []Step{a.readFile(ctx, s, step)}}, nil
	default:
		a.logger().Warn("agent.executor.unknown_tool", "step", step)
		return Delta{Steps: []Step{{
			Tool:   ToolGraphSearch,
			Result: fmt.Sprintf("No tool matched the plan step %q; nothing was executed.", step),
		}}}, nil
	}
}

// gatherFromGraph is the information gathering loop: up to maxGatherAttempts
// generated queries, each required to differ from its predecessors. The
// loop exits early when the generator runs dry, repeats itself, or a query
// returns nothing; execution errors only cost their own attempt. All
// accumulated records serialize into a single step.
func (a *Agent) gatherFromGraph(ctx context.Context, s *State) Step {
	logger := a.logger().With("repo_id", s.RepoID)

	var gathered []graph.Record
	var tried []string

	for attempt := 1; attempt <= maxGatherAttempts; attempt++ {
		query, err := a.generateQuery(ctx, s, tried)
		if err != nil {
			logger.Warn("agent.gather.generate_failed", "attempt", attempt, "error", err)
			break
		}
		if query == "" || contains(tried, query) {
			logger.Info("agent.gather.exhausted", "attempt", attempt)
			break
		}
		tried = append(tried, query)

		records, err := a.Graph.Run(ctx, query)
		if err != nil {
			logger.Warn("agent.gather.query_failed", "attempt", attempt, "error", err)
			continue
		}
		if len(records) == 0 {
			logger.Info("agent.gather.empty_result", "attempt", attempt)
			break
		}
		logger.Info("agent.gather.records", "attempt", attempt, "count", len(records))
		gathered = append(gathered, records...)
	}

	if len(gathered) == 0 {
		return Step{Tool: ToolGraphSearch, Result: noGraphResults}
	}
	serialized, err := json.MarshalIndent(gathered, "", "  ")
	if err != nil {
		return Step{Tool: ToolGraphSearch, Result: noGraphResults}
	}
	return Step{Tool: ToolGraphSearch, Result: string(serialized)}
}

// semanticSearch embeds the decomposed query and formats the top matches
// from the repo's vector namespace.
func (a *Agent) semanticSearch(ctx context.Context, s *State) Step {
	vec, err := embedding.EmbedQuery(ctx, a.Embedder, s.DecomposedQuery)
	if err != nil {
		return Step{Tool: ToolSemanticSearch, Result: "There was an error while querying the vector database."}
	}
	matches, err := a.Vectors.Query(ctx, s.RepoID, vec, 5)
	if err != nil {
		return Step{Tool: ToolSemanticSearch, Result: "There was an error while querying the vector database."}
	}
	if len(matches) == 0 {
		return Step{Tool: ToolSemanticSearch, Result: "No relevant functions found in the vector database."}
	}

	var b strings.Builder
	b.WriteString("Found relevant functions:\n\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "--- Function: %s ---\n", metaOr(m.Metadata, "function_name", "N/A"))
		fmt.Fprintf(&b, "File: %s\n", metaOr(m.Metadata, "file_path", "N/A"))
		fmt.Fprintf(&b, "Similarity Score: %.4f\n", m.Score)
	}
	return Step{Tool: ToolSemanticSearch, Result: b.String()}
}

// filePathPattern matches a path-like token with an extension, the form
// the planner embeds in file-reader steps.
var filePathPattern = regexp.MustCompile(`[\w\-./]+\.\w+`)

// readFile serves a file-reader step. The path comes from the step text
// itself; without one (or without a configured reader) the step records an
// error message instead of failing the run.
func (a *Agent) readFile(ctx context.Context, s *State, step string) Step {
	if a.Files == nil {
		return Step{Tool: ToolFileReader, Result: "Error: file reading is not available."}
	}
	path := filePathPattern.FindString(step)
	if path == "" {
		return Step{Tool: ToolFileReader, Result: "Error: no file path was found in the plan step."}
	}
	content, err := a.Files.ReadFile(ctx, s.RepoID, path)
	if err != nil {
		return Step{Tool: ToolFileReader, Result: fmt.Sprintf("An error occurred while trying to read the file: %v", err)}
	}
	return Step{Tool: ToolFileReader, Result: content}
}

func metaOr(meta map[string]string, key, fallback string) string {
	if v, ok := meta[key]; ok && v != "" {
		return v
	}
	return fallback
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
