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
	"log/slog"

	"github.com/skaldlabs/skald/pkg/embedding"
	"github.com/skaldlabs/skald/pkg/graph"
	"github.com/skaldlabs/skald/pkg/llm"
	"github.com/skaldlabs/skald/pkg/vector"
)

// recursionLimit bounds total node executions per run. The plan-driven
// loop terminates on its own; this is the backstop against wiring bugs.
const recursionLimit = 15

// endNode is the terminal routing target.
const endNode = "end"

// FileReader reads one file from an indexed repository on demand.
type FileReader interface {
	ReadFile(ctx context.Context, repoID, filePath string) (string, error)
}

// Agent wires the state-graph nodes to their collaborators.
type Agent struct {
	LLM      llm.Provider
	Graph    graph.Store
	Vectors  vector.Store
	Embedder embedding.Provider
	Files    FileReader // optional; file-reader steps fail politely without it
	Logger   *slog.Logger
}

// nodeFunc is one node of the state graph.
type nodeFunc func(ctx context.Context, s *State) (Delta, error)

// stateGraph holds nodes plus static and conditional edges.
type stateGraph struct {
	entry       string
	nodes       map[string]nodeFunc
	edges       map[string]string
	conditional map[string]func(*State) string
}

// run executes nodes from the entry point until a node routes to endNode,
// merging each node's delta into the state. More than recursionLimit node
// executions aborts the run.
func (g *stateGraph) run(ctx context.Context, s *State) error {
	current := g.entry
	for executed := 0; ; executed++ {
		if executed >= recursionLimit {
			return fmt.Errorf("agent graph exceeded recursion limit %d at node %q", recursionLimit, current)
		}
		node, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("agent graph routed to unknown node %q", current)
		}
		delta, err := node(ctx, s)
		if err != nil {
			return fmt.Errorf("node %s: %w", current, err)
		}
		s.apply(delta)

		if route, ok := g.conditional[current]; ok {
			current = route(s)
		} else {
			current = g.edges[current]
		}
		if current == endNode || current == "" {
			return nil
		}
	}
}

// build assembles the agent graph: planner -> executor, executor loops on
// itself until one step per plan entry has run, then grader -> synthesizer
// -> critic -> end.
func (a *Agent) build() *stateGraph {
	return &stateGraph{
		entry: "planner",
		nodes: map[string]nodeFunc{
			"planner":     a.plannerNode,
			"executor":    a.executorNode,
			"grader":      a.graderNode,
			"synthesizer": a.synthesizerNode,
			"critic":      a.criticNode,
		},
		edges: map[string]string{
			"planner":     "executor",
			"grader":      "synthesizer",
			"synthesizer": "critic",
			"critic":      endNode,
		},
		conditional: map[string]func(*State) string{
			"executor": func(s *State) string {
				if len(s.Steps) >= len(s.Plan) {
					return "grader"
				}
				return "executor"
			},
		},
	}
}

// Run executes the full agent over the given inputs and returns the
// terminal state. FinalAnswer is always populated on a nil error.
func (a *Agent) Run(ctx context.Context, s State) (*State, error) {
	logger := a.logger().With("repo_id", s.RepoID, "session_id", s.SessionID)
	logger.Info("agent.run.start")

	if err := a.build().run(ctx, &s); err != nil {
		return nil, err
	}

	logger.Info("agent.run.complete",
		"plan_steps", len(s.Plan),
		"executed_steps", len(s.Steps),
		"answer_len", len(s.FinalAnswer),
	)
	return &s, nil
}

// request builds an llm.Request bound to the state's per-user credentials.
func (a *Agent) request(s *State, messages []llm.Message, temperature float64) llm.Request {
	return llm.Request{
		Model:       s.ModelID,
		APIKey:      s.APIKey,
		Messages:    messages,
		Temperature: temperature,
	}
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
