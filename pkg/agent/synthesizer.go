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

const noContextAnswer = "I apologize, but I was unable to retrieve any context to answer your question."

const insufficientContextAnswer = "I could not find enough relevant information in the indexed repository to answer your question."

const synthesizerPrompt = `You are an expert software architect and documentation writer. Your task is to provide a comprehensive, clear, and structured answer to a user's question by synthesizing the provided context from a knowledge graph.

**User's Query:**
%s

**Provided Context from Codebase Analysis:**
%s

Your Instructions:
Understand the Goal: Deeply analyze the "User's Query" to understand what the user truly wants to know.
Synthesize the Context: The context is a collection of results from multiple database queries. It may contain a function's summary, what it calls, who calls it, and what class it belongs to. Your job is to weave all of this information into a single, coherent, and easy-to-read response.
Create a Structured Answer: Structure your answer using Markdown. Start with a high-level summary and then use bullet points to detail the key relationships you found in the context.
Be Specific and Confident: Use the exact names of functions, classes, and files from the context. Do not be vague.
Do Not State "Based on the provided context." Just present the facts as the answer.
If the context is empty or uninformative, then and only then should you state that you could not find the relevant information.`

// synthesizerNode turns the gathered tool outputs into the final Markdown
// answer. No steps at all short-circuits to an apology without a model
// call; a grader veto yields the insufficient-information answer.
func (a *Agent) synthesizerNode(ctx context.Context, s *State) (Delta, error) {
	context := renderSteps(s.Steps)
	if strings.TrimSpace(context) == "" {
		return Delta{FinalAnswer: ptr(noContextAnswer)}, nil
	}
	if !s.ContextRelevant {
		return Delta{FinalAnswer: ptr(insufficientContextAnswer)}, nil
	}

	prompt := fmt.Sprintf(synthesizerPrompt, s.DecomposedQuery, context)
	reply, err := a.LLM.Chat(ctx, a.request(s, []llm.Message{{Role: "user", Content: prompt}}, 0))
	if err != nil {
		return Delta{}, err
	}
	return Delta{FinalAnswer: ptr(reply)}, nil
}

// renderSteps concatenates the tool outputs into the synthesizer's context
// block.
func renderSteps(steps []Step) string {
	blocks := make([]string, 0, len(steps))
	for _, step := range steps {
		blocks = append(blocks, fmt.Sprintf("Tool: %s\nResult:\n%s", step.Tool, step.Result))
	}
	return strings.Join(blocks, "\n\n")
}
