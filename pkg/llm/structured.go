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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Schema types shared by the planner and the memory maintainer. These are
// the boundary contracts for structured model output; malformed replies
// are recovered by ExtractJSON before unmarshalling.

// PlanOutput is the planner's reply: a self-contained query rewrite plus
// the ordered tool plan.
type PlanOutput struct {
	DecomposedQuery string   `json:"decomposed_query"`
	Plan            []string `json:"plan"`
}

// SummaryOutput is the repo-conversation summarizer's reply.
type SummaryOutput struct {
	Summary string `json:"summary"`
}

// Fact is one extracted user fact.
type Fact struct {
	FactKey   string `json:"fact_key"`
	FactValue string `json:"fact_value"`
}

// FactsOutput is the user-fact extractor's reply. An empty Facts list is a
// valid answer and produces no writes.
type FactsOutput struct {
	Facts []Fact `json:"facts"`
}

// jsonOnlyInstruction is appended to structured calls; models that already
// answer with bare JSON are unaffected.
const jsonOnlyInstruction = "Respond with a single valid JSON object only. No prose, no Markdown fences."

// Structured runs a chat call and parses the reply into T.
//
// The reply is first tried verbatim; on failure the first balanced JSON
// object or array in the text is extracted and retried. Callers receive an
// error only when no parseable JSON exists at all; they decide the
// fallback (the planner empties the plan, the memory tasks keep old state).
func Structured[T any](ctx context.Context, p Provider, req Request) (T, error) {
	var out T

	req.Messages = append(req.Messages, Message{Role: "system", Content: jsonOnlyInstruction})
	text, err := p.Chat(ctx, req)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err == nil {
		return out, nil
	}
	fragment := ExtractJSON(text)
	if fragment == "" {
		return out, fmt.Errorf("no JSON found in model reply")
	}
	if err := json.Unmarshal([]byte(fragment), &out); err != nil {
		return out, fmt.Errorf("parse model reply: %w", err)
	}
	return out, nil
}

// ExtractJSON returns the first balanced JSON object or array embedded in
// text, or "" when none exists. String literals and escapes are honored,
// so braces inside quoted values do not confuse the matcher.
func ExtractJSON(text string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			open = text[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			if inString {
				escaped = true
			}
		case c == '"':
			inString = !inString
		case inString:
			// characters inside strings never affect depth
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// StripFences removes a Markdown code fence around text, with or without a
// language tag. Query generators get fenced replies from some models even
// when told not to.
func StripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	// Drop the language tag line ("cypher", "json", ...), if any.
	if idx := strings.Index(t, "\n"); idx >= 0 {
		t = t[idx+1:]
	} else {
		t = strings.TrimSuffix(t, "```")
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
