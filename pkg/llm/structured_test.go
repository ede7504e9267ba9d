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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"plan": ["a"]}`,
			want: `{"plan": ["a"]}`,
		},
		{
			name: "object with prose around it",
			in:   "Sure! Here is the plan:\n{\"plan\": [\"a\"]}\nHope that helps.",
			want: `{"plan": ["a"]}`,
		},
		{
			name: "braces inside string values",
			in:   `{"q": "MATCH (f:File {repo_id: 'r'}) RETURN f"}`,
			want: `{"q": "MATCH (f:File {repo_id: 'r'}) RETURN f"}`,
		},
		{
			name: "escaped quote inside string",
			in:   `{"a": "say \"hi\" {"}`,
			want: `{"a": "say \"hi\" {"}`,
		},
		{
			name: "array",
			in:   `noise ["a", "b"] noise`,
			want: `["a", "b"]`,
		},
		{
			name: "no json",
			in:   "there is nothing here",
			want: "",
		},
		{
			name: "unbalanced",
			in:   `{"a": 1`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestStructuredRecoversFencedReply(t *testing.T) {
	mock := NewMock("```json\n{\"decomposed_query\": \"What does Peer do?\", \"plan\": [\"Use knowledge_graph_search\"]}\n```")

	out, err := Structured[PlanOutput](context.Background(), mock, Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "What does Peer do?", out.DecomposedQuery)
	assert.Equal(t, []string{"Use knowledge_graph_search"}, out.Plan)

	// The JSON-only instruction is appended to the outgoing request.
	calls := mock.Calls()
	require.Len(t, calls, 1)
	last := calls[0].Messages[len(calls[0].Messages)-1]
	assert.Equal(t, "system", last.Role)
	assert.Contains(t, last.Content, "JSON")
}

func TestStructuredNoJSON(t *testing.T) {
	mock := NewMock("I cannot answer that.")
	_, err := Structured[SummaryOutput](context.Background(), mock, Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t,
		"MATCH (f:Function {repo_id: 'r'}) RETURN f.name",
		StripFences("```cypher\nMATCH (f:Function {repo_id: 'r'}) RETURN f.name\n```"))
	assert.Equal(t, "plain", StripFences("plain"))
	assert.Equal(t, "x", StripFences("```\nx\n```"))
}

func TestMockScriptsInOrder(t *testing.T) {
	mock := NewMock("one", "two")

	first, err := mock.Chat(context.Background(), Request{})
	require.NoError(t, err)
	second, err := mock.Chat(context.Background(), Request{})
	require.NoError(t, err)
	_, err = mock.Chat(context.Background(), Request{})

	assert.Equal(t, "one", first)
	assert.Equal(t, "two", second)
	assert.Error(t, err)
}

func TestNewProviderNames(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "ollama", "mock"} {
		p, err := NewProvider(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
	_, err := NewProvider("nope")
	assert.Error(t, err)
}
