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

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRepo(t *testing.T, s *MemoryStore, repoID string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.UpsertDirectory(ctx, repoID, "."))
	require.NoError(t, s.UpsertDirectory(ctx, repoID, "a"))
	require.NoError(t, s.LinkContains(ctx, repoID, ".", "a", "directory"))
	require.NoError(t, s.UpsertFile(ctx, repoID, "a/svc.py"))
	require.NoError(t, s.LinkContains(ctx, repoID, "a", "a/svc.py", "file"))
	require.NoError(t, s.UpsertClass(ctx, repoID, "a/svc.py", "Peer", "A peer.", nil))
	require.NoError(t, s.UpsertFunction(ctx, repoID, "a/svc.py", "connect", "", "Peer"))
	require.NoError(t, s.UpsertFunction(ctx, repoID, "a/svc.py", "open", "", ""))
	require.NoError(t, s.AddCall(ctx, repoID, "connect", "a/svc.py", "open"))
}

func TestMemoryStoreMergeSemantics(t *testing.T) {
	s := NewMemory()
	seedRepo(t, s, "repo-1")

	before := len(s.Nodes("", "")) + len(s.Edges(""))

	// Re-running every write must not grow the graph.
	seedRepo(t, s, "repo-1")
	after := len(s.Nodes("", "")) + len(s.Edges(""))
	assert.Equal(t, before, after)
}

func TestMemoryStoreRepoIsolation(t *testing.T) {
	s := NewMemory()
	seedRepo(t, s, "repo-1")
	seedRepo(t, s, "repo-2")

	assert.Len(t, s.Nodes("Function", "repo-1"), 2)
	assert.Len(t, s.Nodes("Function", "repo-2"), 2)

	// Call edges stay inside each repo.
	for _, e := range s.Edges("CALLS") {
		if e.From == FunctionKey("repo-1", "a/svc.py", "connect") {
			assert.Equal(t, FunctionKey("repo-1", "a/svc.py", "open"), e.To)
		}
	}
}

func TestMemoryStoreCascadeDelete(t *testing.T) {
	s := NewMemory()
	seedRepo(t, s, "repo-1")
	seedRepo(t, s, "repo-2")

	require.NoError(t, s.CascadeDelete(context.Background(), "repo-1"))

	assert.Empty(t, s.Nodes("", "repo-1"))
	assert.NotEmpty(t, s.Nodes("", "repo-2"))

	// No edge may reference a deleted node.
	for _, e := range s.Edges("") {
		assert.NotContains(t, e.From, "|repo-1|")
		assert.NotContains(t, e.To, "|repo-1|")
	}
}

func TestMemoryStoreCallFanOut(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertFile(ctx, "r", "x.py"))
	require.NoError(t, s.UpsertFile(ctx, "r", "y.py"))
	require.NoError(t, s.UpsertFunction(ctx, "r", "x.py", "handle", "", ""))
	require.NoError(t, s.UpsertFunction(ctx, "r", "y.py", "handle", "", ""))
	require.NoError(t, s.UpsertFunction(ctx, "r", "x.py", "main", "", ""))

	// Two functions share the callee name; both edges are created.
	require.NoError(t, s.AddCall(ctx, "r", "main", "x.py", "handle"))
	assert.Len(t, s.Edges("CALLS"), 2)
}

func TestMemoryStoreCallUnresolvedIsDropped(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertFile(ctx, "r", "x.py"))
	require.NoError(t, s.UpsertFunction(ctx, "r", "x.py", "main", "", ""))

	require.NoError(t, s.AddCall(ctx, "r", "main", "x.py", "missing"))
	assert.Empty(t, s.Edges("CALLS"))
}

func TestMemoryStoreInheritsOnlyExistingBases(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertFile(ctx, "r", "m.py"))
	require.NoError(t, s.UpsertClass(ctx, "r", "m.py", "Base", "", nil))
	require.NoError(t, s.UpsertClass(ctx, "r", "m.py", "Child", "", []string{"Base", "Exception"}))

	require.NoError(t, s.AddInherits(ctx, "r", "Child", "m.py", []string{"Base", "Exception"}))

	edges := s.Edges("INHERITS_FROM")
	require.Len(t, edges, 1)
	assert.Equal(t, ClassKey("r", "m.py", "Base"), edges[0].To)
}

func TestMemoryStoreMethodRequiresClass(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertFile(ctx, "r", "m.py"))
	// No Nope class exists; the write binds nothing, like a Cypher MATCH.
	require.NoError(t, s.UpsertFunction(ctx, "r", "m.py", "run", "", "Nope"))

	assert.Empty(t, s.Nodes("Function", "r"))
	assert.Empty(t, s.Edges("HAS_METHOD"))
}

func TestMemoryStoreModulesAreGlobal(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertFile(ctx, "r1", "a.py"))
	require.NoError(t, s.UpsertFile(ctx, "r2", "b.py"))
	require.NoError(t, s.AddImport(ctx, "r1", "a.py", "os"))
	require.NoError(t, s.AddImport(ctx, "r2", "b.py", "os"))

	assert.Len(t, s.Nodes("Module", ""), 1)

	// Module nodes survive a repo wipe: they carry no repo_id.
	require.NoError(t, s.CascadeDelete(ctx, "r1"))
	assert.Len(t, s.Nodes("Module", ""), 1)
}

func TestMemoryStoreScriptedRun(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	s.ScriptRun([]Record{{"name": "open"}}, nil)

	records, err := s.Run(ctx, "MATCH (f:Function {repo_id: 'r'}) RETURN f.name AS name")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "open", records[0]["name"])

	// Script exhausted: empty result, query still recorded.
	records, err = s.Run(ctx, "MATCH (c:Class {repo_id: 'r'}) RETURN c.name")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, s.RunCalls(), 2)
}

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"match return", "MATCH (f:Function {repo_id: 'r'}) RETURN f.name", false},
		{"empty", "   ", true},
		{"merge", "MERGE (n:Function {name: 'x'})", true},
		{"detach delete", "MATCH (n) DETACH DELETE n", true},
		{"set", "MATCH (n) SET n.summary = ''", true},
		{"property containing keyword substring", "MATCH (f:File {repo_id: 'r'}) RETURN f.created_at", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReadOnly(tt.query)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
