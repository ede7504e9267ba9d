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

package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Upsert(ctx, "repo-1", []Record{
		{ID: RecordID("repo-1", "a.py", "open"), Values: []float32{1, 0}},
	}))
	require.NoError(t, s.Upsert(ctx, "repo-2", []Record{
		{ID: RecordID("repo-2", "b.py", "close"), Values: []float32{1, 0}},
	}))

	matches, err := s.Query(ctx, "repo-1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "repo-1:a.py:open", matches[0].ID)
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	rec := Record{ID: RecordID("r", "a.py", "f"), Values: []float32{1, 0}}
	require.NoError(t, s.Upsert(ctx, "r", []Record{rec}))
	require.NoError(t, s.Upsert(ctx, "r", []Record{rec}))

	assert.Equal(t, 1, s.Count("r"))
}

func TestMemoryStoreQueryRanking(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Upsert(ctx, "r", []Record{
		{ID: "r:a.py:exact", Values: []float32{1, 0}, Metadata: map[string]string{"function_name": "exact"}},
		{ID: "r:a.py:close", Values: []float32{0.9, 0.1}},
		{ID: "r:a.py:far", Values: []float32{0, 1}},
	}))

	matches, err := s.Query(ctx, "r", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "r:a.py:exact", matches[0].ID)
	assert.Equal(t, "r:a.py:close", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "exact", matches[0].Metadata["function_name"])
}

func TestMemoryStoreDeleteNamespace(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Upsert(ctx, "r", []Record{{ID: "r:a.py:f", Values: []float32{1}}}))
	require.NoError(t, s.DeleteNamespace(ctx, "r"))

	assert.Equal(t, 0, s.Count("r"))
	matches, err := s.Query(ctx, "r", []float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "repo:a/svc.py:connect", RecordID("repo", "a/svc.py", "connect"))
}
