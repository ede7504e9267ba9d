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

package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaldlabs/skald/pkg/analyzer"
	"github.com/skaldlabs/skald/pkg/embedding"
	"github.com/skaldlabs/skald/pkg/graph"
	"github.com/skaldlabs/skald/pkg/store"
	"github.com/skaldlabs/skald/pkg/vector"
)

// fakeState implements StateStore in memory and records status transitions.
type fakeState struct {
	sources   map[string]*store.DataSource
	secrets   map[string]string
	statuses  []string
	indexedAt *time.Time
}

func (f *fakeState) GetDataSource(id string) (*store.DataSource, error) {
	ds, ok := f.sources[id]
	if !ok {
		return nil, fmt.Errorf("no data source %q", id)
	}
	return ds, nil
}

func (f *fakeState) SetDataSourceStatus(id, status string, indexedAt *time.Time) error {
	f.statuses = append(f.statuses, status)
	f.indexedAt = indexedAt
	return nil
}

func (f *fakeState) GetSecret(serviceName string) (string, error) {
	v, ok := f.secrets[serviceName]
	if !ok {
		return "", fmt.Errorf("no secret %q", serviceName)
	}
	return v, nil
}

const peerSource = `import socket

class Base:
    pass

class Peer(Base):
    """A network peer."""

    def connect(self, addr):
        """Open a connection to addr."""
        sock = open_socket(addr)
        return sock

def open_socket(addr):
    """Create a socket for addr."""
    return socket.create_connection(addr)
`

// writeTree materializes a path->content map under a fresh temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newTestPipeline(t *testing.T, repoID, repoPath string) (*Pipeline, *graph.MemoryStore, *vector.MemoryStore, *fakeState) {
	t.Helper()
	g := graph.NewMemory()
	v := vector.NewMemory()
	state := &fakeState{
		sources: map[string]*store.DataSource{
			repoID: {
				ID:                repoID,
				Name:              repoID,
				SourceType:        "local",
				ConnectionDetails: map[string]string{"path": repoPath},
			},
		},
		secrets: map[string]string{},
	}
	p := &Pipeline{
		Graph:     g,
		Vectors:   v,
		Embedder:  embedding.NewMock(8),
		Analyzers: analyzer.NewRegistry(analyzer.NewPython(nil)),
		Loader:    NewLoader(t.TempDir(), nil),
		Sources:   state,
		Config:    Config{ParseWorkers: 2, BatchSize: 10},
	}
	return p, g, v, state
}

func TestPipelineIndexesToyRepo(t *testing.T) {
	repoPath := writeTree(t, map[string]string{
		"peer.py":      peerSource,
		"README.md":    "# toy\n",
		".git/HEAD":    "ref: refs/heads/main\n",
		"sub/util.py":  "def helper():\n    return 1\n",
		"__pycache__/peer.cpython-312.pyc": "binary",
	})
	p, g, v, state := newTestPipeline(t, "r1", repoPath)

	result, err := p.Run(context.Background(), "r1")
	require.NoError(t, err)

	// .git and __pycache__ never enter the tree.
	assert.Equal(t, 3, result.FilesWalked) // peer.py, README.md, sub/util.py
	assert.Equal(t, 2, result.FilesParsed)
	assert.Zero(t, result.ParseErrors)

	classes := g.Nodes("Class", "r1")
	require.Len(t, classes, 2)
	functions := g.Nodes("Function", "r1")
	require.Len(t, functions, 3) // connect, open_socket, helper

	// Method attachment and inheritance.
	assert.True(t, g.HasEdge("HAS_METHOD",
		graph.ClassKey("r1", "peer.py", "Peer"),
		graph.FunctionKey("r1", "peer.py", "connect")))
	assert.True(t, g.HasEdge("INHERITS_FROM",
		graph.ClassKey("r1", "peer.py", "Peer"),
		graph.ClassKey("r1", "peer.py", "Base")))

	// Method body call resolved within the repo.
	assert.True(t, g.HasEdge("CALLS",
		graph.FunctionKey("r1", "peer.py", "connect"),
		graph.FunctionKey("r1", "peer.py", "open_socket")))

	// Imports land on a global Module node.
	assert.True(t, g.HasEdge("IMPORTS",
		graph.FileKey("r1", "peer.py"),
		graph.ModuleKey("socket")))

	// Directory tree mirrored with CONTAINS.
	assert.True(t, g.HasEdge("CONTAINS",
		graph.DirectoryKey("r1", "."),
		graph.FileKey("r1", "peer.py")))
	assert.True(t, g.HasEdge("CONTAINS",
		graph.DirectoryKey("r1", "sub"),
		graph.FileKey("r1", "sub/util.py")))

	// One vector per function/method under the repo namespace.
	assert.Equal(t, 3, v.Count("r1"))
	assert.Contains(t, v.IDs("r1"), vector.RecordID("r1", "peer.py", "connect"))
	assert.Contains(t, v.IDs("r1"), vector.RecordID("r1", "peer.py", "open_socket"))

	// Lifecycle: indexing then indexed, with a timestamp.
	assert.Equal(t, []string{store.StatusIndexing, store.StatusIndexed}, state.statuses)
	assert.NotNil(t, state.indexedAt)

	// Checkout cleaned up.
	_, err = os.Stat(p.Loader.Dir("r1"))
	assert.True(t, os.IsNotExist(err))
}

func TestPipelineVectorMetadataShape(t *testing.T) {
	repoPath := writeTree(t, map[string]string{"peer.py": peerSource})
	p, _, v, _ := newTestPipeline(t, "r1", repoPath)

	_, err := p.Run(context.Background(), "r1")
	require.NoError(t, err)

	// Methods record the bare method name with the class carried separately.
	method, ok := v.Get("r1", vector.RecordID("r1", "peer.py", "connect"))
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"repo_id":       "r1",
		"file_path":     "peer.py",
		"function_name": "connect",
		"type":          "method",
		"class_name":    "Peer",
	}, method.Metadata)

	fn, ok := v.Get("r1", vector.RecordID("r1", "peer.py", "open_socket"))
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"repo_id":       "r1",
		"file_path":     "peer.py",
		"function_name": "open_socket",
		"type":          "function",
	}, fn.Metadata)
}

func TestPipelineReingestIsIdempotent(t *testing.T) {
	repoPath := writeTree(t, map[string]string{"peer.py": peerSource})
	p, g, v, _ := newTestPipeline(t, "r1", repoPath)

	_, err := p.Run(context.Background(), "r1")
	require.NoError(t, err)

	firstClasses := len(g.Nodes("Class", "r1"))
	firstFunctions := len(g.Nodes("Function", "r1"))
	firstCalls := len(g.Edges("CALLS"))
	firstIDs := v.IDs("r1")
	sort.Strings(firstIDs)

	_, err = p.Run(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, firstClasses, len(g.Nodes("Class", "r1")))
	assert.Equal(t, firstFunctions, len(g.Nodes("Function", "r1")))
	assert.Equal(t, firstCalls, len(g.Edges("CALLS")))
	secondIDs := v.IDs("r1")
	sort.Strings(secondIDs)
	assert.Equal(t, firstIDs, secondIDs)
}

func TestPipelineSurvivesParseErrors(t *testing.T) {
	repoPath := writeTree(t, map[string]string{
		"good.py":   "def fine():\n    return 1\n",
		"broken.py": "def broken(:\n    ???\n",
	})
	p, g, _, state := newTestPipeline(t, "r1", repoPath)

	result, err := p.Run(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.ParseErrors)
	assert.Equal(t, 1, result.FilesParsed)

	// Facts from the good file still land.
	functions := g.Nodes("Function", "r1")
	require.Len(t, functions, 1)

	// The broken file still exists as a File node; only its facts are gone.
	assert.True(t, g.HasEdge("CONTAINS",
		graph.DirectoryKey("r1", "."),
		graph.FileKey("r1", "broken.py")))

	assert.Equal(t, store.StatusIndexed, state.statuses[len(state.statuses)-1])
}

func TestPipelineSkipsOversizedFiles(t *testing.T) {
	t.Setenv("SKALD_MAX_FILE_BYTES", "64")
	repoPath := writeTree(t, map[string]string{
		"small.py": "def tiny():\n    return 1\n",
		"big.py":   "def huge():\n    return 1\n" + strings.Repeat("# padding\n", 20),
	})
	p, g, _, _ := newTestPipeline(t, "r1", repoPath)

	result, err := p.Run(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesParsed)
	assert.Equal(t, 1, result.FilesSkipped)
	assert.Zero(t, result.ParseErrors)

	functions := g.Nodes("Function", "r1")
	require.Len(t, functions, 1)

	// The skipped file still exists in the tree.
	assert.True(t, g.HasEdge("CONTAINS",
		graph.DirectoryKey("r1", "."),
		graph.FileKey("r1", "big.py")))
}

func TestPipelineSkipsFailedEmbeddingBatches(t *testing.T) {
	repoPath := writeTree(t, map[string]string{
		"a.py": "def alpha():\n    return 1\n",
		"b.py": "def beta():\n    return 2\n",
	})
	p, _, v, state := newTestPipeline(t, "r1", repoPath)
	mock := embedding.NewMock(8)
	mock.FailTexts = []string{"alpha"}
	p.Embedder = mock
	p.Config.BatchSize = 1

	result, err := p.Run(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Chunks)
	assert.Equal(t, 1, result.Embedded)
	assert.Equal(t, 1, result.FailedBatches)
	assert.Equal(t, 1, v.Count("r1"))
	assert.Contains(t, v.IDs("r1"), vector.RecordID("r1", "b.py", "beta"))

	// Partial embedding coverage is not a failure.
	assert.Equal(t, store.StatusIndexed, state.statuses[len(state.statuses)-1])
}

func TestPipelineMarksFailedOnFetchError(t *testing.T) {
	p, _, _, state := newTestPipeline(t, "r1", "/nonexistent/path")

	_, err := p.Run(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, []string{store.StatusIndexing, store.StatusFailed}, state.statuses)
}

func TestRenderChunk(t *testing.T) {
	text := renderChunk("Method", "Peer.connect", "peer.py", []string{"self", "addr"}, "Open a connection.")
	assert.Equal(t, "Method: Peer.connect\nFile: peer.py\nArguments: self, addr\nDocumentation:\nOpen a connection.", text)

	text = renderChunk("Function", "main", "app.py", nil, "")
	assert.Equal(t, "Function: main\nFile: app.py\nArguments: None\nDocumentation:\n", text)
}
