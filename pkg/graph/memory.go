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
	"fmt"
	"sync"
)

// Node is one node in the in-memory graph. Identity follows the merge keys
// of the Neo4j statements: path for Directory/File, name+file_path for
// Class/Function, name for Module.
type Node struct {
	Label    string // Directory, File, Class, Function, Module
	RepoID   string // empty for Module
	Path     string // Directory, File
	Name     string // Class, Function, Module
	FilePath string // Class, Function
	Summary  string
	Bases    []string // Class only
}

// Edge is one relationship between two node keys.
type Edge struct {
	Type string
	From string
	To   string
}

// MemoryStore is an in-process Store used by tests and local development.
// It reproduces the merge semantics of the Neo4j statements exactly: writes
// are idempotent, edge endpoints must already exist, and missing endpoints
// make the write a silent no-op (a MATCH that binds nothing).
//
// Run returns scripted results: tests enqueue (records, err) pairs with
// ScriptRun and inspect the queries the agent issued via RunCalls.
type MemoryStore struct {
	mu    sync.Mutex
	nodes map[string]*Node
	edges map[string]Edge

	runScripts []runScript
	runCalls   []string
}

type runScript struct {
	records []Record
	err     error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*Node),
		edges: make(map[string]Edge),
	}
}

func dirKey(repoID, path string) string      { return "Directory|" + repoID + "|" + path }
func fileKey(repoID, path string) string     { return "File|" + repoID + "|" + path }
func classKey(repoID, fp, name string) string { return "Class|" + repoID + "|" + fp + "|" + name }
func funcKey(repoID, fp, name string) string  { return "Function|" + repoID + "|" + fp + "|" + name }
func moduleKey(name string) string           { return "Module||" + name }

func edgeKey(typ, from, to string) string { return typ + "|" + from + "|" + to }

func (s *MemoryStore) addEdge(typ, from, to string) {
	s.edges[edgeKey(typ, from, to)] = Edge{Type: typ, From: from, To: to}
}

// UpsertDirectory merges a Directory node.
func (s *MemoryStore) UpsertDirectory(_ context.Context, repoID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dirKey(repoID, path)
	if _, ok := s.nodes[key]; !ok {
		s.nodes[key] = &Node{Label: "Directory", RepoID: repoID, Path: path}
	}
	return nil
}

// LinkContains connects a directory to a child directory or file.
func (s *MemoryStore) LinkContains(_ context.Context, repoID, parentPath, childPath, childKind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var childKey string
	switch childKind {
	case "directory":
		childKey = dirKey(repoID, childPath)
	case "file":
		childKey = fileKey(repoID, childPath)
	default:
		return fmt.Errorf("unknown child kind %q (want directory or file)", childKind)
	}

	parentKey := dirKey(repoID, parentPath)
	if _, ok := s.nodes[parentKey]; !ok {
		return nil
	}
	if _, ok := s.nodes[childKey]; !ok {
		return nil
	}
	s.addEdge("CONTAINS", parentKey, childKey)
	return nil
}

// UpsertFile merges a File node.
func (s *MemoryStore) UpsertFile(_ context.Context, repoID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fileKey(repoID, path)
	if _, ok := s.nodes[key]; !ok {
		s.nodes[key] = &Node{Label: "File", RepoID: repoID, Path: path}
	}
	return nil
}

// UpsertClass merges a Class node and its DEFINES_CLASS edge.
func (s *MemoryStore) UpsertClass(_ context.Context, repoID, filePath, name, docstring string, baseClasses []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fk := fileKey(repoID, filePath)
	if _, ok := s.nodes[fk]; !ok {
		return nil
	}
	ck := classKey(repoID, filePath, name)
	n, ok := s.nodes[ck]
	if !ok {
		n = &Node{Label: "Class", RepoID: repoID, Name: name, FilePath: filePath, Summary: docstring}
		s.nodes[ck] = n
	}
	n.Bases = append([]string(nil), baseClasses...)
	s.addEdge("DEFINES_CLASS", fk, ck)
	return nil
}

// UpsertFunction merges a Function node as a method or a file-level function.
func (s *MemoryStore) UpsertFunction(_ context.Context, repoID, filePath, name, docstring, className string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fnKey := funcKey(repoID, filePath, name)
	upsert := func() {
		if _, ok := s.nodes[fnKey]; !ok {
			s.nodes[fnKey] = &Node{Label: "Function", RepoID: repoID, Name: name, FilePath: filePath, Summary: docstring}
		}
	}

	if className != "" {
		ck := classKey(repoID, filePath, className)
		if _, ok := s.nodes[ck]; !ok {
			return nil
		}
		upsert()
		s.addEdge("HAS_METHOD", ck, fnKey)
		return nil
	}

	fk := fileKey(repoID, filePath)
	if _, ok := s.nodes[fk]; !ok {
		return nil
	}
	upsert()
	s.addEdge("DEFINES_FUNCTION", fk, fnKey)
	return nil
}

// AddCall links the caller to every function named calleeName in the repo.
func (s *MemoryStore) AddCall(_ context.Context, repoID, callerName, callerFile, calleeName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	callerKey := funcKey(repoID, callerFile, callerName)
	if _, ok := s.nodes[callerKey]; !ok {
		return nil
	}
	for key, n := range s.nodes {
		if n.Label == "Function" && n.RepoID == repoID && n.Name == calleeName {
			s.addEdge("CALLS", callerKey, key)
		}
	}
	return nil
}

// AddImport links the file to a global Module node, creating it if needed.
func (s *MemoryStore) AddImport(_ context.Context, repoID, filePath, moduleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fk := fileKey(repoID, filePath)
	if _, ok := s.nodes[fk]; !ok {
		return nil
	}
	mk := moduleKey(moduleName)
	if _, ok := s.nodes[mk]; !ok {
		s.nodes[mk] = &Node{Label: "Module", Name: moduleName}
	}
	s.addEdge("IMPORTS", fk, mk)
	return nil
}

// AddInherits links the class to each base that exists in the same repo.
func (s *MemoryStore) AddInherits(_ context.Context, repoID, className, filePath string, baseNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ck := classKey(repoID, filePath, className)
	if _, ok := s.nodes[ck]; !ok {
		return nil
	}
	for _, base := range baseNames {
		for key, n := range s.nodes {
			if n.Label == "Class" && n.RepoID == repoID && n.Name == base {
				s.addEdge("INHERITS_FROM", ck, key)
			}
		}
	}
	return nil
}

// ScriptRun enqueues the next result Run will return.
func (s *MemoryStore) ScriptRun(records []Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runScripts = append(s.runScripts, runScript{records: records, err: err})
}

// RunCalls returns the queries Run has received, in order.
func (s *MemoryStore) RunCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.runCalls...)
}

// Run records the query and returns the next scripted result, or no records
// when the script is exhausted.
func (s *MemoryStore) Run(_ context.Context, query string) ([]Record, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCalls = append(s.runCalls, query)
	if len(s.runScripts) == 0 {
		return nil, nil
	}
	next := s.runScripts[0]
	s.runScripts = s.runScripts[1:]
	return next.records, next.err
}

// SchemaDescription returns the schema text for prompt construction.
func (s *MemoryStore) SchemaDescription() string { return schemaDescription }

// CascadeDelete removes every node with the repo id and any edge touching
// a removed node.
func (s *MemoryStore) CascadeDelete(_ context.Context, repoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]bool)
	for key, n := range s.nodes {
		if n.RepoID == repoID {
			removed[key] = true
			delete(s.nodes, key)
		}
	}
	for key, e := range s.edges {
		if removed[e.From] || removed[e.To] {
			delete(s.edges, key)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(context.Context) error { return nil }

// Nodes returns a snapshot of nodes matching label and repoID. Empty label
// or repoID matches all; Module nodes match only the empty repoID filter.
func (s *MemoryStore) Nodes(label, repoID string) []Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Node
	for _, n := range s.nodes {
		if label != "" && n.Label != label {
			continue
		}
		if repoID != "" && n.RepoID != repoID {
			continue
		}
		out = append(out, *n)
	}
	return out
}

// Edges returns a snapshot of edges of the given type (all when empty).
func (s *MemoryStore) Edges(typ string) []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Edge
	for _, e := range s.edges {
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	return out
}

// HasEdge reports whether an edge of the given type exists between the
// node keys built from the same identity rules as the write operations.
func (s *MemoryStore) HasEdge(typ, from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[edgeKey(typ, from, to)]
	return ok
}

// Key helpers for test assertions.

// DirectoryKey returns the identity key of a Directory node.
func DirectoryKey(repoID, path string) string { return dirKey(repoID, path) }

// FileKey returns the identity key of a File node.
func FileKey(repoID, path string) string { return fileKey(repoID, path) }

// ClassKey returns the identity key of a Class node.
func ClassKey(repoID, filePath, name string) string { return classKey(repoID, filePath, name) }

// FunctionKey returns the identity key of a Function node.
func FunctionKey(repoID, filePath, name string) string { return funcKey(repoID, filePath, name) }

// ModuleKey returns the identity key of a Module node.
func ModuleKey(name string) string { return moduleKey(name) }
