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
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements Store on a Neo4j server over Bolt.
//
// The driver is a per-process shared handle; sessions are opened per
// operation and closed before returning.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewNeo4j connects to the graph database and verifies connectivity.
func NewNeo4j(ctx context.Context, uri, user, password string, logger *slog.Logger) (*Neo4jStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	logger.Info("graph.connect", "uri", uri)
	return &Neo4jStore{driver: driver, logger: logger}, nil
}

func (s *Neo4jStore) write(ctx context.Context, cypher string, params map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return nil, result.Err()
	})
	return err
}

// UpsertDirectory merges a Directory node keyed by path+repo_id.
func (s *Neo4jStore) UpsertDirectory(ctx context.Context, repoID, path string) error {
	return s.write(ctx, `
		MERGE (d:Directory {path: $path, repo_id: $repo_id})
		ON CREATE SET d.summary = ''`,
		map[string]any{"path": path, "repo_id": repoID})
}

// LinkContains connects a parent directory to a child directory or file.
func (s *Neo4jStore) LinkContains(ctx context.Context, repoID, parentPath, childPath, childKind string) error {
	var cypher string
	switch childKind {
	case "directory":
		cypher = `
			MATCH (p:Directory {path: $parent, repo_id: $repo_id})
			MATCH (c:Directory {path: $child, repo_id: $repo_id})
			MERGE (p)-[:CONTAINS]->(c)`
	case "file":
		cypher = `
			MATCH (p:Directory {path: $parent, repo_id: $repo_id})
			MATCH (c:File {path: $child, repo_id: $repo_id})
			MERGE (p)-[:CONTAINS]->(c)`
	default:
		return fmt.Errorf("unknown child kind %q (want directory or file)", childKind)
	}
	return s.write(ctx, cypher, map[string]any{
		"parent": parentPath, "child": childPath, "repo_id": repoID,
	})
}

// UpsertFile merges a File node keyed by path+repo_id.
func (s *Neo4jStore) UpsertFile(ctx context.Context, repoID, path string) error {
	return s.write(ctx, `
		MERGE (f:File {path: $path, repo_id: $repo_id})
		ON CREATE SET f.summary = ''`,
		map[string]any{"path": path, "repo_id": repoID})
}

// UpsertClass merges a Class node and its DEFINES_CLASS edge. The summary
// (docstring) is written on create only so re-ingestion cannot clobber a
// later enrichment; base class names are stored for reference, the
// INHERITS_FROM edges come from AddInherits in the edge pass.
func (s *Neo4jStore) UpsertClass(ctx context.Context, repoID, filePath, name, docstring string, baseClasses []string) error {
	bases := baseClasses
	if bases == nil {
		bases = []string{}
	}
	return s.write(ctx, `
		MATCH (f:File {path: $file_path, repo_id: $repo_id})
		MERGE (c:Class {name: $name, file_path: $file_path, repo_id: $repo_id})
		ON CREATE SET c.summary = $docstring
		SET c.base_classes = $bases
		MERGE (f)-[:DEFINES_CLASS]->(c)`,
		map[string]any{
			"file_path": filePath, "repo_id": repoID,
			"name": name, "docstring": docstring, "bases": bases,
		})
}

// UpsertFunction merges a Function node, attaching it as a method of
// className when given, or as a file-level function otherwise.
func (s *Neo4jStore) UpsertFunction(ctx context.Context, repoID, filePath, name, docstring, className string) error {
	if className != "" {
		return s.write(ctx, `
			MATCH (c:Class {name: $class_name, file_path: $file_path, repo_id: $repo_id})
			MERGE (fn:Function {name: $name, file_path: $file_path, repo_id: $repo_id})
			ON CREATE SET fn.summary = $docstring
			MERGE (c)-[:HAS_METHOD]->(fn)`,
			map[string]any{
				"class_name": className, "file_path": filePath, "repo_id": repoID,
				"name": name, "docstring": docstring,
			})
	}
	return s.write(ctx, `
		MATCH (f:File {path: $file_path, repo_id: $repo_id})
		MERGE (fn:Function {name: $name, file_path: $file_path, repo_id: $repo_id})
		ON CREATE SET fn.summary = $docstring
		MERGE (f)-[:DEFINES_FUNCTION]->(fn)`,
		map[string]any{
			"file_path": filePath, "repo_id": repoID,
			"name": name, "docstring": docstring,
		})
}

// AddCall links the caller to every same-named function in the repo. The
// callee match deliberately ignores file_path: cross-file resolution is by
// name only, and fan-out over homonyms is accepted.
func (s *Neo4jStore) AddCall(ctx context.Context, repoID, callerName, callerFile, calleeName string) error {
	return s.write(ctx, `
		MATCH (caller:Function {name: $caller, file_path: $caller_file, repo_id: $repo_id})
		MATCH (callee:Function {name: $callee, repo_id: $repo_id})
		MERGE (caller)-[:CALLS]->(callee)`,
		map[string]any{
			"caller": callerName, "caller_file": callerFile,
			"callee": calleeName, "repo_id": repoID,
		})
}

// AddImport links the file to a global Module node.
func (s *Neo4jStore) AddImport(ctx context.Context, repoID, filePath, moduleName string) error {
	return s.write(ctx, `
		MATCH (f:File {path: $file_path, repo_id: $repo_id})
		MERGE (m:Module {name: $module})
		MERGE (f)-[:IMPORTS]->(m)`,
		map[string]any{"file_path": filePath, "repo_id": repoID, "module": moduleName})
}

// AddInherits creates INHERITS_FROM edges toward bases that exist as Class
// nodes in the same repo. Bases defined outside the repo match nothing and
// are silently skipped.
func (s *Neo4jStore) AddInherits(ctx context.Context, repoID, className, filePath string, baseNames []string) error {
	if len(baseNames) == 0 {
		return nil
	}
	return s.write(ctx, `
		MATCH (c:Class {name: $name, file_path: $file_path, repo_id: $repo_id})
		UNWIND $bases AS base_name
		MATCH (b:Class {name: base_name, repo_id: $repo_id})
		MERGE (c)-[:INHERITS_FROM]->(b)`,
		map[string]any{
			"name": className, "file_path": filePath,
			"repo_id": repoID, "bases": baseNames,
		})
}

// Run executes a read-only query and returns the result records as maps.
func (s *Neo4jStore) Run(ctx context.Context, query string) ([]Record, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		raw, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(raw))
		for _, r := range raw {
			out = append(out, Record(r.AsMap()))
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("run graph query: %w", err)
	}
	return records.([]Record), nil
}

// SchemaDescription returns the schema text for prompt construction.
func (s *Neo4jStore) SchemaDescription() string { return schemaDescription }

// CascadeDelete removes every node of the repo and all its relationships.
func (s *Neo4jStore) CascadeDelete(ctx context.Context, repoID string) error {
	err := s.write(ctx, `MATCH (n {repo_id: $repo_id}) DETACH DELETE n`,
		map[string]any{"repo_id": repoID})
	if err != nil {
		return fmt.Errorf("cascade delete %s: %w", repoID, err)
	}
	s.logger.Info("graph.cascade_delete", "repo_id", repoID)
	return nil
}

// Close shuts down the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
