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
	"regexp"
	"strings"
)

// Record is one result row of a graph query, keyed by the RETURN aliases.
type Record map[string]any

// Store is the property-graph abstraction used by ingestion and the agent.
//
// All write operations use merge semantics keyed (at minimum) by repoID, so
// repeating any call is a no-op. Nodes referenced by edge operations must
// already exist; callers populate nodes first, then edges (two-pass).
type Store interface {
	// UpsertDirectory creates or merges a Directory node.
	UpsertDirectory(ctx context.Context, repoID, path string) error

	// LinkContains creates a CONTAINS edge from a Directory to a child
	// Directory or File. childKind is "directory" or "file".
	LinkContains(ctx context.Context, repoID, parentPath, childPath, childKind string) error

	// UpsertFile creates or merges a File node.
	UpsertFile(ctx context.Context, repoID, path string) error

	// UpsertClass creates or merges a Class node and its DEFINES_CLASS edge
	// from the file. The docstring becomes the summary on create only; base
	// class names are stored for the later INHERITS_FROM pass.
	UpsertClass(ctx context.Context, repoID, filePath, name, docstring string, baseClasses []string) error

	// UpsertFunction creates or merges a Function node. When className is
	// non-empty the function is attached as a method via HAS_METHOD from
	// that class (matched by name+filePath+repoID); otherwise the file gets
	// a DEFINES_FUNCTION edge.
	UpsertFunction(ctx context.Context, repoID, filePath, name, docstring, className string) error

	// AddCall creates CALLS edges from the named caller to every Function
	// in the repo whose name equals calleeName. Same-name fan-out is the
	// intended overapproximation; a missing callee creates nothing.
	AddCall(ctx context.Context, repoID, callerName, callerFile, calleeName string) error

	// AddImport creates an IMPORTS edge from the file to a global Module
	// node, creating the Module when absent.
	AddImport(ctx context.Context, repoID, filePath, moduleName string) error

	// AddInherits creates INHERITS_FROM edges from the class to each base
	// that exists as a Class in the same repo. Unknown bases are skipped.
	AddInherits(ctx context.Context, repoID, className, filePath string, baseNames []string) error

	// Run executes a read-only query and returns its records. Mutation
	// keywords are rejected before the query reaches the engine.
	Run(ctx context.Context, query string) ([]Record, error)

	// SchemaDescription returns a textual schema for prompt construction.
	SchemaDescription() string

	// CascadeDelete removes every node carrying repoID together with all
	// of its relationships.
	CascadeDelete(ctx context.Context, repoID string) error

	// Close releases the underlying driver or handles.
	Close(ctx context.Context) error
}

// mutationKeyword matches Cypher clauses that modify the graph. Word
// boundaries keep property names like "created_at" from tripping the guard.
var mutationKeyword = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH|LOAD\s+CSV)\b`)

// ValidateReadOnly returns an error when the query contains a mutation
// clause. The agent only ever reads; everything else is a generation bug.
func ValidateReadOnly(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("empty query")
	}
	if m := mutationKeyword.FindString(query); m != "" {
		return fmt.Errorf("query contains mutation keyword %q; only read queries are allowed", strings.ToUpper(m))
	}
	return nil
}
