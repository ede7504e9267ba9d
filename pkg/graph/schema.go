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

// schemaDescription is the textual schema handed to the query generator.
// It is the single source of truth for what agent-generated queries may
// reference; keep it in sync with the write operations in this package.
const schemaDescription = `Node labels and properties:
- Directory {path: string, repo_id: string, summary: string}
- File {path: string, repo_id: string, summary: string}
- Class {name: string, file_path: string, repo_id: string, summary: string}
- Function {name: string, file_path: string, repo_id: string, summary: string}
- Module {name: string}  // import target, global, has NO repo_id

Relationship types:
- (Directory)-[:CONTAINS]->(Directory)
- (Directory)-[:CONTAINS]->(File)
- (File)-[:DEFINES_CLASS]->(Class)
- (File)-[:DEFINES_FUNCTION]->(Function)
- (Class)-[:HAS_METHOD]->(Function)
- (Class)-[:INHERITS_FROM]->(Class)
- (Function)-[:CALLS]->(Function)
- (File)-[:IMPORTS]->(Module)

Notes:
- Methods are Function nodes reached through HAS_METHOD; standalone
  functions are reached through DEFINES_FUNCTION.
- Every node except Module carries repo_id. Every node pattern in a query
  MUST include the repo_id property filter.
- The summary property holds the docstring captured at ingestion time.`
