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

// Package graph provides the property-graph store for code structure.
//
// Every repository ingested by skald becomes a subgraph keyed by repo_id:
// Directory, File, Class and Function nodes connected by CONTAINS,
// DEFINES_CLASS, DEFINES_FUNCTION, HAS_METHOD, INHERITS_FROM, CALLS and
// IMPORTS relationships. Module nodes (import targets) are global and carry
// no repo_id.
//
// Two implementations ship:
//
//   - Neo4jStore: the production store on the Bolt protocol via
//     neo4j-go-driver. All writes are parameterized MERGE statements so
//     re-ingestion is idempotent.
//   - MemoryStore: an in-process store used by tests and local development.
//     It honors the same merge semantics and supports scripted results for
//     Run.
//
// Writes happen only during ingestion. The query agent reads through Run,
// which rejects mutation keywords; agent-generated queries must scope every
// node pattern by repo_id (see SchemaDescription).
package graph
