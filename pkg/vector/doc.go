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

// Package vector provides the namespaced vector index for semantic search.
//
// Each ingested repository occupies one namespace (the repo id), so queries
// can never leak results across repositories. Record IDs are deterministic
// ("{repo_id}:{file_path}:{function_name}"), which makes re-ingestion
// overwrite rather than duplicate.
//
// HTTPStore speaks the Pinecone-style REST protocol (Api-Key header,
// /vectors/upsert, /query, /vectors/delete). MemoryStore is a cosine
// similarity index for tests and local development.
package vector
