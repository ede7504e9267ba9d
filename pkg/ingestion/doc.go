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

// Package ingestion turns a repository into a queryable knowledge graph
// and vector index.
//
// A run proceeds in phases:
//
//  1. Prepare: wipe the repo's previous graph nodes and vector namespace.
//  2. Fetch: shallow-clone the repository (or copy a local directory) into
//     a per-repo checkout directory.
//  3. Walk and parse: mirror the directory tree into Directory/File nodes
//     and run the language analyzers over supported files in a bounded
//     worker pool.
//  4. Populate: write Class/Function nodes first, then the IMPORTS, CALLS,
//     and INHERITS_FROM edges over the complete node set.
//  5. Embed: build one text chunk per function or method, embed them in
//     rate-limited batches, and upsert the vectors under the repo's
//     namespace.
//  6. Finalize: mark the data source indexed, or failed when any phase
//     after prepare errored.
//
// Every graph write uses merge semantics keyed by repo_id, so re-running
// ingestion for a repository is observationally idempotent. A single file
// that fails to parse is logged and skipped; a failed embedding batch only
// costs its own chunks.
//
// Quick start:
//
//	p := &ingestion.Pipeline{
//	    Graph:     graphStore,
//	    Vectors:   vectorStore,
//	    Embedder:  provider,
//	    Analyzers: analyzer.NewRegistry(analyzer.NewPython(logger)),
//	    Loader:    ingestion.NewLoader(cloneRoot, logger),
//	    Sources:   stateStore,
//	    Logger:    logger,
//	}
//	result, err := p.Run(ctx, repoID)
//
// Prometheus counters and histograms under the skald_ingest_ prefix track
// files, parse errors, node counts, embeddings, and per-phase durations.
package ingestion
