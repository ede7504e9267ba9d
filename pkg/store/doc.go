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

// Package store holds skald's relational state on a single SQLite handle:
// data sources, chat history, conversation summaries, user facts, the
// model registry and the encrypted secret store.
//
// Open ensures the schema, enables WAL and foreign keys, and returns a
// *Store whose method groups (one file per concern) all share the handle.
// Secrets are sealed with AES-256-GCM under the SECRETS_KEY; a value that
// fails to decrypt surfaces as a configuration error so the API can answer
// 503 rather than leaking cipher details.
package store
