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

// Package config loads skald configuration from the environment.
//
// All settings come from environment variables, optionally seeded from a
// .env file in the working directory (via godotenv). Defaults suit a local
// development setup: Neo4j on bolt://localhost:7687, Redis on
// localhost:6379, SQLite in the working directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
//	fmt.Println(cfg.GraphURI)
//
// Secrets (provider API keys, git tokens) are NOT part of this package;
// they live encrypted in the relational store and are resolved per request.
// LLM_API_KEY and VECTOR_API_KEY are bootstrap fallbacks for deployments
// that have not stored keys yet.
package config
