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

package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skaldlabs/skald/internal/errors"
)

// Store is the shared handle for all relational state.
type Store struct {
	db         *sql.DB
	secretsKey []byte // AES-256 key; empty when the secret store is unconfigured
}

const schema = `
CREATE TABLE IF NOT EXISTS data_sources (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	source_type        TEXT NOT NULL,
	connection_details TEXT NOT NULL DEFAULT '{}',
	status             TEXT NOT NULL DEFAULT 'pending_indexing',
	last_indexed_at    TEXT,
	created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	repo_id    TEXT NOT NULL,
	sender     TEXT NOT NULL CHECK (sender IN ('user', 'llm')),
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_messages (session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_chat_user_repo ON chat_messages (user_id, repo_id, created_at);

CREATE TABLE IF NOT EXISTS repo_summaries (
	user_id         TEXT NOT NULL,
	repo_id         TEXT NOT NULL,
	summary_text    TEXT NOT NULL DEFAULT '',
	last_message_at TEXT,
	PRIMARY KEY (user_id, repo_id)
);

CREATE TABLE IF NOT EXISTS user_facts (
	user_id    TEXT NOT NULL,
	fact_key   TEXT NOT NULL,
	fact_value TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (user_id, fact_key)
);

CREATE TABLE IF NOT EXISTS api_keys (
	service_name        TEXT PRIMARY KEY,
	key_value_encrypted TEXT NOT NULL,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS configured_models (
	model_id     TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	provider     TEXT NOT NULL,
	api_key_name TEXT NOT NULL,
	is_active    INTEGER NOT NULL DEFAULT 1,
	notes        TEXT NOT NULL DEFAULT ''
);
`

// Open opens (or creates) the database at path and ensures the schema.
// secretsKey is the raw AES-256 key for the secret store; pass nil when
// secrets are not needed (read-only tools, tests).
func Open(path string, secretsKey []byte) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewDatabaseError(
			"Cannot open the state database",
			fmt.Sprintf("sqlite open %s failed", path),
			"Check that DATABASE_URL points to a writable location",
			err,
		)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// under the worker's concurrent tasks.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.NewDatabaseError(
				"Cannot configure the state database",
				fmt.Sprintf("pragma failed: %s", pragma),
				"Check that the database file is not corrupted",
				err,
			)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError(
			"Cannot initialize the state database schema",
			"schema creation failed",
			"Check that the database file is writable and not corrupted",
			err,
		)
	}

	return &Store{db: db, secretsKey: secretsKey}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for test seeding.
func (s *Store) DB() *sql.DB { return s.db }

// Timestamps are stored as RFC3339Nano text so ordering is lexicographic
// and portable across drivers.

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}
