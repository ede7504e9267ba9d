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
	"time"

	"github.com/skaldlabs/skald/internal/errors"
)

// Chat senders.
const (
	SenderUser = "user"
	SenderLLM  = "llm"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	RepoID    string    `json:"repo_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendMessage persists one chat turn. Message order within a session is
// the insertion order; CreatedAt defaults to now.
func (s *Store) AppendMessage(m ChatMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO chat_messages (session_id, user_id, repo_id, sender, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.SessionID, m.UserID, m.RepoID, m.Sender, m.Content, formatTime(m.CreatedAt))
	if err != nil {
		return errors.NewDatabaseError("Cannot persist the chat message", "", "", err)
	}
	return nil
}

func (s *Store) queryMessages(query string, args ...any) ([]ChatMessage, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read chat history", "", "", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.RepoID, &m.Sender, &m.Content, &createdAt); err != nil {
			return nil, errors.NewDatabaseError("Cannot read a chat message row", "", "", err)
		}
		if t, err := parseTime(createdAt); err == nil {
			m.CreatedAt = t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const chatColumns = `id, session_id, user_id, repo_id, sender, content, created_at`

// SessionHistory returns the messages of a session for one repo, oldest
// first.
func (s *Store) SessionHistory(sessionID, repoID string) ([]ChatMessage, error) {
	return s.queryMessages(`
		SELECT `+chatColumns+` FROM chat_messages
		WHERE session_id = ? AND repo_id = ?
		ORDER BY created_at ASC, id ASC`, sessionID, repoID)
}

// MessagesSince returns a user's messages for one repo newer than since.
// A nil since returns everything.
func (s *Store) MessagesSince(userID, repoID string, since *time.Time) ([]ChatMessage, error) {
	if since == nil {
		return s.queryMessages(`
			SELECT `+chatColumns+` FROM chat_messages
			WHERE user_id = ? AND repo_id = ?
			ORDER BY created_at ASC, id ASC`, userID, repoID)
	}
	return s.queryMessages(`
		SELECT `+chatColumns+` FROM chat_messages
		WHERE user_id = ? AND repo_id = ? AND created_at > ?
		ORDER BY created_at ASC, id ASC`, userID, repoID, formatTime(*since))
}

// UserHistory returns every message of a user across all repos, oldest
// first. Used by the fact extractor.
func (s *Store) UserHistory(userID string) ([]ChatMessage, error) {
	return s.queryMessages(`
		SELECT `+chatColumns+` FROM chat_messages
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC`, userID)
}
