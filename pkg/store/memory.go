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
	"time"

	"github.com/skaldlabs/skald/internal/errors"
)

// RepoSummary is the rolling per-(user, repo) conversation summary.
type RepoSummary struct {
	UserID        string
	RepoID        string
	SummaryText   string
	LastMessageAt *time.Time
}

// UserFact is one remembered fact about a user.
type UserFact struct {
	UserID    string
	FactKey   string
	FactValue string
	UpdatedAt time.Time
}

// GetRepoSummary returns the stored summary, or an empty one when the pair
// has never been summarized.
func (s *Store) GetRepoSummary(userID, repoID string) (*RepoSummary, error) {
	var summary RepoSummary
	var lastAt sql.NullString
	err := s.db.QueryRow(`
		SELECT user_id, repo_id, summary_text, last_message_at
		FROM repo_summaries WHERE user_id = ? AND repo_id = ?`,
		userID, repoID).Scan(&summary.UserID, &summary.RepoID, &summary.SummaryText, &lastAt)
	if err == sql.ErrNoRows {
		return &RepoSummary{UserID: userID, RepoID: repoID}, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read the conversation summary", "", "", err)
	}
	summary.LastMessageAt = parseNullTime(lastAt)
	return &summary, nil
}

// UpsertRepoSummary stores the new summary text and high-water timestamp.
func (s *Store) UpsertRepoSummary(summary RepoSummary) error {
	var lastAt any
	if summary.LastMessageAt != nil {
		lastAt = formatTime(*summary.LastMessageAt)
	}
	_, err := s.db.Exec(`
		INSERT INTO repo_summaries (user_id, repo_id, summary_text, last_message_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, repo_id) DO UPDATE SET
			summary_text = excluded.summary_text,
			last_message_at = excluded.last_message_at`,
		summary.UserID, summary.RepoID, summary.SummaryText, lastAt)
	if err != nil {
		return errors.NewDatabaseError("Cannot store the conversation summary", "", "", err)
	}
	return nil
}

// UpsertUserFact writes the fact and reports whether storage changed:
// a new key inserts, a changed value updates, an identical value is a
// no-op so retries stay idempotent.
func (s *Store) UpsertUserFact(userID, factKey, factValue string) (bool, error) {
	var current string
	err := s.db.QueryRow(`
		SELECT fact_value FROM user_facts WHERE user_id = ? AND fact_key = ?`,
		userID, factKey).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(`
			INSERT INTO user_facts (user_id, fact_key, fact_value, updated_at)
			VALUES (?, ?, ?, ?)`,
			userID, factKey, factValue, formatTime(time.Now()))
		if err != nil {
			return false, errors.NewDatabaseError("Cannot store the user fact", "", "", err)
		}
		return true, nil
	case err != nil:
		return false, errors.NewDatabaseError("Cannot read the user fact", "", "", err)
	case current == factValue:
		return false, nil
	default:
		_, err = s.db.Exec(`
			UPDATE user_facts SET fact_value = ?, updated_at = ?
			WHERE user_id = ? AND fact_key = ?`,
			factValue, formatTime(time.Now()), userID, factKey)
		if err != nil {
			return false, errors.NewDatabaseError("Cannot update the user fact", "", "", err)
		}
		return true, nil
	}
}

// UserFacts returns every stored fact for the user, keyed alphabetically.
func (s *Store) UserFacts(userID string) ([]UserFact, error) {
	rows, err := s.db.Query(`
		SELECT user_id, fact_key, fact_value, updated_at
		FROM user_facts WHERE user_id = ? ORDER BY fact_key ASC`, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot list user facts", "", "", err)
	}
	defer rows.Close()

	var out []UserFact
	for rows.Next() {
		var f UserFact
		var updatedAt string
		if err := rows.Scan(&f.UserID, &f.FactKey, &f.FactValue, &updatedAt); err != nil {
			return nil, errors.NewDatabaseError("Cannot read a user fact row", "", "", err)
		}
		if t, err := parseTime(updatedAt); err == nil {
			f.UpdatedAt = t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
