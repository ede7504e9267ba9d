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

	"github.com/skaldlabs/skald/internal/errors"
)

// ConfiguredModel is one chat model users may select. APIKeyName names the
// secret-store entry holding its credential.
type ConfiguredModel struct {
	ModelID     string `json:"model_id"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
	APIKeyName  string `json:"api_key_name"`
	IsActive    bool   `json:"is_active"`
	Notes       string `json:"notes,omitempty"`
}

// UpsertModel registers or updates a model entry.
func (s *Store) UpsertModel(m ConfiguredModel) error {
	_, err := s.db.Exec(`
		INSERT INTO configured_models (model_id, display_name, provider, api_key_name, is_active, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (model_id) DO UPDATE SET
			display_name = excluded.display_name,
			provider = excluded.provider,
			api_key_name = excluded.api_key_name,
			is_active = excluded.is_active,
			notes = excluded.notes`,
		m.ModelID, m.DisplayName, m.Provider, m.APIKeyName, boolToInt(m.IsActive), m.Notes)
	if err != nil {
		return errors.NewDatabaseError("Cannot store the model configuration", "", "", err)
	}
	return nil
}

// GetModel returns one configured model by id.
func (s *Store) GetModel(modelID string) (*ConfiguredModel, error) {
	var m ConfiguredModel
	var active int
	err := s.db.QueryRow(`
		SELECT model_id, display_name, provider, api_key_name, is_active, notes
		FROM configured_models WHERE model_id = ?`, modelID).
		Scan(&m.ModelID, &m.DisplayName, &m.Provider, &m.APIKeyName, &active, &m.Notes)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(
			"Model is not configured",
			fmt.Sprintf("no configured model with id %q", modelID),
			"List usable models with 'skald models'",
		)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read the model configuration", "", "", err)
	}
	m.IsActive = active != 0
	return &m, nil
}

// ListModels returns configured models; activeOnly filters disabled ones.
func (s *Store) ListModels(activeOnly bool) ([]ConfiguredModel, error) {
	query := `SELECT model_id, display_name, provider, api_key_name, is_active, notes
		FROM configured_models`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY model_id ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot list configured models", "", "", err)
	}
	defer rows.Close()

	var out []ConfiguredModel
	for rows.Next() {
		var m ConfiguredModel
		var active int
		if err := rows.Scan(&m.ModelID, &m.DisplayName, &m.Provider, &m.APIKeyName, &active, &m.Notes); err != nil {
			return nil, errors.NewDatabaseError("Cannot read a model row", "", "", err)
		}
		m.IsActive = active != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
