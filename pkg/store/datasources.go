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
	"encoding/json"
	"fmt"
	"time"

	"github.com/skaldlabs/skald/internal/errors"
)

// Data-source lifecycle states.
const (
	StatusPendingIndexing = "pending_indexing"
	StatusIndexing        = "indexing"
	StatusIndexed         = "indexed"
	StatusFailed          = "failed"
)

// DataSource is one registered repository.
type DataSource struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	SourceType        string            `json:"source_type"` // "github", "local"
	ConnectionDetails map[string]string `json:"connection_details"`
	Status            string            `json:"status"`
	LastIndexedAt     *time.Time        `json:"last_indexed_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// CreateDataSource registers a repository. Duplicate names are rejected so
// a repo cannot be registered twice by accident.
func (s *Store) CreateDataSource(ds DataSource) error {
	var existing int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM data_sources WHERE name = ?`, ds.Name).Scan(&existing); err != nil {
		return errors.NewDatabaseError("Cannot check for an existing data source", "", "", err)
	}
	if existing > 0 {
		return errors.NewInputError(
			"A data source with this name already exists",
			fmt.Sprintf("data_sources already contains %q", ds.Name),
			"Delete the existing data source first, or pick another name",
		)
	}

	details, err := json.Marshal(ds.ConnectionDetails)
	if err != nil {
		return errors.NewInternalError("Cannot serialize connection details", "", "", err)
	}
	if ds.Status == "" {
		ds.Status = StatusPendingIndexing
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now()
	}

	_, err = s.db.Exec(`
		INSERT INTO data_sources (id, name, source_type, connection_details, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Name, ds.SourceType, string(details), ds.Status, formatTime(ds.CreatedAt))
	if err != nil {
		return errors.NewDatabaseError("Cannot register the data source", "", "", err)
	}
	return nil
}

func scanDataSource(row interface{ Scan(...any) error }) (*DataSource, error) {
	var ds DataSource
	var details, createdAt string
	var lastIndexed sql.NullString

	if err := row.Scan(&ds.ID, &ds.Name, &ds.SourceType, &details, &ds.Status, &lastIndexed, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(details), &ds.ConnectionDetails); err != nil {
		ds.ConnectionDetails = map[string]string{}
	}
	ds.LastIndexedAt = parseNullTime(lastIndexed)
	if t, err := parseTime(createdAt); err == nil {
		ds.CreatedAt = t
	}
	return &ds, nil
}

const dataSourceColumns = `id, name, source_type, connection_details, status, last_indexed_at, created_at`

// GetDataSource returns the data source with the given id.
func (s *Store) GetDataSource(id string) (*DataSource, error) {
	row := s.db.QueryRow(`SELECT `+dataSourceColumns+` FROM data_sources WHERE id = ?`, id)
	ds, err := scanDataSource(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(
			"Data source not found",
			fmt.Sprintf("no data source with id %q", id),
			"List data sources with 'skald status'",
		)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read the data source", "", "", err)
	}
	return ds, nil
}

// ListDataSources returns every registered repository, newest first.
func (s *Store) ListDataSources() ([]DataSource, error) {
	rows, err := s.db.Query(`SELECT ` + dataSourceColumns + ` FROM data_sources ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot list data sources", "", "", err)
	}
	defer rows.Close()

	var out []DataSource
	for rows.Next() {
		ds, err := scanDataSource(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("Cannot read a data source row", "", "", err)
		}
		out = append(out, *ds)
	}
	return out, rows.Err()
}

// SetDataSourceStatus updates the lifecycle state; indexedAt is written
// only when non-nil (the successful-finalize case).
func (s *Store) SetDataSourceStatus(id, status string, indexedAt *time.Time) error {
	var err error
	if indexedAt != nil {
		_, err = s.db.Exec(`UPDATE data_sources SET status = ?, last_indexed_at = ? WHERE id = ?`,
			status, formatTime(*indexedAt), id)
	} else {
		_, err = s.db.Exec(`UPDATE data_sources SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return errors.NewDatabaseError("Cannot update the data source status", "", "", err)
	}
	return nil
}

// DeleteDataSource removes the registration row. Graph and vector cleanup
// is the caller's job (the cascade in the API handler).
func (s *Store) DeleteDataSource(id string) error {
	res, err := s.db.Exec(`DELETE FROM data_sources WHERE id = ?`, id)
	if err != nil {
		return errors.NewDatabaseError("Cannot delete the data source", "", "", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError(
			"Data source not found",
			fmt.Sprintf("no data source with id %q", id),
			"List data sources with 'skald status'",
		)
	}
	return nil
}
