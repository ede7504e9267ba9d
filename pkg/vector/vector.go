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

package vector

import (
	"context"
	"fmt"
)

// Record is one vector plus its metadata, identified by a deterministic ID.
type Record struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Match is one similarity-search hit.
type Match struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Store is the namespaced vector index.
//
// Results of Query are strictly scoped to the given namespace; deleting a
// namespace removes every record in it and nothing else.
type Store interface {
	// Upsert writes records into the namespace, overwriting same-ID records.
	Upsert(ctx context.Context, namespace string, records []Record) error

	// Query returns the topK most similar records in the namespace,
	// best first.
	Query(ctx context.Context, namespace string, values []float32, topK int) ([]Match, error)

	// DeleteNamespace removes every record in the namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Close releases the underlying client.
	Close() error
}

// RecordID builds the deterministic vector ID for a function or method.
func RecordID(repoID, filePath, functionName string) string {
	return fmt.Sprintf("%s:%s:%s", repoID, filePath, functionName)
}
