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
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process cosine-similarity index for tests and local
// development. Namespaces are fully isolated maps keyed by record ID.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Record
}

// NewMemory returns an empty in-memory index.
func NewMemory() *MemoryStore {
	return &MemoryStore{namespaces: make(map[string]map[string]Record)}
}

// Upsert writes records into the namespace, overwriting same-ID records.
func (s *MemoryStore) Upsert(_ context.Context, namespace string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]Record)
		s.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = r
	}
	return nil
}

// Query returns the topK records most similar to values, best first.
func (s *MemoryStore) Query(_ context.Context, namespace string, values []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.namespaces[namespace]
	matches := make([]Match, 0, len(ns))
	for _, r := range ns {
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    cosine(values, r.Values),
			Metadata: r.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteNamespace removes every record in the namespace.
func (s *MemoryStore) DeleteNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// Close is a no-op for the in-memory index.
func (s *MemoryStore) Close() error { return nil }

// Count returns the number of records in the namespace.
func (s *MemoryStore) Count(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}

// Get returns the stored record for the ID, if present.
func (s *MemoryStore) Get(namespace, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.namespaces[namespace][id]
	return r, ok
}

// IDs returns the record IDs stored in the namespace, unordered.
func (s *MemoryStore) IDs(namespace string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.namespaces[namespace]))
	for id := range s.namespaces[namespace] {
		ids = append(ids, id)
	}
	return ids
}

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
