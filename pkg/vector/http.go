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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HTTPStore talks to a Pinecone-style vector index over REST.
type HTTPStore struct {
	host   string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// NewHTTP creates a client for the index at host (with or without the
// https:// prefix), authenticating with apiKey.
func NewHTTP(host, apiKey string, logger *slog.Logger) *HTTPStore {
	if logger == nil {
		logger = slog.Default()
	}
	if host != "" && !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &HTTPStore{
		host:   strings.TrimSuffix(host, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (s *HTTPStore) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("vector index %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("vector index %s returned status %d: %s", path, resp.StatusCode, string(detail))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Upsert writes records into the namespace.
func (s *HTTPStore) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return s.post(ctx, "/vectors/upsert", map[string]any{
		"namespace": namespace,
		"vectors":   records,
	}, nil)
}

// Query returns the topK nearest records in the namespace, best first.
func (s *HTTPStore) Query(ctx context.Context, namespace string, values []float32, topK int) ([]Match, error) {
	var result struct {
		Matches []Match `json:"matches"`
	}
	err := s.post(ctx, "/query", map[string]any{
		"namespace":       namespace,
		"vector":          values,
		"topK":            topK,
		"includeMetadata": true,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Matches, nil
}

// DeleteNamespace removes every record in the namespace.
func (s *HTTPStore) DeleteNamespace(ctx context.Context, namespace string) error {
	err := s.post(ctx, "/vectors/delete", map[string]any{
		"namespace": namespace,
		"deleteAll": true,
	}, nil)
	if err != nil {
		return err
	}
	s.logger.Info("vector.namespace_delete", "namespace", namespace)
	return nil
}

// Close is a no-op; the HTTP client holds no persistent connection state
// worth tearing down explicitly.
func (s *HTTPStore) Close() error { return nil }
