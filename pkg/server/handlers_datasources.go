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

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skaldlabs/skald/internal/contract"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/pkg/store"
)

// connectRequest registers a repository for indexing.
type connectRequest struct {
	Name              string            `json:"name"`
	SourceType        string            `json:"source_type"`
	ConnectionDetails map[string]string `json:"connection_details"`
	Token             string            `json:"token,omitempty"`
}

func (s *Server) handleListDataSources(w http.ResponseWriter, _ *http.Request) {
	sources, err := s.Store.ListDataSources()
	if err != nil {
		writeError(w, err)
		return
	}
	if sources == nil {
		sources = []store.DataSource{}
	}
	writeJSON(w, http.StatusOK, sources)
}

// handleConnectDataSource registers a repo, stores an optional access
// token, and queues the first ingestion run. Duplicate names are a 409.
func (s *Server) handleConnectDataSource(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, skalderrors.NewInputError("Invalid request body", "The connect request is not valid JSON", ""))
		return
	}
	locator := req.ConnectionDetails["repo_url"]
	if req.SourceType == "local" {
		locator = req.ConnectionDetails["path"]
	}
	if v := contract.ValidateDataSource(req.Name, req.SourceType, locator); !v.OK {
		writeError(w, skalderrors.NewInputError("Invalid data source", v.Message, ""))
		return
	}

	existing, err := s.Store.ListDataSources()
	if err != nil {
		writeError(w, err)
		return
	}
	for _, ds := range existing {
		if ds.Name == req.Name {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": fmt.Sprintf("A data source named %q already exists", req.Name),
			})
			return
		}
	}

	if req.Token != "" {
		if err := s.Store.PutSecret(s.tokenService(), req.Token); err != nil {
			writeError(w, err)
			return
		}
	}

	ds := store.DataSource{
		ID:                uuid.NewString(),
		Name:              req.Name,
		SourceType:        req.SourceType,
		ConnectionDetails: req.ConnectionDetails,
		Status:            store.StatusPendingIndexing,
	}
	if err := s.Store.CreateDataSource(ds); err != nil {
		writeError(w, err)
		return
	}

	if s.Queue != nil {
		if err := s.Queue.EnqueueIngest(r.Context(), ds.ID); err != nil {
			s.logger().Error("http.datasources.enqueue_failed", "repo_id", ds.ID, "error", err)
			writeError(w, err)
			return
		}
	}

	created, err := s.Store.GetDataSource(ds.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleDeleteDataSource removes the repo everywhere: graph nodes and
// edges, vector namespace, then the relational row. Partial failures stop
// the cascade so retrying stays safe.
func (s *Server) handleDeleteDataSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Store.GetDataSource(id); err != nil {
		writeError(w, err)
		return
	}

	if err := s.Graph.CascadeDelete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Vectors.DeleteNamespace(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Store.DeleteDataSource(id); err != nil {
		writeError(w, err)
		return
	}

	s.logger().Info("http.datasources.deleted", "repo_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
