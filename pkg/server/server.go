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

// Package server exposes the HTTP API: chat with SSE streaming, the model
// registry, and data-source management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/pkg/agent"
	"github.com/skaldlabs/skald/pkg/embedding"
	"github.com/skaldlabs/skald/pkg/graph"
	"github.com/skaldlabs/skald/pkg/llm"
	"github.com/skaldlabs/skald/pkg/store"
	"github.com/skaldlabs/skald/pkg/vector"
)

// TaskQueue is the slice of the job client the handlers need.
type TaskQueue interface {
	EnqueueIngest(ctx context.Context, repoID string) error
	EnqueueRepoSummary(ctx context.Context, userID, repoID string) error
	EnqueueUserFacts(ctx context.Context, userID string) error
}

// Server wires the HTTP handlers to the backing services.
type Server struct {
	Store    *store.Store
	Graph    graph.Store
	Vectors  vector.Store
	Embedder embedding.Provider
	Files    agent.FileReader
	Queue    TaskQueue
	Logger   *slog.Logger

	// TokenService is the secret-store entry connect tokens are stored
	// under; empty means "github". It must match what ingestion reads.
	TokenService string

	// Providers resolves a provider name to an LLM client. Defaults to
	// llm.NewProvider; tests inject mocks here.
	Providers func(name string) (llm.Provider, error)
}

// Router assembles the chi route tree with logging, panic recovery, and
// permissive CORS for the web frontend.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/available-models", s.handleAvailableModels)
		r.Get("/history/{session_id}", s.handleChatHistory)
		r.Post("/", s.handleChat)
	})

	r.Route("/api/data-sources", func(r chi.Router) {
		r.Get("/", s.handleListDataSources)
		r.Post("/connect", s.handleConnectDataSource)
		r.Delete("/{id}", s.handleDeleteDataSource)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request in the slog event style used
// across the services.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger().Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) provider(name string) (llm.Provider, error) {
	if s.Providers != nil {
		return s.Providers(name)
	}
	return llm.NewProvider(name)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) tokenService() string {
	if s.TokenService != "" {
		return s.TokenService
	}
	return "github"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps internal error categories onto HTTP statuses. Anything
// that is not a UserError becomes an opaque 500; stack traces and driver
// details never reach the body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var ue *skalderrors.UserError
	if errors.As(err, &ue) {
		status = ue.HTTPStatus()
		message = ue.Message
	}
	writeJSON(w, status, map[string]string{"error": message})
}
