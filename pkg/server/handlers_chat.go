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

	"github.com/skaldlabs/skald/internal/contract"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/pkg/agent"
	"github.com/skaldlabs/skald/pkg/llm"
	"github.com/skaldlabs/skald/pkg/store"
)

// chatRequest is the POST /api/chat/ body.
type chatRequest struct {
	Query        string `json:"query"`
	Model        string `json:"model"`
	DataSourceID string `json:"data_source_id"`
	SessionID    string `json:"session_id"`
}

// modelInfo is what the frontend needs to render the model picker; the
// secret name never leaves the server.
type modelInfo struct {
	ModelID     string `json:"model_id"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
}

// handleAvailableModels lists active models whose credential the secret
// store can actually produce. A configured-but-keyless model is invisible
// rather than broken at chat time.
func (s *Server) handleAvailableModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.Store.ListModels(true)
	if err != nil {
		writeError(w, err)
		return
	}

	usable := make([]modelInfo, 0, len(models))
	for _, m := range models {
		if _, err := s.Store.GetSecret(m.APIKeyName); err != nil {
			s.logger().Warn("http.models.key_unavailable", "model_id", m.ModelID, "key_name", m.APIKeyName)
			continue
		}
		usable = append(usable, modelInfo{ModelID: m.ModelID, DisplayName: m.DisplayName, Provider: m.Provider})
	}
	writeJSON(w, http.StatusOK, usable)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	repoID := r.URL.Query().Get("repo_id")
	if repoID == "" {
		writeError(w, skalderrors.NewInputError("Missing repo_id", "The repo_id query parameter is required", ""))
		return
	}

	history, err := s.Store.SessionHistory(sessionID, repoID)
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []store.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, history)
}

// handleChat answers one question over SSE. The stream carries exactly one
// content frame with the full answer followed by a done frame; failures
// after the stream opens become an error frame because the status line is
// already gone.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, skalderrors.NewInputError("Invalid request body", "The chat request is not valid JSON", ""))
		return
	}
	if v := contract.ValidateChatRequest(req.DataSourceID, req.Query, req.SessionID); !v.OK {
		writeError(w, skalderrors.NewInputError("Invalid chat request", v.Message, ""))
		return
	}
	if req.Model == "" || req.SessionID == "" {
		writeError(w, skalderrors.NewInputError(
			"Missing required fields",
			"query, model, data_source_id, and session_id are all required",
			"",
		))
		return
	}
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = "default"
	}

	model, err := s.Store.GetModel(req.Model)
	if err != nil || !model.IsActive {
		writeError(w, skalderrors.NewInputError(
			"Model is not available",
			fmt.Sprintf("%q is not an active configured model", req.Model),
			"Pick a model from /api/chat/available-models",
		))
		return
	}
	apiKey, err := s.Store.GetSecret(model.APIKeyName)
	if err != nil {
		writeError(w, skalderrors.NewConfigError(
			"Model credential is unavailable",
			fmt.Sprintf("The secret store cannot produce the key for %q", req.Model),
			"Re-store the model's API key",
			err,
		))
		return
	}
	provider, err := s.provider(model.Provider)
	if err != nil {
		writeError(w, err)
		return
	}

	// History is loaded before the new turn is stored, so the agent sees
	// prior turns only; the current query rides in OriginalQuery.
	history, err := s.Store.SessionHistory(req.SessionID, req.DataSourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Store.AppendMessage(store.ChatMessage{
		SessionID: req.SessionID,
		UserID:    userID,
		RepoID:    req.DataSourceID,
		Sender:    store.SenderUser,
		Content:   req.Query,
	}); err != nil {
		writeError(w, err)
		return
	}

	stream, err := openSSE(w)
	if err != nil {
		writeError(w, err)
		return
	}

	a := &agent.Agent{
		LLM:      provider,
		Graph:    s.Graph,
		Vectors:  s.Vectors,
		Embedder: s.Embedder,
		Files:    s.Files,
		Logger:   s.logger(),
	}
	final, err := a.Run(r.Context(), agent.State{
		OriginalQuery: req.Query,
		ChatHistory:   chatTurns(history),
		RepoID:        req.DataSourceID,
		SessionID:     req.SessionID,
		APIKey:        apiKey,
		ModelID:       model.ModelID,
	})
	if err != nil {
		s.logger().Error("http.chat.agent_failed", "session_id", req.SessionID, "error", err)
		stream.sendError("The agent failed to produce an answer.")
		return
	}

	if err := stream.sendChunk(final.FinalAnswer); err != nil {
		// Client went away mid-stream; the answer is still persisted below.
		s.logger().Warn("http.chat.stream_broken", "session_id", req.SessionID, "error", err)
	} else {
		stream.sendDone()
	}

	if err := s.Store.AppendMessage(store.ChatMessage{
		SessionID: req.SessionID,
		UserID:    userID,
		RepoID:    req.DataSourceID,
		Sender:    store.SenderLLM,
		Content:   final.FinalAnswer,
	}); err != nil {
		s.logger().Error("http.chat.persist_failed", "session_id", req.SessionID, "error", err)
	}

	// Memory refresh is best effort; a down broker must not break chat.
	if s.Queue != nil {
		if err := s.Queue.EnqueueRepoSummary(r.Context(), userID, req.DataSourceID); err != nil {
			s.logger().Warn("http.chat.enqueue_summary_failed", "error", err)
		}
		if err := s.Queue.EnqueueUserFacts(r.Context(), userID); err != nil {
			s.logger().Warn("http.chat.enqueue_facts_failed", "error", err)
		}
	}
}

// chatTurns converts stored rows into the role/content shape the agent
// prompts with.
func chatTurns(history []store.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Sender == store.SenderLLM {
			role = "assistant"
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
