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

package bootstrap

import (
	"context"
	"log/slog"

	"github.com/skaldlabs/skald/pkg/agent"
	"github.com/skaldlabs/skald/pkg/analyzer"
	"github.com/skaldlabs/skald/pkg/config"
	"github.com/skaldlabs/skald/pkg/embedding"
	"github.com/skaldlabs/skald/pkg/graph"
	"github.com/skaldlabs/skald/pkg/ingestion"
	"github.com/skaldlabs/skald/pkg/llm"
	"github.com/skaldlabs/skald/pkg/memory"
	"github.com/skaldlabs/skald/pkg/queue"
	"github.com/skaldlabs/skald/pkg/server"
	"github.com/skaldlabs/skald/pkg/store"
	"github.com/skaldlabs/skald/pkg/vector"
)

// App holds the shared service handles for one process. The server and
// the worker both build an App once at startup and share it across
// requests and tasks.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *store.Store
	Graph    graph.Store
	Vectors  vector.Store
	Embedder embedding.Provider
	LLM      llm.Provider
	Queue    *queue.Client
}

// OpenStore opens just the relational state store. Lightweight commands
// (status, models) use this instead of a full App.
func OpenStore(cfg *config.Config) (*store.Store, error) {
	key, err := store.ParseSecretsKey(cfg.SecretsKey)
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.DatabaseURL, key)
}

// OpenApp connects every backing service: sqlite state, the Neo4j graph,
// the vector index, the embedding and LLM providers, and the job broker
// client. Fails fast on the first unreachable dependency.
func OpenApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	g, err := graph.NewNeo4j(ctx, cfg.GraphURI, cfg.GraphUser, cfg.GraphPassword, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	if err := cfg.RequireVector(); err != nil {
		g.Close(ctx)
		st.Close()
		return nil, err
	}
	vectors := vector.NewHTTP(cfg.VectorIndexHost, cfg.VectorAPIKey, logger)

	embedder, err := embedding.NewProvider(ctx, embedding.Config{
		Provider: cfg.EmbeddingProvider,
		Model:    cfg.EmbeddingModel,
		APIKey:   cfg.LLMAPIKey,
	})
	if err != nil {
		g.Close(ctx)
		st.Close()
		return nil, err
	}

	provider, err := llm.NewProvider(cfg.LLMProvider)
	if err != nil {
		g.Close(ctx)
		st.Close()
		return nil, err
	}

	qc, err := queue.NewClient(cfg.JobBrokerURL)
	if err != nil {
		g.Close(ctx)
		st.Close()
		return nil, err
	}

	logger.Info("bootstrap.app.ready",
		"graph_uri", cfg.GraphURI,
		"database", cfg.DatabaseURL,
		"broker", cfg.JobBrokerURL,
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Graph:    g,
		Vectors:  vectors,
		Embedder: embedder,
		LLM:      provider,
		Queue:    qc,
	}, nil
}

// Close releases every handle the App owns.
func (a *App) Close(ctx context.Context) {
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	if a.Vectors != nil {
		_ = a.Vectors.Close()
	}
	if g, ok := a.Graph.(*graph.Neo4jStore); ok && g != nil {
		_ = g.Close(ctx)
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}

// Loader returns a clone loader rooted at the configured path.
func (a *App) Loader() *ingestion.Loader {
	return ingestion.NewLoader(a.Config.RepoClonePath, a.Logger)
}

// Pipeline assembles the full ingestion pipeline.
func (a *App) Pipeline() *ingestion.Pipeline {
	return &ingestion.Pipeline{
		Graph:     a.Graph,
		Vectors:   a.Vectors,
		Embedder:  a.Embedder,
		Analyzers: analyzer.NewRegistry(analyzer.NewPython(a.Logger)),
		Loader:    a.Loader(),
		Sources:   a.Store,
		Logger:    a.Logger,
		Config: ingestion.Config{
			BatchSize:    a.Config.EmbeddingBatchSize,
			RequestDelay: a.Config.EmbeddingRequestDelay,
			TokenService: a.Config.GitTokenService,
		},
	}
}

// Maintainer assembles the memory maintainer on the internal model.
func (a *App) Maintainer() *memory.Maintainer {
	return &memory.Maintainer{
		Store:       a.Store,
		LLM:         a.LLM,
		Model:       a.Config.LLMModel,
		KeyName:     "gemini",
		FallbackKey: a.Config.LLMAPIKey,
		Logger:      a.Logger,
	}
}

// FileReader assembles the on-demand repository file reader used by the
// agent's file tool.
func (a *App) FileReader() *ingestion.FileReader {
	return &ingestion.FileReader{
		Loader:       a.Loader(),
		Sources:      a.Store,
		Logger:       a.Logger,
		TokenService: a.Config.GitTokenService,
	}
}

// Server assembles the HTTP API server.
func (a *App) Server() *server.Server {
	return &server.Server{
		Store:        a.Store,
		Graph:        a.Graph,
		Vectors:      a.Vectors,
		Embedder:     a.Embedder,
		Files:        a.FileReader(),
		Queue:        a.Queue,
		Logger:       a.Logger,
		TokenService: a.Config.GitTokenService,
	}
}

// Worker assembles the queue worker bound to this App's services.
func (a *App) Worker() *queue.Worker {
	return &queue.Worker{
		Pipeline:   a.Pipeline(),
		Maintainer: a.Maintainer(),
		Logger:     a.Logger,
	}
}

// Agent assembles a query agent for one request with the given chat
// provider.
func (a *App) Agent(provider llm.Provider) *agent.Agent {
	return &agent.Agent{
		LLM:      provider,
		Graph:    a.Graph,
		Vectors:  a.Vectors,
		Embedder: a.Embedder,
		Files:    a.FileReader(),
		Logger:   a.Logger,
	}
}
