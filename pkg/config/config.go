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

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/skaldlabs/skald/internal/errors"
)

// Config holds all runtime settings for skald services.
//
// A single Config is shared by the API server, the worker, and the CLI.
// Fields map 1:1 to environment variables; see Load for names and defaults.
type Config struct {
	// DatabaseURL is the SQLite database path for relational state
	// (data sources, chat history, memory, secrets, model registry).
	DatabaseURL string

	// Graph database (Neo4j bolt endpoint).
	GraphURI      string
	GraphUser     string
	GraphPassword string

	// Vector index (Pinecone-compatible HTTP endpoint).
	VectorAPIKey    string
	VectorIndexHost string

	// Default LLM provider for internal calls (summaries, fact extraction)
	// and for chat when the request does not carry its own key.
	LLMProvider string
	LLMModel    string
	LLMAPIKey   string

	// Embedding generation.
	EmbeddingProvider     string
	EmbeddingModel        string
	EmbeddingBatchSize    int
	EmbeddingRequestDelay time.Duration

	// RepoClonePath is the parent directory for shallow clones during
	// ingestion. Each repo gets a subdirectory that is removed afterwards.
	RepoClonePath string

	// JobBrokerURL is the Redis URL backing the task queue.
	JobBrokerURL string

	// SecretsKey is the hex-encoded AES-256 key for the secret store.
	SecretsKey string

	// HTTPAddr is the listen address for the API server.
	HTTPAddr string

	// GitTokenService is the secret-store service name holding the git
	// token used for cloning private repositories.
	GitTokenService string
}

// Load reads configuration from the environment.
//
// A .env file in the working directory is loaded first if present
// (existing environment variables win). Missing optional settings fall
// back to local-development defaults; Load itself never fails on absent
// variables, so callers can surface missing credentials lazily with a
// precise error at the point of use.
func Load() (*Config, error) {
	// Best effort; a missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", "skald.db"),
		GraphURI:              getEnv("GRAPH_URI", "bolt://localhost:7687"),
		GraphUser:             getEnv("GRAPH_USER", "neo4j"),
		GraphPassword:         getEnv("GRAPH_PASSWORD", "password"),
		VectorAPIKey:          os.Getenv("VECTOR_API_KEY"),
		VectorIndexHost:       os.Getenv("VECTOR_INDEX_HOST"),
		LLMProvider:           getEnv("LLM_PROVIDER", "gemini"),
		LLMModel:              getEnv("LLM_MODEL", "gemini-1.5-flash"),
		LLMAPIKey:             os.Getenv("LLM_API_KEY"),
		EmbeddingProvider:     getEnv("EMBEDDING_PROVIDER", "gemini"),
		EmbeddingModel:        getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingBatchSize:    getEnvInt("EMBEDDING_BATCH_SIZE", 100),
		EmbeddingRequestDelay: getEnvDelay("EMBEDDING_REQUEST_DELAY", 1500*time.Millisecond),
		RepoClonePath:         getEnv("REPO_CLONE_PATH", filepath.Join(os.TempDir(), "skald-repos")),
		JobBrokerURL:          getEnv("JOB_BROKER_URL", "redis://localhost:6379/0"),
		SecretsKey:            os.Getenv("SECRETS_KEY"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":5001"),
		GitTokenService:       getEnv("GIT_TOKEN_SERVICE", "github-pat"),
	}

	return cfg, nil
}

// RequireSecretsKey returns a config error when the secret-store key is
// absent. Commands that touch encrypted credentials call this up front.
func (c *Config) RequireSecretsKey() error {
	if c.SecretsKey == "" {
		return errors.NewConfigError(
			"Secret store is not configured",
			"SECRETS_KEY environment variable is not set",
			"Generate a key with 'openssl rand -hex 32' and export SECRETS_KEY",
			nil,
		)
	}
	return nil
}

// RequireVector returns a config error when the vector index endpoint is
// absent. Ingestion and semantic search call this before first use.
func (c *Config) RequireVector() error {
	if c.VectorIndexHost == "" {
		return errors.NewConfigError(
			"Vector index is not configured",
			"VECTOR_INDEX_HOST environment variable is not set",
			"Set VECTOR_INDEX_HOST to your index endpoint and VECTOR_API_KEY to its key",
			nil,
		)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// getEnvDelay parses a duration setting. Accepts Go duration syntax
// ("1.5s", "200ms") and, for compatibility with older deployments, a bare
// number of seconds ("1.5").
func getEnvDelay(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
