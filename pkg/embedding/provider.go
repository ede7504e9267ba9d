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

package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider generates embeddings for batches of text.
type Provider interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size this provider produces.
	Dimensions() int

	// Name returns the provider identifier.
	Name() string
}

// Config holds settings for creating a provider.
type Config struct {
	// Provider type: "gemini", "openai", "ollama", "mock".
	Provider string

	// Model is the embedding model name.
	Model string

	// APIKey authenticates hosted providers.
	APIKey string

	// BaseURL overrides the API endpoint (OpenAI-compatible and Ollama).
	BaseURL string

	// Timeout for one batch request. Defaults to 60s.
	Timeout time.Duration
}

// NewProvider creates a Provider from configuration.
// Supported types: "gemini", "openai", "ollama", "mock".
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return newGeminiProvider(ctx, cfg)
	case "openai", "openai-compatible":
		return newOpenAIEmbedder(cfg), nil
	case "ollama", "local":
		return newOllamaEmbedder(cfg), nil
	case "mock", "test":
		return NewMock(8), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider type: %s (supported: gemini, openai, ollama, mock)", cfg.Provider)
	}
}

// =============================================================================
// OPENAI-COMPATIBLE PROVIDER
// =============================================================================

type openaiEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func newOpenAIEmbedder(cfg Config) *openaiEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &openaiEmbedder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *openaiEmbedder) Name() string { return "openai" }

// Dimensions for text-embedding-3-small; larger OpenAI models differ but
// the index dimension is fixed at creation time anyway.
func (p *openaiEmbedder) Dimensions() int { return 1536 }

func (p *openaiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, _ := json.Marshal(map[string]any{
		"model": p.model,
		"input": texts,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openai embeddings error (status %d): %s", resp.StatusCode, string(detail))
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(result.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// =============================================================================
// OLLAMA PROVIDER
// =============================================================================

type ollamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
}

func newOllamaEmbedder(cfg Config) *ollamaEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	return &ollamaEmbedder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *ollamaEmbedder) Name() string { return "ollama" }

// Dimensions for nomic-embed-text.
func (p *ollamaEmbedder) Dimensions() int { return 768 }

func (p *ollamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, _ := json.Marshal(map[string]any{
		"model": p.model,
		"input": texts,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama embed error (status %d): %s", resp.StatusCode, string(detail))
	}

	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

// =============================================================================
// MOCK PROVIDER
// =============================================================================

// Mock is a deterministic embedder for tests: the vector is derived from a
// hash of the text, so equal texts embed equally and different texts do not.
type Mock struct {
	dims int

	// FailTexts lists substrings that make a batch fail, for testing the
	// skip-on-error path.
	FailTexts []string
}

// NewMock returns a mock embedder producing dims-wide vectors.
func NewMock(dims int) *Mock {
	if dims <= 0 {
		dims = 8
	}
	return &Mock{dims: dims}
}

func (m *Mock) Name() string    { return "mock" }
func (m *Mock) Dimensions() int { return m.dims }

func (m *Mock) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		for _, fail := range m.FailTexts {
			if fail != "" && strings.Contains(text, fail) {
				return nil, fmt.Errorf("mock embedder: scripted failure on %q", fail)
			}
		}
		sum := sha256.Sum256([]byte(text))
		vec := make([]float32, m.dims)
		for d := 0; d < m.dims; d++ {
			bits := binary.BigEndian.Uint32(sum[(d*4)%28:])
			vec[d] = float32(bits%2000)/1000.0 - 1.0
		}
		vectors[i] = vec
	}
	return vectors, nil
}
