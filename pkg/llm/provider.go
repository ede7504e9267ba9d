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

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	skalderrors "github.com/skaldlabs/skald/internal/errors"
)

// DefaultTimeout bounds one model call when the request does not set its
// own timeout.
const DefaultTimeout = 60 * time.Second

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Request is one model call. Model and APIKey travel with the request so a
// single provider instance can serve many users' credentials.
type Request struct {
	Model       string
	APIKey      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Provider is a chat model backend.
type Provider interface {
	// Chat returns the complete assistant reply.
	Chat(ctx context.Context, req Request) (string, error)

	// ChatStream delivers the reply incrementally through onChunk. A
	// non-nil error from onChunk aborts the stream.
	ChatStream(ctx context.Context, req Request, onChunk func(chunk string) error) error

	// Name returns the provider identifier.
	Name() string
}

// NewProvider creates a Provider by name.
// Supported: "gemini", "openai", "ollama", "mock".
func NewProvider(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case "gemini", "":
		return &geminiChat{}, nil
	case "openai", "openai-compatible":
		return newOpenAIChat(), nil
	case "ollama", "local":
		return newOllamaChat(), nil
	case "mock", "test":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider type: %s (supported: gemini, openai, ollama, mock)", name)
	}
}

// callContext applies the request timeout (or DefaultTimeout) to ctx.
func callContext(ctx context.Context, req Request) (context.Context, context.CancelFunc) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// classifyError maps a provider failure onto the error taxonomy: timeouts
// are network errors, auth rejections are configuration errors, anything
// else from the provider is an upstream error.
func classifyError(provider string, err error, statusCode int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return skalderrors.NewNetworkError(
			"Model call timed out",
			fmt.Sprintf("Provider %s did not answer within the request timeout", provider),
			"Retry, or raise the request timeout",
			err,
		)
	}
	switch statusCode {
	case 401, 403:
		return skalderrors.NewConfigError(
			"Model provider rejected the API key",
			fmt.Sprintf("Provider %s returned status %d", provider, statusCode),
			"Check the stored API key for this model",
			err,
		)
	case 0:
		// Transport-level failure without a status.
		return skalderrors.NewUpstreamError(
			"Model provider is unreachable",
			fmt.Sprintf("Provider %s: %v", provider, err),
			"Check connectivity to the provider endpoint",
			err,
		)
	default:
		return skalderrors.NewUpstreamError(
			"Model provider returned an error",
			fmt.Sprintf("Provider %s returned status %d", provider, statusCode),
			"Retry; if the failure persists, check the provider status page",
			err,
		)
	}
}
