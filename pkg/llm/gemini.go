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

	"google.golang.org/genai"
)

// geminiChat talks to the Gemini API through the genai SDK. The SDK binds
// the API key at client construction, so a fresh client is built per call;
// this is what makes per-user credentials possible on a shared provider.
type geminiChat struct{}

func (p *geminiChat) Name() string { return "gemini" }

func (p *geminiChat) prepare(ctx context.Context, req Request) (*genai.Client, []*genai.Content, *genai.GenerateContentConfig, error) {
	if req.APIKey == "" {
		return nil, nil, nil, fmt.Errorf("gemini: request carries no API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: req.APIKey})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create genai client: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return client, contents, config, nil
}

func (p *geminiChat) Chat(ctx context.Context, req Request) (string, error) {
	ctx, cancel := callContext(ctx, req)
	defer cancel()

	client, contents, config, err := p.prepare(ctx, req)
	if err != nil {
		return "", classifyError(p.Name(), err, 0)
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", classifyError(p.Name(), err, geminiStatus(err))
	}
	return resp.Text(), nil
}

func (p *geminiChat) ChatStream(ctx context.Context, req Request, onChunk func(string) error) error {
	ctx, cancel := callContext(ctx, req)
	defer cancel()

	client, contents, config, err := p.prepare(ctx, req)
	if err != nil {
		return classifyError(p.Name(), err, 0)
	}

	for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
		if err != nil {
			return classifyError(p.Name(), err, geminiStatus(err))
		}
		if text := resp.Text(); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
	return nil
}

// geminiStatus extracts the HTTP status from a genai APIError when present.
func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
