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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/bootstrap"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/internal/output"
	"github.com/skaldlabs/skald/pkg/agent"
	"github.com/skaldlabs/skald/pkg/config"
	"github.com/skaldlabs/skald/pkg/llm"
)

// runAsk answers one question about an indexed repository and prints the
// answer to stdout.
func runAsk(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	modelID := fs.String("model", "", "Configured model to answer with (default: LLM_MODEL)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald ask <repo-id> <question...> [options]

Runs the retrieval agent once against an indexed repository. The answer
is grounded in the repository's knowledge graph and vector index.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  skald ask 4f1c... "where are peer connections handled?"
  skald ask 4f1c... what does the Batcher class do
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 2 {
		fs.Usage()
		os.Exit(1)
	}
	repoID := fs.Arg(0)
	question := strings.Join(fs.Args()[1:], " ")

	cfg, err := config.LoadWithFile(globals.ConfigPath)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	if err := cfg.RequireSecretsKey(); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	ctx := context.Background()
	app, err := bootstrap.OpenApp(ctx, cfg, setupLogging(globals))
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	defer app.Close(ctx)

	if _, err := app.Store.GetDataSource(repoID); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	model := *modelID
	if model == "" {
		model = cfg.LLMModel
	}
	provider, apiKey, err := resolveChatModel(app, model, cfg)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	final, err := app.Agent(provider).Run(ctx, agent.State{
		OriginalQuery: question,
		RepoID:        repoID,
		SessionID:     uuid.NewString(),
		APIKey:        apiKey,
		ModelID:       model,
	})
	if err != nil {
		skalderrors.FatalError(skalderrors.NewUpstreamError(
			"The agent failed to produce an answer",
			"",
			"Re-run with -v for the step-by-step log",
			err,
		), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(map[string]string{"answer": final.FinalAnswer})
		return
	}
	fmt.Println(final.FinalAnswer)
}

// resolveChatModel prefers a registered model with its stored key and
// falls back to the environment-configured provider and key.
func resolveChatModel(app *bootstrap.App, modelID string, cfg *config.Config) (llm.Provider, string, error) {
	if m, err := app.Store.GetModel(modelID); err == nil && m.IsActive {
		if key, err := app.Store.GetSecret(m.APIKeyName); err == nil {
			provider, err := llm.NewProvider(m.Provider)
			if err != nil {
				return nil, "", err
			}
			return provider, key, nil
		}
	}

	if cfg.LLMAPIKey == "" {
		return nil, "", skalderrors.NewConfigError(
			"No credential for the chat model",
			fmt.Sprintf("%q is not a registered model and LLM_API_KEY is not set", modelID),
			"Register the model or export LLM_API_KEY",
			nil,
		)
	}
	provider, err := llm.NewProvider(cfg.LLMProvider)
	if err != nil {
		return nil, "", err
	}
	return provider, cfg.LLMAPIKey, nil
}
