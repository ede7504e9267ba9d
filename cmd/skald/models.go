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
	"fmt"
	"os"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/bootstrap"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/internal/output"
	"github.com/skaldlabs/skald/pkg/config"
	"github.com/skaldlabs/skald/pkg/store"
)

// runModels lists configured chat models; --add registers or updates one.
func runModels(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	all := fs.Bool("all", false, "Include inactive models")
	add := fs.String("add", "", "Register a model id")
	displayName := fs.String("display-name", "", "Display name for --add")
	provider := fs.String("provider", "gemini", "Provider for --add (gemini|openai|ollama)")
	keyName := fs.String("key-name", "", "Secret-store entry holding the model's API key (for --add)")
	key := fs.String("key", "", "API key to store under --key-name (for --add)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald models [options]

Lists the chat models users can pick, or registers a new one.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  skald models
  skald models --all
  skald models --add gemini-1.5-pro --display-name "Gemini 1.5 Pro" \
      --provider gemini --key-name gemini --key AIza...
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.LoadWithFile(globals.ConfigPath)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	if err := cfg.RequireSecretsKey(); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	st, err := bootstrap.OpenStore(cfg)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	defer st.Close()

	if *add != "" {
		if *keyName == "" {
			fmt.Fprintln(os.Stderr, "--key-name is required with --add")
			os.Exit(1)
		}
		if *key != "" {
			if err := st.PutSecret(*keyName, *key); err != nil {
				skalderrors.FatalError(err, globals.JSON)
			}
		}
		name := *displayName
		if name == "" {
			name = *add
		}
		if err := st.UpsertModel(store.ConfiguredModel{
			ModelID:     *add,
			DisplayName: name,
			Provider:    *provider,
			APIKeyName:  *keyName,
			IsActive:    true,
		}); err != nil {
			skalderrors.FatalError(err, globals.JSON)
		}
		if !globals.JSON {
			fmt.Printf("Registered model %s\n", *add)
		}
		return
	}

	models, err := st.ListModels(!*all)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(models)
		return
	}
	if len(models) == 0 {
		fmt.Println("No models configured. Add one with: skald models --add <model-id> ...")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tNAME\tPROVIDER\tKEY\tACTIVE")
	for _, m := range models {
		hasKey := "missing"
		if _, err := st.GetSecret(m.APIKeyName); err == nil {
			hasKey = "stored"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", m.ModelID, m.DisplayName, m.Provider, hasKey, m.IsActive)
	}
	_ = w.Flush()
}
