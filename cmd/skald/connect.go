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

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/bootstrap"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/internal/output"
	"github.com/skaldlabs/skald/internal/ui"
	"github.com/skaldlabs/skald/pkg/config"
	"github.com/skaldlabs/skald/pkg/queue"
	"github.com/skaldlabs/skald/pkg/store"
)

// runConnect registers a repository and queues its first indexing run.
func runConnect(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	name := fs.String("name", "", "Display name for the repository (required)")
	url := fs.String("url", "", "GitHub clone URL (for github sources)")
	path := fs.String("path", "", "Local directory (for local sources)")
	token := fs.String("token", "", "Access token for private repositories")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald connect [options]

Registers a repository as a data source and queues its first indexing
run. Exactly one of --url or --path must be given.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  skald connect --name skald --url https://github.com/skaldlabs/skald
  skald connect --name local-tree --path /home/me/src/project
  skald connect --name private --url https://github.com/org/repo --token ghp_...
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *name == "" || (*url == "") == (*path == "") {
		fs.Usage()
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

	sourceType := "github"
	details := map[string]string{"repo_url": *url}
	if *path != "" {
		sourceType = "local"
		details = map[string]string{"path": *path}
	}

	if *token != "" {
		if err := st.PutSecret(cfg.GitTokenService, *token); err != nil {
			skalderrors.FatalError(err, globals.JSON)
		}
	}

	ds := store.DataSource{
		ID:                uuid.NewString(),
		Name:              *name,
		SourceType:        sourceType,
		ConnectionDetails: details,
		Status:            store.StatusPendingIndexing,
	}
	if err := st.CreateDataSource(ds); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	qc, err := queue.NewClient(cfg.JobBrokerURL)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	defer qc.Close()
	if err := qc.EnqueueIngest(context.Background(), ds.ID); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(map[string]string{"id": ds.ID, "name": ds.Name, "status": ds.Status})
		return
	}
	ui.Successf("Registered %s", ds.Name)
	fmt.Printf("  id:     %s\n", ds.ID)
	fmt.Printf("  status: %s\n", ds.Status)
	fmt.Printf("\nIndexing has been queued. Watch it with:\n  skald index %s --wait\n", ds.ID)
}
