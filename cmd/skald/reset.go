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

	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/bootstrap"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/internal/ui"
	"github.com/skaldlabs/skald/pkg/config"
)

// runReset cascade-deletes one repository: graph nodes and edges, the
// vector namespace, and the registration row.
func runReset(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	force := fs.Bool("force", false, "Confirm the deletion (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald reset <repo-id> [options]

Deletes everything skald knows about the repository: its knowledge
graph, its vector index namespace, and its registration. Chat history
referring to the repository is kept.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	repoID := fs.Arg(0)

	if !*force {
		fmt.Fprintf(os.Stderr, "Error: you must pass --force to confirm the deletion\n")
		fmt.Fprintf(os.Stderr, "This will delete all indexed data for the repository.\n")
		os.Exit(1)
	}

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

	ds, err := app.Store.GetDataSource(repoID)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	fmt.Printf("Deleting %s (%s)...\n", ds.Name, repoID)

	if err := app.Graph.CascadeDelete(ctx, repoID); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	if err := app.Vectors.DeleteNamespace(ctx, repoID); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	if err := app.Store.DeleteDataSource(repoID); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	ui.Success("Deleted graph, vectors, and registration")
	fmt.Println()
	fmt.Println("Re-register with:")
	fmt.Println("  skald connect --name <name> --url <url>")
}
