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
)

// runStatus lists registered repositories and their indexing state.
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald status

Shows every registered repository with its indexing status. Use the
global --json flag for machine-readable output.
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.LoadWithFile(globals.ConfigPath)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	st, err := bootstrap.OpenStore(cfg)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	defer st.Close()

	sources, err := st.ListDataSources()
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(sources)
		return
	}

	if len(sources) == 0 {
		fmt.Println("No repositories registered yet.")
		fmt.Println("Register one with: skald connect --name <name> --url <url>")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tLAST INDEXED")
	for _, ds := range sources {
		lastIndexed := "never"
		if ds.LastIndexedAt != nil {
			lastIndexed = ds.LastIndexedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ds.ID, ds.Name, ds.SourceType, ds.Status, lastIndexed)
	}
	_ = w.Flush()
}
