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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/bootstrap"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/internal/output"
	"github.com/skaldlabs/skald/internal/ui"
	"github.com/skaldlabs/skald/pkg/config"
	"github.com/skaldlabs/skald/pkg/queue"
	"github.com/skaldlabs/skald/pkg/store"
)

// runIndex queues a (re)indexing run; --wait polls until it finishes.
func runIndex(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	wait := fs.Bool("wait", false, "Block until indexing finishes")
	timeout := fs.Duration("timeout", 30*time.Minute, "Give up waiting after this long")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald index <repo-id> [options]

Queues a full (re)indexing run for the repository. Re-indexing wipes
the previous graph and vectors for the repo first, so the result is
always a fresh snapshot.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  skald index 4f1c...            Queue and return immediately
  skald index 4f1c... --wait     Queue and watch until finished
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	repoID := fs.Arg(0)

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

	if _, err := st.GetDataSource(repoID); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	qc, err := queue.NewClient(cfg.JobBrokerURL)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	defer qc.Close()
	if err := qc.EnqueueIngest(context.Background(), repoID); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	if !*wait {
		if globals.JSON {
			_ = output.JSON(map[string]string{"id": repoID, "status": "queued"})
			return
		}
		ui.Success("Indexing queued")
		fmt.Printf("Check progress with:\n  skald status\n")
		return
	}

	final, err := waitForIndexing(st, repoID, *timeout, globals)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	if globals.JSON {
		_ = output.JSON(final)
		return
	}
	if final.Status == store.StatusIndexed {
		ui.Successf("Indexed %s", final.Name)
	} else {
		ui.Errorf("Indexing of %s failed; see the worker logs", final.Name)
		os.Exit(1)
	}
}

// waitForIndexing polls the data-source row until it leaves the
// pending/indexing states, spinning on a TTY.
func waitForIndexing(st *store.Store, repoID string, timeout time.Duration, globals GlobalFlags) (*store.DataSource, error) {
	deadline := time.Now().Add(timeout)
	spinner := NewSpinner(NewProgressConfig(globals), "Indexing")
	defer finishSpinner(spinner)

	for {
		ds, err := st.GetDataSource(repoID)
		if err != nil {
			return nil, err
		}
		switch ds.Status {
		case store.StatusIndexed, store.StatusFailed:
			return ds, nil
		}
		if time.Now().After(deadline) {
			return nil, skalderrors.NewNetworkError(
				"Timed out waiting for indexing",
				fmt.Sprintf("The repository was still %q after %s", ds.Status, timeout),
				"The run may still finish; check 'skald status' later",
				nil,
			)
		}
		tickSpinner(spinner)
		time.Sleep(2 * time.Second)
	}
}
