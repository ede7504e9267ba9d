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
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/bootstrap"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/pkg/config"
)

// runWorker consumes ingestion and memory tasks until SIGINT/SIGTERM.
func runWorker(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald worker

Runs the background job worker. Ingestion tasks run one at a time;
memory maintenance tasks run concurrently. Requires the same backing
services as 'skald serve' plus the Redis job broker.
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := serviceLogger(globals)
	cfg, err := config.LoadWithFile(globals.ConfigPath)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	if err := cfg.RequireSecretsKey(); err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.OpenApp(ctx, cfg, logger)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	defer app.Close(context.Background())

	if err := app.Worker().Run(ctx, cfg.JobBrokerURL); err != nil {
		skalderrors.FatalError(skalderrors.NewUpstreamError(
			"Worker stopped with an error",
			"The task server exited abnormally",
			"Check the Redis broker and backing services",
			err,
		), globals.JSON)
	}
	logger.Info("worker.stopped")
}
