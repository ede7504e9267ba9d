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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/bootstrap"
	skalderrors "github.com/skaldlabs/skald/internal/errors"
	"github.com/skaldlabs/skald/pkg/config"
)

// runServe starts the HTTP API server and blocks until SIGINT/SIGTERM.
func runServe(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (overrides HTTP_ADDR)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald serve [options]

Runs the HTTP API: chat with SSE streaming, data-source management,
and Prometheus metrics on /metrics. Requires the graph database, the
vector index, and the job broker to be reachable.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := serviceLogger(globals)
	cfg, err := config.LoadWithFile(globals.ConfigPath)
	if err != nil {
		skalderrors.FatalError(err, globals.JSON)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
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

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Server().Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serve.listening", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		skalderrors.FatalError(skalderrors.NewInternalError(
			"HTTP server failed",
			fmt.Sprintf("Listening on %s failed", cfg.HTTPAddr),
			"Check that the address is free and bindable",
			err,
		), globals.JSON)
	}
	logger.Info("serve.stopped")
}
