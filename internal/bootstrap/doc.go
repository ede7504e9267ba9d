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

// Package bootstrap wires configuration into live service handles.
//
// Both long-running processes build one App at startup:
//
//	cfg, _ := config.Load()
//	app, err := bootstrap.OpenApp(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Close(ctx)
//
//	// serve: http.ListenAndServe(cfg.HTTPAddr, app.Server().Router())
//	// worker: app.Worker().Run(ctx, cfg.JobBrokerURL)
//
// OpenApp fails fast on the first unreachable dependency so deployment
// problems surface at startup, not on the first request. Lightweight CLI
// commands that only touch relational state use OpenStore instead and
// skip the graph, vector, and broker connections entirely.
//
// The assembly helpers (Pipeline, Maintainer, Server, Worker, Agent,
// FileReader) are the single place where package dependencies are knotted
// together; the packages themselves only see interfaces.
package bootstrap
