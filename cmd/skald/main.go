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

// Package main implements the skald CLI for indexing repositories and
// asking questions about them.
//
// Usage:
//
//	skald serve                  Run the HTTP API server
//	skald worker                 Run the background job worker
//	skald connect                Register a repository
//	skald index <repo-id>        Queue (re)indexing of a repository
//	skald ask <repo-id> <query>  Ask a one-shot question
//	skald status [--json]        Show registered repositories
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carries the flags every subcommand respects.
type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	NoColor    bool
	Quiet      bool
	Verbose    int
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to skald.yaml (overrides environment settings)")
		jsonOutput  = flag.Bool("json", false, "Output machine-readable JSON")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		verbose     = flag.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Skald - repository question answering

Skald indexes source repositories into a code knowledge graph and a
vector index, then answers natural-language questions about them with
a multi-stage retrieval agent.

Usage:
  skald <command> [options]

Commands:
  serve         Run the HTTP API server
  worker        Run the background job worker
  connect       Register a repository as a data source
  index         Queue (re)indexing of a repository
  ask           Ask a one-shot question about a repository
  status        Show registered repositories and indexing state
  models        List configured chat models
  reset         Delete a repository's graph, vectors, and registration
  completion    Generate shell completion script (bash|zsh|fish)
  version       Show version information

Global Options:
  --config      Path to skald.yaml
  --json        Output machine-readable JSON
  --no-color    Disable colored output
  -v,--verbose  Increase log verbosity
  --version     Show version and exit

Examples:
  skald connect --name myrepo --url https://github.com/org/myrepo
  skald index <repo-id> --wait
  skald ask <repo-id> "where are peer connections handled?"
  skald status --json
  skald serve

Getting Started:
  1. Export SECRETS_KEY, GRAPH_URI, and VECTOR_INDEX_HOST (see skald.yaml.example)
  2. Register a repository:   skald connect --name myrepo --url <url>
  3. Wait for indexing:       skald index <repo-id> --wait
  4. Ask a question:          skald ask <repo-id> "how does X work?"

For detailed command help: skald <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	globals := GlobalFlags{
		ConfigPath: *configPath,
		JSON:       *jsonOutput,
		NoColor:    *noColor,
		Quiet:      *jsonOutput,
		Verbose:    *verbose,
	}
	ui.InitColors(globals.NoColor)
	setupLogging(globals)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "serve":
		runServe(cmdArgs, globals)
	case "worker":
		runWorker(cmdArgs, globals)
	case "connect":
		runConnect(cmdArgs, globals)
	case "index":
		runIndex(cmdArgs, globals)
	case "ask":
		runAsk(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "models":
		runModels(cmdArgs, globals)
	case "reset":
		runReset(cmdArgs, globals)
	case "completion":
		runCompletion(cmdArgs)
	case "version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("skald version %s\n", version)
	fmt.Printf("commit: %s\n", commit)
	fmt.Printf("built: %s\n", date)
}
