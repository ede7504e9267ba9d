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

	flag "github.com/spf13/pflag"

	"github.com/skaldlabs/skald/internal/errors"
)

// bashCompletionTemplate provides command and flag completion for bash.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for skald
# Installation:
#   source <(skald completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(skald completion bash)' >> ~/.bashrc

_skald_completion() {
    local cur prev commands
    commands="serve worker connect index ask status models reset completion version"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Global flags
    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--version --config --json --no-color --verbose" -- ${cur}) )
        return 0
    fi

    # First argument: complete commands
    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    # Command-specific flag completion
    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        serve)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--addr" -- ${cur}) )
            fi
            ;;
        connect)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--name --url --path --token" -- ${cur}) )
            fi
            ;;
        index)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--wait --timeout" -- ${cur}) )
            fi
            ;;
        ask)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--model" -- ${cur}) )
            fi
            ;;
        models)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--all --add --display-name --provider --key-name --key" -- ${cur}) )
            fi
            ;;
        reset)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _skald_completion skald
`

// zshCompletionTemplate provides command and flag completion for zsh.
const zshCompletionTemplate = `#compdef skald

# Zsh completion script for skald
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      skald completion zsh > "${fpath[1]}/_skald"
#   3. Reload completions:
#      rm -f ~/.zcompdump; compinit

_skald() {
    local -a commands
    commands=(
        'serve:Run the HTTP API server'
        'worker:Run the background job worker'
        'connect:Register a repository as a data source'
        'index:Queue (re)indexing of a repository'
        'ask:Ask a one-shot question about a repository'
        'status:Show registered repositories'
        'models:List configured chat models'
        'reset:Delete a repository (destructive!)'
        'completion:Generate shell completion script'
        'version:Show version information'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to skald.yaml]:config file:_files -g "*.yaml"' \
        '--json[Output machine-readable JSON]' \
        '--no-color[Disable colored output]' \
        '--verbose[Increase log verbosity]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                serve)
                    _arguments \
                        '--addr[Listen address]:address:'
                    ;;
                connect)
                    _arguments \
                        '--name[Display name for the repository]:name:' \
                        '--url[GitHub clone URL]:url:' \
                        '--path[Local directory]:directory:_files -/' \
                        '--token[Access token for private repositories]:token:'
                    ;;
                index)
                    _arguments \
                        '--wait[Block until indexing finishes]' \
                        '--timeout[Give up waiting after this long]:duration:'
                    ;;
                ask)
                    _arguments \
                        '--model[Configured model to answer with]:model:'
                    ;;
                models)
                    _arguments \
                        '--all[Include inactive models]' \
                        '--add[Register a model id]:model:' \
                        '--display-name[Display name]:name:' \
                        '--provider[Provider]:provider:(gemini openai ollama)' \
                        '--key-name[Secret-store entry]:name:' \
                        '--key[API key to store]:key:'
                    ;;
                reset)
                    _arguments \
                        '--force[Confirm the deletion]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_skald
`

// fishCompletionTemplate provides command and flag completion for fish.
const fishCompletionTemplate = `# Fish completion script for skald
# Installation:
#   1. Load completions for current session:
#      skald completion fish | source
#   2. Install permanently:
#      skald completion fish > ~/.config/fish/completions/skald.fish

# Commands
complete -c skald -f -n "__fish_use_subcommand" -a "serve" -d "Run the HTTP API server"
complete -c skald -f -n "__fish_use_subcommand" -a "worker" -d "Run the background job worker"
complete -c skald -f -n "__fish_use_subcommand" -a "connect" -d "Register a repository as a data source"
complete -c skald -f -n "__fish_use_subcommand" -a "index" -d "Queue (re)indexing of a repository"
complete -c skald -f -n "__fish_use_subcommand" -a "ask" -d "Ask a one-shot question"
complete -c skald -f -n "__fish_use_subcommand" -a "status" -d "Show registered repositories"
complete -c skald -f -n "__fish_use_subcommand" -a "models" -d "List configured chat models"
complete -c skald -f -n "__fish_use_subcommand" -a "reset" -d "Delete a repository (destructive!)"
complete -c skald -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"
complete -c skald -f -n "__fish_use_subcommand" -a "version" -d "Show version information"

# Global flags
complete -c skald -l version -d "Show version and exit"
complete -c skald -l config -d "Path to skald.yaml" -r
complete -c skald -l json -d "Output machine-readable JSON"
complete -c skald -l no-color -d "Disable colored output"
complete -c skald -l verbose -d "Increase log verbosity"

# serve command flags
complete -c skald -n "__fish_seen_subcommand_from serve" -l addr -d "Listen address" -r

# connect command flags
complete -c skald -n "__fish_seen_subcommand_from connect" -l name -d "Display name for the repository" -r
complete -c skald -n "__fish_seen_subcommand_from connect" -l url -d "GitHub clone URL" -r
complete -c skald -n "__fish_seen_subcommand_from connect" -l path -d "Local directory" -r
complete -c skald -n "__fish_seen_subcommand_from connect" -l token -d "Access token for private repositories" -r

# index command flags
complete -c skald -n "__fish_seen_subcommand_from index" -l wait -d "Block until indexing finishes"
complete -c skald -n "__fish_seen_subcommand_from index" -l timeout -d "Give up waiting after this long" -r

# ask command flags
complete -c skald -n "__fish_seen_subcommand_from ask" -l model -d "Configured model to answer with" -r

# models command flags
complete -c skald -n "__fish_seen_subcommand_from models" -l all -d "Include inactive models"
complete -c skald -n "__fish_seen_subcommand_from models" -l add -d "Register a model id" -r

# reset command flags
complete -c skald -n "__fish_seen_subcommand_from reset" -l force -d "Confirm the deletion"

# completion command arguments
complete -c skald -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c skald -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c skald -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion prints the completion script for the requested shell.
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skald completion <shell>

Generates a shell completion script for bash, zsh, or fish.

Examples:
  source <(skald completion bash)
  skald completion zsh > "${fpath[1]}/_skald"
  skald completion fish > ~/.config/fish/completions/skald.fish
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'skald completion bash', 'skald completion zsh', or 'skald completion fish'",
		), false)
	}

	switch fs.Arg(0) {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", fs.Arg(0)),
			"Run 'skald completion bash', 'skald completion zsh', or 'skald completion fish'",
		), false)
	}
}
