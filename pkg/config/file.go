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

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skaldlabs/skald/internal/errors"
)

// fileConfig mirrors the skald.yaml layout. Every field is optional;
// set fields override the environment-derived values.
type fileConfig struct {
	DatabaseURL string `yaml:"database_url"`

	Graph struct {
		URI      string `yaml:"uri"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"graph"`

	Vector struct {
		APIKey    string `yaml:"api_key"`
		IndexHost string `yaml:"index_host"`
	} `yaml:"vector"`

	LLM struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"llm"`

	Embedding struct {
		Provider     string `yaml:"provider"`
		Model        string `yaml:"model"`
		BatchSize    int    `yaml:"batch_size"`
		RequestDelay string `yaml:"request_delay"`
	} `yaml:"embedding"`

	RepoClonePath   string `yaml:"repo_clone_path"`
	JobBrokerURL    string `yaml:"job_broker_url"`
	HTTPAddr        string `yaml:"http_addr"`
	GitTokenService string `yaml:"git_token_service"`
}

// LoadWithFile loads the environment configuration and then overlays the
// YAML file at path. An empty path means environment only; a missing file
// at an explicit path is a configuration error.
func LoadWithFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(
			"Cannot read the configuration file",
			fmt.Sprintf("Reading %s failed", path),
			"Check the --config path",
			err,
		)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.NewConfigError(
			"Configuration file is not valid YAML",
			fmt.Sprintf("Parsing %s failed", path),
			"Fix the YAML syntax in the configuration file",
			err,
		)
	}

	overlayString(&cfg.DatabaseURL, fc.DatabaseURL)
	overlayString(&cfg.GraphURI, fc.Graph.URI)
	overlayString(&cfg.GraphUser, fc.Graph.User)
	overlayString(&cfg.GraphPassword, fc.Graph.Password)
	overlayString(&cfg.VectorAPIKey, fc.Vector.APIKey)
	overlayString(&cfg.VectorIndexHost, fc.Vector.IndexHost)
	overlayString(&cfg.LLMProvider, fc.LLM.Provider)
	overlayString(&cfg.LLMModel, fc.LLM.Model)
	overlayString(&cfg.LLMAPIKey, fc.LLM.APIKey)
	overlayString(&cfg.EmbeddingProvider, fc.Embedding.Provider)
	overlayString(&cfg.EmbeddingModel, fc.Embedding.Model)
	overlayString(&cfg.RepoClonePath, fc.RepoClonePath)
	overlayString(&cfg.JobBrokerURL, fc.JobBrokerURL)
	overlayString(&cfg.HTTPAddr, fc.HTTPAddr)
	overlayString(&cfg.GitTokenService, fc.GitTokenService)

	if fc.Embedding.BatchSize > 0 {
		cfg.EmbeddingBatchSize = fc.Embedding.BatchSize
	}
	if fc.Embedding.RequestDelay != "" {
		d, err := time.ParseDuration(fc.Embedding.RequestDelay)
		if err != nil || d < 0 {
			return nil, errors.NewConfigError(
				"Invalid embedding request delay",
				fmt.Sprintf("%q is not a duration", fc.Embedding.RequestDelay),
				`Use Go duration syntax, for example "1.5s"`,
				err,
			)
		}
		cfg.EmbeddingRequestDelay = d
	}

	return cfg, nil
}

func overlayString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
