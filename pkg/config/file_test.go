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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skald.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWithFileOverridesEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":5001")
	t.Setenv("GRAPH_URI", "bolt://env:7687")

	path := writeConfigFile(t, `
http_addr: ":9000"
graph:
  uri: bolt://file:7687
  user: admin
embedding:
  batch_size: 25
  request_delay: 250ms
`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "bolt://file:7687", cfg.GraphURI)
	assert.Equal(t, "admin", cfg.GraphUser)
	// Unset file fields keep their environment/default values.
	assert.Equal(t, "password", cfg.GraphPassword)
	assert.Equal(t, 25, cfg.EmbeddingBatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.EmbeddingRequestDelay)
}

func TestLoadWithFileEmptyPathIsEnvOnly(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7777")
	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.HTTPAddr)
}

func TestLoadWithFileMissingFileFails(t *testing.T) {
	_, err := LoadWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadWithFileRejectsBadYAML(t *testing.T) {
	path := writeConfigFile(t, "http_addr: [unterminated")
	_, err := LoadWithFile(path)
	require.Error(t, err)
}

func TestLoadWithFileRejectsBadDelay(t *testing.T) {
	path := writeConfigFile(t, "embedding:\n  request_delay: soon\n")
	_, err := LoadWithFile(path)
	require.Error(t, err)
}
