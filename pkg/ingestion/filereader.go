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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileReader materializes a repository on demand to read one file, then
// removes the checkout. It serves the agent's file-reader tool; the
// "temp_" checkout prefix keeps it clear of any ingestion run on the same
// repo.
type FileReader struct {
	Loader  *Loader
	Sources StateStore
	Logger  *slog.Logger

	// TokenService is the secret-store entry for clone tokens; empty means
	// "github".
	TokenService string
}

// ReadFile fetches the repository and returns the content of filePath,
// which must be repo-relative.
func (r *FileReader) ReadFile(ctx context.Context, repoID, filePath string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(filePath))
	if strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") || clean == ".." {
		return "", fmt.Errorf("file path %q escapes the repository", filePath)
	}

	ds, err := r.Sources.GetDataSource(repoID)
	if err != nil {
		return "", err
	}
	src, err := buildSource(r.Sources, r.TokenService, repoID, ds)
	if err != nil {
		return "", err
	}
	src.RepoID = "temp_" + repoID

	dir, err := r.Loader.Fetch(ctx, src)
	if err != nil {
		return "", fmt.Errorf("fetch for file read: %w", err)
	}
	defer r.Loader.Cleanup(src.RepoID)

	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(clean)))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("file %q not found in the repository", clean)
	}
	if err != nil {
		return "", err
	}
	return string(content), nil
}
