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
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	git "github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// validCloneURL matches https git URLs. Other transports (ssh, file) are
// rejected; local sources use Kind "local" instead.
var validCloneURL = regexp.MustCompile(`^https://[\w.\-@:/%~]+$`)

// Source describes where a repository's content comes from.
type Source struct {
	RepoID    string
	Kind      string // "github" or "local"
	URL       string // clone URL for github sources
	LocalPath string // directory for local sources
	Token     string // optional auth token for private clones
}

// Loader materializes repository content under a per-repo checkout
// directory. Each repo gets <root>/<repoID>; a fresh Fetch replaces any
// previous checkout.
type Loader struct {
	root   string
	logger *slog.Logger
}

// NewLoader creates a loader rooted at root. An empty root falls back to a
// directory under the system temp dir.
func NewLoader(root string, logger *slog.Logger) *Loader {
	if root == "" {
		root = filepath.Join(os.TempDir(), "skald-repos")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{root: root, logger: logger}
}

// Dir returns the checkout directory for repoID.
func (l *Loader) Dir(repoID string) string {
	return filepath.Join(l.root, repoID)
}

// Fetch materializes the source and returns the checkout directory.
// GitHub sources are shallow-cloned (depth 1, single branch); local sources
// are copied so the pipeline never mutates a developer's working tree.
func (l *Loader) Fetch(ctx context.Context, src Source) (string, error) {
	dir := l.Dir(src.RepoID)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear checkout dir: %w", err)
	}
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return "", fmt.Errorf("create clone root: %w", err)
	}

	switch src.Kind {
	case "github":
		if !validCloneURL.MatchString(src.URL) {
			return "", fmt.Errorf("invalid clone URL %q", src.URL)
		}
		opts := &git.CloneOptions{
			URL:          src.URL,
			Depth:        1,
			SingleBranch: true,
		}
		if src.Token != "" {
			opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: src.Token}
		}
		l.logger.Info("ingest.fetch.clone", "repo_id", src.RepoID, "url", src.URL)
		if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
			return "", fmt.Errorf("clone %s: %w", src.URL, err)
		}
		return dir, nil

	case "local":
		info, err := os.Stat(src.LocalPath)
		if err != nil {
			return "", fmt.Errorf("stat local source: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("local source is not a directory: %s", src.LocalPath)
		}
		l.logger.Info("ingest.fetch.copy", "repo_id", src.RepoID, "path", src.LocalPath)
		if err := copyTree(src.LocalPath, dir); err != nil {
			return "", fmt.Errorf("copy local source: %w", err)
		}
		return dir, nil

	default:
		return "", fmt.Errorf("unsupported source kind %q", src.Kind)
	}
}

// Cleanup removes the checkout directory for repoID.
func (l *Loader) Cleanup(repoID string) {
	if err := os.RemoveAll(l.Dir(repoID)); err != nil {
		l.logger.Warn("ingest.cleanup.failed", "repo_id", repoID, "error", err)
	}
}

// copyTree copies src into dst, skipping directories the walk would skip
// anyway. Symlinks are not followed.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, filepath.Join(dst, rel))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
