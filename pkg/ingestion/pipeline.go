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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skaldlabs/skald/internal/contract"
	"github.com/skaldlabs/skald/pkg/analyzer"
	"github.com/skaldlabs/skald/pkg/embedding"
	"github.com/skaldlabs/skald/pkg/graph"
	"github.com/skaldlabs/skald/pkg/store"
	"github.com/skaldlabs/skald/pkg/vector"
)

// skipDirs are directory names the walk never descends into.
var skipDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	"node_modules": true,
	"venv":         true,
	".venv":        true,
}

// StateStore is the slice of the relational store the pipeline needs:
// resolving the data source, moving it through its lifecycle, and reading
// the clone credential.
type StateStore interface {
	GetDataSource(id string) (*store.DataSource, error)
	SetDataSourceStatus(id, status string, indexedAt *time.Time) error
	GetSecret(serviceName string) (string, error)
}

// Config tunes the pipeline. Zero BatchSize and ParseWorkers pick the
// defaults; a zero RequestDelay means no pause between embedding batches.
type Config struct {
	BatchSize    int           // embedding batch size, default 100
	RequestDelay time.Duration // delay between embedding batches
	ParseWorkers int           // parse pool size, default runtime.NumCPU()
	TokenService string        // secret-store entry for clone tokens, default "github"
}

// Pipeline ingests one repository end to end: wipe, fetch, walk, parse,
// populate the graph in two passes, embed, and finalize the data-source row.
type Pipeline struct {
	Graph     graph.Store
	Vectors   vector.Store
	Embedder  embedding.Provider
	Analyzers *analyzer.Registry
	Loader    *Loader
	Sources   StateStore
	Logger    *slog.Logger
	Config    Config
}

// Result summarizes one ingestion run.
type Result struct {
	RepoID        string
	FilesWalked   int
	FilesParsed   int
	FilesSkipped  int // over the size limit, never parsed
	ParseErrors   int
	Classes       int
	Functions     int // standalone functions plus methods
	Chunks        int
	Embedded      int
	FailedBatches int

	FetchDuration time.Duration
	ParseDuration time.Duration
	GraphDuration time.Duration
	EmbedDuration time.Duration
	TotalDuration time.Duration
}

// parsedFile pairs a repo-relative path with its extracted facts.
type parsedFile struct {
	path  string
	facts *analyzer.FileFacts
}

// chunk is one embeddable unit of code, ready for the vector store.
type chunk struct {
	id   string
	text string
	meta map[string]string
}

// Run executes the full pipeline for repoID. The data-source row ends up
// `indexed` on success or `failed` on any error from fetch onward; the
// error is returned either way so the queue records it. Re-running is
// observationally idempotent: each run starts from a clean slate.
func (p *Pipeline) Run(ctx context.Context, repoID string) (*Result, error) {
	start := time.Now()
	logger := p.logger().With("repo_id", repoID)
	logger.Info("ingest.start")

	ds, err := p.Sources.GetDataSource(repoID)
	if err != nil {
		return nil, err
	}
	if err := p.Sources.SetDataSourceStatus(repoID, store.StatusIndexing, nil); err != nil {
		return nil, err
	}

	result, err := p.run(ctx, repoID, ds, logger)
	if err != nil {
		logger.Error("ingest.failed", "error", err)
		if stErr := p.Sources.SetDataSourceStatus(repoID, store.StatusFailed, nil); stErr != nil {
			logger.Error("ingest.status.update.failed", "error", stErr)
		}
		return nil, err
	}

	now := time.Now()
	if err := p.Sources.SetDataSourceStatus(repoID, store.StatusIndexed, &now); err != nil {
		return nil, err
	}

	result.TotalDuration = time.Since(start)
	observeTotal(result.TotalDuration)
	logger.Info("ingest.complete",
		"files", result.FilesWalked,
		"parsed", result.FilesParsed,
		"parse_errors", result.ParseErrors,
		"classes", result.Classes,
		"functions", result.Functions,
		"embedded", result.Embedded,
		"failed_batches", result.FailedBatches,
		"duration_ms", result.TotalDuration.Milliseconds(),
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, repoID string, ds *store.DataSource, logger *slog.Logger) (*Result, error) {
	result := &Result{RepoID: repoID}

	// Phase A: wipe previous state. A half-wiped graph would double nodes
	// on the re-populate, so failure here aborts the run.
	logger.Info("ingest.prepare")
	if err := p.Graph.CascadeDelete(ctx, repoID); err != nil {
		return nil, fmt.Errorf("wipe graph: %w", err)
	}
	if err := p.Vectors.DeleteNamespace(ctx, repoID); err != nil {
		return nil, fmt.Errorf("wipe vectors: %w", err)
	}

	// Phase B: fetch.
	fetchStart := time.Now()
	src, err := buildSource(p.Sources, p.Config.TokenService, repoID, ds)
	if err != nil {
		return nil, err
	}
	root, err := p.Loader.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer p.Loader.Cleanup(repoID)
	result.FetchDuration = time.Since(fetchStart)

	// Phase C: walk the tree and parse supported files.
	parseStart := time.Now()
	supported, err := p.walkTree(ctx, repoID, root, result)
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	parsed := p.parseFiles(ctx, root, supported, result, logger)
	result.ParseDuration = time.Since(parseStart)
	observeParse(result.ParseDuration)
	recordFiles(result.FilesWalked)
	recordParseErrors(result.ParseErrors)
	logger.Info("ingest.parse.complete",
		"files", result.FilesWalked,
		"supported", len(supported),
		"parsed", result.FilesParsed,
		"parse_errors", result.ParseErrors,
		"duration_ms", result.ParseDuration.Milliseconds(),
	)

	// Phase D: two-pass graph population.
	graphStart := time.Now()
	if err := p.populateNodes(ctx, repoID, parsed, result); err != nil {
		return nil, fmt.Errorf("populate nodes: %w", err)
	}
	if err := p.populateEdges(ctx, repoID, parsed); err != nil {
		return nil, fmt.Errorf("populate edges: %w", err)
	}
	result.GraphDuration = time.Since(graphStart)
	observeGraph(result.GraphDuration)
	recordClasses(result.Classes)
	recordFunctions(result.Functions)
	logger.Info("ingest.graph.complete",
		"classes", result.Classes,
		"functions", result.Functions,
		"duration_ms", result.GraphDuration.Milliseconds(),
	)

	// Phase E: embeddings and vectors.
	embedStart := time.Now()
	if err := p.embedAndUpsert(ctx, repoID, parsed, result, logger); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	result.EmbedDuration = time.Since(embedStart)
	observeEmbed(result.EmbedDuration)
	recordEmbedded(result.Embedded)
	recordFailedBatches(result.FailedBatches)
	logger.Info("ingest.embed.complete",
		"chunks", result.Chunks,
		"embedded", result.Embedded,
		"failed_batches", result.FailedBatches,
		"duration_ms", result.EmbedDuration.Milliseconds(),
	)

	return result, nil
}

// buildSource builds the fetch source from the data-source row. GitHub
// sources read the clone token from the secret store; a missing token means
// an anonymous clone (public repos).
func buildSource(st StateStore, tokenService, repoID string, ds *store.DataSource) (Source, error) {
	if tokenService == "" {
		tokenService = "github"
	}
	src := Source{RepoID: repoID, Kind: ds.SourceType}
	switch ds.SourceType {
	case "github":
		src.URL = ds.ConnectionDetails["repo_url"]
		if src.URL == "" {
			return Source{}, fmt.Errorf("data source %s has no repo_url", repoID)
		}
		if token, err := st.GetSecret(tokenService); err == nil {
			src.Token = token
		}
	case "local":
		src.LocalPath = ds.ConnectionDetails["path"]
		if src.LocalPath == "" {
			return Source{}, fmt.Errorf("data source %s has no path", repoID)
		}
	default:
		return Source{}, fmt.Errorf("unsupported source type %q", ds.SourceType)
	}
	return src, nil
}

// walkTree upserts Directory and File nodes with CONTAINS edges in
// traversal order and returns the repo-relative paths of files an analyzer
// supports. The repository root is the directory ".".
func (p *Pipeline) walkTree(ctx context.Context, repoID, root string, result *Result) ([]string, error) {
	var supported []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if err := p.Graph.UpsertDirectory(ctx, repoID, rel); err != nil {
				return err
			}
			if rel != "." {
				if err := p.Graph.LinkContains(ctx, repoID, parentOf(rel), rel, "directory"); err != nil {
					return err
				}
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		result.FilesWalked++
		if err := p.Graph.UpsertFile(ctx, repoID, rel); err != nil {
			return err
		}
		if err := p.Graph.LinkContains(ctx, repoID, parentOf(rel), rel, "file"); err != nil {
			return err
		}
		if p.Analyzers.Supports(rel) {
			supported = append(supported, rel)
		}
		return nil
	})
	return supported, err
}

// parentOf returns the containing directory of a repo-relative path, with
// "." for top-level entries.
func parentOf(rel string) string {
	parent := filepath.ToSlash(filepath.Dir(rel))
	if parent == "" {
		return "."
	}
	return parent
}

// parseFiles runs the analyzer over paths with a bounded worker pool. A
// file that fails to read or parse logs a warning and contributes no facts.
// Output order is deterministic regardless of worker scheduling.
func (p *Pipeline) parseFiles(ctx context.Context, root string, paths []string, result *Result, logger *slog.Logger) []parsedFile {
	if len(paths) == 0 {
		return nil
	}

	workers := p.Config.ParseWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan string, len(paths))
	results := make(chan parsedFile, len(paths))
	maxBytes := contract.MaxSourceFileBytes()
	var errorCount, skipCount int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
				if err != nil {
					atomic.AddInt64(&errorCount, 1)
					logger.Warn("ingest.parse.read_failed", "path", rel, "error", err)
					continue
				}
				if len(content) > maxBytes {
					atomic.AddInt64(&skipCount, 1)
					logger.Warn("ingest.parse.skipped_oversize", "path", rel, "bytes", len(content), "limit", maxBytes)
					continue
				}
				a, _ := p.Analyzers.ForFile(rel)
				facts, err := a.Analyze(content, rel)
				if err != nil {
					atomic.AddInt64(&errorCount, 1)
					logger.Warn("ingest.parse.failed", "path", rel, "error", err)
					continue
				}
				results <- parsedFile{path: rel, facts: facts}
			}
		}()
	}

	for _, rel := range paths {
		jobs <- rel
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	var parsed []parsedFile
	for pf := range results {
		parsed = append(parsed, pf)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].path < parsed[j].path })

	result.FilesParsed = len(parsed)
	result.FilesSkipped = int(skipCount)
	result.ParseErrors = int(errorCount)
	return parsed
}

// populateNodes is pass one: every Class, method, and standalone Function
// becomes a node before any edge references it.
func (p *Pipeline) populateNodes(ctx context.Context, repoID string, parsed []parsedFile, result *Result) error {
	for _, pf := range parsed {
		for _, cls := range pf.facts.Classes {
			if err := p.Graph.UpsertClass(ctx, repoID, pf.path, cls.Name, cls.Docstring, cls.BaseClasses); err != nil {
				return err
			}
			result.Classes++
			for _, m := range cls.Methods {
				if err := p.Graph.UpsertFunction(ctx, repoID, pf.path, m.Name, m.Docstring, cls.Name); err != nil {
					return err
				}
				result.Functions++
			}
		}
		for _, fn := range pf.facts.Functions {
			if err := p.Graph.UpsertFunction(ctx, repoID, pf.path, fn.Name, fn.Docstring, ""); err != nil {
				return err
			}
			result.Functions++
		}
	}
	return nil
}

// populateEdges is pass two: IMPORTS, CALLS, and INHERITS_FROM over the
// now-complete node set.
func (p *Pipeline) populateEdges(ctx context.Context, repoID string, parsed []parsedFile) error {
	for _, pf := range parsed {
		for _, imp := range pf.facts.Imports {
			if imp.Module == "" {
				continue
			}
			if err := p.Graph.AddImport(ctx, repoID, pf.path, imp.Module); err != nil {
				return err
			}
		}
		for _, fn := range pf.facts.Functions {
			for _, callee := range fn.Calls {
				if err := p.Graph.AddCall(ctx, repoID, fn.Name, pf.path, callee); err != nil {
					return err
				}
			}
		}
		for _, cls := range pf.facts.Classes {
			for _, m := range cls.Methods {
				for _, callee := range m.Calls {
					if err := p.Graph.AddCall(ctx, repoID, m.Name, pf.path, callee); err != nil {
						return err
					}
				}
			}
			if len(cls.BaseClasses) > 0 {
				if err := p.Graph.AddInherits(ctx, repoID, cls.Name, pf.path, cls.BaseClasses); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// embedAndUpsert builds one chunk per function and method, embeds them in
// batches, and upserts the successful vectors under the repo namespace.
// Chunks from failed batches are skipped; partial coverage is tolerated.
func (p *Pipeline) embedAndUpsert(ctx context.Context, repoID string, parsed []parsedFile, result *Result, logger *slog.Logger) error {
	chunks := buildChunks(repoID, parsed)
	result.Chunks = len(chunks)
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.text
	}

	batcher := embedding.NewBatcher(p.Embedder, p.Config.BatchSize, p.Config.RequestDelay, logger)
	batch, err := batcher.Run(ctx, texts)
	if err != nil {
		return err
	}
	result.Embedded = batch.Embedded
	result.FailedBatches = batch.FailedBatches

	var records []vector.Record
	for i, values := range batch.Vectors {
		if values == nil {
			continue
		}
		records = append(records, vector.Record{
			ID:       chunks[i].id,
			Values:   values,
			Metadata: chunks[i].meta,
		})
	}
	if len(records) == 0 {
		return nil
	}
	return p.Vectors.Upsert(ctx, repoID, records)
}

// buildChunks renders the embeddable text for every function and method in
// deterministic order, one chunk per callable.
func buildChunks(repoID string, parsed []parsedFile) []chunk {
	var chunks []chunk
	for _, pf := range parsed {
		for _, fn := range pf.facts.Functions {
			chunks = append(chunks, chunk{
				id:   vector.RecordID(repoID, pf.path, fn.Name),
				text: renderChunk("Function", fn.Name, pf.path, fn.Args, fn.Docstring),
				meta: map[string]string{
					"repo_id":       repoID,
					"file_path":     pf.path,
					"function_name": fn.Name,
					"type":          "function",
				},
			})
		}
		for _, cls := range pf.facts.Classes {
			for _, m := range cls.Methods {
				chunks = append(chunks, chunk{
					id:   vector.RecordID(repoID, pf.path, m.Name),
					text: renderChunk("Method", cls.Name+"."+m.Name, pf.path, m.Args, m.Docstring),
					meta: map[string]string{
						"repo_id":       repoID,
						"file_path":     pf.path,
						"function_name": m.Name,
						"type":          "method",
						"class_name":    cls.Name,
					},
				})
			}
		}
	}
	return chunks
}

func renderChunk(kind, name, filePath string, args []string, docstring string) string {
	argText := "None"
	if len(args) > 0 {
		argText = strings.Join(args, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", kind, name)
	fmt.Fprintf(&b, "File: %s\n", filePath)
	fmt.Fprintf(&b, "Arguments: %s\n", argText)
	fmt.Fprintf(&b, "Documentation:\n%s", docstring)
	return b.String()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
