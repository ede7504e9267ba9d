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

package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Batcher runs a Provider over large inputs in rate-limit-friendly slices.
type Batcher struct {
	provider  Provider
	batchSize int
	delay     time.Duration
	logger    *slog.Logger

	// OnBatch, when set, is called after each batch with the number of
	// texts processed so far and the total. Used for CLI progress.
	OnBatch func(done, total int)
}

// BatchResult summarizes one Batcher run. Vectors is aligned with the
// input; entries from failed batches are nil.
type BatchResult struct {
	Vectors       [][]float32
	Embedded      int
	FailedBatches int
}

// NewBatcher creates a batcher. batchSize defaults to 100 when zero or
// negative. The 1.5s default delay comes from the config layer; zero here
// means no pause between batches, and only a negative delay falls back to
// 1.5s.
func NewBatcher(provider Provider, batchSize int, delay time.Duration, logger *slog.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if delay < 0 {
		delay = 1500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{provider: provider, batchSize: batchSize, delay: delay, logger: logger}
}

// Run embeds texts batch by batch, sleeping the configured delay between
// batches. A failed batch is logged and skipped; its vectors stay nil and
// the rest of the run continues. Context cancellation stops the run.
func (b *Batcher) Run(ctx context.Context, texts []string) (*BatchResult, error) {
	result := &BatchResult{Vectors: make([][]float32, len(texts))}

	for start := 0; start < len(texts); start += b.batchSize {
		if start > 0 && b.delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(b.delay):
			}
		}

		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := b.provider.EmbedBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.FailedBatches++
			b.logger.Warn("embed.batch.failed",
				"provider", b.provider.Name(),
				"start", start, "size", len(batch), "error", err)
			continue
		}

		for i, vec := range vectors {
			result.Vectors[start+i] = vec
			result.Embedded++
		}
		if b.OnBatch != nil {
			b.OnBatch(end, len(texts))
		}
	}
	return result, nil
}

// EmbedQuery embeds a single query string, reusing the batch path.
func EmbedQuery(ctx context.Context, p Provider, query string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors for one input", len(vectors))
	}
	return vectors[0], nil
}
