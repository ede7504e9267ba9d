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

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/skaldlabs/skald/pkg/ingestion"
)

// Ingestor indexes one repository end to end.
type Ingestor interface {
	Run(ctx context.Context, repoID string) (*ingestion.Result, error)
}

// MemoryMaintainer refreshes conversational memory.
type MemoryMaintainer interface {
	RepoSummary(ctx context.Context, userID, repoID string) error
	UserFacts(ctx context.Context, userID string) error
}

// Worker consumes the ingest and memory queues.
type Worker struct {
	Pipeline   Ingestor
	Maintainer MemoryMaintainer
	Logger     *slog.Logger
}

// Run serves tasks until ctx is cancelled or the server stops. The
// ingest queue holds one slot so heavy clone-and-parse runs never
// compete; memory tasks are cheap and run five wide.
func (w *Worker) Run(ctx context.Context, brokerURL string) error {
	opt, err := BrokerOpt(brokerURL)
	if err != nil {
		return err
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 6,
		Queues: map[string]int{
			QueueIngest: 1,
			QueueMemory: 5,
		},
		BaseContext: func() context.Context { return ctx },
		Logger:      asynqLogger{w.logger()},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeIngest, w.handleIngest)
	mux.HandleFunc(TypeRepoSummary, w.handleRepoSummary)
	mux.HandleFunc(TypeUserFacts, w.handleUserFacts)

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	w.logger().Info("worker.start", "queues", []string{QueueIngest, QueueMemory})
	return srv.Run(mux)
}

func (w *Worker) handleIngest(ctx context.Context, task *asynq.Task) error {
	var p IngestPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %w: %w", TypeIngest, err, asynq.SkipRetry)
	}

	result, err := w.Pipeline.Run(ctx, p.RepoID)
	if err != nil {
		w.logger().Error("worker.ingest.failed", "repo_id", p.RepoID, "error", err)
		return err
	}
	w.logger().Info("worker.ingest.complete",
		"repo_id", p.RepoID,
		"files", result.FilesParsed,
		"chunks", result.Chunks,
		"duration", result.TotalDuration,
	)
	return nil
}

func (w *Worker) handleRepoSummary(ctx context.Context, task *asynq.Task) error {
	var p RepoSummaryPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %w: %w", TypeRepoSummary, err, asynq.SkipRetry)
	}
	return w.Maintainer.RepoSummary(ctx, p.UserID, p.RepoID)
}

func (w *Worker) handleUserFacts(ctx context.Context, task *asynq.Task) error {
	var p UserFactsPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %w: %w", TypeUserFacts, err, asynq.SkipRetry)
	}
	return w.Maintainer.UserFacts(ctx, p.UserID)
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// asynqLogger adapts slog to asynq's internal logger interface.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
