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

// Package queue moves ingestion and memory maintenance off the request
// path. Tasks ride asynq on Redis: the API server enqueues, the worker
// process consumes.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	skalderrors "github.com/skaldlabs/skald/internal/errors"
)

// Task type names on the wire.
const (
	TypeIngest      = "repo:ingest"
	TypeRepoSummary = "memory:repo_summary"
	TypeUserFacts   = "memory:user_facts"
)

// Queue names. Ingestion is serialized per repo via task ids; memory
// tasks run at higher parallelism.
const (
	QueueIngest = "ingest"
	QueueMemory = "memory"
)

// Memory tasks wait briefly so the chat transaction that triggered them
// is committed and visible to the worker.
const (
	repoSummaryDelay = 5 * time.Second
	userFactsDelay   = 10 * time.Second
)

// IngestPayload asks the worker to (re)index one repository.
type IngestPayload struct {
	RepoID string `json:"repo_id"`
}

// RepoSummaryPayload refreshes the rolling summary for one (user, repo).
type RepoSummaryPayload struct {
	UserID string `json:"user_id"`
	RepoID string `json:"repo_id"`
}

// UserFactsPayload re-extracts general facts about one user.
type UserFactsPayload struct {
	UserID string `json:"user_id"`
}

// BrokerOpt parses a redis:// URL into an asynq connection option.
func BrokerOpt(brokerURL string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(brokerURL)
	if err != nil {
		return nil, skalderrors.NewConfigError(
			"Job broker URL is invalid",
			fmt.Sprintf("Cannot parse %q as a Redis URL", brokerURL),
			"Set JOB_BROKER_URL to something like redis://localhost:6379/0",
			err,
		)
	}
	return opt, nil
}

// Client enqueues background tasks.
type Client struct {
	inner *asynq.Client
}

// NewClient connects an enqueue-only client to the broker.
func NewClient(brokerURL string) (*Client, error) {
	opt, err := BrokerOpt(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Client{inner: asynq.NewClient(opt)}, nil
}

// Close releases the broker connection.
func (c *Client) Close() error {
	return c.inner.Close()
}

// EnqueueIngest schedules indexing of one repository. The task id pins
// one ingestion per repo: enqueueing while a previous run is still
// pending or in flight returns an input error instead of queueing a
// duplicate.
func (c *Client) EnqueueIngest(ctx context.Context, repoID string) error {
	payload, err := json.Marshal(IngestPayload{RepoID: repoID})
	if err != nil {
		return err
	}
	_, err = c.inner.EnqueueContext(ctx, asynq.NewTask(TypeIngest, payload),
		asynq.Queue(QueueIngest),
		asynq.TaskID("ingest:"+repoID),
		asynq.Timeout(2*time.Hour),
		asynq.MaxRetry(2),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return skalderrors.NewInputError(
			"Repository is already being indexed",
			fmt.Sprintf("An ingestion task for %q is pending or running", repoID),
			"Wait for the current run to finish before re-indexing",
		)
	}
	if err != nil {
		return skalderrors.NewUpstreamError(
			"Cannot enqueue the ingestion task",
			"The job broker rejected the task",
			"Check that Redis is reachable at JOB_BROKER_URL",
			err,
		)
	}
	return nil
}

// EnqueueRepoSummary schedules a summary refresh shortly after a chat
// turn lands.
func (c *Client) EnqueueRepoSummary(ctx context.Context, userID, repoID string) error {
	payload, err := json.Marshal(RepoSummaryPayload{UserID: userID, RepoID: repoID})
	if err != nil {
		return err
	}
	_, err = c.inner.EnqueueContext(ctx, asynq.NewTask(TypeRepoSummary, payload),
		asynq.Queue(QueueMemory),
		asynq.ProcessIn(repoSummaryDelay),
		asynq.MaxRetry(3),
	)
	return err
}

// EnqueueUserFacts schedules fact extraction for one user.
func (c *Client) EnqueueUserFacts(ctx context.Context, userID string) error {
	payload, err := json.Marshal(UserFactsPayload{UserID: userID})
	if err != nil {
		return err
	}
	_, err = c.inner.EnqueueContext(ctx, asynq.NewTask(TypeUserFacts, payload),
		asynq.Queue(QueueMemory),
		asynq.ProcessIn(userFactsDelay),
		asynq.MaxRetry(3),
	)
	return err
}
