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

package memory

import (
	"context"
	"crypto/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaldlabs/skald/pkg/llm"
	"github.com/skaldlabs/skald/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	s, err := store.Open(filepath.Join(t.TempDir(), "skald.db"), key)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newMaintainer(s *store.Store, mock *llm.Mock) *Maintainer {
	return &Maintainer{
		Store:       s,
		LLM:         mock,
		Model:       "gemini-1.5-flash",
		KeyName:     "gemini",
		FallbackKey: "env-key",
	}
}

func seedConversation(t *testing.T, s *store.Store, base time.Time) {
	t.Helper()
	turns := []store.ChatMessage{
		{SessionID: "sess-1", UserID: "u1", RepoID: "r1", Sender: store.SenderUser, Content: "I'm Ada, I work on the networking layer.", CreatedAt: base},
		{SessionID: "sess-1", UserID: "u1", RepoID: "r1", Sender: store.SenderLLM, Content: "The Peer class handles connections via connect().", CreatedAt: base.Add(time.Minute)},
	}
	for _, m := range turns {
		require.NoError(t, s.AppendMessage(m))
	}
}

func TestRepoSummaryNoMessagesIsNoop(t *testing.T) {
	s := openTestStore(t)
	mock := llm.NewMock() // zero replies: any model call would error
	m := newMaintainer(s, mock)

	require.NoError(t, m.RepoSummary(context.Background(), "u1", "r1"))

	assert.Empty(t, mock.Calls())
	summary, err := s.GetRepoSummary("u1", "r1")
	require.NoError(t, err)
	assert.Empty(t, summary.SummaryText)
	assert.Nil(t, summary.LastMessageAt)
}

func TestRepoSummaryWritesSummaryAndHighWaterMark(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(t, s, base)

	mock := llm.NewMock(`{"summary": "Ada asked how peers connect; the Peer class owns connect()."}`)
	m := newMaintainer(s, mock)

	require.NoError(t, m.RepoSummary(context.Background(), "u1", "r1"))

	summary, err := s.GetRepoSummary("u1", "r1")
	require.NoError(t, err)
	assert.Contains(t, summary.SummaryText, "Peer class")
	require.NotNil(t, summary.LastMessageAt)
	assert.WithinDuration(t, base.Add(time.Minute), *summary.LastMessageAt, time.Second)

	// Running again with no new messages must not call the model.
	require.NoError(t, m.RepoSummary(context.Background(), "u1", "r1"))
	assert.Len(t, mock.Calls(), 1)
}

func TestRepoSummaryIntegratesPreviousSummary(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := base.Add(-time.Hour)
	require.NoError(t, s.UpsertRepoSummary(store.RepoSummary{
		UserID: "u1", RepoID: "r1",
		SummaryText:   "Earlier we discussed the ingestion pipeline.",
		LastMessageAt: &earlier,
	}))
	seedConversation(t, s, base)

	mock := llm.NewMock(`{"summary": "Updated summary."}`)
	m := newMaintainer(s, mock)
	require.NoError(t, m.RepoSummary(context.Background(), "u1", "r1"))

	calls := mock.Calls()
	require.Len(t, calls, 1)
	var sawPrevious bool
	for _, msg := range calls[0].Messages {
		if msg.Role == "system" && msg.Content == "Previous conversation summary: Earlier we discussed the ingestion pipeline." {
			sawPrevious = true
		}
	}
	assert.True(t, sawPrevious, "previous summary must be fed back to the model")
	assert.Equal(t, 0.3, calls[0].Temperature)
	assert.Equal(t, "gemini-1.5-flash", calls[0].Model)
}

func TestRepoSummaryEmptyReplyKeepsOldText(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := base.Add(-time.Hour)
	require.NoError(t, s.UpsertRepoSummary(store.RepoSummary{
		UserID: "u1", RepoID: "r1",
		SummaryText:   "Keep me.",
		LastMessageAt: &earlier,
	}))
	seedConversation(t, s, base)

	mock := llm.NewMock(`{"summary": "   "}`)
	m := newMaintainer(s, mock)
	require.NoError(t, m.RepoSummary(context.Background(), "u1", "r1"))

	summary, err := s.GetRepoSummary("u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "Keep me.", summary.SummaryText)
	// The high-water mark still advances so the turns are not re-summarized.
	require.NotNil(t, summary.LastMessageAt)
	assert.WithinDuration(t, base.Add(time.Minute), *summary.LastMessageAt, time.Second)
}

func TestRepoSummaryUsesStoredSecretOverFallback(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutSecret("gemini", "vault-key"))
	seedConversation(t, s, time.Now())

	mock := llm.NewMock(`{"summary": "ok"}`)
	m := newMaintainer(s, mock)
	require.NoError(t, m.RepoSummary(context.Background(), "u1", "r1"))

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "vault-key", calls[0].APIKey)
}

func TestUserFactsNoHistoryIsNoop(t *testing.T) {
	s := openTestStore(t)
	mock := llm.NewMock()
	m := newMaintainer(s, mock)

	require.NoError(t, m.UserFacts(context.Background(), "u1"))
	assert.Empty(t, mock.Calls())
}

func TestUserFactsUpsertsExtractedFacts(t *testing.T) {
	s := openTestStore(t)
	seedConversation(t, s, time.Now())

	mock := llm.NewMock(`{"facts": [{"fact_key": "name", "fact_value": "Ada"}, {"fact_key": "focus_area", "fact_value": "networking layer"}]}`)
	m := newMaintainer(s, mock)
	require.NoError(t, m.UserFacts(context.Background(), "u1"))

	facts, err := s.UserFacts("u1")
	require.NoError(t, err)
	require.Len(t, facts, 2)

	byKey := map[string]string{}
	for _, f := range facts {
		byKey[f.FactKey] = f.FactValue
	}
	assert.Equal(t, "Ada", byKey["name"])
	assert.Equal(t, "networking layer", byKey["focus_area"])
}

func TestUserFactsEmptyExtractionWritesNothing(t *testing.T) {
	s := openTestStore(t)
	seedConversation(t, s, time.Now())

	mock := llm.NewMock(`{"facts": []}`)
	m := newMaintainer(s, mock)
	require.NoError(t, m.UserFacts(context.Background(), "u1"))

	facts, err := s.UserFacts("u1")
	require.NoError(t, err)
	assert.Empty(t, facts)
}
