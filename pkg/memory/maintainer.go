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

// Package memory keeps long-lived conversational memory fresh: a rolling
// per-(user, repo) summary and a per-user fact sheet, both maintained by
// background tasks the chat handler enqueues after each answer.
package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/skaldlabs/skald/pkg/llm"
	"github.com/skaldlabs/skald/pkg/store"
)

// utilityTemperature is used for all internal maintenance calls.
const utilityTemperature = 0.3

const summaryPrompt = `You are a summarization assistant. Summarize the following conversation, focusing on key questions, answers, decisions, and knowledge gained about the codebase. If a previous summary is provided, integrate the new turns into that summary to create an updated, concise, and coherent summary of the entire conversation. Your summary should be no more than 200 words and should be highly relevant to understanding the code or features discussed. If the conversation has NOT included any discussion of a codebase or technical details relevant to a project, your summary should explicitly state that. For example: 'No codebase or technical details discussed yet, conversation is focused on introductions.'`

const factsPrompt = `You are an expert system designed to build a personal 'second brain' for the user by extracting concise, general facts about them from their conversation history. Your primary goal is to identify and list any personal facts or strong preferences about the user that are NOT specific to a particular codebase or technical discussion. It is essential that you extract explicit details like the user's name, role, current affiliation, preferred tools, or specific hobbies if they are stated by the user. DO NOT include conversational filler, greetings, questions or answers directly about the code, or generic statements that aren't specific facts about this user. If no relevant or new facts are found after careful analysis, return an empty list of facts according to the schema. Prioritize the most recent and relevant facts.`

// Maintainer runs the two memory tasks against the state store, using the
// internal utility model with the key from the secret store (falling back
// to the configured key).
type Maintainer struct {
	Store       *store.Store
	LLM         llm.Provider
	Model       string // internal utility model id
	KeyName     string // secret-store entry for the utility model's key
	FallbackKey string // used when the secret is absent
	Logger      *slog.Logger
}

// RepoSummary updates the rolling conversation summary for one
// (user, repo) pair. With no messages newer than the stored high-water
// timestamp the task is a no-op; an empty model reply keeps the previous
// text. Nothing is written when the model call fails, so retries are safe.
func (m *Maintainer) RepoSummary(ctx context.Context, userID, repoID string) error {
	logger := m.logger().With("user_id", userID, "repo_id", repoID)

	current, err := m.Store.GetRepoSummary(userID, repoID)
	if err != nil {
		return err
	}
	messages, err := m.Store.MessagesSince(userID, repoID, current.LastMessageAt)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		logger.Info("memory.summary.noop")
		return nil
	}

	prompt := []llm.Message{{Role: "system", Content: summaryPrompt}}
	if current.SummaryText != "" {
		prompt = append(prompt, llm.Message{Role: "system", Content: "Previous conversation summary: " + current.SummaryText})
	}
	prompt = append(prompt, chatTurns(messages)...)

	out, err := llm.Structured[llm.SummaryOutput](ctx, m.LLM, m.request(prompt))
	if err != nil {
		return err
	}

	newText := strings.TrimSpace(out.Summary)
	if newText == "" {
		logger.Warn("memory.summary.empty_reply")
		newText = current.SummaryText
	}

	lastAt := messages[len(messages)-1].CreatedAt
	if err := m.Store.UpsertRepoSummary(store.RepoSummary{
		UserID:        userID,
		RepoID:        repoID,
		SummaryText:   newText,
		LastMessageAt: &lastAt,
	}); err != nil {
		return err
	}
	logger.Info("memory.summary.updated", "messages", len(messages), "summary_len", len(newText))
	return nil
}

// UserFacts re-extracts general facts about the user from their full chat
// history and upserts each by fact key. An empty extraction writes
// nothing.
func (m *Maintainer) UserFacts(ctx context.Context, userID string) error {
	logger := m.logger().With("user_id", userID)

	messages, err := m.Store.UserHistory(userID)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		logger.Info("memory.facts.noop")
		return nil
	}

	prompt := append([]llm.Message{{Role: "system", Content: factsPrompt}}, chatTurns(messages)...)
	out, err := llm.Structured[llm.FactsOutput](ctx, m.LLM, m.request(prompt))
	if err != nil {
		return err
	}
	if len(out.Facts) == 0 {
		logger.Info("memory.facts.none_extracted")
		return nil
	}

	updated := 0
	for _, fact := range out.Facts {
		if fact.FactKey == "" {
			continue
		}
		changed, err := m.Store.UpsertUserFact(userID, fact.FactKey, fact.FactValue)
		if err != nil {
			return err
		}
		if changed {
			updated++
		}
	}
	logger.Info("memory.facts.updated", "extracted", len(out.Facts), "changed", updated)
	return nil
}

// request binds a prompt to the utility model and its credential.
func (m *Maintainer) request(messages []llm.Message) llm.Request {
	apiKey := m.FallbackKey
	if m.KeyName != "" {
		if key, err := m.Store.GetSecret(m.KeyName); err == nil && key != "" {
			apiKey = key
		}
	}
	return llm.Request{
		Model:       m.Model,
		APIKey:      apiKey,
		Messages:    messages,
		Temperature: utilityTemperature,
	}
}

// chatTurns maps stored messages onto chat roles, dropping empty turns.
func chatTurns(messages []store.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := "user"
		if msg.Sender == store.SenderLLM {
			role = "assistant"
		}
		out = append(out, llm.Message{Role: role, Content: msg.Content})
	}
	return out
}

func (m *Maintainer) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
