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

package llm

import (
	"context"
	"fmt"
	"sync"
)

// Mock is a scripted Provider for tests. Replies are consumed in FIFO
// order; every request is recorded for prompt assertions.
type Mock struct {
	mu      sync.Mutex
	replies []mockReply
	calls   []Request
}

type mockReply struct {
	text string
	err  error
}

// NewMock returns a mock provider pre-scripted with the given replies.
func NewMock(replies ...string) *Mock {
	m := &Mock{}
	for _, r := range replies {
		m.Script(r)
	}
	return m
}

func (m *Mock) Name() string { return "mock" }

// Script enqueues the next reply.
func (m *Mock) Script(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{text: text})
}

// ScriptError enqueues a failing call.
func (m *Mock) ScriptError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{err: err})
}

// Calls returns the requests received so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

func (m *Mock) next(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if len(m.replies) == 0 {
		return "", fmt.Errorf("mock provider: no scripted reply for call %d", len(m.calls))
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply.text, reply.err
}

func (m *Mock) Chat(_ context.Context, req Request) (string, error) {
	return m.next(req)
}

func (m *Mock) ChatStream(_ context.Context, req Request, onChunk func(string) error) error {
	text, err := m.next(req)
	if err != nil {
		return err
	}
	return onChunk(text)
}
