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

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	skalderrors "github.com/skaldlabs/skald/internal/errors"
)

// sseStream writes server-sent event frames, flushing after each so the
// client sees them immediately even through buffering proxies.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func openSSE(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, skalderrors.NewInternalError(
			"Streaming is not supported",
			"The response writer cannot flush",
			"",
			nil,
		)
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseStream{w: w, flusher: flusher}, nil
}

func (s *sseStream) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) sendChunk(text string) error {
	return s.send(map[string]string{"chunk": text})
}

func (s *sseStream) sendDone() {
	_ = s.send(map[string]string{"status": "done"})
}

func (s *sseStream) sendError(message string) {
	_ = s.send(map[string]string{"error": message})
}
