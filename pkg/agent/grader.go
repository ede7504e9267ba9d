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

package agent

import "context"

// graderNode vouches for the gathered context. It currently approves
// unconditionally; the synthesizer only relies on receiving a boolean it
// can trust. Real relevance grading is a planned refinement.
func (a *Agent) graderNode(_ context.Context, _ *State) (Delta, error) {
	return Delta{ContextRelevant: ptr(true)}, nil
}

// criticNode is the terminal checkpoint before the answer leaves the
// graph. It preserves FinalAnswer untouched; policy checks would hook in
// here.
func (a *Agent) criticNode(_ context.Context, _ *State) (Delta, error) {
	return Delta{}, nil
}
