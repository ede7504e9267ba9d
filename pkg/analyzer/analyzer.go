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

package analyzer

import (
	"path/filepath"
	"strings"
)

// Import records one import statement target.
// "import a.b.c" yields {Module: "a.b.c"}; "from x import y as z" yields
// {Module: "x", Name: "y", Alias: "z"}.
type Import struct {
	Module string
	Name   string
	Alias  string
}

// Function holds the extracted facts for one function or method.
type Function struct {
	Name       string
	Args       []string
	Docstring  string
	SourceCode string
	Calls      []string
}

// Class holds the extracted facts for one class definition.
type Class struct {
	Name        string
	Docstring   string
	BaseClasses []string
	Methods     []Function
}

// FileFacts is the complete analysis result for a single source file.
type FileFacts struct {
	Imports   []Import
	Classes   []Class
	Functions []Function
}

// Analyzer parses one source file and extracts structural facts.
type Analyzer interface {
	// Language returns the language name ("python").
	Language() string

	// Extensions returns the file extensions this analyzer handles,
	// including the leading dot.
	Extensions() []string

	// Analyze parses content and returns the extracted facts. filePath
	// is the repo-relative path, used for logging only.
	Analyze(content []byte, filePath string) (*FileFacts, error)
}

// Registry dispatches files to analyzers by extension.
type Registry struct {
	byExt map[string]Analyzer
}

// NewRegistry builds a registry over the given analyzers. Later analyzers
// win on extension collisions.
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{byExt: make(map[string]Analyzer)}
	for _, a := range analyzers {
		for _, ext := range a.Extensions() {
			r.byExt[strings.ToLower(ext)] = a
		}
	}
	return r
}

// ForFile returns the analyzer responsible for path, if any.
func (r *Registry) ForFile(path string) (Analyzer, bool) {
	a, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return a, ok
}

// Supports reports whether any registered analyzer handles path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.ForFile(path)
	return ok
}
