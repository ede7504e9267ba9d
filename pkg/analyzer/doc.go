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

// Package analyzer extracts structural code facts from source files.
//
// An Analyzer parses one file and reports its imports, classes (with
// methods and base-class names), and top-level functions, each function
// carrying its argument names, docstring, source text, and the names it
// calls. The ingestion pipeline turns these facts into graph nodes and
// edges; nothing here touches a database.
//
// Parsing is Tree-sitter based. Python is the primary language; the
// Registry keeps the door open for more grammars without changing the
// pipeline:
//
//	reg := analyzer.NewRegistry(analyzer.NewPython(logger))
//	a, ok := reg.ForFile("app/models.py")
//	if ok {
//	    facts, err := a.Analyze(content, "app/models.py")
//	    ...
//	}
//
// # Fact extraction rules
//
// Call names are recorded by invocation head: a plain call f(x) records
// "f"; an attribute call a.b.c(x) records the rightmost attribute "c".
// Duplicate names within one function are dropped, first occurrence
// order preserved. Cross-file resolution happens later, in the graph.
//
// Nested functions are not reported as separate entities, but calls made
// inside them count toward the enclosing function.
//
// A syntactically broken file yields whatever facts the error-tolerant
// parse recovers; a file the parser cannot read at all yields an error
// the pipeline logs and skips.
package analyzer
