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
	"context"
	"fmt"
	"strings"
	"sync"

	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Python analyzes Python source files with Tree-sitter.
//
// Entity discovery mirrors a single AST pass: classes and functions are
// collected at module level (including inside module-level if/try blocks),
// methods at class-body level. Function bodies are never descended into
// for entity discovery, so nested defs stay invisible; they only
// contribute to the enclosing function's call set.
type Python struct {
	logger *slog.Logger

	// Tree-sitter parsers are not thread-safe; pool one per goroutine.
	pool sync.Pool
	init sync.Once
}

// NewPython creates a Python analyzer.
func NewPython(logger *slog.Logger) *Python {
	if logger == nil {
		logger = slog.Default()
	}
	return &Python{logger: logger}
}

func (p *Python) initPool() {
	p.init.Do(func() {
		p.pool.New = func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(python.GetLanguage())
			return parser
		}
	})
}

// Language returns "python".
func (p *Python) Language() string { return "python" }

// Extensions returns the handled file extensions.
func (p *Python) Extensions() []string { return []string{".py"} }

// Analyze parses Python source and extracts imports, classes, and functions.
func (p *Python) Analyze(content []byte, filePath string) (*FileFacts, error) {
	p.initPool()

	parserObj := p.pool.Get()
	parser, ok := parserObj.(*sitter.Parser)
	if !ok {
		return nil, fmt.Errorf("invalid parser type from pool")
	}
	defer p.pool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if errorCount := countErrors(root); errorCount > 0 {
			p.logger.Warn("analyzer.python.syntax_errors",
				"path", filePath,
				"error_count", errorCount,
			)
			return nil, fmt.Errorf("%s: %d syntax error nodes", filePath, errorCount)
		}
	}

	facts := &FileFacts{}
	p.walkModule(root, content, facts)
	return facts, nil
}

// walkModule collects module-level entities. It descends through control
// flow (if/try/with at module scope) but never into function bodies.
func (p *Python) walkModule(node *sitter.Node, content []byte, facts *FileFacts) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "import_statement":
		facts.Imports = append(facts.Imports, extractImports(node, content)...)
		return
	case "import_from_statement":
		facts.Imports = append(facts.Imports, extractFromImports(node, content)...)
		return
	case "class_definition":
		p.extractClass(node, content, facts)
		return
	case "function_definition":
		if fn := p.extractFunction(node, content); fn != nil {
			facts.Functions = append(facts.Functions, *fn)
		}
		return
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil {
			p.walkModule(def, content, facts)
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkModule(node.Child(i), content, facts)
	}
}

// extractClass appends the class (with its methods) to facts. Nested
// classes become separate Class entries, matching name-keyed storage.
func (p *Python) extractClass(node *sitter.Node, content []byte, facts *FileFacts) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	cls := Class{
		Name:        nodeText(nameNode, content),
		Docstring:   docstringFromBody(node.ChildByFieldName("body"), content),
		BaseClasses: extractBases(node.ChildByFieldName("superclasses"), content),
	}

	if body := node.ChildByFieldName("body"); body != nil {
		p.collectClassBody(body, content, &cls, facts)
	}

	facts.Classes = append(facts.Classes, cls)
}

// collectClassBody gathers methods (and anything else visible at class
// scope: imports, nested classes) without descending into method bodies.
func (p *Python) collectClassBody(node *sitter.Node, content []byte, cls *Class, facts *FileFacts) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "function_definition":
			if fn := p.extractFunction(child, content); fn != nil {
				cls.Methods = append(cls.Methods, *fn)
			}
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				switch def.Type() {
				case "function_definition":
					if fn := p.extractFunction(def, content); fn != nil {
						cls.Methods = append(cls.Methods, *fn)
					}
				case "class_definition":
					p.extractClass(def, content, facts)
				}
			}
		case "class_definition":
			p.extractClass(child, content, facts)
		case "import_statement":
			facts.Imports = append(facts.Imports, extractImports(child, content)...)
		case "import_from_statement":
			facts.Imports = append(facts.Imports, extractFromImports(child, content)...)
		default:
			p.collectClassBody(child, content, cls, facts)
		}
	}
}

// extractFunction builds a Function fact from a function_definition node.
func (p *Python) extractFunction(node *sitter.Node, content []byte) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	return &Function{
		Name:       nodeText(nameNode, content),
		Args:       extractParams(node.ChildByFieldName("parameters"), content),
		Docstring:  docstringFromBody(node.ChildByFieldName("body"), content),
		SourceCode: nodeText(node, content),
		Calls:      extractCalls(node, content),
	}
}

// extractParams returns positional parameter names. Splat parameters
// (*args, **kwargs) and separators are not included.
func extractParams(node *sitter.Node, content []byte) []string {
	if node == nil {
		return nil
	}

	var args []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			args = append(args, nodeText(child, content))
		case "typed_parameter":
			if id := firstChildOfType(child, "identifier"); id != nil {
				args = append(args, nodeText(id, content))
			}
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				args = append(args, nodeText(name, content))
			}
		}
	}
	return args
}

// extractBases returns base-class names from a superclasses argument list.
// Only plain identifiers count; attribute references (pkg.Base) and
// keyword arguments (metaclass=...) are dropped.
func extractBases(node *sitter.Node, content []byte) []string {
	if node == nil {
		return nil
	}

	var bases []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "identifier" {
			bases = append(bases, nodeText(child, content))
		}
	}
	return bases
}

// extractCalls walks the whole function body (nested defs included) and
// returns the de-duplicated call names in first-occurrence order. For
// attribute calls a.b.c() the rightmost name "c" is recorded.
func extractCalls(node *sitter.Node, content []byte) []string {
	var calls []string
	seen := make(map[string]bool)
	walkCalls(node, content, seen, &calls)
	return calls
}

func walkCalls(node *sitter.Node, content []byte, seen map[string]bool, calls *[]string) {
	if node == nil {
		return
	}

	if node.Type() == "call" {
		if fn := node.ChildByFieldName("function"); fn != nil {
			if name := calleeName(fn, content); name != "" && !seen[name] {
				seen[name] = true
				*calls = append(*calls, name)
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkCalls(node.Child(i), content, seen, calls)
	}
}

// calleeName extracts the invocation head name from a call's function node.
func calleeName(node *sitter.Node, content []byte) string {
	switch node.Type() {
	case "identifier":
		return nodeText(node, content)
	case "attribute":
		if attr := node.ChildByFieldName("attribute"); attr != nil {
			return nodeText(attr, content)
		}
	}
	return ""
}

// extractImports handles "import a.b, x as y".
func extractImports(node *sitter.Node, content []byte) []Import {
	var out []Import
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			out = append(out, Import{Module: nodeText(child, content)})
		case "aliased_import":
			imp := Import{}
			if name := child.ChildByFieldName("name"); name != nil {
				imp.Module = nodeText(name, content)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				imp.Alias = nodeText(alias, content)
			}
			out = append(out, imp)
		}
	}
	return out
}

// extractFromImports handles "from m import a, b as c, *". Relative
// imports keep only the named package part ("from ..pkg import x" yields
// module "pkg"; "from . import x" yields module "").
func extractFromImports(node *sitter.Node, content []byte) []Import {
	module := ""
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode != nil {
		if moduleNode.Type() == "relative_import" {
			if dotted := firstChildOfType(moduleNode, "dotted_name"); dotted != nil {
				module = nodeText(dotted, content)
			}
		} else {
			module = nodeText(moduleNode, content)
		}
	}

	var out []Import
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			out = append(out, Import{Module: module, Name: nodeText(child, content)})
		case "aliased_import":
			imp := Import{Module: module}
			if name := child.ChildByFieldName("name"); name != nil {
				imp.Name = nodeText(name, content)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				imp.Alias = nodeText(alias, content)
			}
			out = append(out, imp)
		case "wildcard_import":
			out = append(out, Import{Module: module, Name: "*"})
		}
	}
	return out
}

// docstringFromBody returns the cleaned docstring when the body's first
// statement is a string expression, else "".
func docstringFromBody(body *sitter.Node, content []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}

	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}

	expr := first.NamedChild(0)
	if expr.Type() != "string" && expr.Type() != "concatenated_string" {
		return ""
	}

	return cleanDocstring(nodeText(expr, content))
}

// cleanDocstring strips quotes and prefix letters, then normalizes
// indentation the way inspect.cleandoc does.
func cleanDocstring(raw string) string {
	s := raw

	// String prefix (r, b, u, f in any case/combination)
	for len(s) > 0 {
		c := s[0]
		if c == 'r' || c == 'R' || c == 'b' || c == 'B' || c == 'u' || c == 'U' || c == 'f' || c == 'F' {
			s = s[1:]
			continue
		}
		break
	}

	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}

	lines := strings.Split(s, "\n")
	if len(lines) == 0 {
		return ""
	}

	lines[0] = strings.TrimSpace(lines[0])

	// Common indent of the remaining non-blank lines
	margin := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin > 0 {
		for i, line := range lines[1:] {
			if len(line) >= margin {
				lines[i+1] = line[margin:]
			} else {
				lines[i+1] = strings.TrimLeft(line, " \t")
			}
		}
	}

	return strings.Trim(strings.Join(lines, "\n"), "\n \t")
}

func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

func firstChildOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// countErrors counts ERROR nodes in a parse tree.
func countErrors(node *sitter.Node) int {
	count := 0
	if node.Type() == "ERROR" {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrors(node.Child(i))
	}
	return count
}
