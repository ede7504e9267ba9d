package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// analyzeFixture reads a Python fixture and runs the analyzer on it.
func analyzeFixture(t *testing.T, name string) *FileFacts {
	t.Helper()

	path := filepath.Join("testdata", "python", name)
	code, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read test fixture: %s", path)

	facts, err := NewPython(nil).Analyze(code, name)
	require.NoError(t, err, "Analyzer should not error on fixture %s", name)
	require.NotNil(t, facts)

	return facts
}

func functionByName(facts *FileFacts, name string) *Function {
	for i := range facts.Functions {
		if facts.Functions[i].Name == name {
			return &facts.Functions[i]
		}
	}
	return nil
}

func classByName(facts *FileFacts, name string) *Class {
	for i := range facts.Classes {
		if facts.Classes[i].Name == name {
			return &facts.Classes[i]
		}
	}
	return nil
}

func methodByName(cls *Class, name string) *Function {
	for i := range cls.Methods {
		if cls.Methods[i].Name == name {
			return &cls.Methods[i]
		}
	}
	return nil
}

// TestPython_Functions tests basic function extraction.
func TestPython_Functions(t *testing.T) {
	facts := analyzeFixture(t, "simple_function.py")

	assert.Len(t, facts.Functions, 2, "Should extract 2 functions")
	assert.Empty(t, facts.Classes)

	add := functionByName(facts, "add")
	require.NotNil(t, add, "Should find add function")
	assert.Equal(t, []string{"a", "b"}, add.Args)
	assert.Equal(t, "Add two numbers.", add.Docstring)
	assert.Contains(t, add.SourceCode, "return a + b")
	assert.Empty(t, add.Calls)

	compute := functionByName(facts, "compute")
	require.NotNil(t, compute, "Should find compute function")
	assert.Equal(t, []string{"x"}, compute.Args)
	assert.Contains(t, compute.Docstring, "Compute a derived value.")
	assert.Contains(t, compute.Docstring, "Uses add twice")

	// add appears twice in the body but once in the call set; print is a
	// call head like any other.
	assert.Equal(t, []string{"add", "print"}, compute.Calls)
}

// TestPython_Classes tests class, base-class, and method extraction.
func TestPython_Classes(t *testing.T) {
	facts := analyzeFixture(t, "classes.py")

	assert.Len(t, facts.Classes, 2, "Should extract 2 classes")

	base := classByName(facts, "Base")
	require.NotNil(t, base)
	assert.Equal(t, "Common behavior.", base.Docstring)
	assert.Empty(t, base.BaseClasses)
	assert.Len(t, base.Methods, 1)

	peer := classByName(facts, "Peer")
	require.NotNil(t, peer)
	assert.Equal(t, "A network peer.", peer.Docstring)
	assert.Equal(t, []string{"Base"}, peer.BaseClasses)
	assert.Len(t, peer.Methods, 3)

	init := methodByName(peer, "__init__")
	require.NotNil(t, init)
	assert.Equal(t, []string{"self", "host", "port"}, init.Args, "default parameters keep their names")

	connect := methodByName(peer, "connect")
	require.NotNil(t, connect)
	assert.Equal(t, "Open the underlying socket.", connect.Docstring)
	// socket.socket() and sock.connect() record rightmost attribute names.
	assert.Equal(t, []string{"socket", "connect", "on_open"}, connect.Calls)

	standalone := functionByName(facts, "standalone")
	require.NotNil(t, standalone, "Module-level function should not be a method")
	assert.Equal(t, []string{"Peer", "connect"}, standalone.Calls)
}

// TestPython_Imports tests all import statement forms.
func TestPython_Imports(t *testing.T) {
	facts := analyzeFixture(t, "imports.py")

	type key struct{ module, name, alias string }
	got := make(map[key]bool)
	for _, imp := range facts.Imports {
		got[key{imp.Module, imp.Name, imp.Alias}] = true
	}

	want := []key{
		{"os", "", ""},
		{"os.path", "", ""},
		{"numpy", "", "np"},
		{"typing", "List", ""},
		{"typing", "Optional", ""},
		{"collections", "OrderedDict", "OD"},
		{"", "sibling", ""},
		{"common", "util", ""},
		{"functools", "*", ""},
		{"fcntl", "", ""}, // import inside a module-level if block
	}
	for _, w := range want {
		assert.True(t, got[w], "missing import %+v", w)
	}
	assert.Len(t, facts.Imports, len(want))
}

// TestPython_NestedFunctions verifies nested defs are not emitted but
// their calls surface in the enclosing function.
func TestPython_NestedFunctions(t *testing.T) {
	facts := analyzeFixture(t, "nested_functions.py")

	names := make([]string, 0, len(facts.Functions))
	for _, fn := range facts.Functions {
		names = append(names, fn.Name)
	}
	assert.ElementsMatch(t, []string{"outer", "transform", "release"}, names,
		"helper must not appear as a top-level function")

	outer := functionByName(facts, "outer")
	require.NotNil(t, outer)
	assert.Contains(t, outer.Calls, "transform", "call inside nested def surfaces in outer")
	assert.Contains(t, outer.Calls, "release", "call inside lambda surfaces in outer")
	assert.Contains(t, outer.Calls, "helper")
	assert.Contains(t, outer.Calls, "cleanup")
}

// TestPython_Decorators verifies decorated functions and classes are
// extracted, with source text starting at the def/class keyword.
func TestPython_Decorators(t *testing.T) {
	facts := analyzeFixture(t, "decorators.py")

	cached := functionByName(facts, "cached_lookup")
	require.NotNil(t, cached, "decorated function should be extracted")
	assert.Equal(t, "Look a key up once.", cached.Docstring)
	assert.Equal(t, []string{"expensive"}, cached.Calls)
	assert.True(t, len(cached.SourceCode) > 0 && cached.SourceCode[0] != '@',
		"source should begin at def, not at the decorator")

	cfg := classByName(facts, "Config")
	require.NotNil(t, cfg, "decorated class should be extracted")
	assert.Equal(t, "Holds settings.", cfg.Docstring)
	require.Len(t, cfg.Methods, 1)
	assert.Equal(t, "loaded", cfg.Methods[0].Name)
}

// TestPython_PeerService covers the canonical toy repo file: a class with
// a method calling a same-file top-level function by name.
func TestPython_PeerService(t *testing.T) {
	facts := analyzeFixture(t, "peer_service.py")

	require.Len(t, facts.Classes, 1)
	peer := facts.Classes[0]
	assert.Equal(t, "Peer", peer.Name)
	require.Len(t, peer.Methods, 1)
	assert.Equal(t, "connect", peer.Methods[0].Name)
	assert.Equal(t, []string{"open"}, peer.Methods[0].Calls)

	require.Len(t, facts.Functions, 1)
	assert.Equal(t, "open", facts.Functions[0].Name)
}

// TestPython_BrokenFile verifies a file with syntax errors is rejected as
// a whole; the caller logs it and moves on without partial facts.
func TestPython_BrokenFile(t *testing.T) {
	path := filepath.Join("testdata", "python", "broken.py")
	code, err := os.ReadFile(path)
	require.NoError(t, err)

	facts, err := NewPython(nil).Analyze(code, "broken.py")
	require.Error(t, err)
	assert.Nil(t, facts)
}

// TestPython_EmptyFile verifies an empty file yields empty facts.
func TestPython_EmptyFile(t *testing.T) {
	facts, err := NewPython(nil).Analyze([]byte(""), "empty.py")
	require.NoError(t, err)
	assert.Empty(t, facts.Imports)
	assert.Empty(t, facts.Classes)
	assert.Empty(t, facts.Functions)
}

// TestRegistry verifies extension dispatch.
func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewPython(nil))

	a, ok := reg.ForFile("pkg/app/models.py")
	assert.True(t, ok)
	assert.Equal(t, "python", a.Language())

	_, ok = reg.ForFile("README.md")
	assert.False(t, ok)

	assert.True(t, reg.Supports("UPPER.PY"), "extension match is case-insensitive")
	assert.False(t, reg.Supports("noext"))
}
