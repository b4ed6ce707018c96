package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilscan/vigil/internal/types"
)

func collectKinds(tree *types.Tree) []string {
	var kinds []string
	root := tree.Node(tree.Root())
	for _, id := range root.Children {
		kinds = append(kinds, tree.Node(id).Kind)
	}
	return kinds
}

func TestFallbackJavaScript(t *testing.T) {
	f := NewFallbackParser()

	src := []byte("function greet(name) {\n  return 'hi ' + name;\n}\n\nclass Box {\n  get() { return 1; }\n}\n\nvar x = 3;\n")
	tree, degraded := f.Parse(src, "javascript")
	require.NotNil(t, tree)
	assert.False(t, degraded, "well-formed JS should use the real parser")

	kinds := collectKinds(tree)
	assert.Contains(t, kinds, "function_declaration")
	assert.Contains(t, kinds, "class_declaration")
	assert.Contains(t, kinds, "variable_declaration")
}

func TestFallbackJavaScriptBrokenInput(t *testing.T) {
	f := NewFallbackParser()

	// Unparseable by the real JS parser; the generic scan takes over
	tree, degraded := f.Parse([]byte("function ((((\n"), "javascript")
	require.NotNil(t, tree)
	assert.True(t, degraded)
}

func TestFallbackGenericStatements(t *testing.T) {
	f := NewFallbackParser()

	src := []byte("import os\n\ndef run():\n    pass\n\nclass Runner:\n    pass\n")
	tree, degraded := f.Parse(src, "python")
	require.NotNil(t, tree)
	assert.False(t, degraded)

	root := tree.Node(tree.Root())
	assert.Equal(t, "source_file", root.Kind)

	kinds := collectKinds(tree)
	assert.Contains(t, kinds, "import_statement")
	assert.Contains(t, kinds, "function_declaration")
	assert.Contains(t, kinds, "class_declaration")
}

func TestFallbackUnterminatedConstruct(t *testing.T) {
	f := NewFallbackParser()

	// Brace never closes before EOF
	tree, degraded := f.Parse([]byte("func broken() {\n\tx := 1\n"), "unknown")
	require.NotNil(t, tree)
	assert.True(t, degraded)

	var sawError bool
	tree.Walk(func(_ types.NodeID, n *types.Node) bool {
		if n.Kind == "ERROR" {
			sawError = true
			return false
		}
		return true
	})
	assert.True(t, sawError, "unterminated construct should produce an ERROR node")
}

func TestFallbackEmptyInput(t *testing.T) {
	f := NewFallbackParser()

	tree, degraded := f.Parse(nil, "text")
	require.NotNil(t, tree)
	assert.False(t, degraded)
	assert.Equal(t, 1, tree.NodeCount())
}

func TestParseGenericPositions(t *testing.T) {
	tree, _ := ParseGeneric([]byte("a = 1\nb = 2\nc = 3\n"))

	root := tree.Node(tree.Root())
	require.Len(t, root.Children, 3)

	var prev types.Position
	for i, id := range root.Children {
		n := tree.Node(id)
		if i > 0 {
			assert.True(t, prev.Before(n.Start) || prev == n.Start, "statement %d out of order", i)
		}
		prev = n.Start
	}
	assert.Equal(t, uint32(2), tree.Node(root.Children[2]).Start.Row)
}
