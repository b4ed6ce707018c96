package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilscan/vigil/internal/types"
)

func TestStructuralParserGo(t *testing.T) {
	p := NewStructuralParser(32767)

	src := []byte("package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n")
	tree, err := p.Parse(src, "go")
	require.NoError(t, err)
	require.NotNil(t, tree)

	root := tree.Node(tree.Root())
	assert.Equal(t, "source_file", root.Kind)

	var funcs int
	tree.Walk(func(_ types.NodeID, n *types.Node) bool {
		if n.Kind == "function_declaration" {
			funcs++
		}
		return true
	})
	assert.Equal(t, 1, funcs)
}

func TestStructuralParserPositions(t *testing.T) {
	p := NewStructuralParser(32767)

	tree, err := p.Parse([]byte("package main\n\nvar x = 1\n"), "go")
	require.NoError(t, err)

	tree.Walk(func(_ types.NodeID, n *types.Node) bool {
		assert.False(t, n.End.Before(n.Start), "node %q has end before start", n.Kind)
		return true
	})
}

func TestStructuralParserSizeCeiling(t *testing.T) {
	p := NewStructuralParser(64)

	small := []byte(strings.Repeat("x", 63))
	_, err := p.Parse(small, "go")
	require.NoError(t, err)

	exact := []byte(strings.Repeat("x", 64))
	_, err = p.Parse(exact, "go")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	big := []byte(strings.Repeat("x", 65))
	_, err = p.Parse(big, "go")
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestStructuralParserUnsupportedLanguage(t *testing.T) {
	p := NewStructuralParser(32767)

	_, err := p.Parse([]byte("hello"), "cobol")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestStructuralParserLanguages(t *testing.T) {
	p := NewStructuralParser(32767)

	langs := p.Languages()
	assert.GreaterOrEqual(t, len(langs), 10)
	for _, want := range []string{"go", "javascript", "typescript", "python", "rust"} {
		assert.True(t, p.Supports(want), "expected support for %s", want)
	}
}

func TestStructuralParserSyntaxErrors(t *testing.T) {
	p := NewStructuralParser(32767)

	tree, err := p.Parse([]byte("package main\n\nfunc broken( {\n"), "go")
	require.NoError(t, err)

	var errNodes int
	tree.Walk(func(_ types.NodeID, n *types.Node) bool {
		if n.Kind == "ERROR" || n.Kind == "MISSING" {
			errNodes++
		}
		return true
	})
	assert.Greater(t, errNodes, 0, "malformed input should yield error nodes")
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"go":   "go",
		"Go":   "go",
		"js":   "javascript",
		"ts":   "typescript",
		"py":   "python",
		".rs":  "rust",
		"c++":  "cpp",
		"cs":   "csharp",
		"PHP":  "php",
		"zig":  "zig",
		"java": "java",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLanguage(in), "input %q", in)
	}
}

func TestLanguageFromPath(t *testing.T) {
	assert.Equal(t, "go", LanguageFromPath("internal/parser/structural.go"))
	assert.Equal(t, "typescript", LanguageFromPath("src/app.ts"))
	assert.Equal(t, "python", LanguageFromPath("scripts/run.py"))
	assert.Equal(t, "", LanguageFromPath("README.md"))
}
