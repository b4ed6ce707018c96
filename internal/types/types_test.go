package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeArenaBasics(t *testing.T) {
	tree := NewTree("source_file")
	require.Equal(t, 1, tree.NodeCount())
	require.Equal(t, NodeID(0), tree.Root())

	a := tree.AddNode(Node{Kind: "function_declaration", Named: true,
		Start: Position{Row: 0}, End: Position{Row: 2}})
	b := tree.AddNode(Node{Kind: "comment",
		Start: Position{Row: 3}, End: Position{Row: 3, Column: 10}})
	tree.Link(tree.Root(), a, b)

	assert.Equal(t, 3, tree.NodeCount())
	assert.Len(t, tree.Node(tree.Root()).Children, 2)
	assert.Equal(t, "function_declaration", tree.Node(a).Kind)
	assert.True(t, tree.Node(a).Named)
	assert.False(t, tree.Node(b).Named)
}

func TestTreeWalkOrder(t *testing.T) {
	tree := NewTree("source_file")
	fn := tree.AddNode(Node{Kind: "function_declaration"})
	body := tree.AddNode(Node{Kind: "block"})
	stmt := tree.AddNode(Node{Kind: "return_statement"})
	tree.Link(fn, body)
	tree.Link(body, stmt)
	tree.Link(tree.Root(), fn)

	var kinds []string
	tree.Walk(func(_ NodeID, n *Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})
	assert.Equal(t, []string{"source_file", "function_declaration", "block", "return_statement"}, kinds)
}

func TestTreeWalkEarlyStop(t *testing.T) {
	tree := NewTree("source_file")
	for i := 0; i < 5; i++ {
		id := tree.AddNode(Node{Kind: "statement"})
		tree.Link(tree.Root(), id)
	}

	visited := 0
	tree.Walk(func(_ NodeID, n *Node) bool {
		visited++
		return visited < 3
	})
	assert.Equal(t, 3, visited)
}

func TestPositionOrdering(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Position
		before bool
	}{
		{"earlier row", Position{Row: 1, Column: 50}, Position{Row: 2, Column: 0}, true},
		{"same row earlier column", Position{Row: 3, Column: 1}, Position{Row: 3, Column: 2}, true},
		{"equal", Position{Row: 3, Column: 3}, Position{Row: 3, Column: 3}, false},
		{"later row", Position{Row: 4}, Position{Row: 3, Column: 99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.before, tt.a.Before(tt.b))
		})
	}
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "structural", StrategyStructural.String())
	assert.Equal(t, "chunking", StrategyChunking.String())
	assert.Equal(t, "fallback", StrategyFallback.String())
	assert.Equal(t, "sequential", MergeSequential.String())
	assert.Equal(t, "intelligent", MergeIntelligent.String())
	assert.Equal(t, "signature", ChangeSignature.String())
	assert.Equal(t, "body", ChangeBody.String())
	assert.Equal(t, "function", BoundaryFunction.String())
}

func TestChunkLen(t *testing.T) {
	c := Chunk{Start: 100, End: 356}
	assert.Equal(t, 256, c.Len())
}

func TestFirstOfKind(t *testing.T) {
	tree := NewTree("source_file")
	fn := tree.AddNode(Node{Kind: "function_declaration", Start: Position{Row: 2}})
	errNode := tree.AddNode(Node{Kind: "ERROR", Start: Position{Row: 5}})
	tree.Link(tree.Root(), fn, errNode)

	assert.Equal(t, errNode, tree.FirstOfKind("ERROR"))
	assert.Equal(t, fn, tree.FirstOfKind("function_declaration"))
	assert.Equal(t, InvalidNode, tree.FirstOfKind("class_declaration"))
}
