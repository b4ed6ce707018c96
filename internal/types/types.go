package types

import (
	"time"
)

// Position is a zero-based row/column location in a source document.
type Position struct {
	Row    uint32
	Column uint32
}

// Before reports whether p comes before other in document order.
func (p Position) Before(other Position) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Column < other.Column
}

// After reports whether p comes after other in document order.
func (p Position) After(other Position) bool {
	return other.Before(p)
}

// NodeID addresses a node inside a Tree's arena. The zero value is the
// root of a non-empty tree.
type NodeID uint32

// InvalidNode marks a missing node reference.
const InvalidNode = NodeID(^uint32(0))

// Node is a single syntax node. Nodes live in a Tree arena and refer to
// their children by index, so a whole tree is two allocations regardless
// of node count.
type Node struct {
	Kind     string
	Text     string
	Start    Position
	End      Position
	Named    bool
	Children []NodeID
}

// Tree is an arena of syntax nodes with a single root at index 0.
// Trees are immutable once built and never share nodes with other trees.
type Tree struct {
	nodes []Node
}

// NewTree creates a tree seeded with a root node of the given kind.
func NewTree(rootKind string) *Tree {
	t := &Tree{nodes: make([]Node, 0, 64)}
	t.nodes = append(t.nodes, Node{Kind: rootKind, Named: true})
	return t
}

// AddNode appends a node to the arena and returns its ID. The caller is
// responsible for linking it into a parent's Children list.
func (t *Tree) AddNode(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Root returns the root node ID.
func (t *Tree) Root() NodeID { return 0 }

// Node returns a pointer into the arena. The pointer is invalidated by
// the next AddNode call; callers must not retain it across mutation.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// NodeCount returns the total number of nodes in the arena.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// Link appends child IDs to parent's child list.
func (t *Tree) Link(parent NodeID, children ...NodeID) {
	n := &t.nodes[parent]
	n.Children = append(n.Children, children...)
}

// SetRootSpan widens the root node's span to the given bounds.
func (t *Tree) SetRootSpan(start, end Position) {
	t.nodes[0].Start = start
	t.nodes[0].End = end
}

// FirstOfKind returns the first node of the given kind in document
// order, or InvalidNode when the tree has none.
func (t *Tree) FirstOfKind(kind string) NodeID {
	found := InvalidNode
	t.Walk(func(id NodeID, n *Node) bool {
		if n.Kind == kind {
			found = id
			return false
		}
		return true
	})
	return found
}

// Walk visits every node reachable from the root in depth-first,
// document order. Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(id NodeID, n *Node) bool) {
	if len(t.nodes) == 0 {
		return
	}
	t.walk(0, fn)
}

func (t *Tree) walk(id NodeID, fn func(id NodeID, n *Node) bool) bool {
	n := &t.nodes[id]
	if !fn(id, n) {
		return false
	}
	for _, c := range n.Children {
		if !t.walk(c, fn) {
			return false
		}
	}
	return true
}

// ParseStrategy identifies which parser tier produced a result.
type ParseStrategy uint8

const (
	StrategyStructural ParseStrategy = iota
	StrategyChunking
	StrategyFallback
)

func (s ParseStrategy) String() string {
	switch s {
	case StrategyStructural:
		return "structural"
	case StrategyChunking:
		return "chunking"
	case StrategyFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// MergeStrategy identifies how multiple chunk trees were combined.
type MergeStrategy uint8

const (
	MergeNone MergeStrategy = iota
	MergeSingle
	MergeSequential
	MergeHierarchical
	MergeIntelligent
)

func (s MergeStrategy) String() string {
	switch s {
	case MergeSingle:
		return "single"
	case MergeSequential:
		return "sequential"
	case MergeHierarchical:
		return "hierarchical"
	case MergeIntelligent:
		return "intelligent"
	default:
		return "none"
	}
}

// ParseError is a structured, non-fatal defect recorded during parsing
// or merging.
type ParseError struct {
	Kind    string
	Message string
}

// ParseMetadata describes how a parse was performed and what degraded
// along the way. Expected failure modes live here, not in returned
// errors.
type ParseMetadata struct {
	Strategy       ParseStrategy
	Truncated      bool
	Chunked        bool
	ChunkCount     int
	MergeStrategy  MergeStrategy
	OriginalSize   int
	ParsedSize     int
	NodeCount      int
	CacheHit       bool
	HasErrors      bool
	Recoverable    bool
	FallbackReason string
	ParseTime      time.Duration
	Warnings       []string
	Errors         []ParseError
}

// ParseResult pairs a syntax tree with its parse metadata. Results are
// immutable once returned; cached results are shared across callers.
type ParseResult struct {
	AST      *Tree
	Metadata ParseMetadata
}

// BoundaryKind classifies the syntactic boundary a chunk was cut at.
type BoundaryKind uint8

const (
	BoundaryNone BoundaryKind = iota
	BoundaryStatement
	BoundaryFunction
	BoundaryClass
)

func (b BoundaryKind) String() string {
	switch b {
	case BoundaryFunction:
		return "function"
	case BoundaryClass:
		return "class"
	case BoundaryStatement:
		return "statement"
	default:
		return "none"
	}
}

// Chunk is a contiguous byte range of source text parsed independently
// of its neighbors. End is exclusive.
type Chunk struct {
	Start     int
	End       int
	Boundary  BoundaryKind
	Truncated bool
}

// Len returns the chunk's byte length.
func (c Chunk) Len() int { return c.End - c.Start }

// BoundaryCounts records how many top-level constructs the splitter saw,
// for observability and tests.
type BoundaryCounts struct {
	Functions  int
	Classes    int
	Statements int
}

// MergeResult is the outcome of combining chunk trees into one tree.
type MergeResult struct {
	AST               *Tree
	Strategy          MergeStrategy
	NodeCount         int
	DuplicatesRemoved int
	HasOverlap        bool
	StructureValid    bool
	ErrorNodes        int
	Recoverable       bool
	Warnings          []string
	Errors            []ParseError
}

// ChangeType classifies what kind of edit a unit received.
type ChangeType uint8

const (
	ChangeNone ChangeType = iota
	ChangeComment
	ChangeBody
	ChangeSignature
)

func (c ChangeType) String() string {
	switch c {
	case ChangeSignature:
		return "signature"
	case ChangeBody:
		return "body"
	case ChangeComment:
		return "comment"
	default:
		return "none"
	}
}

// ChangeInfo describes a detected change to a single analysis unit.
type ChangeInfo struct {
	UnitID        string
	NewHash       uint64
	Change        ChangeType
	AffectedLines []uint32
}
