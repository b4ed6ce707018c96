package parser

import (
	"fmt"
	"strings"

	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/types"
)

// ChunkSplitter divides oversized input into byte ranges that respect
// syntactic boundaries. A cut lands at the nearest preceding top-level
// statement end (newline at brace depth zero) inside a bounded backward
// window; when no such boundary exists the chunk is hard-cut at the
// byte limit and marked truncated.
type ChunkSplitter struct {
	window int // backward search window in bytes
}

// NewChunkSplitter creates a splitter with the given backward search
// window.
func NewChunkSplitter(window int) *ChunkSplitter {
	if window <= 0 {
		window = 4096
	}
	return &ChunkSplitter{window: window}
}

// Split divides content into chunks no larger than maxChunk bytes.
// Chunks are non-overlapping and cover the input exactly.
func (s *ChunkSplitter) Split(content []byte, maxChunk int) ([]types.Chunk, types.BoundaryCounts, error) {
	if maxChunk <= 0 {
		return nil, types.BoundaryCounts{}, fmt.Errorf("chunk size must be positive, got %d", maxChunk)
	}

	var chunks []types.Chunk
	counts := countBoundaries(content)

	start := 0
	for start < len(content) {
		remaining := len(content) - start
		if remaining <= maxChunk {
			chunks = append(chunks, types.Chunk{
				Start:    start,
				End:      len(content),
				Boundary: types.BoundaryNone,
			})
			break
		}

		limit := start + maxChunk
		cut, kind := s.findBoundary(content, start, limit)
		if cut <= start {
			// No boundary inside the window: hard cut
			chunks = append(chunks, types.Chunk{
				Start:     start,
				End:       limit,
				Boundary:  types.BoundaryNone,
				Truncated: true,
			})
			start = limit
			continue
		}

		chunks = append(chunks, types.Chunk{
			Start:    start,
			End:      cut,
			Boundary: kind,
		})
		start = cut
	}

	debug.LogParse("split %d bytes into %d chunks\n", len(content), len(chunks))
	return chunks, counts, nil
}

// findBoundary scans forward from start to limit tracking brace depth
// and returns the last depth-zero line break inside the backward
// window, along with the kind of construct that begins at the cut.
func (s *ChunkSplitter) findBoundary(content []byte, start, limit int) (int, types.BoundaryKind) {
	depth := 0
	lastBoundary := -1

	for i := start; i < limit; i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '\n':
			if depth == 0 && i+1 > start {
				lastBoundary = i + 1
			}
		}
	}

	if lastBoundary < 0 || limit-lastBoundary > s.window {
		return -1, types.BoundaryNone
	}
	return lastBoundary, boundaryKindAt(content, lastBoundary)
}

// boundaryKindAt classifies the construct beginning at a cut point.
func boundaryKindAt(content []byte, offset int) types.BoundaryKind {
	end := offset
	for end < len(content) && content[end] != '\n' {
		end++
	}
	line := strings.TrimSpace(string(content[offset:end]))
	switch classifyStatement(line) {
	case "function_declaration":
		return types.BoundaryFunction
	case "class_declaration":
		return types.BoundaryClass
	default:
		return types.BoundaryStatement
	}
}

// countBoundaries tallies top-level functions and classes for
// observability. The scan mirrors findBoundary's depth tracking.
func countBoundaries(content []byte) types.BoundaryCounts {
	var counts types.BoundaryCounts
	depth := 0
	lineStart := 0

	classify := func(lineEnd int) {
		if lineStart >= lineEnd {
			return
		}
		line := strings.TrimSpace(string(content[lineStart:lineEnd]))
		if line == "" {
			return
		}
		switch classifyStatement(line) {
		case "function_declaration":
			counts.Functions++
		case "class_declaration":
			counts.Classes++
		default:
			counts.Statements++
		}
	}

	for i := 0; i < len(content); i++ {
		c := content[i]
		switch c {
		case '\n':
			if depth == 0 {
				classify(i)
			}
			lineStart = i + 1
		case '{':
			if depth == 0 {
				classify(i)
				lineStart = i + 1
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				lineStart = i + 1
			}
		}
	}
	if depth == 0 {
		classify(len(content))
	}
	return counts
}
