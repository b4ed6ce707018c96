package parser

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/vigilscan/vigil/internal/errors"
	"github.com/vigilscan/vigil/internal/types"
)

// nearDuplicateThreshold is the similarity above which two non-identical
// top-level siblings of the same kind are flagged (not removed) during
// an intelligent merge.
const nearDuplicateThreshold = 0.92

// maxSimilarityTextLen bounds the text length fed to the similarity
// metric; longer nodes are never near-duplicate candidates.
const maxSimilarityTextLen = 200

// ASTMerger recombines per-chunk trees into one coherent tree with
// consistent positions. Structural defects in the inputs degrade the
// result's metadata, never the merge itself; the only hard failure is
// an empty input list.
type ASTMerger struct{}

// NewASTMerger creates a merger.
func NewASTMerger() *ASTMerger {
	return &ASTMerger{}
}

// Merge combines trees using the given strategy. MergeNone selects the
// default: identity for a single tree, sequential otherwise.
func (m *ASTMerger) Merge(trees []*types.Tree, strategy types.MergeStrategy) (*types.MergeResult, error) {
	if len(trees) == 0 {
		return nil, errors.ErrEmptyMergeInput
	}

	if strategy == types.MergeNone {
		if len(trees) == 1 {
			strategy = types.MergeSingle
		} else {
			strategy = types.MergeSequential
		}
	}

	result := &types.MergeResult{Strategy: strategy, StructureValid: true}

	if strategy == types.MergeSingle || len(trees) == 1 {
		result.Strategy = types.MergeSingle
		result.AST = trees[0]
		result.NodeCount = trees[0].NodeCount()
		m.validateStructure(result)
		return result, nil
	}

	// Overlap detection only applies when inputs carry absolute
	// positions; sequential inputs are chunk-relative by contract.
	if strategy != types.MergeSequential {
		m.detectOverlap(trees, result)
	}

	switch strategy {
	case types.MergeSequential:
		m.build(trees, result, true, false)
	case types.MergeHierarchical:
		m.build(trees, result, false, false)
	case types.MergeIntelligent:
		m.build(trees, result, false, true)
	default:
		return nil, fmt.Errorf("unknown merge strategy %v", strategy)
	}

	result.NodeCount = result.AST.NodeCount()
	m.validateStructure(result)
	return result, nil
}

// build assembles the merged tree. A synthetic root is always created;
// it reuses the input kind when all roots agree. shift enables the
// cumulative row-extent offsetting used for chunk-relative inputs.
// dedup drops top-level children whose kind and text were already seen.
func (m *ASTMerger) build(trees []*types.Tree, result *types.MergeResult, shift, dedup bool) {
	rootKind := trees[0].Node(trees[0].Root()).Kind
	for _, t := range trees[1:] {
		if t.Node(t.Root()).Kind != rootKind {
			rootKind = "merged_source"
			break
		}
	}

	merged := types.NewTree(rootKind)
	seen := make(map[string]bool)
	warnedNilChildren := false
	rowOffset := uint32(0)

	for _, t := range trees {
		root := t.Node(t.Root())

		children := root.Children
		if children == nil {
			if !warnedNilChildren {
				result.Warnings = append(result.Warnings, "normalized missing children to empty list")
				warnedNilChildren = true
			}
			children = []types.NodeID{}
		}

		// Roots matching the merged kind contribute their children;
		// foreign roots are appended whole.
		appendIDs := children
		appendRootItself := root.Kind != rootKind
		if appendRootItself {
			appendIDs = []types.NodeID{t.Root()}
		}

		for _, childID := range appendIDs {
			child := t.Node(childID)
			if dedup {
				key := child.Kind + "\x00" + child.Text
				if seen[key] {
					result.DuplicatesRemoved++
					continue
				}
				m.flagNearDuplicates(child, seen, result)
				seen[key] = true
			}
			copied := m.copySubtree(merged, t, childID, rowOffset)
			merged.Link(merged.Root(), copied)
		}

		if shift {
			rowOffset += root.End.Row + 1
		}
	}

	// Widen the root span to cover the merged children
	rootNode := merged.Node(merged.Root())
	if len(rootNode.Children) > 0 {
		first := merged.Node(rootNode.Children[0])
		last := merged.Node(rootNode.Children[len(rootNode.Children)-1])
		merged.SetRootSpan(first.Start, last.End)
	}

	result.AST = merged
}

func (m *ASTMerger) copySubtree(dst *types.Tree, src *types.Tree, id types.NodeID, rowOffset uint32) types.NodeID {
	n := src.Node(id)
	copied := dst.AddNode(types.Node{
		Kind:  n.Kind,
		Text:  n.Text,
		Start: types.Position{Row: n.Start.Row + rowOffset, Column: n.Start.Column},
		End:   types.Position{Row: n.End.Row + rowOffset, Column: n.End.Column},
		Named: n.Named,
	})
	for _, childID := range n.Children {
		copiedChild := m.copySubtree(dst, src, childID, rowOffset)
		dst.Link(copied, copiedChild)
	}
	return copied
}

// flagNearDuplicates warns about top-level siblings that are almost but
// not exactly identical, which usually indicates a chunk boundary cut
// through a repeated construct.
func (m *ASTMerger) flagNearDuplicates(node *types.Node, seen map[string]bool, result *types.MergeResult) {
	if len(node.Text) == 0 || len(node.Text) > maxSimilarityTextLen {
		return
	}
	prefix := node.Kind + "\x00"
	for key := range seen {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		prior := key[len(prefix):]
		if len(prior) == 0 || len(prior) > maxSimilarityTextLen || prior == node.Text {
			continue
		}
		sim, err := edlib.StringsSimilarity(prior, node.Text, edlib.Levenshtein)
		if err == nil && float64(sim) >= nearDuplicateThreshold {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("near-duplicate %s nodes detected (similarity %.2f)", node.Kind, sim))
			return
		}
	}
}

// detectOverlap flags intersecting input ranges. Overlap degrades
// confidence in the merged positions but never blocks the merge.
func (m *ASTMerger) detectOverlap(trees []*types.Tree, result *types.MergeResult) {
	for i := 0; i < len(trees); i++ {
		a := trees[i].Node(trees[i].Root())
		for j := i + 1; j < len(trees); j++ {
			b := trees[j].Node(trees[j].Root())
			if rangesIntersect(a.Start, a.End, b.Start, b.End) {
				result.HasOverlap = true
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("input trees %d and %d occupy overlapping ranges", i, j))
				return
			}
		}
	}
}

// rangesIntersect treats touching ranges as disjoint: adjacent chunks
// legitimately share a boundary position.
func rangesIntersect(aStart, aEnd, bStart, bEnd types.Position) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// validateStructure scans the merged tree for error and unterminated
// constructs. Defects make the result recoverable-degraded, not failed.
func (m *ASTMerger) validateStructure(result *types.MergeResult) {
	errorNodes := 0
	result.AST.Walk(func(_ types.NodeID, n *types.Node) bool {
		if isErrorKind(n.Kind) {
			errorNodes++
		}
		return true
	})

	if errorNodes > 0 {
		result.StructureValid = false
		result.Recoverable = true
		result.ErrorNodes = errorNodes
		result.Errors = append(result.Errors, types.ParseError{
			Kind:    "structure",
			Message: fmt.Sprintf("%d error nodes in merged tree", errorNodes),
		})
	}
}

func isErrorKind(kind string) bool {
	return kind == "ERROR" || kind == "MISSING" || strings.HasSuffix(kind, "_error")
}
