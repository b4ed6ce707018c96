package parser

import (
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/vigilscan/vigil/internal/config"
	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/errors"
	"github.com/vigilscan/vigil/internal/types"
)

// FileStats records how one file was parsed.
type FileStats struct {
	Strategy  types.ParseStrategy
	ParseTime time.Duration
	SizeBytes int
}

// StatsSummary aggregates per-file parse statistics.
type StatsSummary struct {
	TotalFiles       int
	StructuralCount  int
	ChunkingCount    int
	FallbackCount    int
	AverageParseTime time.Duration
}

// HybridParser selects among the structural, chunking, and fallback
// tiers per input. Tier priority is fixed and each tier is attempted
// once; expected degradations land in metadata, and the only error the
// orchestrator surfaces is total strategy exhaustion.
type HybridParser struct {
	cfg        *config.Config
	structural *StructuralParser
	fallback   *FallbackParser
	splitter   *ChunkSplitter
	merger     *ASTMerger

	mu      sync.RWMutex
	results map[string]*types.ParseResult
	stats   map[string]FileStats
}

// NewHybridParser creates the orchestrator from configuration.
func NewHybridParser(cfg *config.Config) *HybridParser {
	return &HybridParser{
		cfg:        cfg,
		structural: NewStructuralParser(cfg.Parse.MaxStructuralBytes),
		fallback:   NewFallbackParser(),
		splitter:   NewChunkSplitter(cfg.Parse.BoundaryWindowBytes),
		merger:     NewASTMerger(),
		results:    make(map[string]*types.ParseResult),
		stats:      make(map[string]FileStats),
	}
}

// Structural exposes the structural tier (used by the chunking path and
// by callers that need grammar capability checks).
func (h *HybridParser) Structural() *StructuralParser { return h.structural }

// ParseFile reads and parses a file, picking the language from its
// extension. Results are cached per path.
func (h *HybridParser) ParseFile(path string) (*types.ParseResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileError("read", path, err)
	}
	return h.parse(content, LanguageFromPath(path), path)
}

// ParseContent parses raw bytes with a language hint. Results are
// cached by content hash.
func (h *HybridParser) ParseContent(content []byte, languageHint string) (*types.ParseResult, error) {
	key := fmt.Sprintf("sha:%016x", xxhash.Sum64(content))
	return h.parse(content, languageHint, key)
}

func (h *HybridParser) parse(content []byte, languageHint, cacheKey string) (*types.ParseResult, error) {
	if h.cfg.Parse.CacheEnabled {
		h.mu.RLock()
		cached, ok := h.results[cacheKey]
		h.mu.RUnlock()
		if ok {
			// Share the immutable AST; only the hit marker differs
			meta := cached.Metadata
			meta.CacheHit = true
			meta.ParseTime = 0
			return &types.ParseResult{AST: cached.AST, Metadata: meta}, nil
		}
	}

	started := time.Now()
	result, err := h.parseUncached(content, languageHint)
	if err != nil {
		return nil, err
	}
	result.Metadata.ParseTime = time.Since(started)
	result.Metadata.OriginalSize = len(content)
	if result.Metadata.ParsedSize == 0 {
		result.Metadata.ParsedSize = len(content)
	}
	result.Metadata.NodeCount = result.AST.NodeCount()

	h.mu.Lock()
	if h.cfg.Parse.CacheEnabled {
		h.results[cacheKey] = result
	}
	h.stats[cacheKey] = FileStats{
		Strategy:  result.Metadata.Strategy,
		ParseTime: result.Metadata.ParseTime,
		SizeBytes: len(content),
	}
	h.mu.Unlock()

	return result, nil
}

func (h *HybridParser) parseUncached(content []byte, languageHint string) (*types.ParseResult, error) {
	lang := NormalizeLanguage(languageHint)

	// Unknown languages degrade to a generic structural pass; input is
	// never silently dropped.
	if !h.structural.Supports(lang) {
		tree, degraded := ParseGeneric(content)
		meta := types.ParseMetadata{
			Strategy:    types.StrategyStructural,
			HasErrors:   degraded,
			Recoverable: degraded,
			Warnings: []string{
				fmt.Sprintf("unsupported language %q, using generic structural pass", languageHint),
			},
		}
		return &types.ParseResult{AST: tree, Metadata: meta}, nil
	}

	if len(content) < h.cfg.Parse.MaxStructuralBytes {
		return h.parseStructuralTier(content, lang)
	}

	if !h.cfg.Parse.ChunkingEnabled {
		return h.parseTruncated(content, lang)
	}

	result, chunkErr := h.parseChunked(content, lang)
	if chunkErr == nil {
		return result, nil
	}
	debug.LogParse("chunking failed (%v), falling back\n", chunkErr)
	return h.parseFallbackTier(content, lang, chunkErr, fmt.Sprintf("chunking failed: %v", chunkErr))
}

// parseStructuralTier runs the structural parser, degrading to the
// fallback tier on outright failure.
func (h *HybridParser) parseStructuralTier(content []byte, lang string) (*types.ParseResult, error) {
	tree, err := h.structural.Parse(content, lang)
	if err != nil {
		return h.parseFallbackTier(content, lang, errors.NewParseError("structural", "", err),
			fmt.Sprintf("structural parse failed: %v", err))
	}

	meta := types.ParseMetadata{Strategy: types.StrategyStructural}
	h.annotateTreeErrors(tree, &meta)
	return &types.ParseResult{AST: tree, Metadata: meta}, nil
}

// parseTruncated handles oversized input with chunking disabled: only
// the first boundary-aligned chunk is parsed.
func (h *HybridParser) parseTruncated(content []byte, lang string) (*types.ParseResult, error) {
	chunks, _, err := h.splitter.Split(content, h.cfg.Parse.MaxChunkBytes)
	if err != nil || len(chunks) == 0 {
		return h.parseFallbackTier(content, lang, err, "could not isolate a parseable prefix")
	}

	prefix := content[chunks[0].Start:chunks[0].End]
	result, perr := h.parseStructuralTier(prefix, lang)
	if perr != nil {
		return nil, perr
	}
	result.Metadata.Truncated = true
	result.Metadata.ParsedSize = len(prefix)
	result.Metadata.Warnings = append(result.Metadata.Warnings,
		fmt.Sprintf("input truncated to %d of %d bytes (chunking disabled)", len(prefix), len(content)))
	return result, nil
}

// parseChunked is the chunking tier: split, parse each chunk
// independently, merge sequentially.
func (h *HybridParser) parseChunked(content []byte, lang string) (*types.ParseResult, error) {
	chunkResults, _, err := h.SplitAndParse(content, h.cfg.Parse.MaxChunkBytes, lang)
	if err != nil {
		return nil, err
	}

	trees := make([]*types.Tree, 0, len(chunkResults))
	truncated := false
	hasErrors := false
	var warnings []string
	var parseErrs []types.ParseError
	for _, cr := range chunkResults {
		trees = append(trees, cr.AST)
		truncated = truncated || cr.Metadata.Truncated
		hasErrors = hasErrors || cr.Metadata.HasErrors
		warnings = append(warnings, cr.Metadata.Warnings...)
		parseErrs = append(parseErrs, cr.Metadata.Errors...)
	}

	merged, err := h.merger.Merge(trees, types.MergeSequential)
	if err != nil {
		return nil, err
	}

	meta := types.ParseMetadata{
		Strategy:      types.StrategyChunking,
		Chunked:       true,
		ChunkCount:    len(chunkResults),
		MergeStrategy: merged.Strategy,
		Truncated:     truncated,
		HasErrors:     hasErrors || !merged.StructureValid,
		Recoverable:   hasErrors || merged.Recoverable,
		Warnings:      append(warnings, merged.Warnings...),
		Errors:        append(parseErrs, merged.Errors...),
	}
	return &types.ParseResult{AST: merged.AST, Metadata: meta}, nil
}

// parseFallbackTier is the last tier. Its generic scan cannot fail, so
// strategy exhaustion is only reachable through internal misuse.
func (h *HybridParser) parseFallbackTier(content []byte, lang string, cause error, reason string) (*types.ParseResult, error) {
	tree, degraded := h.fallback.Parse(content, lang)
	if tree == nil {
		return nil, errors.NewStrategyExhaustedError("", cause,
			errors.NewParseError("fallback", "", stderrors.New("no tree produced")))
	}

	meta := types.ParseMetadata{
		Strategy:       types.StrategyFallback,
		FallbackReason: reason,
		HasErrors:      degraded,
		Recoverable:    true,
	}
	h.annotateTreeErrors(tree, &meta)
	return &types.ParseResult{AST: tree, Metadata: meta}, nil
}

// SplitAndParse divides content into boundary-aligned chunks and parses
// each independently. A chunk that fails structural parsing is retried
// with the fallback parser and marked as degraded.
func (h *HybridParser) SplitAndParse(content []byte, maxChunk int, languageHint string) ([]*types.ParseResult, types.BoundaryCounts, error) {
	lang := NormalizeLanguage(languageHint)
	chunks, counts, err := h.splitter.Split(content, maxChunk)
	if err != nil {
		return nil, counts, err
	}

	results := make([]*types.ParseResult, 0, len(chunks))
	for _, chunk := range chunks {
		data := content[chunk.Start:chunk.End]

		tree, perr := h.structural.Parse(data, lang)
		meta := types.ParseMetadata{
			Strategy:     types.StrategyStructural,
			Truncated:    chunk.Truncated,
			OriginalSize: chunk.Len(),
			ParsedSize:   chunk.Len(),
		}
		if perr != nil {
			tree, _ = h.fallback.Parse(data, lang)
			meta.Strategy = types.StrategyFallback
			meta.HasErrors = true
			meta.Recoverable = true
			meta.FallbackReason = fmt.Sprintf("chunk structural parse failed: %v", perr)
		} else {
			h.annotateTreeErrors(tree, &meta)
		}
		meta.NodeCount = tree.NodeCount()
		results = append(results, &types.ParseResult{AST: tree, Metadata: meta})
	}
	return results, counts, nil
}

// annotateTreeErrors marks metadata when the tree contains error nodes.
func (h *HybridParser) annotateTreeErrors(tree *types.Tree, meta *types.ParseMetadata) {
	errorCount := 0
	tree.Walk(func(_ types.NodeID, n *types.Node) bool {
		if isErrorKind(n.Kind) {
			errorCount++
		}
		return true
	})
	if errorCount > 0 {
		meta.HasErrors = true
		meta.Recoverable = true
		meta.Errors = append(meta.Errors, types.ParseError{
			Kind:    "syntax",
			Message: fmt.Sprintf("%d syntax error nodes", errorCount),
		})
	}
}

// ParseStats returns a copy of the per-file statistics table.
func (h *HybridParser) ParseStats() map[string]FileStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]FileStats, len(h.stats))
	for k, v := range h.stats {
		out[k] = v
	}
	return out
}

// StatsSummary aggregates the statistics table.
func (h *HybridParser) StatsSummary() StatsSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	summary := StatsSummary{TotalFiles: len(h.stats)}
	var total time.Duration
	for _, s := range h.stats {
		total += s.ParseTime
		switch s.Strategy {
		case types.StrategyStructural:
			summary.StructuralCount++
		case types.StrategyChunking:
			summary.ChunkingCount++
		case types.StrategyFallback:
			summary.FallbackCount++
		}
	}
	if summary.TotalFiles > 0 {
		summary.AverageParseTime = total / time.Duration(summary.TotalFiles)
	}
	return summary
}

// ClearCache drops all cached parse results and statistics.
func (h *HybridParser) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = make(map[string]*types.ParseResult)
	h.stats = make(map[string]FileStats)
}
