package mcp

import (
	"os"

	"github.com/vigilscan/vigil/internal/errors"
	"github.com/vigilscan/vigil/internal/types"
)

// parserResult is the JSON shape returned by the parse_file tool.
type parserResult struct {
	Path             string   `json:"path"`
	Strategy         string   `json:"strategy"`
	NodeCount        int      `json:"node_count"`
	OriginalSize     int      `json:"original_size"`
	ParsedSize       int      `json:"parsed_size"`
	Truncated        bool     `json:"truncated,omitempty"`
	Chunked          bool     `json:"chunked,omitempty"`
	ChunkCount       int      `json:"chunk_count,omitempty"`
	MergeStrategy    string   `json:"merge_strategy,omitempty"`
	CacheHit         bool     `json:"cache_hit,omitempty"`
	HasErrors        bool     `json:"has_errors,omitempty"`
	Recoverable      bool     `json:"recoverable,omitempty"`
	FallbackReason   string   `json:"fallback_reason,omitempty"`
	ParseTime        string   `json:"parse_time"`
	Warnings         []string `json:"warnings,omitempty"`
	SyntaxErrors     int      `json:"syntax_errors,omitempty"`
	FirstErrorLine   int      `json:"first_error_line,omitempty"`
	RootKind         string   `json:"root_kind"`
	TopLevelChildren int      `json:"top_level_children"`
}

func newParserResult(path string, parsed *types.ParseResult) *parserResult {
	root := parsed.AST.Node(parsed.AST.Root())
	r := &parserResult{
		Path:             path,
		Strategy:         parsed.Metadata.Strategy.String(),
		NodeCount:        parsed.Metadata.NodeCount,
		OriginalSize:     parsed.Metadata.OriginalSize,
		ParsedSize:       parsed.Metadata.ParsedSize,
		Truncated:        parsed.Metadata.Truncated,
		Chunked:          parsed.Metadata.Chunked,
		ChunkCount:       parsed.Metadata.ChunkCount,
		CacheHit:         parsed.Metadata.CacheHit,
		HasErrors:        parsed.Metadata.HasErrors,
		Recoverable:      parsed.Metadata.Recoverable,
		FallbackReason:   parsed.Metadata.FallbackReason,
		ParseTime:        parsed.Metadata.ParseTime.String(),
		Warnings:         parsed.Metadata.Warnings,
		SyntaxErrors:     len(parsed.Metadata.Errors),
		RootKind:         root.Kind,
		TopLevelChildren: len(root.Children),
	}
	if parsed.Metadata.Chunked {
		r.MergeStrategy = parsed.Metadata.MergeStrategy.String()
	}
	if parsed.Metadata.HasErrors {
		id := parsed.AST.FirstOfKind("ERROR")
		if id == types.InvalidNode {
			id = parsed.AST.FirstOfKind("MISSING")
		}
		if id != types.InvalidNode {
			r.FirstErrorLine = int(parsed.AST.Node(id).Start.Row) + 1
		}
	}
	return r
}

func readFileForParse(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileError("read", path, err)
	}
	return content, nil
}
