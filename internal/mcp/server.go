// Package mcp exposes parsing and incremental analysis over the Model
// Context Protocol on stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vigilscan/vigil/internal/analysis"
	"github.com/vigilscan/vigil/internal/config"
	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/parser"
	"github.com/vigilscan/vigil/internal/version"
)

// Server wires the hybrid parser and analysis engine behind MCP tools.
type Server struct {
	cfg    *config.Config
	parser *parser.HybridParser
	engine *analysis.Engine
	server *mcp.Server
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *config.Config) *Server {
	p := parser.NewHybridParser(cfg)
	s := &Server{
		cfg:    cfg,
		parser: p,
		engine: analysis.NewEngine(cfg, analysis.NewLocalDispatcher(p)),
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "vigil-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context is cancelled. Debug
// output is redirected away from stdout so it cannot corrupt the
// protocol stream.
func (s *Server) Run(ctx context.Context) error {
	debug.SetMCPMode(true)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "parse_file",
		Description: "Parse a source file into a syntax tree, selecting the structural, chunking, or fallback strategy automatically. Returns parse metadata.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "Path to the file to parse",
				},
				"language": {
					Type:        "string",
					Description: "Language override (defaults to the file extension)",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleParseFile)

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze",
		Description: "Analyze a directory tree. The first run analyzes everything; later runs re-analyze only units whose content hash changed, plus their impacted dependents.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "Directory to analyze (defaults to the project root)",
				},
				"full": {
					Type:        "boolean",
					Description: "Force full re-analysis instead of incremental",
				},
			},
		},
	}, s.handleAnalyze)

	s.server.AddTool(&mcp.Tool{
		Name:        "parse_stats",
		Description: "Per-strategy parse statistics: how many inputs used each strategy and the average parse time.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleParseStats)

	s.server.AddTool(&mcp.Tool{
		Name:        "cache_stats",
		Description: "Inference cache effectiveness: hits, misses, evictions, and hit rate.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleCacheStats)
}

type parseFileParams struct {
	Path     string `json:"path"`
	Language string `json:"language"`
}

func (s *Server) handleParseFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params parseFileParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("parse_file", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.Path == "" {
		return createErrorResponse("parse_file", fmt.Errorf("path is required"))
	}

	var result *parserResult
	if params.Language != "" {
		content, err := readFileForParse(params.Path)
		if err != nil {
			return createErrorResponse("parse_file", err)
		}
		parsed, err := s.parser.ParseContent(content, params.Language)
		if err != nil {
			return createErrorResponse("parse_file", err)
		}
		result = newParserResult(params.Path, parsed)
	} else {
		parsed, err := s.parser.ParseFile(params.Path)
		if err != nil {
			return createErrorResponse("parse_file", err)
		}
		result = newParserResult(params.Path, parsed)
	}
	return createJSONResponse(result)
}

type analyzeParams struct {
	Path string `json:"path"`
	Full bool   `json:"full"`
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params analyzeParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("analyze", fmt.Errorf("invalid parameters: %w", err))
	}

	root := params.Path
	if root == "" {
		root = s.cfg.Project.Root
	}

	units, ingestErr := analysis.UnitsFromDir(s.cfg, root)
	if len(units) == 0 && ingestErr != nil {
		return createErrorResponse("analyze", ingestErr)
	}

	var report *analysis.Report
	var err error
	if params.Full || s.engine.UnitCount() == 0 {
		report, err = s.engine.AnalyzeAll(ctx, units)
	} else {
		report, err = s.engine.AnalyzeIncremental(ctx, units)
	}
	if err != nil {
		return createErrorResponse("analyze", err)
	}

	response := map[string]interface{}{
		"root":             root,
		"units":            len(units),
		"analyzed":         report.Analyzed,
		"skipped":          report.Skipped,
		"cache_hits":       report.CacheHits,
		"performance_gain": report.PerformanceGain,
		"duration":         report.Duration.String(),
	}
	if len(report.Failures) > 0 {
		failures := make(map[string]string, len(report.Failures))
		for id, ferr := range report.Failures {
			failures[id] = ferr.Error()
		}
		response["failures"] = failures
	}
	if ingestErr != nil {
		response["ingest_warning"] = ingestErr.Error()
	}
	return createJSONResponse(response)
}

func (s *Server) handleParseStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary := s.parser.StatsSummary()
	return createJSONResponse(map[string]interface{}{
		"total_files":        summary.TotalFiles,
		"structural":         summary.StructuralCount,
		"chunking":           summary.ChunkingCount,
		"fallback":           summary.FallbackCount,
		"average_parse_time": summary.AverageParseTime.String(),
	})
}

func (s *Server) handleCacheStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.engine.Cache().Stats()
	return createJSONResponse(map[string]interface{}{
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"size":      stats.Size,
		"capacity":  stats.Capacity,
		"hit_rate":  stats.HitRate(),
	})
}
