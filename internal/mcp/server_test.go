package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vigilscan/vigil/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func callTool(t *testing.T, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args interface{}) map[string]interface{} {
	t.Helper()

	raw, err := json.Marshal(args)
	require.NoError(t, err)

	result, err := handler(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Arguments: raw,
	}})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func testServer(t *testing.T, root string) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Include = []string{"**/*.go"}
	return NewServer(cfg)
}

func TestParseFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644))

	s := testServer(t, dir)
	payload := callTool(t, s.handleParseFile, parseFileParams{Path: path})

	assert.Equal(t, "structural", payload["strategy"])
	assert.Equal(t, "source_file", payload["root_kind"])
	assert.Greater(t, payload["node_count"].(float64), float64(0))
}

func TestParseFileToolReportsFirstErrorLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc broken( {\n"), 0o644))

	s := testServer(t, dir)
	payload := callTool(t, s.handleParseFile, parseFileParams{Path: path})

	assert.Equal(t, true, payload["has_errors"])
	assert.GreaterOrEqual(t, payload["first_error_line"].(float64), float64(1))
}

func TestParseFileToolMissingPath(t *testing.T) {
	s := testServer(t, t.TempDir())
	payload := callTool(t, s.handleParseFile, parseFileParams{})
	assert.Contains(t, payload, "error")
}

func TestAnalyzeToolFullThenIncremental(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("func a() int {\n\treturn 1\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("func b() int {\n\treturn 2\n}\n"), 0o644))

	s := testServer(t, dir)

	first := callTool(t, s.handleAnalyze, analyzeParams{Path: dir})
	assert.Equal(t, float64(2), first["units"])
	assert.Equal(t, float64(2), first["analyzed"])

	// Nothing changed: the incremental pass serves both from cache
	second := callTool(t, s.handleAnalyze, analyzeParams{Path: dir})
	assert.Equal(t, float64(0), second["analyzed"])
	assert.Equal(t, float64(2), second["skipped"])
	assert.Equal(t, float64(2), second["cache_hits"])
}

func TestParseStatsTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	s := testServer(t, dir)
	callTool(t, s.handleParseFile, parseFileParams{Path: path})

	payload := callTool(t, s.handleParseStats, struct{}{})
	assert.Equal(t, float64(1), payload["total_files"])
	assert.Equal(t, float64(1), payload["structural"])
}

func TestCacheStatsTool(t *testing.T) {
	s := testServer(t, t.TempDir())
	payload := callTool(t, s.handleCacheStats, struct{}{})

	assert.Equal(t, float64(config.DefaultCacheCapacity), payload["capacity"])
	assert.Equal(t, float64(0), payload["hits"])
}
