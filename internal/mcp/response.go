package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// createJSONResponse wraps data as a single JSON text content block.
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool-level failure without failing the
// protocol call.
func createErrorResponse(tool string, err error) (*mcp.CallToolResult, error) {
	return createJSONResponse(map[string]interface{}{
		"tool":  tool,
		"error": err.Error(),
	})
}
