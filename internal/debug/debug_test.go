package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// saveAndRestoreState saves the debug package state and returns a cleanup function
func saveAndRestoreState() func() {
	originalDebug := EnableDebug
	originalMode := MCPMode
	originalOutput := debugOutput
	originalFile := debugFile
	return func() {
		EnableDebug = originalDebug
		MCPMode = originalMode
		debugOutput = originalOutput
		debugFile = originalFile
	}
}

func TestSetMCPMode(t *testing.T) {
	defer saveAndRestoreState()()

	SetMCPMode(true)
	assert.True(t, MCPMode)

	SetMCPMode(false)
	assert.False(t, MCPMode)
}

func TestIsDebugEnabled(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "false"
	MCPMode = false
	assert.False(t, IsDebugEnabled())

	EnableDebug = "true"
	MCPMode = false
	assert.True(t, IsDebugEnabled())

	// MCP mode suppresses output even when debug is on
	MCPMode = true
	assert.False(t, IsDebugEnabled())

	// Invalid value defaults to false
	EnableDebug = "invalid"
	MCPMode = false
	assert.False(t, IsDebugEnabled())
}

func TestLogComponents(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	EnableDebug = "true"
	MCPMode = false
	SetDebugOutput(&buf)

	LogParse("parsed %d bytes\n", 42)
	LogAnalysis("unit %s changed\n", "a.go")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG:PARSE] parsed 42 bytes")
	assert.Contains(t, out, "[DEBUG:ANALYSIS] unit a.go changed")
}

func TestNoOutputWhenDisabled(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	EnableDebug = "false"
	MCPMode = false
	SetDebugOutput(&buf)

	Printf("should not appear")
	assert.Empty(t, buf.String())
}
