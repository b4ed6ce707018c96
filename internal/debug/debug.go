package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/vigilscan/vigil/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode tracks if we're running as an MCP stdio server (set by main).
// All debug output is suppressed in this mode to keep the protocol
// stream clean.
var MCPMode = false

// debugOutput is the writer for debug output (defaults to nil, meaning no output)
var debugOutput io.Writer

// debugFile holds the open file handle if debug output goes to a file
var debugFile *os.File

// debugMutex protects access to debug output
var debugMutex sync.Mutex

// SetMCPMode enables MCP mode which suppresses all debug output to stdio
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile initializes debug logging to a file.
// Returns the path to the log file, or an error if initialization fails.
// Call CloseDebugLog when done to ensure the file is properly closed.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "vigil-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled returns true if debug mode is enabled and we're not in MCP mode
func IsDebugEnabled() bool {
	if MCPMode {
		return false
	}

	if EnableDebug == "true" {
		return true
	}

	// Allow runtime override via environment variable
	if os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true" {
		return true
	}

	return false
}

// getDebugWriter returns the writer for debug output, or nil if none is configured
func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf prints debug information only when debug mode is enabled and output is configured
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG] "+format, args...)
}

// Log provides structured debug logging with component names
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogParse provides debug logging specifically for parser operations
func LogParse(format string, args ...interface{}) {
	Log("PARSE", format, args...)
}

// LogAnalysis provides debug logging specifically for incremental analysis
func LogAnalysis(format string, args ...interface{}) {
	Log("ANALYSIS", format, args...)
}

// LogWatch provides debug logging specifically for the file watcher
func LogWatch(format string, args ...interface{}) {
	Log("WATCH", format, args...)
}
