package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/parser"
)

// MethodInfo carries the analyzed unit's source in a dispatch request.
type MethodInfo struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	FilePath string `json:"filePath"`
}

// Dependency pairs a dependency's name with its resolved type summary.
// The wire format is a two-element tuple.
type Dependency [2]string

// Name returns the dependency's unit name.
func (d Dependency) Name() string { return d[0] }

// TypeInfo returns the dependency's resolved type summary.
func (d Dependency) TypeInfo() string { return d[1] }

// TypeCheckRequest asks a dispatcher to infer types for one unit given
// its already-resolved dependencies.
type TypeCheckRequest struct {
	ID           string       `json:"id"`
	Method       MethodInfo   `json:"method"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// TypeCheckResponse is the dispatcher's verdict for one unit.
type TypeCheckResponse struct {
	ID            string        `json:"id"`
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	TypeInfo      string        `json:"typeInfo,omitempty"`
	NodeCount     int           `json:"nodeCount"`
	ExecutionTime time.Duration `json:"executionTime"`
}

// Dispatcher performs the per-unit inference work. Implementations
// must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *TypeCheckRequest) (*TypeCheckResponse, error)
}

// LocalDispatcher runs inference in-process by parsing the unit and
// deriving its type summary from the declaration header.
type LocalDispatcher struct {
	parser *parser.HybridParser
}

// NewLocalDispatcher creates a dispatcher backed by the given parser.
func NewLocalDispatcher(p *parser.HybridParser) *LocalDispatcher {
	return &LocalDispatcher{parser: p}
}

// Dispatch parses the unit's content and reports its structural
// health. A degraded parse still succeeds; only a total parse failure
// or context cancellation fails the request.
func (d *LocalDispatcher) Dispatch(ctx context.Context, req *TypeCheckRequest) (*TypeCheckResponse, error) {
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := d.parser.ParseContent([]byte(req.Method.Content), parser.LanguageFromPath(req.Method.FilePath))
	if err != nil {
		return &TypeCheckResponse{
			ID:            req.ID,
			Success:       false,
			Error:         err.Error(),
			ExecutionTime: time.Since(started),
		}, nil
	}

	signature := ExtractSignature(req.Method.Content)
	typeInfo := signature
	if typeInfo == "" {
		typeInfo = fmt.Sprintf("opaque(%s)", req.Method.Name)
	}

	debug.LogAnalysis("dispatched %s: %d nodes, %d deps\n",
		req.ID, result.Metadata.NodeCount, len(req.Dependencies))

	return &TypeCheckResponse{
		ID:            req.ID,
		Success:       true,
		TypeInfo:      typeInfo,
		NodeCount:     result.Metadata.NodeCount,
		ExecutionTime: time.Since(started),
	}, nil
}
