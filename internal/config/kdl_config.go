package config

import (
	"fmt"
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads configuration from a .vigil.kdl file.
func LoadKDL(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parseKDL(string(content))
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children { // project { root "." name "api" }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "parse":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_structural_bytes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Parse.MaxStructuralBytes = v
					}
				case "max_chunk_bytes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Parse.MaxChunkBytes = v
					}
				case "boundary_window_bytes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Parse.BoundaryWindowBytes = v
					}
				case "chunking":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Parse.ChunkingEnabled = b
					}
				case "cache":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Parse.CacheEnabled = b
					}
				}
			}
		case "analysis":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "cache_capacity":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analysis.CacheCapacity = v
					}
				case "cache_ttl_minutes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analysis.CacheTTLMinutes = v
					}
				case "max_workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analysis.MaxWorkers = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		case "include":
			cfg.Include = collectStringArgs(n)
		case "exclude":
			cfg.Exclude = collectStringArgs(n)
		}
	}

	return cfg, nil
}

// Helper functions leveraging the kdl-go document model.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block format: exclude { "pattern" } puts strings in child node names
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
