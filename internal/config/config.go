package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Parser limits matching the structural grammar engine's internal
// buffer. Inputs at or above MaxStructuralBytes take the chunking path.
const (
	DefaultMaxStructuralBytes  = 32767
	DefaultMaxChunkBytes       = 24576
	DefaultBoundaryWindowBytes = 4096
	DefaultCacheCapacity       = 100
	DefaultCacheTTLMinutes     = 60
	DefaultWatchDebounceMs     = 250
)

type Config struct {
	Version  int      `toml:"version"`
	Project  Project  `toml:"project"`
	Parse    Parse    `toml:"parse"`
	Analysis Analysis `toml:"analysis"`
	Watch    Watch    `toml:"watch"`
	Include  []string `toml:"include"`
	Exclude  []string `toml:"exclude"`
}

type Project struct {
	Root string `toml:"root"`
	Name string `toml:"name"`
}

type Parse struct {
	MaxStructuralBytes  int  `toml:"max_structural_bytes"`  // ceiling for the structural tier
	MaxChunkBytes       int  `toml:"max_chunk_bytes"`       // per-chunk size for oversized inputs
	BoundaryWindowBytes int  `toml:"boundary_window_bytes"` // backward search window for chunk cuts
	ChunkingEnabled     bool `toml:"chunking_enabled"`      // false = truncate instead of chunk
	CacheEnabled        bool `toml:"cache_enabled"`         // per-file parse result cache
}

type Analysis struct {
	CacheCapacity   int `toml:"cache_capacity"`    // LRU entries in the inference cache
	CacheTTLMinutes int `toml:"cache_ttl_minutes"` // entry lifetime independent of recency
	MaxWorkers      int `toml:"max_workers"`       // 0 = auto-detect (NumCPU)
}

type Watch struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounce_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	root, _ := os.Getwd()
	if root == "" {
		root = "."
	}
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Parse: Parse{
			MaxStructuralBytes:  DefaultMaxStructuralBytes,
			MaxChunkBytes:       DefaultMaxChunkBytes,
			BoundaryWindowBytes: DefaultBoundaryWindowBytes,
			ChunkingEnabled:     true,
			CacheEnabled:        true,
		},
		Analysis: Analysis{
			CacheCapacity:   DefaultCacheCapacity,
			CacheTTLMinutes: DefaultCacheTTLMinutes,
			MaxWorkers:      0,
		},
		Watch: Watch{
			Enabled:    false,
			DebounceMs: DefaultWatchDebounceMs,
		},
		Include: []string{},
		Exclude: []string{"**/node_modules/**", "**/.git/**", "**/vendor/**"},
	}
}

// Load reads configuration from the given path, falling back to
// defaults when the file does not exist. The format is chosen by
// extension: .kdl or .toml.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	var cfg *Config
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".kdl":
		cfg, err = LoadKDL(path)
	case ".toml":
		cfg, err = LoadTOML(path)
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .kdl or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration bounds and fills derived defaults.
func (c *Config) Validate() error {
	if c.Parse.MaxStructuralBytes <= 0 {
		return fmt.Errorf("parse.max_structural_bytes must be positive, got %d", c.Parse.MaxStructuralBytes)
	}
	if c.Parse.MaxChunkBytes <= 0 {
		return fmt.Errorf("parse.max_chunk_bytes must be positive, got %d", c.Parse.MaxChunkBytes)
	}
	if c.Parse.MaxChunkBytes >= c.Parse.MaxStructuralBytes {
		return fmt.Errorf("parse.max_chunk_bytes (%d) must be below parse.max_structural_bytes (%d)",
			c.Parse.MaxChunkBytes, c.Parse.MaxStructuralBytes)
	}
	if c.Parse.BoundaryWindowBytes <= 0 {
		c.Parse.BoundaryWindowBytes = DefaultBoundaryWindowBytes
	}
	if c.Analysis.CacheCapacity <= 0 {
		return fmt.Errorf("analysis.cache_capacity must be positive, got %d", c.Analysis.CacheCapacity)
	}
	if c.Analysis.CacheTTLMinutes <= 0 {
		return fmt.Errorf("analysis.cache_ttl_minutes must be positive, got %d", c.Analysis.CacheTTLMinutes)
	}
	if c.Analysis.MaxWorkers < 0 {
		return fmt.Errorf("analysis.max_workers must not be negative, got %d", c.Analysis.MaxWorkers)
	}
	if c.Watch.DebounceMs <= 0 {
		c.Watch.DebounceMs = DefaultWatchDebounceMs
	}
	return nil
}

// Workers resolves the effective worker count for concurrent
// re-analysis.
func (c *Config) Workers() int {
	if c.Analysis.MaxWorkers > 0 {
		return c.Analysis.MaxWorkers
	}
	return runtime.NumCPU()
}

// ShouldDescend reports whether a directory subtree can contain
// analyzable files. Only exclusion patterns apply here; include
// patterns match files, not directories.
func (c *Config) ShouldDescend(relDir string) bool {
	relDir = strings.TrimSuffix(filepath.ToSlash(relDir), "/")
	for _, pattern := range c.Exclude {
		if ok, _ := doublestar.Match(pattern, relDir); ok {
			return false
		}
		if ok, _ := doublestar.Match(pattern, relDir+"/x"); ok {
			return false
		}
	}
	return true
}

// ShouldAnalyze reports whether a path (relative to the project root)
// passes the include/exclude glob patterns.
func (c *Config) ShouldAnalyze(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range c.Exclude {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return false
		}
	}

	if len(c.Include) == 0 {
		return true
	}
	for _, pattern := range c.Include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}
