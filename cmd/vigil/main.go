package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/vigilscan/vigil/internal/analysis"
	"github.com/vigilscan/vigil/internal/config"
	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/mcp"
	"github.com/vigilscan/vigil/internal/parser"
	"github.com/vigilscan/vigil/internal/types"
	"github.com/vigilscan/vigil/internal/version"
	"github.com/vigilscan/vigil/internal/watch"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")

	if rootFlag := c.String("root"); rootFlag != "" && configPath == ".vigil.kdl" {
		configPath = filepath.Join(rootFlag, ".vigil.kdl")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if rootFlag := c.String("root"); rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.Project.Root = absRoot
	}
	if workers := c.Int("workers"); workers > 0 {
		cfg.Analysis.MaxWorkers = workers
	}

	return cfg, nil
}

func main() {
	app := &cli.App{
		Name:                   "vigil",
		Usage:                  "Hybrid parsing and incremental source analysis",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".vigil.kdl",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g., --include '**/*.go')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/testdata/**')",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Max concurrent analysis workers (0 = number of CPUs)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Aliases:   []string{"p"},
				Usage:     "Parse a file and print how it was parsed",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "language",
						Aliases: []string{"l"},
						Usage:   "Language override (defaults to the file extension)",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: parseCommand,
			},
			{
				Name:      "analyze",
				Aliases:   []string{"a"},
				Usage:     "Analyze a directory tree",
				ArgsUsage: "[dir]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: analyzeCommand,
			},
			{
				Name:      "watch",
				Aliases:   []string{"w"},
				Usage:     "Watch a directory and re-analyze on change",
				ArgsUsage: "[dir]",
				Action:    watchCommand,
			},
			{
				Name:      "stats",
				Aliases:   []string{"st"},
				Usage:     "Parse a directory tree and report per-strategy statistics",
				ArgsUsage: "[dir]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: statsCommand,
			},
			{
				Name:    "mcp",
				Aliases: []string{"serve"},
				Usage:   "Start MCP (Model Context Protocol) server with stdio transport",
				Action:  mcpCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("usage: vigil parse <file>")
	}
	path := c.Args().First()

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	p := parser.NewHybridParser(cfg)

	var result *types.ParseResult
	if lang := c.String("language"); lang != "" {
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		result, err = p.ParseContent(content, lang)
	} else {
		result, err = p.ParseFile(path)
	}
	if err != nil {
		return err
	}

	meta := result.Metadata
	if c.Bool("json") {
		return printJSON(map[string]interface{}{
			"path":       path,
			"strategy":   meta.Strategy.String(),
			"node_count": meta.NodeCount,
			"chunked":    meta.Chunked,
			"truncated":  meta.Truncated,
			"has_errors": meta.HasErrors,
			"parse_time": meta.ParseTime.String(),
			"warnings":   meta.Warnings,
		})
	}

	fmt.Printf("%s: %s strategy, %d nodes, %v\n", path, meta.Strategy, meta.NodeCount, meta.ParseTime)
	if meta.Chunked {
		fmt.Printf("  chunked into %d pieces (%s merge)\n", meta.ChunkCount, meta.MergeStrategy)
	}
	if meta.Truncated {
		fmt.Printf("  truncated: parsed %d of %d bytes\n", meta.ParsedSize, meta.OriginalSize)
	}
	for _, w := range meta.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	for _, e := range meta.Errors {
		fmt.Printf("  %s: %s\n", e.Kind, e.Message)
	}
	return nil
}

func analyzeCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	root := cfg.Project.Root
	if c.NArg() > 0 {
		root, err = filepath.Abs(c.Args().First())
		if err != nil {
			return err
		}
	}

	engine := newEngine(cfg)
	report, err := runAnalysis(c.Context, engine, cfg, root)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(reportPayload(root, report))
	}

	fmt.Printf("analyzed %d units in %v (%d skipped, %d cache hits)\n",
		report.Analyzed, report.Duration, report.Skipped, report.CacheHits)
	for id, ferr := range report.Failures {
		fmt.Printf("  failed %s: %v\n", id, ferr)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	cfg.Watch.Enabled = true

	root := cfg.Project.Root
	if c.NArg() > 0 {
		root, err = filepath.Abs(c.Args().First())
		if err != nil {
			return err
		}
	}

	engine := newEngine(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prime the registry so the first change is incremental
	if _, err := runAnalysis(ctx, engine, cfg, root); err != nil {
		return err
	}

	watcher, err := watch.New(cfg, func(paths []string) {
		var units []*analysis.Unit
		for _, p := range paths {
			unit, uerr := analysis.UnitFromFile(root, p)
			if uerr != nil {
				// Deleted files drop out of the registry
				if rel, relErr := filepath.Rel(root, p); relErr == nil {
					engine.Forget(filepath.ToSlash(rel))
				}
				continue
			}
			units = append(units, unit)
		}
		if len(units) == 0 {
			return
		}
		report, aerr := engine.AnalyzeIncremental(ctx, units)
		if aerr != nil {
			fmt.Fprintf(os.Stderr, "analysis error: %v\n", aerr)
			return
		}
		fmt.Printf("re-analyzed %d units in %v (%.1fx vs full run)\n",
			report.Analyzed, report.Duration, report.PerformanceGain)
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(root); err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	fmt.Printf("watching %s, press Ctrl-C to stop\n", root)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	root := cfg.Project.Root
	if c.NArg() > 0 {
		root, err = filepath.Abs(c.Args().First())
		if err != nil {
			return err
		}
	}

	units, ingestErr := analysis.UnitsFromDir(cfg, root)
	if len(units) == 0 && ingestErr != nil {
		return ingestErr
	}

	p := parser.NewHybridParser(cfg)
	failed := 0
	for _, unit := range units {
		if _, perr := p.ParseFile(unit.FilePath); perr != nil {
			failed++
		}
	}

	summary := p.StatsSummary()
	if c.Bool("json") {
		return printJSON(map[string]interface{}{
			"root":               root,
			"total_files":        summary.TotalFiles,
			"structural":         summary.StructuralCount,
			"chunking":           summary.ChunkingCount,
			"fallback":           summary.FallbackCount,
			"failed":             failed,
			"average_parse_time": summary.AverageParseTime.String(),
		})
	}

	fmt.Printf("%d files parsed (avg %v)\n", summary.TotalFiles, summary.AverageParseTime)
	fmt.Printf("  structural: %d\n", summary.StructuralCount)
	fmt.Printf("  chunking:   %d\n", summary.ChunkingCount)
	fmt.Printf("  fallback:   %d\n", summary.FallbackCount)
	if failed > 0 {
		fmt.Printf("  failed:     %d\n", failed)
	}
	return nil
}

func mcpCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	if _, err := debug.InitDebugLogFile(); err != nil {
		debug.Printf("debug log unavailable: %v\n", err)
	}
	defer func() { _ = debug.CloseDebugLog() }()

	server := mcp.NewServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		cancel()
		return <-errChan
	}
}

func newEngine(cfg *config.Config) *analysis.Engine {
	return analysis.NewEngine(cfg, analysis.NewLocalDispatcher(parser.NewHybridParser(cfg)))
}

func runAnalysis(ctx context.Context, engine *analysis.Engine, cfg *config.Config, root string) (*analysis.Report, error) {
	units, ingestErr := analysis.UnitsFromDir(cfg, root)
	if len(units) == 0 && ingestErr != nil {
		return nil, ingestErr
	}
	if ingestErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", ingestErr)
	}

	if engine.UnitCount() == 0 {
		return engine.AnalyzeAll(ctx, units)
	}
	return engine.AnalyzeIncremental(ctx, units)
}

func reportPayload(root string, report *analysis.Report) map[string]interface{} {
	payload := map[string]interface{}{
		"root":             root,
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
		payload["failures"] = failures
	}
	return payload
}

func printJSON(data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
