// Package analysis implements incremental re-analysis: content-hash
// change detection, dependency-aware impact propagation, and cached
// per-unit inference.
package analysis

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vigilscan/vigil/internal/cache"
	"github.com/vigilscan/vigil/internal/config"
	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/errors"
	"github.com/vigilscan/vigil/internal/types"
)

var errUnknownUnit = stderrors.New("unit not registered")

func errInferenceFailed(msg string) error {
	return fmt.Errorf("inference failed: %s", msg)
}

// Unit is one analyzable item, typically a single method or function.
type Unit struct {
	ID           string
	Name         string
	FilePath     string
	Content      string
	Dependencies []string // IDs of units this unit depends on
}

// Report summarizes one analysis run.
type Report struct {
	Analyzed  int
	Skipped   int
	CacheHits int
	Changes   []types.ChangeInfo
	Failures  map[string]error
	Duration  time.Duration

	// PerformanceGain is the estimated cost of a full re-analysis
	// divided by the cost of this run, measured in unit counts. A run
	// that touched nothing reports the full registry size.
	PerformanceGain float64
}

// Engine coordinates incremental analysis over a registry of units.
// Failures are isolated per unit: one broken unit never aborts the
// run.
type Engine struct {
	mu     sync.RWMutex
	units  map[string]*Unit
	hashes map[string]uint64

	graph      *DependencyGraph
	cache      *cache.InferenceCache
	dispatcher Dispatcher
	workers    int
}

// NewEngine creates an engine with the configured cache bounds and
// worker count.
func NewEngine(cfg *config.Config, dispatcher Dispatcher) *Engine {
	return &Engine{
		units:      make(map[string]*Unit),
		hashes:     make(map[string]uint64),
		graph:      NewDependencyGraph(),
		cache:      cache.NewInferenceCache(cfg.Analysis.CacheCapacity, time.Duration(cfg.Analysis.CacheTTLMinutes)*time.Minute),
		dispatcher: dispatcher,
		workers:    cfg.Workers(),
	}
}

// Cache exposes the inference cache for stats reporting.
func (e *Engine) Cache() *cache.InferenceCache { return e.cache }

// Graph exposes the dependency graph.
func (e *Engine) Graph() *DependencyGraph { return e.graph }

// UnitCount returns the number of registered units.
func (e *Engine) UnitCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.units)
}

// Register adds or replaces units without analyzing them. Units with
// a nil dependency list have their edges derived by scanning their
// source for references to other registered units.
func (e *Engine) Register(units ...*Unit) {
	e.mu.Lock()
	for _, u := range units {
		e.units[u.ID] = u
		e.hashes[u.ID] = HashContent(u.Content)
	}
	byName := make(map[string]string, len(e.units))
	for id, u := range e.units {
		byName[u.Name] = id
	}
	e.mu.Unlock()

	for _, u := range units {
		deps := u.Dependencies
		if deps == nil {
			deps = resolveReferences(u, byName)
		}
		e.graph.SetDependencies(u.ID, deps)
	}
}

// resolveReferences maps scanned reference names onto registered unit
// IDs, dropping self references and unknown names.
func resolveReferences(u *Unit, byName map[string]string) []string {
	var deps []string
	for _, name := range ExtractReferences(u.Content) {
		if id, ok := byName[name]; ok && id != u.ID {
			deps = append(deps, id)
		}
	}
	return deps
}

// Forget removes a unit from the registry, graph, and cache.
func (e *Engine) Forget(unitID string) {
	e.mu.Lock()
	delete(e.units, unitID)
	delete(e.hashes, unitID)
	e.mu.Unlock()
	e.graph.Remove(unitID)
	e.cache.Invalidate(unitID)
}

// AnalyzeAll registers the given units and analyzes every one of them.
func (e *Engine) AnalyzeAll(ctx context.Context, units []*Unit) (*Report, error) {
	e.Register(units...)

	ids := make([]string, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	return e.run(ctx, ids, nil, 0)
}

// AnalyzeIncremental detects what changed in the updated units,
// propagates impact through the dependency graph, and re-analyzes only
// the affected set. Signature changes invalidate transitive
// dependents; body changes invalidate direct dependents; comment-only
// changes re-analyze nothing beyond the unit itself.
func (e *Engine) AnalyzeIncremental(ctx context.Context, updated []*Unit) (*Report, error) {
	impacted := make(map[string]bool)
	cacheHits := 0
	var changes []types.ChangeInfo

	for _, u := range updated {
		newHash := HashContent(u.Content)

		e.mu.RLock()
		prev, known := e.units[u.ID]
		e.mu.RUnlock()

		change := types.ChangeSignature // unknown units count as new declarations
		var lines []uint32
		if known {
			change = ClassifyChange(prev.Content, u.Content)
			if change != types.ChangeNone {
				lines = ChangedLines(prev.Content, u.Content)
			}
		}
		changes = append(changes, types.ChangeInfo{
			UnitID:        u.ID,
			NewHash:       newHash,
			Change:        change,
			AffectedLines: lines,
		})

		e.Register(u)
		if change == types.ChangeNone {
			// Unchanged content is only served when a valid entry
			// exists; an expired or evicted one needs a fresh result.
			if _, hit := e.cache.Get(u.ID, newHash); hit {
				cacheHits++
			} else {
				impacted[u.ID] = true
			}
			continue
		}

		switch change {
		case types.ChangeComment:
			impacted[u.ID] = true
		case types.ChangeBody:
			for _, id := range e.graph.ImpactSet(u.ID, false) {
				impacted[id] = true
			}
		default:
			for _, id := range e.graph.ImpactSet(u.ID, true) {
				impacted[id] = true
			}
		}
	}

	// Stale results must not be served to the impacted set
	ids := make([]string, 0, len(impacted))
	for id := range impacted {
		e.cache.Invalidate(id)
		ids = append(ids, id)
	}
	debug.LogAnalysis("incremental: %d updated, %d impacted, %d served from cache\n",
		len(updated), len(ids), cacheHits)
	return e.run(ctx, ids, changes, cacheHits)
}

// run analyzes the given unit IDs concurrently, seeding CacheHits with
// hits already resolved by the caller. Worker tasks never return
// errors; per-unit failures land in the report instead. Units served
// from the cache count as hits, never as analyzed.
func (e *Engine) run(ctx context.Context, ids []string, changes []types.ChangeInfo, cacheHits int) (*Report, error) {
	started := time.Now()
	report := &Report{
		Changes:   changes,
		CacheHits: cacheHits,
		Failures:  make(map[string]error),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			hit, err := e.analyzeUnit(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failures[id] = err
			case hit:
				report.CacheHits++
			default:
				report.Analyzed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := e.UnitCount()
	report.Skipped = total - len(ids)
	if report.Skipped < 0 {
		report.Skipped = 0
	}
	if total > 0 {
		cost := len(ids)
		if cost == 0 {
			cost = 1
		}
		report.PerformanceGain = float64(total) / float64(cost)
	}
	report.Duration = time.Since(started)
	return report, nil
}

// analyzeUnit resolves one unit through the cache or the dispatcher.
// The returned bool reports a cache hit.
func (e *Engine) analyzeUnit(ctx context.Context, id string) (bool, error) {
	e.mu.RLock()
	unit, ok := e.units[id]
	hash := e.hashes[id]
	e.mu.RUnlock()
	if !ok {
		return false, errors.NewAnalysisError(id, "lookup", errUnknownUnit)
	}

	if _, hit := e.cache.Get(id, hash); hit {
		return true, nil
	}

	req := &TypeCheckRequest{
		ID: id,
		Method: MethodInfo{
			Name:     unit.Name,
			Content:  unit.Content,
			FilePath: unit.FilePath,
		},
		Dependencies: e.resolveDependencies(unit),
	}

	resp, err := e.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return false, errors.NewAnalysisError(id, "dispatch", err)
	}
	if !resp.Success {
		return false, errors.NewAnalysisError(id, "typecheck", errInferenceFailed(resp.Error))
	}

	e.cache.Put(id, hash, resp)
	return false, nil
}

// resolveDependencies builds the dependency tuples for a request,
// preferring cached type info and falling back to signatures.
func (e *Engine) resolveDependencies(unit *Unit) []Dependency {
	var deps []Dependency
	for _, depID := range e.graph.Dependencies(unit.ID) {
		e.mu.RLock()
		dep, ok := e.units[depID]
		hash := e.hashes[depID]
		e.mu.RUnlock()
		if !ok {
			continue
		}

		typeInfo := ExtractSignature(dep.Content)
		if cached, hit := e.cache.Get(depID, hash); hit {
			if resp, isResp := cached.(*TypeCheckResponse); isResp && resp.TypeInfo != "" {
				typeInfo = resp.TypeInfo
			}
		}
		deps = append(deps, Dependency{dep.Name, typeInfo})
	}
	return deps
}
