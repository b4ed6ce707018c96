package analysis

import (
	"sort"
	"sync"
)

// DependencyGraph tracks which analysis units each unit depends on.
// Forward edges are stored; reverse edges (dependents) are derived on
// demand, so registration stays a single map write.
type DependencyGraph struct {
	mu   sync.RWMutex
	deps map[string]map[string]bool // unit -> units it depends on
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{deps: make(map[string]map[string]bool)}
}

// SetDependencies replaces the outgoing edges of unitID.
func (g *DependencyGraph) SetDependencies(unitID string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	edges := make(map[string]bool, len(dependencies))
	for _, dep := range dependencies {
		if dep != unitID {
			edges[dep] = true
		}
	}
	g.deps[unitID] = edges
}

// Remove drops unitID and all edges pointing at it.
func (g *DependencyGraph) Remove(unitID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.deps, unitID)
	for _, edges := range g.deps {
		delete(edges, unitID)
	}
}

// Dependencies returns the sorted units unitID depends on.
func (g *DependencyGraph) Dependencies(unitID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.deps[unitID])
}

// Dependents returns the sorted units that directly depend on unitID.
func (g *DependencyGraph) Dependents(unitID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(unitID)
}

func (g *DependencyGraph) dependentsLocked(unitID string) []string {
	var out []string
	for unit, edges := range g.deps {
		if edges[unitID] {
			out = append(out, unit)
		}
	}
	sort.Strings(out)
	return out
}

// ImpactSet returns the units that must be re-analyzed after unitID
// changes, always including unitID itself. A transitive impact walks
// dependents to a fixed point; a direct impact stops one hop out.
func (g *DependencyGraph) ImpactSet(unitID string, transitive bool) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	impacted := map[string]bool{unitID: true}

	if !transitive {
		for _, dep := range g.dependentsLocked(unitID) {
			impacted[dep] = true
		}
		return sortedKeys(impacted)
	}

	queue := []string{unitID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range g.dependentsLocked(current) {
			if !impacted[dep] {
				impacted[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return sortedKeys(impacted)
}

// Len returns the number of registered units.
func (g *DependencyGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.deps)
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
