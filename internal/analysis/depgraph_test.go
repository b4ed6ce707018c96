package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphDependenciesAndDependents(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("b", []string{"a"})
	g.SetDependencies("c", []string{"b"})

	assert.Equal(t, []string{"a"}, g.Dependencies("b"))
	assert.Equal(t, []string{"b"}, g.Dependents("a"))
	assert.Nil(t, g.Dependencies("a"))
}

func TestGraphSelfEdgeIgnored(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("a", []string{"a", "b"})

	assert.Equal(t, []string{"b"}, g.Dependencies("a"))
}

func TestGraphDirectImpact(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("b", []string{"a"})
	g.SetDependencies("c", []string{"b"})

	// One hop: a change to a's body reaches b but not c
	assert.Equal(t, []string{"a", "b"}, g.ImpactSet("a", false))
}

func TestGraphTransitiveImpact(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("b", []string{"a"})
	g.SetDependencies("c", []string{"b"})
	g.SetDependencies("d", []string{"c"})
	g.SetDependencies("e", []string{"x"})

	assert.Equal(t, []string{"a", "b", "c", "d"}, g.ImpactSet("a", true))
}

func TestGraphImpactAlwaysIncludesChangedUnit(t *testing.T) {
	g := NewDependencyGraph()

	assert.Equal(t, []string{"lonely"}, g.ImpactSet("lonely", true))
	assert.Equal(t, []string{"lonely"}, g.ImpactSet("lonely", false))
}

func TestGraphCycleTerminates(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("a", []string{"b"})
	g.SetDependencies("b", []string{"a"})

	assert.Equal(t, []string{"a", "b"}, g.ImpactSet("a", true))
}

func TestGraphRemove(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("b", []string{"a"})
	g.SetDependencies("c", []string{"a"})
	g.Remove("b")

	assert.Equal(t, []string{"c"}, g.Dependents("a"))
	assert.Nil(t, g.Dependencies("b"))
	assert.Equal(t, 1, g.Len())
}

func TestGraphSetDependenciesReplaces(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("c", []string{"a"})
	g.SetDependencies("c", []string{"b"})

	assert.Nil(t, g.Dependents("a"))
	assert.Equal(t, []string{"c"}, g.Dependents("b"))
}
