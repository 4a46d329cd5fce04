package workflowdag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geneflow-org/geneflow/internal/model"
)

func TestNewGraphTopologicalOrder(t *testing.T) {
	inputs := map[string]model.IOParam{
		"reads": {Type: "File"},
	}
	steps := map[string]model.Step{
		"align": {
			Name:     "align",
			Template: map[string]string{"reads": "${workflow.inputs.reads}"},
		},
		"sort": {
			Name:   "sort",
			Depend: []string{"align"},
		},
		"index": {
			Name:   "index",
			Depend: []string{"sort"},
		},
	}

	g, err := NewGraph(inputs, steps)
	require.NoError(t, err)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"align", "sort", "index"}, order)
}

func TestNewGraphRejectsCycle(t *testing.T) {
	steps := map[string]model.Step{
		"a": {Name: "a", Depend: []string{"b"}},
		"b": {Name: "b", Depend: []string{"a"}},
	}
	_, err := NewGraph(nil, steps)
	assert.Error(t, err)
}

func TestNewGraphRejectsUnknownDependency(t *testing.T) {
	steps := map[string]model.Step{
		"a": {Name: "a", Depend: []string{"ghost"}},
	}
	_, err := NewGraph(nil, steps)
	assert.Error(t, err)
}

func TestNewGraphRejectsUnknownInputReference(t *testing.T) {
	steps := map[string]model.Step{
		"a": {Name: "a", Template: map[string]string{"x": "${workflow.inputs.ghost}"}},
	}
	_, err := NewGraph(map[string]model.IOParam{}, steps)
	assert.Error(t, err)
}

func TestTopologicalOrderIsDeterministicAmongReadyNodes(t *testing.T) {
	// b and c both have no dependencies; lexicographic tie-break must put
	// b before c regardless of map iteration order.
	steps := map[string]model.Step{
		"c": {Name: "c"},
		"b": {Name: "b"},
		"d": {Name: "d", Depend: []string{"b", "c"}},
	}
	g, err := NewGraph(nil, steps)
	require.NoError(t, err)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, order)
}

func TestDependencyOutputNames(t *testing.T) {
	steps := map[string]model.Step{
		"a": {Name: "a"},
		"b": {Name: "b", Depend: []string{"a"}},
	}
	g, err := NewGraph(nil, steps)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, g.DependencyOutputNames("b"))
	assert.Nil(t, g.DependencyOutputNames("a"))
	assert.Nil(t, g.DependencyOutputNames("missing"))
}
