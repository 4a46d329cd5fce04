// Package workflowdag builds and topologically sorts a workflow's
// dependency graph: one input node per workflow input, one step node
// per workflow step, edges step→step from Step.Depend and input→step
// wherever a step's template references that input. Construction
// rejects cycles and validates that every dependency name exists.
// Ordering uses Kahn's algorithm with lexicographic tie-breaking for
// reproducible traversal order.
package workflowdag

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/geneflow-org/geneflow/internal/model"
)

// NodeKind distinguishes a workflow-input node from a step node.
type NodeKind string

const (
	NodeInput NodeKind = "input"
	NodeStep  NodeKind = "step"
)

// Node is one vertex of the workflow DAG.
type Node struct {
	Kind NodeKind
	Name string
	Step model.Step // populated only when Kind == NodeStep
}

// Graph is a built, cycle-checked workflow DAG.
type Graph struct {
	nodes map[string]*Node
	edges map[string][]string // name -> names it depends on
}

var inputRefPattern = regexp.MustCompile(`\$\{workflow\.inputs\.([A-Za-z0-9_]+)\}`)

// NewGraph builds the DAG for a workflow's inputs and steps. It fails
// if the graph contains a cycle or if a step names a depend that does
// not exist.
func NewGraph(inputs map[string]model.IOParam, steps map[string]model.Step) (*Graph, error) {
	g := &Graph{nodes: map[string]*Node{}, edges: map[string][]string{}}

	for name := range inputs {
		g.nodes[inputKey(name)] = &Node{Kind: NodeInput, Name: name}
	}
	for name, s := range steps {
		g.nodes[name] = &Node{Kind: NodeStep, Name: name, Step: s}
	}

	for name, s := range steps {
		for _, dep := range s.Depend {
			if _, ok := steps[dep]; !ok {
				return nil, fmt.Errorf("workflowdag: step %q depends on unknown step %q", name, dep)
			}
			g.edges[name] = append(g.edges[name], dep)
		}
		for _, ref := range referencedInputs(s) {
			if _, ok := inputs[ref]; !ok {
				return nil, fmt.Errorf("workflowdag: step %q references unknown input %q", name, ref)
			}
			g.edges[name] = append(g.edges[name], inputKey(ref))
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

func inputKey(name string) string { return "input:" + name }

// referencedInputs scans a step's template for ${workflow.inputs.X}
// references.
func referencedInputs(s model.Step) []string {
	seen := map[string]bool{}
	var out []string
	for _, expr := range s.Template {
		for _, m := range inputRefPattern.FindAllStringSubmatch(expr, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	if s.Map != nil {
		for _, m := range inputRefPattern.FindAllStringSubmatch(s.Map.URI, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}

func (g *Graph) checkAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("workflowdag: cycle detected: %v", append(path, name))
		}
		color[name] = gray
		for _, dep := range g.edges[name] {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	names := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := visit(n, nil); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns the step nodes (input nodes excluded, as they
// carry no executable behavior of their own) in a deterministic linear
// extension of the DAG's partial order: Kahn's algorithm with
// lexicographic tie-breaking among ready nodes.
func (g *Graph) TopologicalOrder() ([]string, error) {
	inDegree := map[string]int{}
	dependents := map[string][]string{}
	for n := range g.nodes {
		inDegree[n] = 0
	}
	for n, deps := range g.edges {
		inDegree[n] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], n)
		}
	}

	var ready []string
	for n, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, dep := range dependents[n] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("workflowdag: cycle detected during sort")
	}

	steps := make([]string, 0, len(order))
	for _, n := range order {
		if g.nodes[n].Kind == NodeStep {
			steps = append(steps, n)
		}
	}
	return steps, nil
}

// DependencyOutputNames returns the names of step the given step directly
// depends on, in the order declared, used by the runtime to skip a step
// whose dependency failed.
func (g *Graph) DependencyOutputNames(step string) []string {
	n, ok := g.nodes[step]
	if !ok || n.Kind != NodeStep {
		return nil
	}
	return n.Step.Depend
}
