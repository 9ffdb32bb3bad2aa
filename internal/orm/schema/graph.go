package schema

import (
	"fmt"
	"strings"
)

// DependencyGraph orders model definitions so that every model comes after
// the models it names (its parent, embedded targets and model-typed keys).
// Nodes keep insertion order, which makes every result deterministic.
type DependencyGraph struct {
	order []string
	nodes map[string]bool
	edges map[string][]string // model -> dependencies
}

// NewDependencyGraph creates an empty graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]bool),
		edges: make(map[string][]string),
	}
}

// AddNode adds a model. Adding a node twice is a no-op.
func (g *DependencyGraph) AddNode(name string) {
	if g.nodes[name] {
		return
	}
	g.nodes[name] = true
	g.order = append(g.order, name)
}

// AddEdge records that from depends on to. Both ends are added as nodes.
func (g *DependencyGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Len returns the number of nodes
func (g *DependencyGraph) Len() int { return len(g.order) }

// DetectCycles returns the dependency cycles of the graph, each listed from
// the first node reached
func (g *DependencyGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				dfs(neighbor, path)
				continue
			}
			if !recursionStack[neighbor] {
				continue
			}
			for i, n := range path {
				if n == neighbor {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					cycles = append(cycles, cycle)
					break
				}
			}
		}

		recursionStack[node] = false
	}

	for _, node := range g.order {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

// TopologicalSort returns the nodes with dependencies first. Nodes that do
// not depend on each other keep their insertion order.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int, len(g.order))
	reverseEdges := make(map[string][]string)
	for _, node := range g.order {
		outDegree[node] = len(g.edges[node])
		for _, target := range g.edges[node] {
			reverseEdges[target] = append(reverseEdges[target], node)
		}
	}

	var queue []string
	for _, node := range g.order {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range reverseEdges[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.order) {
		return nil, fmt.Errorf("circular dependency: %s", formatCycles(g.DetectCycles()))
	}
	return result, nil
}

// Dependencies returns the direct dependencies of name
func (g *DependencyGraph) Dependencies(name string) []string {
	return append([]string(nil), g.edges[name]...)
}

// Dependents returns the nodes that depend directly on name
func (g *DependencyGraph) Dependents(name string) []string {
	var dependents []string
	for _, node := range g.order {
		for _, dep := range g.edges[node] {
			if dep == name {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

func formatCycles(cycles [][]string) string {
	parts := make([]string, 0, len(cycles))
	for _, cycle := range cycles {
		parts = append(parts, strings.Join(cycle, " -> ")+" -> "+cycle[0])
	}
	return strings.Join(parts, "; ")
}
