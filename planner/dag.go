// Package planner implements the Subtask Planner (C9) and Task Planner
// (C10): LLM-driven decomposition with a shared JSON-extraction helper,
// dependency-graph validation, and prompt construction.
package planner

import "fmt"

type dagNode struct {
	id           string
	dependencies []string
	dependents   []string
}

// DependencyGraph validates and orders a planner's dependency edges.
// Adapted from the teacher's orchestration.WorkflowDAG: node map plus a
// rebuilt dependents index, Kahn's-algorithm topological sort, and DFS
// cycle detection — narrowed to the planner's one-shot use (no per-node
// execution status, no mutex: a DependencyGraph is built and discarded
// within a single Plan call, never shared across goroutines).
type DependencyGraph struct {
	nodes map[string]*dagNode
}

// NewDependencyGraph builds an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[string]*dagNode)}
}

// AddNode registers id with its dependency ids, then rebuilds every
// node's dependents list.
func (g *DependencyGraph) AddNode(id string, dependencies []string) {
	if n, exists := g.nodes[id]; exists {
		n.dependencies = dependencies
	} else {
		g.nodes[id] = &dagNode{id: id, dependencies: dependencies}
	}
	g.rebuildDependents()
}

func (g *DependencyGraph) rebuildDependents() {
	for _, n := range g.nodes {
		n.dependents = nil
	}
	for id, n := range g.nodes {
		for _, dep := range n.dependencies {
			if depNode, ok := g.nodes[dep]; ok {
				depNode.dependents = append(depNode.dependents, id)
			}
		}
	}
}

// Validate reports a cycle or a dangling dependency reference, if any
// (§4.8/§4.9: "dependency graph acyclic and all referenced ids exist").
func (g *DependencyGraph) Validate() error {
	for id, n := range g.nodes {
		for _, dep := range n.dependencies {
			if _, ok := g.nodes[dep]; !ok {
				return fmt.Errorf("node %s depends on unknown id %s", id, dep)
			}
		}
	}

	visited := make(map[string]bool)
	inStack := make(map[string]bool)
	for id := range g.nodes {
		if !visited[id] {
			if g.hasCycle(id, visited, inStack) {
				return fmt.Errorf("dependency graph contains a cycle")
			}
		}
	}
	return nil
}

func (g *DependencyGraph) hasCycle(id string, visited, inStack map[string]bool) bool {
	visited[id] = true
	inStack[id] = true

	for _, dep := range g.nodes[id].dependencies {
		if !visited[dep] {
			if g.hasCycle(dep, visited, inStack) {
				return true
			}
		} else if inStack[dep] {
			return true
		}
	}

	inStack[id] = false
	return false
}

// TopologicalOrder returns node ids via Kahn's algorithm: dependencies
// before dependents. The result is undefined if Validate would report a
// cycle.
func (g *DependencyGraph) TopologicalOrder() []string {
	inDegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		inDegree[id] = len(n.dependencies)
	}

	var queue []string
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	var order []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, dependent := range g.nodes[current].dependents {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	return order
}
