// SPDX-License-Identifier: MPL-2.0

// Package dag orders a dependency closure so that every artifact appears
// after the artifacts it depends on. Nodes are artifact identities; an edge
// from A to B means A must precede B on the class path.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError lists the nodes left unordered because they sit on or
	// behind a cycle.
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph keyed by string node names. Output order is
	// deterministic: among nodes whose predecessors are all placed, the one
	// added first comes first.
	Graph struct {
		adjacency map[string][]string
		edges     map[[2]string]bool
		nodes     []string
		nodeSet   map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		edges:     make(map[[2]string]bool),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds name if it is not present yet.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from must precede to, adding both nodes as needed.
// Repeated edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]string{from, to}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort orders the nodes with Kahn's algorithm. It returns a
// *CycleError when no complete order exists.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, targets := range g.adjacency {
		for _, to := range targets {
			inDegree[to]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, to := range g.adjacency[node] {
			inDegree[to]--
			if inDegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var stuck []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				stuck = append(stuck, node)
			}
		}
		return nil, &CycleError{Cycle: stuck}
	}
	return result, nil
}
