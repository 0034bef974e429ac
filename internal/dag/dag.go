// SPDX-License-Identifier: MPL-2.0

// Package dag orders the projects of a multi-project build. Projects are
// nodes; an edge from A to B means A must finish building before B starts.
package dag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gammazero/deque"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError indicates that the graph contains a cycle, preventing
	// topological ordering.
	CycleError struct {
		// Cycle lists the nodes left unordered, in insertion order. It
		// contains every node on a cycle and may contain nodes that only
		// depend on one.
		Cycle []string
	}

	// Graph is a directed graph. Orderings are deterministic for a given
	// sequence of AddNode and AddEdge calls.
	Graph struct {
		// adjacency maps each node to the nodes that depend on it.
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected among: %s", strings.Join(e.Cycle, ", "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must finish
// before "to" starts. Both nodes are added if missing. Duplicate edges are
// ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, existing := range g.adjacency[from] {
		if existing == to {
			return
		}
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a valid build order using Kahn's algorithm, or a
// CycleError.
func (g *Graph) TopologicalSort() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	var order []string
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// Levels groups nodes into waves: every node's dependencies are in earlier
// waves, so the nodes of one wave may build concurrently.
func (g *Graph) Levels() ([][]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	var current deque.Deque[string]
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			current.PushBack(node)
		}
	}

	var levels [][]string
	ordered := 0
	for current.Len() > 0 {
		level := make([]string, 0, current.Len())
		var next deque.Deque[string]
		for current.Len() > 0 {
			node := current.PopFront()
			level = append(level, node)
			for _, neighbor := range g.adjacency[node] {
				inDegree[neighbor]--
				if inDegree[neighbor] == 0 {
					next.PushBack(neighbor)
				}
			}
		}
		ordered += len(level)
		levels = append(levels, level)
		current = next
	}

	if ordered != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}
	return levels, nil
}
