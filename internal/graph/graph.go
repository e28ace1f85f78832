package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt is returned when a decoded graph has dangling handles.
var ErrCorrupt = errors.New("graph: inconsistent node/edge handles")

// Graph is an immutable planar road graph.
//
// Lookups by handle are O(1). The graph is built once by Build (or decoded
// from JSON) and never changes afterwards, so it is safe for concurrent reads.
type Graph struct {
	nodes       []*Node
	edges       []*Edge
	ambiguities int
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the node with the given handle, or nil if it does not exist.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Edge returns the edge with the given handle, or nil if it does not exist.
func (g *Graph) Edge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(g.edges) {
		return nil
	}
	return g.edges[id]
}

// Nodes returns all nodes ordered by handle.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Edges returns all edges ordered by handle.
func (g *Graph) Edges() []*Edge {
	return append([]*Edge(nil), g.edges...)
}

// Degree returns the number of half-edges at the node, 0 if it does not exist.
func (g *Graph) Degree(id NodeID) int {
	n := g.Node(id)
	if n == nil {
		return 0
	}
	return n.Degree()
}

// Other returns the node across the edge from n.
func (g *Graph) Other(edge EdgeID, n NodeID) NodeID {
	return g.edges[edge].Other(n)
}

// Neighbors returns the distinct nodes adjacent to id in clockwise order of
// first appearance. Self-loops are not reported.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	n := g.Node(id)
	if n == nil {
		return nil
	}

	seen := make(map[NodeID]bool, len(n.Incident))
	var result []NodeID
	for _, h := range n.Incident {
		other := g.edges[h.Edge].Other(id)
		if other == id || seen[other] {
			continue
		}
		seen[other] = true
		result = append(result, other)
	}
	return result
}

// Ambiguities returns how many node candidates were merged into an existing
// node at a different position during construction.
func (g *Graph) Ambiguities() int {
	return g.ambiguities
}

// TotalLength returns the summed length of all edges.
func (g *Graph) TotalLength() float64 {
	var total float64
	for _, e := range g.edges {
		total += e.Length()
	}
	return total
}

// Stats returns a summary of graph size.
func (g *Graph) Stats() map[string]int {
	var junctions, deadEnds, isolated int
	for _, n := range g.nodes {
		switch {
		case !n.HasNeighbor:
			isolated++
		case n.Degree() == 1:
			deadEnds++
		case n.Degree() > 2:
			junctions++
		}
	}

	return map[string]int{
		"nodes":       len(g.nodes),
		"edges":       len(g.edges),
		"junctions":   junctions,
		"dead_ends":   deadEnds,
		"isolated":    isolated,
		"ambiguities": g.ambiguities,
	}
}

type graphJSON struct {
	Nodes       []*Node `json:"nodes"`
	Edges       []*Edge `json:"edges"`
	Ambiguities int     `json:"ambiguities"`
}

// MarshalJSON encodes the node and edge arenas.
func (g *Graph) MarshalJSON() ([]byte, error) {
	nodes := g.nodes
	if nodes == nil {
		nodes = []*Node{}
	}
	edges := g.edges
	if edges == nil {
		edges = []*Edge{}
	}
	return json.Marshal(graphJSON{Nodes: nodes, Edges: edges, Ambiguities: g.ambiguities})
}

// UnmarshalJSON decodes a graph and checks that every handle resolves.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw graphJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding graph: %w", err)
	}

	for i, n := range raw.Nodes {
		if n == nil || n.ID != NodeID(i) {
			return fmt.Errorf("%w: node %d out of place", ErrCorrupt, i)
		}
		for _, h := range n.Incident {
			if h.Edge < 0 || int(h.Edge) >= len(raw.Edges) {
				return fmt.Errorf("%w: node %d references edge %d", ErrCorrupt, i, h.Edge)
			}
		}
	}
	for i, e := range raw.Edges {
		if e == nil || e.ID != EdgeID(i) {
			return fmt.Errorf("%w: edge %d out of place", ErrCorrupt, i)
		}
		if e.From < 0 || int(e.From) >= len(raw.Nodes) || e.To < 0 || int(e.To) >= len(raw.Nodes) {
			return fmt.Errorf("%w: edge %d references missing node", ErrCorrupt, i)
		}
		if len(e.Points) < 2 {
			return fmt.Errorf("%w: edge %d has %d points", ErrCorrupt, i, len(e.Points))
		}
	}

	g.nodes = raw.Nodes
	g.edges = raw.Edges
	g.ambiguities = raw.Ambiguities
	return nil
}
