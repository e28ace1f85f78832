// Package graph provides the planar road graph built from streamlines.
//
// Nodes are streamline endpoints and crossings; edges are the pieces of
// streamline between consecutive nodes. Nodes and edges live in two arenas
// and refer to each other by integer handle: a node lists its incident
// half-edges, an edge names its two end nodes.
package graph

import "github.com/Benny93/roadnet-go/internal/geom"

// NodeID is the handle of a node. It is its index in the node arena.
type NodeID int

// EdgeID is the handle of an edge. It is its index in the edge arena.
type EdgeID int

// HalfEdge is an edge seen from one of its end nodes.
type HalfEdge struct {
	Edge EdgeID `json:"edge"`

	// Reversed is true when the node is the edge's To end, so walking away
	// from the node follows the points backwards.
	Reversed bool `json:"reversed,omitempty"`
}

// Node is a junction, a dead end or the meeting point of a closed loop.
type Node struct {
	ID       NodeID    `json:"id"`
	Position geom.Vec2 `json:"position"`

	// Incident lists the half-edges leaving the node in clockwise order,
	// starting from +Y. A self-loop appears twice, once per end.
	Incident []HalfEdge `json:"incident"`

	// HasNeighbor is false when no edge leads to a different node.
	HasNeighbor bool `json:"has_neighbor"`
}

// Degree returns the number of incident half-edges.
func (n *Node) Degree() int {
	return len(n.Incident)
}

// Edge is a piece of one streamline between two nodes.
type Edge struct {
	ID   EdgeID `json:"id"`
	From NodeID `json:"from"`
	To   NodeID `json:"to"`

	// Points runs from the From node to the To node. The first and last
	// points are the exact node positions.
	Points []geom.Vec2 `json:"points"`

	// Streamline is the index of the streamline the edge was cut from.
	Streamline int `json:"streamline"`

	// Major reports whether that streamline follows the major direction.
	Major bool `json:"major"`
}

// Length returns the polyline length of the edge.
func (e *Edge) Length() float64 {
	return geom.PolylineLength(e.Points)
}

// IsLoop reports whether both ends are the same node.
func (e *Edge) IsLoop() bool {
	return e.From == e.To
}

// Other returns the end of e that is not n. For a self-loop it returns n.
func (e *Edge) Other(n NodeID) NodeID {
	if e.From == n {
		return e.To
	}
	return e.From
}

// Walk returns a copy of the points of e, backwards when reversed is true.
func (e *Edge) Walk(reversed bool) []geom.Vec2 {
	if !reversed {
		return append([]geom.Vec2(nil), e.Points...)
	}
	out := make([]geom.Vec2, len(e.Points))
	for i, p := range e.Points {
		out[len(out)-1-i] = p
	}
	return out
}

// leaving returns the direction of the first segment leaving the node
// through the half-edge.
func (e *Edge) leaving(reversed bool) geom.Vec2 {
	n := len(e.Points)
	if n < 2 {
		return geom.Vec2{}
	}
	if reversed {
		return e.Points[n-2].Sub(e.Points[n-1])
	}
	return e.Points[1].Sub(e.Points[0])
}
