package pipeline

import "github.com/Benny93/roadnet-go/internal/graph"

// FindDeadEnds returns the nodes a driver can only leave the way they came:
// nodes with a single incident half-edge, and nodes whose edges all loop back
// to themselves. The result is ordered by handle.
func FindDeadEnds(g *graph.Graph) []graph.NodeID {
	deadEnds := []graph.NodeID{}
	for _, n := range g.Nodes() {
		if isDeadEnd(n) {
			deadEnds = append(deadEnds, n.ID)
		}
	}
	return deadEnds
}

func isDeadEnd(n *graph.Node) bool {
	// A node on a closed loop with no other road has two half-edges of the
	// same edge and no neighbour.
	return n.Degree() == 1 || !n.HasNeighbor
}
