package pipeline

import (
	"github.com/Benny93/roadnet-go/internal/geom"
	"github.com/Benny93/roadnet-go/internal/graph"
)

// minLotArea is the smallest enclosed area reported as a lot.
const minLotArea = 1e-9

// Lot is a bounded face of the planar road graph: a block of land enclosed
// by roads.
type Lot struct {
	ID int `json:"id"`

	// Boundary lists the half-edges around the lot, counterclockwise.
	Boundary []graph.HalfEdge `json:"boundary"`

	// Polygon is the boundary as an open ring; the first point is not
	// repeated at the end.
	Polygon []geom.Vec2 `json:"polygon"`

	Area float64 `json:"area"`
}

// FindLots returns the bounded faces of the graph.
//
// Every half-edge belongs to exactly one face. A face is walked by arriving
// at a node and leaving through the half-edge that follows the reverse of the
// arriving one in clockwise order. Bounded faces come out counterclockwise
// with positive area; the outer face of each district comes out clockwise
// and is discarded, as are faces with fewer than three distinct points.
func FindLots(g *graph.Graph) []Lot {
	visited := make(map[graph.HalfEdge]bool)
	lots := []Lot{}

	for _, n := range g.Nodes() {
		for _, h := range n.Incident {
			if visited[h] {
				continue
			}

			boundary, polygon := walkFace(g, h, visited)
			if distinctPoints(polygon) < 3 {
				continue
			}
			area := signedArea(polygon)
			if area <= minLotArea {
				continue
			}
			lots = append(lots, Lot{ID: len(lots), Boundary: boundary, Polygon: polygon, Area: area})
		}
	}
	return lots
}

// walkFace follows the face to the left of start until it returns to start.
func walkFace(g *graph.Graph, start graph.HalfEdge, visited map[graph.HalfEdge]bool) ([]graph.HalfEdge, []geom.Vec2) {
	var boundary []graph.HalfEdge
	var polygon []geom.Vec2

	limit := 2 * g.EdgeCount()
	h := start
	for range limit {
		if visited[h] {
			break
		}
		visited[h] = true
		boundary = append(boundary, h)

		e := g.Edge(h.Edge)
		walk := e.Walk(h.Reversed)
		polygon = append(polygon, walk[:len(walk)-1]...)

		arrival := e.To
		if h.Reversed {
			arrival = e.From
		}
		h = nextHalfEdge(g.Node(arrival), graph.HalfEdge{Edge: h.Edge, Reversed: !h.Reversed})
	}
	return boundary, polygon
}

// nextHalfEdge returns the half-edge after back in the clockwise order of n.
func nextHalfEdge(n *graph.Node, back graph.HalfEdge) graph.HalfEdge {
	for i, h := range n.Incident {
		if h == back {
			return n.Incident[(i+1)%len(n.Incident)]
		}
	}
	return back
}

// signedArea is the shoelace area, positive for counterclockwise rings.
func signedArea(ring []geom.Vec2) float64 {
	var sum float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		sum += p.Cross(q)
	}
	return sum / 2
}

func distinctPoints(ring []geom.Vec2) int {
	seen := make(map[geom.Vec2]bool, len(ring))
	for _, p := range ring {
		seen[p] = true
	}
	return len(seen)
}

// Perimeter returns the boundary length of the lot.
func (l *Lot) Perimeter() float64 {
	if len(l.Polygon) == 0 {
		return 0
	}
	return geom.PolylineLength(l.Polygon) + l.Polygon[len(l.Polygon)-1].Dist(l.Polygon[0])
}

// Centroid returns the area centroid of the lot.
func (l *Lot) Centroid() geom.Vec2 {
	if l.Area == 0 || len(l.Polygon) == 0 {
		return geom.Vec2{}
	}
	var cx, cy float64
	for i, p := range l.Polygon {
		q := l.Polygon[(i+1)%len(l.Polygon)]
		c := p.Cross(q)
		cx += (p.X + q.X) * c
		cy += (p.Y + q.Y) * c
	}
	k := 1 / (6 * l.Area)
	return geom.V(cx*k, cy*k)
}

