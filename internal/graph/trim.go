package graph

import (
	"math"

	"github.com/Benny93/roadnet-go/internal/geom"
)

// TrimEdge returns the points of e with both ends pulled back by clearance
// where they meet a junction (a node with more than one incident half-edge),
// leaving room for the crossing itself. Ends at dead ends are kept.
//
// The cut lies where the polyline first leaves the clearance circle around
// the node. If the trimmed ends would overlap, nil is returned.
func TrimEdge(e *Edge, clearance float64, degreeFrom, degreeTo int) []geom.Vec2 {
	points := append([]geom.Vec2(nil), e.Points...)
	if clearance <= 0 || len(points) < 2 {
		return points
	}

	if degreeFrom > 1 {
		var ok bool
		points, ok = trimStart(points, clearance)
		if !ok {
			return nil
		}
	}
	if degreeTo > 1 {
		reversed := reverse(points)
		reversed, ok := trimStart(reversed, clearance)
		if !ok {
			return nil
		}
		points = reverse(reversed)
	}

	if degreeFrom > 1 && degreeTo > 1 && e.IsLoop() {
		// both ends share one circle; the remaining middle must stay outside it
		center := e.Points[0]
		for _, p := range points {
			if p.Dist(center) < clearance-1e-9 {
				return nil
			}
		}
	}
	return points
}

// trimStart removes the part of the polyline inside the circle of the given
// radius around its first point.
func trimStart(points []geom.Vec2, radius float64) ([]geom.Vec2, bool) {
	center := points[0]
	for i := 1; i < len(points); i++ {
		if points[i].Dist(center) < radius {
			continue
		}
		p, ok := exitCircle(points[i-1], points[i], center, radius)
		if !ok {
			p = points[i]
		}
		out := make([]geom.Vec2, 0, len(points)-i+1)
		out = append(out, p)
		if points[i] != p {
			out = append(out, points[i])
		}
		out = append(out, points[i+1:]...)
		if len(out) < 2 {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// exitCircle returns where the segment a-b, with a inside the circle, crosses
// the circle boundary.
func exitCircle(a, b, center geom.Vec2, radius float64) (geom.Vec2, bool) {
	d := b.Sub(a)
	f := a.Sub(center)

	qa := d.Dot(d)
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - radius*radius
	if qa == 0 {
		return geom.Vec2{}, false
	}

	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return geom.Vec2{}, false
	}
	t := (-qb + math.Sqrt(disc)) / (2 * qa)
	if t < 0 || t > 1 {
		return geom.Vec2{}, false
	}
	return a.Add(d.Scale(t)), true
}

func reverse(points []geom.Vec2) []geom.Vec2 {
	out := make([]geom.Vec2, len(points))
	for i, p := range points {
		out[len(out)-1-i] = p
	}
	return out
}
