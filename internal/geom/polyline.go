package geom

import "math"

// PolylineLength returns the summed length of all segments.
func PolylineLength(points []Vec2) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i].Dist(points[i-1])
	}
	return total
}

// Closed reports whether the polyline starts and ends on the same point.
func Closed(points []Vec2) bool {
	return len(points) > 2 && points[0] == points[len(points)-1]
}

// Simplify reduces a polyline with the Douglas-Peucker algorithm.
//
// An interior point is kept when its distance to the chord of the current
// range is strictly greater than tolerance; the first and last points are
// always kept. For a fixed tolerance the result is a fixed point: simplifying
// it again returns the same sequence. The input is never modified.
func Simplify(points []Vec2, tolerance float64) []Vec2 {
	if len(points) <= 2 || tolerance < 0 || math.IsNaN(tolerance) {
		return append([]Vec2(nil), points...)
	}

	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true

	tolSq := tolerance * tolerance

	// explicit stack of index ranges instead of recursion
	type span struct{ first, last int }
	stack := []span{{0, len(points) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.last-s.first < 2 {
			continue
		}

		maxDist := -1.0
		index := -1
		for i := s.first + 1; i < s.last; i++ {
			d := PointSegmentDistSq(points[i], points[s.first], points[s.last])
			if d > maxDist {
				maxDist = d
				index = i
			}
		}

		if maxDist > tolSq {
			keep[index] = true
			stack = append(stack, span{s.first, index}, span{index, s.last})
		}
	}

	out := make([]Vec2, 0, len(points))
	for i, p := range points {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// PointAlong returns the point at arc length s from the start of the polyline
// and the tangent of the segment it falls on. s is clamped to the polyline.
func PointAlong(points []Vec2, s float64) (Vec2, Vec2) {
	if len(points) == 0 {
		return Vec2{}, Vec2{}
	}
	if len(points) == 1 {
		return points[0], Vec2{}
	}
	if s < 0 {
		s = 0
	}
	for i := 1; i < len(points); i++ {
		seg := points[i].Sub(points[i-1])
		l := seg.Len()
		if s <= l || i == len(points)-1 {
			if l == 0 {
				return points[i], seg
			}
			t := math.Min(s/l, 1)
			return points[i-1].Add(seg.Scale(t)), seg.Scale(1 / l)
		}
		s -= l
	}
	return points[len(points)-1], Vec2{}
}
