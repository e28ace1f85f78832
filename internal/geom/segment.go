package geom

import "math"

const (
	// ParamEpsilon widens the [0,1] parameter range of SegmentIntersection so
	// that segments touching at an endpoint are reported.
	ParamEpsilon = 1e-9

	// ParallelEpsilon is the relative cross-product threshold under which two
	// segments are treated as parallel.
	ParallelEpsilon = 1e-10
)

// SegmentIntersection intersects the segments a0-a1 and b0-b1.
//
// It returns the intersection point and the parameters t (along a) and u
// (along b), both clamped to [0,1]. Near-parallel, overlapping and
// zero-length segments report ok == false.
func SegmentIntersection(a0, a1, b0, b1 Vec2) (p Vec2, t, u float64, ok bool) {
	da := a1.Sub(a0)
	db := b1.Sub(b0)

	denom := da.Cross(db)
	scale := da.Len() * db.Len()
	if scale == 0 || math.Abs(denom) <= ParallelEpsilon*scale {
		return Vec2{}, 0, 0, false
	}

	w := b0.Sub(a0)
	t = w.Cross(db) / denom
	u = w.Cross(da) / denom

	if t < -ParamEpsilon || t > 1+ParamEpsilon || u < -ParamEpsilon || u > 1+ParamEpsilon {
		return Vec2{}, 0, 0, false
	}

	t = clamp01(t)
	u = clamp01(u)
	return a0.Add(da.Scale(t)), t, u, true
}

// ClosestPointOnSegment returns the point of segment a-b closest to p and its
// parameter along the segment.
func ClosestPointOnSegment(p, a, b Vec2) (Vec2, float64) {
	ab := b.Sub(a)
	l := ab.LenSq()
	if l == 0 {
		return a, 0
	}
	t := clamp01(p.Sub(a).Dot(ab) / l)
	return a.Add(ab.Scale(t)), t
}

// PointSegmentDistSq returns the squared distance from p to the segment a-b.
func PointSegmentDistSq(p, a, b Vec2) float64 {
	q, _ := ClosestPointOnSegment(p, a, b)
	return p.DistSq(q)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
