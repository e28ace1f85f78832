// Package geom provides the 2D primitives shared by the road network generator.
//
// It defines a value-typed vector, an axis-aligned rectangle for world bounds,
// segment intersection helpers and polyline utilities (length, simplification).
package geom

import "math"

// Vec2 is a 2D point or displacement.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// V returns the vector (x, y).
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns v + w.
func (v Vec2) Add(w Vec2) Vec2 {
	return Vec2{X: v.X + w.X, Y: v.Y + w.Y}
}

// Sub returns v - w.
func (v Vec2) Sub(w Vec2) Vec2 {
	return Vec2{X: v.X - w.X, Y: v.Y - w.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Neg returns -v.
func (v Vec2) Neg() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

// Dot returns the dot product of v and w.
func (v Vec2) Dot(w Vec2) float64 {
	return v.X*w.X + v.Y*w.Y
}

// Cross returns the z component of the 3D cross product of v and w.
func (v Vec2) Cross(w Vec2) float64 {
	return v.X*w.Y - v.Y*w.X
}

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// LenSq returns the squared length of v.
func (v Vec2) LenSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Dist returns the distance between v and w.
func (v Vec2) Dist(w Vec2) float64 {
	return v.Sub(w).Len()
}

// DistSq returns the squared distance between v and w.
func (v Vec2) DistSq(w Vec2) float64 {
	return v.Sub(w).LenSq()
}

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Perp returns v rotated by +90 degrees.
func (v Vec2) Perp() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

// Angle returns the angle of v measured counter-clockwise from +X, in (-π, π].
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// IsFinite reports whether both components are finite numbers.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// AngleBetween returns the unsigned angle between v and w in [0, π].
// It returns 0 when either vector is zero.
func AngleBetween(v, w Vec2) float64 {
	if v.IsZero() || w.IsZero() {
		return 0
	}
	return math.Abs(math.Atan2(v.Cross(w), v.Dot(w)))
}

// ClockwiseFromUp returns the clockwise angle of v measured from +Y, in [0, 2π).
func ClockwiseFromUp(v Vec2) float64 {
	a := math.Atan2(v.X, v.Y)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
