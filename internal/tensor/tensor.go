// Package tensor provides the 2D tensor field that drives streamline tracing.
//
// A tensor here is a symmetric, traceless 2x2 matrix
//
//	| A   B |
//	| B  -A |
//
// which is fully described by (A, B) = R * (cos 2θ, sin 2θ). Its major
// eigenvector points along θ and its minor eigenvector along θ + π/2. Both are
// undirected: the field only defines them modulo π, and callers that trace
// through the field must keep the sign continuous themselves.
package tensor

import (
	"math"

	"github.com/Benny93/roadnet-go/internal/geom"
)

// Tensor is a symmetric traceless 2x2 matrix stored as its two free components.
type Tensor struct {
	A float64
	B float64
}

// Zero is the tensor with no preferred direction.
var Zero = Tensor{}

// FromAngle returns the unit tensor whose major direction is theta.
func FromAngle(theta float64) Tensor {
	return Tensor{A: math.Cos(2 * theta), B: math.Sin(2 * theta)}
}

// FromVector returns the unit tensor whose major direction is parallel to v.
// The zero vector yields Zero.
func FromVector(v geom.Vec2) Tensor {
	a := v.X*v.X - v.Y*v.Y
	b := 2 * v.X * v.Y
	r := math.Hypot(a, b)
	if r == 0 {
		return Zero
	}
	return Tensor{A: a / r, B: b / r}
}

// Add returns t + o.
func (t Tensor) Add(o Tensor) Tensor {
	return Tensor{A: t.A + o.A, B: t.B + o.B}
}

// Scale returns t scaled by s.
func (t Tensor) Scale(s float64) Tensor {
	return Tensor{A: t.A * s, B: t.B * s}
}

// Magnitude returns R, the absolute value of both eigenvalues.
func (t Tensor) Magnitude() float64 {
	return math.Hypot(t.A, t.B)
}

// IsZero reports whether t has no defined eigen-directions.
func (t Tensor) IsZero() bool {
	return t.Magnitude() == 0
}

// Theta returns the angle of the major eigenvector in (-π/2, π/2].
// It returns 0 for the zero tensor.
func (t Tensor) Theta() float64 {
	if t.IsZero() {
		return 0
	}
	return math.Atan2(t.B, t.A) / 2
}

// Major returns the unit major eigenvector. ok is false for the zero tensor.
func (t Tensor) Major() (geom.Vec2, bool) {
	if t.IsZero() {
		return geom.Vec2{}, false
	}
	theta := t.Theta()
	return geom.V(math.Cos(theta), math.Sin(theta)), true
}

// Minor returns the unit minor eigenvector, perpendicular to Major.
func (t Tensor) Minor() (geom.Vec2, bool) {
	major, ok := t.Major()
	if !ok {
		return geom.Vec2{}, false
	}
	return major.Perp(), true
}

// Eigenvalues returns the major and minor eigenvalues (R, -R).
func (t Tensor) Eigenvalues() (float64, float64) {
	r := t.Magnitude()
	return r, -r
}
