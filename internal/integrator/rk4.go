// Package integrator advances a point through a direction field.
//
// The fields it integrates are undirected: a sample only defines a line, not
// an orientation. Every sample is therefore re-oriented against the running
// direction before it is used, so a trace never folds back on itself.
package integrator

import (
	"errors"

	"github.com/Benny93/roadnet-go/internal/geom"
)

// ErrDegenerate is returned when the field has no defined direction at one of
// the samples of a step. It is a terminal state for the trace, not a failure
// of the run.
var ErrDegenerate = errors.New("integrator: no defined direction")

// Sampler returns the unit direction of a field at a point.
// ok is false where the field is degenerate.
type Sampler interface {
	Direction(p geom.Vec2, major bool) (geom.Vec2, bool)
}

// Result is the outcome of one integration step.
type Result struct {
	// Point is the new position.
	Point geom.Vec2

	// Direction is the unit direction the step moved along. It seeds the sign
	// resolution of the following step.
	Direction geom.Vec2
}

// Resolve returns dir or -dir, whichever does not point against prev.
// A zero prev leaves dir unchanged.
func Resolve(dir, prev geom.Vec2) geom.Vec2 {
	if dir.Dot(prev) < 0 {
		return dir.Neg()
	}
	return dir
}

// RK4 is a classic fourth-order Runge-Kutta integrator over a Sampler.
type RK4 struct {
	Field Sampler
}

// NewRK4 returns an RK4 integrator over field.
func NewRK4(field Sampler) *RK4 {
	return &RK4{Field: field}
}

// Step advances p by h along the major (or minor) direction field.
//
// The four samples are taken at p, at the two midpoints and at the endpoint.
// k1 is aligned with prev, and each later sample with the one before it, so
// that the weighted average (k1 + 2k2 + 2k3 + k4)/6 never cancels itself out.
// A zero prev accepts the field's own orientation at p.
func (r *RK4) Step(p, prev geom.Vec2, h float64, major bool) (Result, error) {
	k1, err := r.sample(p, prev, major)
	if err != nil {
		return Result{}, err
	}
	k2, err := r.sample(p.Add(k1.Scale(h/2)), k1, major)
	if err != nil {
		return Result{}, err
	}
	k3, err := r.sample(p.Add(k2.Scale(h/2)), k2, major)
	if err != nil {
		return Result{}, err
	}
	k4, err := r.sample(p.Add(k3.Scale(h)), k3, major)
	if err != nil {
		return Result{}, err
	}

	dir := k1.Add(k2.Scale(2)).Add(k3.Scale(2)).Add(k4).Scale(1.0 / 6)
	if dir.LenSq() == 0 {
		return Result{}, ErrDegenerate
	}
	dir = dir.Normalize()

	return Result{Point: p.Add(dir.Scale(h)), Direction: dir}, nil
}

func (r *RK4) sample(p, against geom.Vec2, major bool) (geom.Vec2, error) {
	dir, ok := r.Field.Direction(p, major)
	if !ok || !dir.IsFinite() {
		return geom.Vec2{}, ErrDegenerate
	}
	return Resolve(dir, against), nil
}
