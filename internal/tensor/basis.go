package tensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/Benny93/roadnet-go/internal/geom"
)

// ErrInvalidBasis is returned when a basis field is constructed with a
// non-positive size, a negative decay or non-finite values.
var ErrInvalidBasis = errors.New("tensor: invalid basis field")

// BasisError reports which basis field property was rejected.
type BasisError struct {
	Kind   Kind
	Field  string
	Value  float64
	Reason string
}

func (e *BasisError) Error() string {
	return fmt.Sprintf("tensor: invalid %s basis field: %s=%v %s", e.Kind, e.Field, e.Value, e.Reason)
}

func (e *BasisError) Unwrap() error {
	return ErrInvalidBasis
}

// Kind identifies the variant of a basis field.
type Kind string

const (
	KindGrid   Kind = "grid"
	KindRadial Kind = "radial"
)

// BasisField is one contributor to a Field.
type BasisField interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Center returns the point the falloff is measured from.
	Center() geom.Vec2

	// Size returns the radius beyond which the field contributes nothing.
	Size() float64

	// Decay returns the falloff exponent.
	Decay() float64

	// Weight returns the falloff weight at p, in [0,1].
	Weight(p geom.Vec2) float64

	// Tensor returns the unweighted tensor at p (unit magnitude or Zero).
	Tensor(p geom.Vec2) Tensor
}

// Falloff returns max(0, 1 - d/size)^decay, and exactly 0 for d >= size.
//
// The weight is 1 at the centre and non-increasing with d. For decay > 0 it
// reaches 0 continuously at size. Decay 0 is the exception: the weight is 1
// everywhere inside size and drops to 0 at size, a step rather than a fade.
func Falloff(d, size, decay float64) float64 {
	if size <= 0 || d >= size {
		return 0
	}
	return math.Pow(1-d/size, decay)
}

type base struct {
	center geom.Vec2
	size   float64
	decay  float64
}

func newBase(kind Kind, center geom.Vec2, size, decay float64) (base, error) {
	if !center.IsFinite() {
		return base{}, &BasisError{Kind: kind, Field: "center", Value: math.NaN(), Reason: "must be finite"}
	}
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return base{}, &BasisError{Kind: kind, Field: "size", Value: size, Reason: "must be positive and finite"}
	}
	if math.IsNaN(decay) || math.IsInf(decay, 0) || decay < 0 {
		return base{}, &BasisError{Kind: kind, Field: "decay", Value: decay, Reason: "must be non-negative and finite"}
	}
	return base{center: center, size: size, decay: decay}, nil
}

func (b base) Center() geom.Vec2 { return b.center }
func (b base) Size() float64     { return b.size }
func (b base) Decay() float64    { return b.decay }

func (b base) Weight(p geom.Vec2) float64 {
	return Falloff(p.Dist(b.center), b.size, b.decay)
}

// Grid is a basis field with one constant direction.
type Grid struct {
	base
	angle  float64
	tensor Tensor
}

// NewGrid returns a grid basis field whose major direction is angle radians
// from +X.
func NewGrid(center geom.Vec2, size, decay, angle float64) (*Grid, error) {
	b, err := newBase(KindGrid, center, size, decay)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return nil, &BasisError{Kind: KindGrid, Field: "angle", Value: angle, Reason: "must be finite"}
	}
	return &Grid{base: b, angle: angle, tensor: FromAngle(angle)}, nil
}

// Kind implements BasisField.
func (g *Grid) Kind() Kind { return KindGrid }

// Angle returns the major direction in radians.
func (g *Grid) Angle() float64 { return g.angle }

// Tensor implements BasisField.
func (g *Grid) Tensor(geom.Vec2) Tensor { return g.tensor }

// Radial is a basis field whose major direction runs around its centre, so
// major streamlines form rings and minor streamlines form spokes.
type Radial struct {
	base
}

// NewRadial returns a radial basis field.
func NewRadial(center geom.Vec2, size, decay float64) (*Radial, error) {
	b, err := newBase(KindRadial, center, size, decay)
	if err != nil {
		return nil, err
	}
	return &Radial{base: b}, nil
}

// Kind implements BasisField.
func (r *Radial) Kind() Kind { return KindRadial }

// Tensor implements BasisField. It is Zero at the centre.
func (r *Radial) Tensor(p geom.Vec2) Tensor {
	return FromVector(p.Sub(r.center).Perp())
}
