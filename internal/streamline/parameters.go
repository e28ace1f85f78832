package streamline

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameters is returned when a Parameters value cannot be used for
// tracing. Values are never clamped.
var ErrInvalidParameters = errors.New("streamline: invalid parameters")

// ParameterError names the rejected parameter.
type ParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("streamline: invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameters
}

// Parameters controls separation, termination, joining and simplification.
type Parameters struct {
	// DSep is the target distance between neighbouring streamlines of one family.
	DSep float64 `json:"dsep"`

	// DTest is the distance at which a trace stops because it came too close to
	// a placed streamline. Must be smaller than DSep.
	DTest float64 `json:"dtest"`

	// DStep is the integration step length.
	DStep float64 `json:"dstep"`

	// DCircleJoin is the radius around the seed within which a trace closes
	// into a loop.
	DCircleJoin float64 `json:"dcirclejoin"`

	// DLookahead is how far a dangling end is extended looking for a road to
	// join.
	DLookahead float64 `json:"dlookahead"`

	// JoinAngle is the maximum angle in radians between the travel direction
	// and a join target.
	JoinAngle float64 `json:"joinangle"`

	// PathIterations caps the number of steps of each trace direction.
	PathIterations int `json:"path_iterations"`

	// SeedTries caps consecutive failed random seeds before a family gives up.
	SeedTries int `json:"seed_tries"`

	// SimplifyTolerance is the Douglas-Peucker tolerance.
	SimplifyTolerance float64 `json:"simplify_tolerance"`

	// CollideEarly is the probability in [0,1] that a trace also stops on
	// streamlines of the other family.
	CollideEarly float64 `json:"collide_early"`
}

// DefaultParameters returns the baseline city parameters.
func DefaultParameters() Parameters {
	return Parameters{
		DSep:              100,
		DTest:             30,
		DStep:             1,
		DCircleJoin:       5,
		DLookahead:        200,
		JoinAngle:         0.1,
		PathIterations:    1500,
		SeedTries:         500,
		SimplifyTolerance: 0.01,
		CollideEarly:      0,
	}
}

// Validate checks every parameter and returns the first violation.
func (p Parameters) Validate() error {
	distances := []struct {
		name  string
		value float64
	}{
		{"dsep", p.DSep},
		{"dtest", p.DTest},
		{"dstep", p.DStep},
		{"dcirclejoin", p.DCircleJoin},
		{"dlookahead", p.DLookahead},
		{"joinangle", p.JoinAngle},
		{"simplify_tolerance", p.SimplifyTolerance},
		{"collide_early", p.CollideEarly},
	}
	for _, d := range distances {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) {
			return &ParameterError{Field: d.name, Value: d.value, Reason: "must be finite"}
		}
		if d.value < 0 {
			return &ParameterError{Field: d.name, Value: d.value, Reason: "must not be negative"}
		}
	}

	if p.DSep <= 0 {
		return &ParameterError{Field: "dsep", Value: p.DSep, Reason: "must be positive"}
	}
	if p.DStep <= 0 {
		return &ParameterError{Field: "dstep", Value: p.DStep, Reason: "must be positive"}
	}
	if p.DTest >= p.DSep {
		return &ParameterError{Field: "dtest", Value: p.DTest, Reason: fmt.Sprintf("must be smaller than dsep (%v)", p.DSep)}
	}
	if p.JoinAngle > math.Pi {
		return &ParameterError{Field: "joinangle", Value: p.JoinAngle, Reason: "must be at most pi"}
	}
	if p.CollideEarly > 1 {
		return &ParameterError{Field: "collide_early", Value: p.CollideEarly, Reason: "must be in [0, 1]"}
	}
	if p.PathIterations <= 0 {
		return &ParameterError{Field: "path_iterations", Value: float64(p.PathIterations), Reason: "must be positive"}
	}
	if p.SeedTries < 0 {
		return &ParameterError{Field: "seed_tries", Value: float64(p.SeedTries), Reason: "must not be negative"}
	}
	return nil
}
