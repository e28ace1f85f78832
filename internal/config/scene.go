// Package config loads and validates scene files.
//
// A scene describes one generation run: the world rectangle, the basis fields
// of the tensor field, the streamline parameters and the graph merge epsilon.
// Scenes are JSON documents; parameters that are left out take their default
// values.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/Benny93/roadnet-go/internal/geom"
	"github.com/Benny93/roadnet-go/internal/graph"
	"github.com/Benny93/roadnet-go/internal/streamline"
	"github.com/Benny93/roadnet-go/internal/tensor"
)

// ErrInvalidScene is returned when a scene fails validation.
var ErrInvalidScene = errors.New("config: invalid scene")

// ValidationError lists every problem found in a scene.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid scene: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidScene
}

// Point is an (x, y) pair encoded as a two element JSON array.
type Point [2]float64

// Vec returns the point as a vector.
func (p Point) Vec() geom.Vec2 {
	return geom.V(p[0], p[1])
}

// World is the rectangle all tracing happens in.
type World struct {
	Origin Point `json:"origin"`
	Size   Point `json:"size"`
}

// Rect returns the world as a rectangle.
func (w World) Rect() geom.Rect {
	return geom.NewRect(w.Origin.Vec(), w.Size.Vec())
}

// FieldConfig describes one basis field.
type FieldConfig struct {
	Kind   tensor.Kind `json:"kind"`
	Center Point       `json:"center"`
	Size   float64     `json:"size"`
	Decay  float64     `json:"decay"`
	// Angle is only used by grid fields, in radians.
	Angle float64 `json:"angle,omitempty"`
}

// Scene is a complete generation setup.
type Scene struct {
	World World `json:"world"`

	// Start is the first seed. Nil means the centre of the world.
	Start *Point `json:"start,omitempty"`

	// Seed drives random re-seeding. Zero selects the default seed.
	Seed int64 `json:"seed,omitempty"`

	Fields       []FieldConfig         `json:"fields"`
	Parameters   streamline.Parameters `json:"parameters"`
	MergeEpsilon float64               `json:"merge_epsilon,omitempty"`
}

// Default returns the baseline city: two rotated grids around a radial
// centre, 1452 x 1279 units.
func Default() *Scene {
	return &Scene{
		World: World{Origin: Point{519, 249}, Size: Point{1452, 1279}},
		Fields: []FieldConfig{
			{Kind: tensor.KindGrid, Center: Point{1381, 788}, Size: 1500, Decay: 35, Angle: 1.983775},
			{Kind: tensor.KindGrid, Center: Point{1181, 988}, Size: 1500, Decay: 35, Angle: -1.283775},
			{Kind: tensor.KindRadial, Center: Point{800, 888}, Size: 750, Decay: 55},
		},
		Parameters:   streamline.DefaultParameters(),
		MergeEpsilon: graph.DefaultMergeEpsilon,
	}
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	scene, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scene, nil
}

// Parse decodes and validates a scene. Unknown keys are rejected.
func Parse(data []byte) (*Scene, error) {
	scene := &Scene{
		Parameters:   streamline.DefaultParameters(),
		MergeEpsilon: graph.DefaultMergeEpsilon,
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(scene); err != nil {
		return nil, fmt.Errorf("decoding scene: %w", err)
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	return scene, nil
}

// Validate collects every problem of the scene into one ValidationError.
func (s *Scene) Validate() error {
	var problems []string

	for i, v := range []float64{s.World.Origin[0], s.World.Origin[1], s.World.Size[0], s.World.Size[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			problems = append(problems, fmt.Sprintf("world value %d is not finite", i))
		}
	}
	if !(s.World.Size[0] > 0 && s.World.Size[1] > 0) {
		problems = append(problems, fmt.Sprintf("world size %v must be positive", s.World.Size))
	}

	if s.Start != nil && !s.World.Rect().Contains(s.Start.Vec()) {
		problems = append(problems, fmt.Sprintf("start %v lies outside the world", *s.Start))
	}

	for i, f := range s.Fields {
		if _, err := f.Basis(); err != nil {
			problems = append(problems, fmt.Sprintf("fields[%d]: %v", i, err))
		}
	}

	if err := s.Parameters.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if math.IsNaN(s.MergeEpsilon) || math.IsInf(s.MergeEpsilon, 0) || s.MergeEpsilon < 0 {
		problems = append(problems, fmt.Sprintf("merge_epsilon %v must be non-negative and finite", s.MergeEpsilon))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Basis builds the basis field f describes.
func (f FieldConfig) Basis() (tensor.BasisField, error) {
	switch f.Kind {
	case tensor.KindGrid:
		return tensor.NewGrid(f.Center.Vec(), f.Size, f.Decay, f.Angle)
	case tensor.KindRadial:
		return tensor.NewRadial(f.Center.Vec(), f.Size, f.Decay)
	default:
		return nil, fmt.Errorf("unknown field kind %q", f.Kind)
	}
}

// BuildField assembles the tensor field in scene order.
func (s *Scene) BuildField() (*tensor.Field, error) {
	field := tensor.NewField()
	for i, f := range s.Fields {
		b, err := f.Basis()
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		field.Add(b)
	}
	return field, nil
}

// GeneratorOptions returns the generator options implied by the scene.
func (s *Scene) GeneratorOptions() []streamline.Option {
	opts := []streamline.Option{streamline.WithSeed(s.Seed)}
	if s.Start != nil {
		opts = append(opts, streamline.WithStart(s.Start.Vec()))
	}
	return opts
}

// GraphOptions returns the graph options implied by the scene.
func (s *Scene) GraphOptions() []graph.Option {
	if s.MergeEpsilon == 0 {
		return nil
	}
	return []graph.Option{graph.WithMergeEpsilon(s.MergeEpsilon)}
}

// Save writes the scene as indented JSON.
func (s *Scene) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing scene: %w", err)
	}
	return nil
}
