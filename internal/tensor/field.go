package tensor

import "github.com/Benny93/roadnet-go/internal/geom"

// Field is the weighted sum of an ordered list of basis fields.
//
// Basis fields are appended before generation starts; after that the field is
// only read. Evaluation is a pure function of the point.
type Field struct {
	basis []BasisField
}

// NewField returns an empty field. It evaluates to Zero everywhere.
func NewField() *Field {
	return &Field{}
}

// Add appends a basis field.
func (f *Field) Add(b BasisField) {
	f.basis = append(f.basis, b)
}

// AddGrid validates and appends a grid basis field.
func (f *Field) AddGrid(center geom.Vec2, size, decay, angle float64) error {
	g, err := NewGrid(center, size, decay, angle)
	if err != nil {
		return err
	}
	f.Add(g)
	return nil
}

// AddRadial validates and appends a radial basis field.
func (f *Field) AddRadial(center geom.Vec2, size, decay float64) error {
	r, err := NewRadial(center, size, decay)
	if err != nil {
		return err
	}
	f.Add(r)
	return nil
}

// Len returns the number of basis fields.
func (f *Field) Len() int {
	return len(f.basis)
}

// Fields returns a copy of the basis field list.
func (f *Field) Fields() []BasisField {
	return append([]BasisField(nil), f.basis...)
}

// Evaluate returns the sum of every basis tensor at p weighted by its falloff.
func (f *Field) Evaluate(p geom.Vec2) Tensor {
	sum := Zero
	for _, b := range f.basis {
		w := b.Weight(p)
		if w == 0 {
			continue
		}
		sum = sum.Add(b.Tensor(p).Scale(w))
	}
	return sum
}

// Major returns the major direction at p; ok is false where the field is
// degenerate.
func (f *Field) Major(p geom.Vec2) (geom.Vec2, bool) {
	return f.Evaluate(p).Major()
}

// Minor returns the minor direction at p; ok is false where the field is
// degenerate.
func (f *Field) Minor(p geom.Vec2) (geom.Vec2, bool) {
	return f.Evaluate(p).Minor()
}

// Direction returns the major or minor direction at p.
func (f *Field) Direction(p geom.Vec2, major bool) (geom.Vec2, bool) {
	if major {
		return f.Major(p)
	}
	return f.Minor(p)
}
