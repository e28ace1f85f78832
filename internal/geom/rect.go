package geom

// Rect is an axis-aligned rectangle. Min is the lower-left corner.
type Rect struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// NewRect returns the rectangle spanning origin to origin+size.
func NewRect(origin, size Vec2) Rect {
	return Rect{Min: origin, Max: origin.Add(size)}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return !(r.Width() > 0 && r.Height() > 0)
}

// Contains reports whether p lies inside r, borders included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}
