// Package spatial provides a uniform grid index over polyline segments.
package spatial

import (
	"math"
	"sort"

	"github.com/Benny93/roadnet-go/internal/geom"
)

// maxCells bounds the number of cells of a Grid; the cell size grows to stay
// under it for very large worlds.
const maxCells = 1 << 20

// Ref identifies one segment of an indexed polyline.
type Ref struct {
	Line    int
	Segment int
}

// Less orders refs by line, then segment.
func (r Ref) Less(o Ref) bool {
	if r.Line != o.Line {
		return r.Line < o.Line
	}
	return r.Segment < o.Segment
}

// Grid is a uniform spatial index over the segments of polylines.
//
// Cells are stored densely in a flat slice indexed y*cols+x. A segment is
// referenced from every cell its bounding box overlaps. Points outside the
// world map to the nearest border cell, so queries near the border still see
// every segment.
type Grid struct {
	bounds geom.Rect
	cell   float64
	cols   int
	rows   int
	cells  [][]Ref
	lines  map[int][]geom.Vec2
}

// NewGrid returns an empty index over bounds with square cells of side cell.
func NewGrid(bounds geom.Rect, cell float64) *Grid {
	if !(cell > 0) {
		cell = math.Max(bounds.Width(), bounds.Height())
	}
	if !(cell > 0) {
		cell = 1
	}

	cols := int(math.Ceil(bounds.Width() / cell))
	rows := int(math.Ceil(bounds.Height() / cell))
	for cols*rows > maxCells {
		cell *= 2
		cols = int(math.Ceil(bounds.Width() / cell))
		rows = int(math.Ceil(bounds.Height() / cell))
	}
	cols = max(cols, 1)
	rows = max(rows, 1)

	return &Grid{
		bounds: bounds,
		cell:   cell,
		cols:   cols,
		rows:   rows,
		cells:  make([][]Ref, cols*rows),
		lines:  make(map[int][]geom.Vec2),
	}
}

// Len returns the number of polylines in the index.
func (g *Grid) Len() int {
	return len(g.lines)
}

// Line returns the points of polyline id as inserted.
func (g *Grid) Line(id int) []geom.Vec2 {
	return g.lines[id]
}

// Segment returns the endpoints of the referenced segment.
func (g *Grid) Segment(r Ref) (geom.Vec2, geom.Vec2) {
	pts := g.lines[r.Line]
	return pts[r.Segment], pts[r.Segment+1]
}

// Insert adds the segments of a polyline under id. A single point is stored
// as a zero-length segment so that it still blocks its neighbourhood.
func (g *Grid) Insert(id int, points []geom.Vec2) {
	if len(points) == 0 {
		return
	}
	if len(points) == 1 {
		points = []geom.Vec2{points[0], points[0]}
	}
	g.lines[id] = points

	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		x0, y0 := g.cellOf(geom.V(math.Min(a.X, b.X), math.Min(a.Y, b.Y)))
		x1, y1 := g.cellOf(geom.V(math.Max(a.X, b.X), math.Max(a.Y, b.Y)))
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				idx := y*g.cols + x
				g.cells[idx] = append(g.cells[idx], Ref{Line: id, Segment: i})
			}
		}
	}
}

// Query returns every segment referenced by the cells overlapping the square
// of half-width radius around p, sorted by (line, segment) without
// duplicates. It is a candidate set; callers filter by exact distance.
func (g *Grid) Query(p geom.Vec2, radius float64) []Ref {
	x0, y0 := g.cellOf(geom.V(p.X-radius, p.Y-radius))
	x1, y1 := g.cellOf(geom.V(p.X+radius, p.Y+radius))

	var refs []Ref
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			refs = append(refs, g.cells[y*g.cols+x]...)
		}
	}
	if len(refs) < 2 {
		return refs
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	out := refs[:1]
	for _, r := range refs[1:] {
		if r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	return out
}

// IsFree reports whether no segment lies strictly closer than radius to p.
func (g *Grid) IsFree(p geom.Vec2, radius float64) bool {
	limit := radius * radius
	for _, r := range g.Query(p, radius) {
		a, b := g.Segment(r)
		if geom.PointSegmentDistSq(p, a, b) < limit {
			return false
		}
	}
	return true
}

func (g *Grid) cellOf(p geom.Vec2) (int, int) {
	x := int(math.Floor((p.X - g.bounds.Min.X) / g.cell))
	y := int(math.Floor((p.Y - g.bounds.Min.Y) / g.cell))
	return clampInt(x, 0, g.cols-1), clampInt(y, 0, g.rows-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
