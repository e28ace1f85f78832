package graph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/Benny93/roadnet-go/internal/geom"
	"github.com/Benny93/roadnet-go/internal/spatial"
)

// DefaultMergeEpsilon is the distance under which node candidates are unified.
const DefaultMergeEpsilon = 1e-3

var (
	// ErrInvalidEpsilon is returned for a non-positive or non-finite merge epsilon.
	ErrInvalidEpsilon = errors.New("graph: merge epsilon must be positive and finite")

	// ErrInvalidStreamline is returned when a streamline has non-finite points.
	ErrInvalidStreamline = errors.New("graph: invalid streamline")

	// ErrMajorMismatch is returned when the family flags do not match the
	// streamlines one to one.
	ErrMajorMismatch = errors.New("graph: family flags do not match streamlines")
)

// Option configures Build.
type Option func(*builder)

// WithMergeEpsilon sets the distance under which node candidates merge.
func WithMergeEpsilon(eps float64) Option {
	return func(b *builder) { b.eps = eps }
}

// WithMajor attaches the family of each streamline to the edges cut from it.
func WithMajor(major []bool) Option {
	return func(b *builder) { b.major = major }
}

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

type builder struct {
	eps    float64
	major  []bool
	logger *slog.Logger

	lines  []line
	grid   *spatial.Grid
	nodes  []*Node
	hash   map[[2]int64][]NodeID
	merges int
}

// line is an input streamline kept for construction.
type line struct {
	index  int
	points []geom.Vec2
	closed bool
	// cuts collects the nodes lying on the line by position along it.
	cuts []cut
}

func (l *line) segments() int {
	return len(l.points) - 1
}

// cut is a node on a line. pos is segment index plus the parameter on it.
type cut struct {
	pos  float64
	node NodeID
}

// mark is one occurrence of a node candidate on a line.
type mark struct {
	line int
	seg  int
	t    float64
}

func (m mark) pos() float64 {
	return float64(m.seg) + m.t
}

func (m mark) less(o mark) bool {
	if m.line != o.line {
		return m.line < o.line
	}
	if m.seg != o.seg {
		return m.seg < o.seg
	}
	return m.t < o.t
}

// crossing is an intersection candidate between two lines.
type crossing struct {
	a, b  mark
	point geom.Vec2
}

// less orders by (line, segment) of a, then of b, then by the parameters.
func (c crossing) less(o crossing) bool {
	switch {
	case c.a.line != o.a.line:
		return c.a.line < o.a.line
	case c.a.seg != o.a.seg:
		return c.a.seg < o.a.seg
	case c.b.line != o.b.line:
		return c.b.line < o.b.line
	case c.b.seg != o.b.seg:
		return c.b.seg < o.b.seg
	case c.a.t != o.a.t:
		return c.a.t < o.a.t
	default:
		return c.b.t < o.b.t
	}
}

// Build turns streamlines into a planar graph.
//
// Every crossing of two segments (also of one streamline with itself) and
// every streamline endpoint is a node candidate. Endpoints that stop within
// the merge epsilon of another streamline count as crossings. Candidates are
// visited in a fixed order: endpoints by streamline, then crossings sorted by
// (streamline, segment, other streamline, other segment). A candidate within
// the merge epsilon of an existing node joins the node created first, and
// the node keeps its position. Each streamline is then cut at its nodes.
//
// Streamlines shorter than the merge epsilon are dropped. Parallel edges and
// self-loops are kept.
func Build(streamlines [][]geom.Vec2, opts ...Option) (*Graph, error) {
	b := &builder{
		eps:    DefaultMergeEpsilon,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	if math.IsNaN(b.eps) || math.IsInf(b.eps, 0) || b.eps <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEpsilon, b.eps)
	}
	if b.major != nil && len(b.major) != len(streamlines) {
		return nil, fmt.Errorf("%w: %d flags for %d streamlines", ErrMajorMismatch, len(b.major), len(streamlines))
	}

	dropped, err := b.prepare(streamlines)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		b.logger.Debug("dropped short streamlines", "count", dropped, "epsilon", b.eps)
	}

	b.index()
	b.addEndpoints()
	for _, c := range b.crossings() {
		node := b.place(c.point)
		b.lines[c.a.line].cuts = append(b.lines[c.a.line].cuts, cut{pos: c.a.pos(), node: node})
		b.lines[c.b.line].cuts = append(b.lines[c.b.line].cuts, cut{pos: c.b.pos(), node: node})
	}

	g := &Graph{nodes: b.nodes, ambiguities: b.merges}
	g.edges = b.cutEdges()
	link(g)

	b.logger.Debug("graph built",
		"streamlines", len(b.lines),
		"nodes", len(g.nodes),
		"edges", len(g.edges),
		"ambiguities", b.merges)

	return g, nil
}

// prepare copies the streamlines, removes repeated points and drops those
// shorter than the merge epsilon.
func (b *builder) prepare(streamlines [][]geom.Vec2) (int, error) {
	dropped := 0
	for i, pts := range streamlines {
		clean := make([]geom.Vec2, 0, len(pts))
		for _, p := range pts {
			if !p.IsFinite() {
				return 0, fmt.Errorf("%w: streamline %d has a non-finite point", ErrInvalidStreamline, i)
			}
			if len(clean) > 0 && clean[len(clean)-1] == p {
				continue
			}
			clean = append(clean, p)
		}

		if len(clean) < 2 || geom.PolylineLength(clean) < b.eps {
			dropped++
			continue
		}
		b.lines = append(b.lines, line{index: i, points: clean, closed: geom.Closed(clean)})
	}
	return dropped, nil
}

// index buckets every segment into a uniform grid sized to the input.
func (b *builder) index() {
	bounds, segments := b.bounds()

	side := math.Max(bounds.Width(), bounds.Height())
	cell := side / math.Max(1, math.Ceil(math.Sqrt(float64(segments))))
	cell = math.Max(cell, b.eps)

	b.grid = spatial.NewGrid(bounds, cell)
	for id := range b.lines {
		b.grid.Insert(id, b.lines[id].points)
	}
}

func (b *builder) bounds() (geom.Rect, int) {
	var r geom.Rect
	segments := 0
	first := true
	for _, l := range b.lines {
		segments += l.segments()
		for _, p := range l.points {
			if first {
				r = geom.Rect{Min: p, Max: p}
				first = false
				continue
			}
			r.Min = geom.V(math.Min(r.Min.X, p.X), math.Min(r.Min.Y, p.Y))
			r.Max = geom.V(math.Max(r.Max.X, p.X), math.Max(r.Max.Y, p.Y))
		}
	}
	return r, segments
}

func (b *builder) addEndpoints() {
	for id := range b.lines {
		l := &b.lines[id]
		start := b.place(l.points[0])
		end := b.place(l.points[len(l.points)-1])
		l.cuts = append(l.cuts,
			cut{pos: 0, node: start},
			cut{pos: float64(l.segments()), node: end})
	}
}

// adjacent reports whether two segments of one line share a vertex.
func (l *line) adjacent(s, u int) bool {
	if s > u {
		s, u = u, s
	}
	if u-s <= 1 {
		return true
	}
	return l.closed && s == 0 && u == l.segments()-1
}

// crossings returns every intersection candidate in canonical order.
func (b *builder) crossings() []crossing {
	var out []crossing

	for i := range b.lines {
		li := &b.lines[i]
		for s := 0; s < li.segments(); s++ {
			a0, a1 := li.points[s], li.points[s+1]
			mid := a0.Add(a1).Scale(0.5)
			radius := math.Max(math.Abs(a1.X-a0.X), math.Abs(a1.Y-a0.Y))/2 + b.eps

			for _, ref := range b.grid.Query(mid, radius) {
				// each unordered pair once
				if !(spatial.Ref{Line: i, Segment: s}).Less(ref) {
					continue
				}
				if ref.Line == i && li.adjacent(s, ref.Segment) {
					continue
				}
				b0, b1 := b.grid.Segment(ref)
				p, t, u, ok := geom.SegmentIntersection(a0, a1, b0, b1)
				if !ok {
					continue
				}
				out = append(out, crossing{
					a:     mark{line: i, seg: s, t: t},
					b:     mark{line: ref.Line, seg: ref.Segment, t: u},
					point: p,
				})
			}
		}
	}

	out = append(out, b.nearMisses()...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// nearMisses finds open ends that stop within the merge epsilon of another
// segment without crossing it.
func (b *builder) nearMisses() []crossing {
	var out []crossing
	epsSq := b.eps * b.eps

	for k := range b.lines {
		lk := &b.lines[k]
		if lk.closed {
			continue
		}
		last := lk.segments() - 1
		ends := []struct {
			p   geom.Vec2
			own mark
		}{
			{lk.points[0], mark{line: k, seg: 0, t: 0}},
			{lk.points[len(lk.points)-1], mark{line: k, seg: last, t: 1}},
		}

		for _, end := range ends {
			for _, ref := range b.grid.Query(end.p, b.eps) {
				if ref.Line == k && ref.Segment == end.own.seg {
					continue
				}
				s0, s1 := b.grid.Segment(ref)
				q, u := geom.ClosestPointOnSegment(end.p, s0, s1)
				if end.p.DistSq(q) > epsSq {
					continue
				}

				other := mark{line: ref.Line, seg: ref.Segment, t: u}
				c := crossing{a: other, b: end.own, point: q}
				if end.own.less(other) {
					c.a, c.b = end.own, other
				}
				out = append(out, c)
			}
		}
	}
	return out
}

// place returns the node within the merge epsilon of p that was created
// first, or a new node at p.
func (b *builder) place(p geom.Vec2) NodeID {
	if b.hash == nil {
		b.hash = make(map[[2]int64][]NodeID)
	}
	cx := int64(math.Floor(p.X / b.eps))
	cy := int64(math.Floor(p.Y / b.eps))
	epsSq := b.eps * b.eps

	best := NodeID(-1)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, id := range b.hash[[2]int64{cx + dx, cy + dy}] {
				if (best < 0 || id < best) && b.nodes[id].Position.DistSq(p) <= epsSq {
					best = id
				}
			}
		}
	}

	if best >= 0 {
		if pos := b.nodes[best].Position; pos != p {
			b.merges++
			b.logger.Debug("merged node candidate",
				"node", int(best),
				"position", pos,
				"candidate", p,
				"distance", pos.Dist(p))
		}
		return best
	}

	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, &Node{ID: id, Position: p})
	key := [2]int64{cx, cy}
	b.hash[key] = append(b.hash[key], id)
	return id
}

// cutEdges splits every line at its nodes.
func (b *builder) cutEdges() []*Edge {
	var edges []*Edge
	epsSq := b.eps * b.eps

	for _, l := range b.lines {
		cuts := l.cuts
		sort.SliceStable(cuts, func(i, j int) bool {
			if cuts[i].pos != cuts[j].pos {
				return cuts[i].pos < cuts[j].pos
			}
			return cuts[i].node < cuts[j].node
		})

		for c := 0; c+1 < len(cuts); c++ {
			from, to := cuts[c], cuts[c+1]
			if from.node == to.node && from.pos == to.pos {
				continue
			}

			start := b.nodes[from.node].Position
			end := b.nodes[to.node].Position

			points := []geom.Vec2{start}
			for idx := int(math.Floor(from.pos)) + 1; float64(idx) < to.pos; idx++ {
				p := l.points[idx]
				if p.DistSq(start) <= epsSq || p.DistSq(end) <= epsSq {
					continue
				}
				points = append(points, p)
			}
			points = append(points, end)

			// a piece that never leaves its node is not a road
			if from.node == to.node && len(points) == 2 {
				continue
			}
			if geom.PolylineLength(points) == 0 {
				continue
			}

			major := false
			if b.major != nil {
				major = b.major[l.index]
			}
			edges = append(edges, &Edge{
				ID:         EdgeID(len(edges)),
				From:       from.node,
				To:         to.node,
				Points:     points,
				Streamline: l.index,
				Major:      major,
			})
		}
	}
	return edges
}

// link fills the incident lists in clockwise order and the neighbour flags.
func link(g *Graph) {
	type entry struct {
		half  HalfEdge
		angle float64
	}
	incident := make([][]entry, len(g.nodes))

	for _, e := range g.edges {
		for _, reversed := range []bool{false, true} {
			n := e.From
			if reversed {
				n = e.To
			}
			angle := geom.ClockwiseFromUp(e.leaving(reversed))
			incident[n] = append(incident[n], entry{half: HalfEdge{Edge: e.ID, Reversed: reversed}, angle: angle})
		}
	}

	for id, list := range incident {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].angle != list[j].angle {
				return list[i].angle < list[j].angle
			}
			if list[i].half.Edge != list[j].half.Edge {
				return list[i].half.Edge < list[j].half.Edge
			}
			return !list[i].half.Reversed && list[j].half.Reversed
		})

		node := g.nodes[id]
		node.Incident = make([]HalfEdge, len(list))
		for i, en := range list {
			node.Incident[i] = en.half
			if g.edges[en.half.Edge].Other(node.ID) != node.ID {
				node.HasNeighbor = true
			}
		}
	}
}
