package streamline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/Benny93/roadnet-go/internal/geom"
	"github.com/Benny93/roadnet-go/internal/integrator"
	"github.com/Benny93/roadnet-go/internal/spatial"
)

// ErrEmptyWorld is returned when the world rectangle has no area.
var ErrEmptyWorld = errors.New("streamline: world has no area")

const (
	// defaultRNGSeed replaces a zero seed.
	defaultRNGSeed int64 = 1

	defaultMaxStreamlines = 10000

	// minPoints is the shortest polyline accepted as a streamline.
	minPoints = 5

	// attachedEpsilon is the distance below which a dangling end already
	// touches another streamline.
	attachedEpsilon = 1e-6
)

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the seed of the random re-seeding. Zero selects the default seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithStart sets the first seed. The default is the centre of the world.
func WithStart(p geom.Vec2) Option {
	return func(g *Generator) {
		g.start = p
		g.startSet = true
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMaxStreamlines caps the number of placed streamlines. n <= 0 keeps the
// default cap.
func WithMaxStreamlines(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxStreamlines = n
		}
	}
}

// WithDanglingJoin enables or disables extending open ends onto nearby
// streamlines. Enabled by default.
func WithDanglingJoin(enabled bool) Option {
	return func(g *Generator) { g.danglingJoin = enabled }
}

// Generator traces evenly spaced streamlines of both families of a field.
// A Generator is not safe for concurrent use; Generate may be called again
// and starts from scratch.
type Generator struct {
	field  integrator.Sampler
	rk     *integrator.RK4
	params Parameters
	world  geom.Rect

	start          geom.Vec2
	startSet       bool
	seed           int64
	logger         *slog.Logger
	maxStreamlines int
	danglingJoin   bool

	// run state
	rng        *rand.Rand
	grids      [2]*spatial.Grid
	queues     [2][]geom.Vec2
	raw        [][]geom.Vec2
	simplified [][]geom.Vec2
	major      []bool
	closed     []bool
	stats      Stats
}

// NewGenerator validates params and world and returns a Generator. No tracing
// happens until Generate is called.
func NewGenerator(field integrator.Sampler, params Parameters, world geom.Rect, opts ...Option) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if world.Empty() || !world.Min.IsFinite() || !world.Max.IsFinite() {
		return nil, fmt.Errorf("%w: %v x %v", ErrEmptyWorld, world.Width(), world.Height())
	}
	if field == nil {
		return nil, errors.New("streamline: nil field")
	}

	g := &Generator{
		field:          field,
		rk:             integrator.NewRK4(field),
		params:         params,
		world:          world,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxStreamlines: defaultMaxStreamlines,
		danglingJoin:   true,
	}
	for _, opt := range opts {
		opt(g)
	}
	if !g.startSet {
		g.start = world.Center()
	}
	return g, nil
}

// Parameters returns the parameters the generator was built with.
func (g *Generator) Parameters() Parameters {
	return g.params
}

// Generate places streamlines until both families run out of seeds.
//
// ctx is checked between streamlines; a cancelled run returns no result.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	g.reset()

	f := major
	for !(g.stats.Exhausted[major] && g.stats.Exhausted[minor]) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generating streamlines: %w", err)
		}
		if g.stats.Streamlines >= g.maxStreamlines {
			g.logger.Warn("streamline limit reached", "limit", g.maxStreamlines)
			break
		}

		if !g.stats.Exhausted[f] && !g.placeNext(f) {
			g.stats.Exhausted[f] = true
			g.logger.Info("seed exhaustion",
				"family", f.String(),
				"streamlines", g.stats.Streamlines,
				"attempts", g.stats.SeedAttempts)
		}
		f = f.other()
	}

	if g.danglingJoin {
		g.joinDangling()
	}

	if n := g.stats.Terminations[Degenerate]; n > 0 {
		g.logger.Debug("degenerate terminations", "count", n)
	}

	return &Result{
		All:        g.raw,
		Simplified: g.simplified,
		Major:      g.major,
		Closed:     g.closed,
		Stats:      g.stats,
	}, nil
}

func (g *Generator) reset() {
	seed := g.seed
	if seed == 0 {
		seed = defaultRNGSeed
	}
	g.rng = rand.New(rand.NewSource(seed))

	g.grids = [2]*spatial.Grid{
		spatial.NewGrid(g.world, g.params.DSep),
		spatial.NewGrid(g.world, g.params.DSep),
	}
	g.queues = [2][]geom.Vec2{{g.start}, {g.start}}
	g.raw = nil
	g.simplified = nil
	g.major = nil
	g.closed = nil
	g.stats = Stats{Terminations: make(map[Termination]int)}
}

// placeNext places one streamline of family f. It reports false when the
// queue and the random seed budget are both exhausted.
func (g *Generator) placeNext(f family) bool {
	for len(g.queues[f]) > 0 {
		seed := g.queues[f][0]
		g.queues[f] = g.queues[f][1:]

		if !g.validSeed(seed, f, g.params.DTest) {
			continue
		}
		if g.tryPlace(seed, f) {
			return true
		}
	}

	for range g.params.SeedTries {
		seed := g.randomPoint()
		g.stats.SeedAttempts++

		if !g.validSeed(seed, f, g.params.DSep) {
			continue
		}
		if g.tryPlace(seed, f) {
			return true
		}
	}
	return false
}

func (g *Generator) validSeed(p geom.Vec2, f family, radius float64) bool {
	return g.world.Contains(p) && g.grids[f].IsFree(p, radius)
}

func (g *Generator) randomPoint() geom.Vec2 {
	return geom.V(
		g.world.Min.X+g.rng.Float64()*g.world.Width(),
		g.world.Min.Y+g.rng.Float64()*g.world.Height(),
	)
}

// tryPlace traces from seed and accepts the streamline if it is long enough.
func (g *Generator) tryPlace(seed geom.Vec2, f family) bool {
	early := g.params.CollideEarly > 0 && g.rng.Float64() < g.params.CollideEarly

	t := g.trace(seed, f, early)
	for _, end := range t.ends {
		g.stats.Terminations[end]++
	}

	points := t.points()
	if len(points) < minPoints {
		g.stats.Rejected++
		return false
	}
	g.accept(points, f, t.closed)
	return true
}

// trace is one streamline being traced from a seed.
type trace struct {
	state    State
	family   family
	seed     geom.Vec2
	dir      geom.Vec2
	early    bool
	forward  []geom.Vec2
	backward []geom.Vec2
	closed   bool
	ends     []Termination
}

func (t *trace) points() []geom.Vec2 {
	if len(t.forward) == 0 {
		return nil
	}
	out := make([]geom.Vec2, 0, len(t.backward)+len(t.forward))
	for i := len(t.backward) - 1; i >= 1; i-- {
		out = append(out, t.backward[i])
	}
	return append(out, t.forward...)
}

func (g *Generator) trace(seed geom.Vec2, f family, early bool) *trace {
	t := &trace{state: Seeding, family: f, seed: seed, early: early}

	for t.state != Terminated {
		switch t.state {
		case Seeding:
			dir, ok := g.field.Direction(seed, f == major)
			if !ok || !dir.IsFinite() {
				t.ends = append(t.ends, Degenerate)
				t.state = Terminated
				continue
			}
			t.dir = dir
			t.state = TracingForward

		case TracingForward:
			var end Termination
			t.forward, end, t.closed = g.integrate(t, t.dir, true)
			t.ends = append(t.ends, end)
			if t.closed {
				t.state = Terminated
			} else {
				t.state = TracingBackward
			}

		case TracingBackward:
			var end Termination
			t.backward, end, _ = g.integrate(t, t.dir.Neg(), false)
			t.ends = append(t.ends, end)
			t.state = Terminated
		}
	}
	return t
}

// integrate follows the field from the seed along dir. Within a step the
// checks run in order: bounds, loop closure, collision.
func (g *Generator) integrate(t *trace, dir geom.Vec2, allowLoop bool) ([]geom.Vec2, Termination, bool) {
	points := []geom.Vec2{t.seed}
	p, prev := t.seed, dir
	joinSq := g.params.DCircleJoin * g.params.DCircleJoin
	left := false

	for range g.params.PathIterations {
		res, err := g.rk.Step(p, prev, g.params.DStep, t.family == major)
		if err != nil {
			return points, Degenerate, false
		}
		q := res.Point

		if !g.world.Contains(q) {
			return points, BoundsExit, false
		}

		if allowLoop {
			d := q.DistSq(t.seed)
			if left && d <= joinSq && geom.AngleBetween(res.Direction, t.dir) <= g.params.JoinAngle {
				return append(points, t.seed), LoopClosed, true
			}
			if d > joinSq {
				left = true
			}
		}

		if !g.free(q, t.family, t.early) {
			return points, Collision, false
		}

		points = append(points, q)
		p, prev = q, res.Direction
	}
	return points, PathLimit, false
}

func (g *Generator) free(p geom.Vec2, f family, early bool) bool {
	if !g.grids[f].IsFree(p, g.params.DTest) {
		return false
	}
	return !early || g.grids[f.other()].IsFree(p, g.params.DTest)
}

func (g *Generator) accept(points []geom.Vec2, f family, closed bool) {
	id := len(g.raw)
	simple := geom.Simplify(points, g.params.SimplifyTolerance)
	g.grids[f].Insert(id, simple)

	g.raw = append(g.raw, points)
	g.simplified = append(g.simplified, simple)
	g.major = append(g.major, f == major)
	g.closed = append(g.closed, closed)
	g.stats.Streamlines++

	g.logger.Debug("streamline placed",
		"id", id,
		"family", f.String(),
		"points", len(points),
		"simplified", len(simple),
		"closed", closed)

	dsep := g.params.DSep
	length := geom.PolylineLength(points)
	for s := 0.0; s <= length; s += dsep {
		p, tangent := geom.PointAlong(points, s)
		if tangent.IsZero() {
			continue
		}
		n := tangent.Perp().Scale(dsep)
		g.queues[f] = append(g.queues[f], p.Add(n), p.Sub(n))
	}

	if !closed {
		g.queues[f.other()] = append(g.queues[f.other()], points[0], points[len(points)-1])
	}
}

// joinDangling extends open ends onto the nearest streamline ahead of them.
// Targets are searched in the streamlines as placed, so the result does not
// depend on the order the ends are visited in.
func (g *Generator) joinDangling() {
	if g.params.DLookahead <= 0 {
		return
	}

	for id := range g.simplified {
		if g.closed[id] {
			continue
		}
		for _, atStart := range []bool{true, false} {
			target, ok := g.joinTarget(id, atStart)
			if !ok {
				continue
			}

			if atStart {
				g.raw[id] = append([]geom.Vec2{target}, g.raw[id]...)
				g.simplified[id] = append([]geom.Vec2{target}, g.simplified[id]...)
			} else {
				g.raw[id] = append(g.raw[id], target)
				g.simplified[id] = append(g.simplified[id], target)
			}
			g.simplified[id] = geom.Simplify(g.simplified[id], g.params.SimplifyTolerance)
			g.stats.Joins++
		}
	}

	if g.stats.Joins > 0 {
		g.logger.Debug("dangling ends joined", "joins", g.stats.Joins)
	}
}

type joinCandidate struct {
	ref   spatial.Ref
	point geom.Vec2
	dist  float64
}

func (c joinCandidate) better(o joinCandidate) bool {
	if c.dist != o.dist {
		return c.dist < o.dist
	}
	return c.ref.Less(o.ref)
}

// joinTarget finds where the end of streamline id should be extended to: the
// nearest point within DLookahead that is either straight ahead or within
// JoinAngle of the end direction.
func (g *Generator) joinTarget(id int, atStart bool) (geom.Vec2, bool) {
	points := g.simplified[id]
	n := len(points)
	if n < 2 {
		return geom.Vec2{}, false
	}

	end, inner := points[n-1], points[n-2]
	if atStart {
		end, inner = points[0], points[1]
	}
	dir := end.Sub(inner)
	if dir.IsZero() {
		return geom.Vec2{}, false
	}
	dir = dir.Normalize()

	look := g.params.DLookahead
	ahead := end.Add(dir.Scale(look))

	best := joinCandidate{dist: math.Inf(1)}
	found := false
	consider := func(c joinCandidate) {
		if c.dist <= attachedEpsilon || c.dist > look {
			return
		}
		if !found || c.better(best) {
			best = c
			found = true
		}
	}

	for _, grid := range g.grids {
		for _, ref := range grid.Query(end, look) {
			if ref.Line == id {
				continue
			}
			a, b := grid.Segment(ref)

			c, _ := geom.ClosestPointOnSegment(end, a, b)
			d := end.Dist(c)
			if d <= attachedEpsilon {
				// already sits on another streamline
				return geom.Vec2{}, false
			}
			if geom.AngleBetween(c.Sub(end), dir) <= g.params.JoinAngle {
				consider(joinCandidate{ref: ref, point: c, dist: d})
			}

			if p, _, _, ok := geom.SegmentIntersection(end, ahead, a, b); ok {
				consider(joinCandidate{ref: ref, point: p, dist: end.Dist(p)})
			}
		}
	}
	return best.point, found
}
