package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec2_Arithmetic(t *testing.T) {
	t.Parallel()

	a := V(3, 4)
	b := V(1, -2)

	assert.Equal(t, V(4, 2), a.Add(b))
	assert.Equal(t, V(2, 6), a.Sub(b))
	assert.Equal(t, V(6, 8), a.Scale(2))
	assert.Equal(t, V(-3, -4), a.Neg())
	assert.InDelta(t, -5.0, a.Dot(b), 1e-12)
	assert.InDelta(t, -10.0, a.Cross(b), 1e-12)
	assert.InDelta(t, 5.0, a.Len(), 1e-12)
	assert.InDelta(t, 25.0, a.LenSq(), 1e-12)
	assert.InDelta(t, 1.0, a.Normalize().Len(), 1e-12)
	assert.Equal(t, Vec2{}, Vec2{}.Normalize())
	assert.Equal(t, V(-4, 3), a.Perp())
}

func TestClockwiseFromUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    Vec2
		want float64
	}{
		{"Up", V(0, 1), 0},
		{"Right", V(1, 0), math.Pi / 2},
		{"Down", V(0, -1), math.Pi},
		{"Left", V(-1, 0), 3 * math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ClockwiseFromUp(tt.v), 1e-12)
		})
	}
}

func TestRect(t *testing.T) {
	t.Parallel()

	r := NewRect(V(519, 249), V(1452, 1279))

	assert.InDelta(t, 1452.0, r.Width(), 1e-12)
	assert.InDelta(t, 1279.0, r.Height(), 1e-12)
	assert.True(t, r.Contains(V(519, 249)))
	assert.True(t, r.Contains(r.Max))
	assert.False(t, r.Contains(V(518.9, 300)))
	assert.Equal(t, V(519+726, 249+639.5), r.Center())
	assert.False(t, r.Empty())
	assert.True(t, NewRect(V(0, 0), V(0, 10)).Empty())
}

func TestSegmentIntersection(t *testing.T) {
	t.Parallel()

	t.Run("Crossing", func(t *testing.T) {
		p, ta, ub, ok := SegmentIntersection(V(0, 0), V(2, 2), V(0, 2), V(2, 0))
		require.True(t, ok)
		assert.InDelta(t, 1.0, p.X, 1e-12)
		assert.InDelta(t, 1.0, p.Y, 1e-12)
		assert.InDelta(t, 0.5, ta, 1e-12)
		assert.InDelta(t, 0.5, ub, 1e-12)
	})

	t.Run("TouchingEndpoint", func(t *testing.T) {
		p, ta, _, ok := SegmentIntersection(V(0, 0), V(1, 0), V(1, -1), V(1, 1))
		require.True(t, ok)
		assert.InDelta(t, 1.0, ta, 1e-12)
		assert.Equal(t, V(1, 0), p)
	})

	t.Run("Disjoint", func(t *testing.T) {
		_, _, _, ok := SegmentIntersection(V(0, 0), V(1, 0), V(2, -1), V(2, 1))
		assert.False(t, ok)
	})

	t.Run("ParallelIsNotAnIntersection", func(t *testing.T) {
		_, _, _, ok := SegmentIntersection(V(0, 0), V(2, 0), V(1, 0), V(3, 0))
		assert.False(t, ok)
	})

	t.Run("ZeroLength", func(t *testing.T) {
		_, _, _, ok := SegmentIntersection(V(1, 1), V(1, 1), V(0, 0), V(2, 2))
		assert.False(t, ok)
	})
}

func TestPointSegmentDistSq(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, PointSegmentDistSq(V(0.5, 1), V(0, 0), V(1, 0)), 1e-12)
	assert.InDelta(t, 2.0, PointSegmentDistSq(V(2, 1), V(0, 0), V(1, 0)), 1e-12)
	assert.InDelta(t, 4.0, PointSegmentDistSq(V(3, 3), V(3, 1), V(3, 1)), 1e-12)
}

func TestSimplify(t *testing.T) {
	t.Parallel()

	t.Run("StraightLineCollapses", func(t *testing.T) {
		var line []Vec2
		for i := 0; i <= 100; i++ {
			line = append(line, V(float64(i), 2*float64(i)))
		}

		got := Simplify(line, 0.01)
		assert.Equal(t, []Vec2{V(0, 0), V(100, 200)}, got)
	})

	t.Run("KeepsCorners", func(t *testing.T) {
		line := []Vec2{V(0, 0), V(5, 0), V(10, 0), V(10, 5), V(10, 10)}

		got := Simplify(line, 0.1)
		assert.Equal(t, []Vec2{V(0, 0), V(10, 0), V(10, 10)}, got)
	})

	t.Run("Idempotent", func(t *testing.T) {
		var arc []Vec2
		for i := 0; i <= 400; i++ {
			a := float64(i) / 400 * 3 * math.Pi / 2
			arc = append(arc, V(100*math.Cos(a), 100*math.Sin(a)+0.3*math.Sin(7*a)))
		}

		for _, tol := range []float64{0.01, 0.5, 3} {
			once := Simplify(arc, tol)
			twice := Simplify(once, tol)
			assert.Equal(t, once, twice, "tolerance %v", tol)
		}
	})

	t.Run("ClosedLoop", func(t *testing.T) {
		var loop []Vec2
		for i := 0; i < 64; i++ {
			a := float64(i) / 64 * 2 * math.Pi
			loop = append(loop, V(math.Cos(a)*50, math.Sin(a)*50))
		}
		loop = append(loop, loop[0])

		got := Simplify(loop, 0.5)
		require.GreaterOrEqual(t, len(got), 4)
		assert.True(t, Closed(got))
	})

	t.Run("DoesNotModifyInput", func(t *testing.T) {
		line := []Vec2{V(0, 0), V(1, 0.001), V(2, 0)}
		Simplify(line, 1)
		assert.Equal(t, V(1, 0.001), line[1])
	})
}

func TestPointAlong(t *testing.T) {
	t.Parallel()

	line := []Vec2{V(0, 0), V(10, 0), V(10, 10)}

	p, dir := PointAlong(line, 5)
	assert.Equal(t, V(5, 0), p)
	assert.Equal(t, V(1, 0), dir)

	p, dir = PointAlong(line, 15)
	assert.Equal(t, V(10, 5), p)
	assert.Equal(t, V(0, 1), dir)

	p, _ = PointAlong(line, 100)
	assert.Equal(t, V(10, 10), p)
	assert.InDelta(t, 20.0, PolylineLength(line), 1e-12)
}
