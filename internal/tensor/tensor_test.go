package tensor

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/roadnet-go/internal/geom"
)

// parallel reports whether two unit vectors are equal modulo sign.
func parallel(a, b geom.Vec2) bool {
	return math.Abs(math.Abs(a.Dot(b))-1) < 1e-9
}

func TestTensor_Directions(t *testing.T) {
	t.Parallel()

	for _, theta := range []float64{0, 0.3, math.Pi / 2, 1.983775, -1.283775} {
		tensor := FromAngle(theta)

		major, ok := tensor.Major()
		require.True(t, ok)
		minor, ok := tensor.Minor()
		require.True(t, ok)

		assert.True(t, parallel(major, geom.V(math.Cos(theta), math.Sin(theta))), "theta %v", theta)
		assert.InDelta(t, 0.0, major.Dot(minor), 1e-12)
		assert.InDelta(t, 1.0, major.Len(), 1e-12)
		assert.InDelta(t, 1.0, minor.Len(), 1e-12)
	}
}

func TestTensor_Zero(t *testing.T) {
	t.Parallel()

	_, ok := Zero.Major()
	assert.False(t, ok)
	_, ok = Zero.Minor()
	assert.False(t, ok)
	assert.Equal(t, 0.0, Zero.Theta())
	assert.Equal(t, Zero, FromVector(geom.Vec2{}))
}

func TestTensor_FromVectorIsSignless(t *testing.T) {
	t.Parallel()

	v := geom.V(3, -1)
	assert.Equal(t, FromVector(v), FromVector(v.Neg()))

	major, ok := FromVector(v).Major()
	require.True(t, ok)
	assert.True(t, parallel(major, v.Normalize()))
}

func TestTensor_OpposingTensorsCancel(t *testing.T) {
	t.Parallel()

	sum := FromAngle(0).Add(FromAngle(math.Pi / 2))
	assert.InDelta(t, 0.0, sum.Magnitude(), 1e-12)
}

func TestFalloff(t *testing.T) {
	t.Parallel()

	t.Run("ZeroBeyondSize", func(t *testing.T) {
		for _, decay := range []float64{0, 1, 35, 55} {
			assert.Equal(t, 0.0, Falloff(1500, 1500, decay))
			assert.Equal(t, 0.0, Falloff(1500.0001, 1500, decay))
			assert.Equal(t, 0.0, Falloff(1e9, 1500, decay))
		}
	})

	t.Run("ContinuousAtSize", func(t *testing.T) {
		for _, decay := range []float64{1, 35, 55} {
			assert.LessOrEqual(t, Falloff(1500-1e-9, 1500, decay), 1e-9)
		}
	})

	t.Run("MonotoneInUnitRange", func(t *testing.T) {
		prev := 1.0
		for d := 0.0; d <= 800; d += 7 {
			w := Falloff(d, 750, 2)
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, prev)
			prev = w
		}
	})

	t.Run("DecayZeroIsStepAtSize", func(t *testing.T) {
		assert.Equal(t, 1.0, Falloff(0, 10, 0))
		assert.Equal(t, 1.0, Falloff(9.99, 10, 0))
		assert.Equal(t, 1.0, Falloff(10-1e-9, 10, 0))
		assert.Equal(t, 0.0, Falloff(10, 10, 0))
	})
}

func TestBasisValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func() error
	}{
		{"ZeroSize", func() error { _, err := NewGrid(geom.V(0, 0), 0, 1, 0); return err }},
		{"NegativeSize", func() error { _, err := NewRadial(geom.V(0, 0), -5, 1); return err }},
		{"NegativeDecay", func() error { _, err := NewGrid(geom.V(0, 0), 10, -1, 0); return err }},
		{"NaNAngle", func() error { _, err := NewGrid(geom.V(0, 0), 10, 1, math.NaN()); return err }},
		{"InfCenter", func() error { _, err := NewRadial(geom.V(math.Inf(1), 0), 10, 1); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBasis))

			var be *BasisError
			assert.True(t, errors.As(err, &be))
		})
	}
}

func TestRadial_MajorIsTangential(t *testing.T) {
	t.Parallel()

	r, err := NewRadial(geom.V(800, 888), 750, 55)
	require.NoError(t, err)

	p := geom.V(900, 888)
	major, ok := r.Tensor(p).Major()
	require.True(t, ok)
	assert.True(t, parallel(major, geom.V(0, 1)))

	minor, ok := r.Tensor(p).Minor()
	require.True(t, ok)
	assert.True(t, parallel(minor, geom.V(1, 0)))

	assert.True(t, r.Tensor(r.Center()).IsZero())
}

func TestField_Evaluate(t *testing.T) {
	t.Parallel()

	t.Run("EmptyFieldIsZero", func(t *testing.T) {
		f := NewField()
		assert.Equal(t, Zero, f.Evaluate(geom.V(10, 10)))
		_, ok := f.Major(geom.V(10, 10))
		assert.False(t, ok)
	})

	t.Run("OutsideEverySizeIsZero", func(t *testing.T) {
		f := NewField()
		require.NoError(t, f.AddGrid(geom.V(0, 0), 100, 1, 0.4))
		require.NoError(t, f.AddRadial(geom.V(50, 0), 20, 2))

		assert.True(t, f.Evaluate(geom.V(500, 500)).IsZero())
		assert.False(t, f.Evaluate(geom.V(10, 10)).IsZero())
	})

	t.Run("SingleGridFollowsAngle", func(t *testing.T) {
		f := NewField()
		require.NoError(t, f.AddGrid(geom.V(0, 0), 1000, 0, 0.25))

		major, ok := f.Direction(geom.V(100, -40), true)
		require.True(t, ok)
		assert.True(t, parallel(major, geom.V(math.Cos(0.25), math.Sin(0.25))))

		minor, ok := f.Direction(geom.V(100, -40), false)
		require.True(t, ok)
		assert.InDelta(t, 0.0, major.Dot(minor), 1e-12)
	})

	t.Run("RejectsInvalidBasis", func(t *testing.T) {
		f := NewField()
		err := f.AddGrid(geom.V(0, 0), 0, 1, 0)
		assert.ErrorIs(t, err, ErrInvalidBasis)
		assert.Equal(t, 0, f.Len())
	})

	t.Run("KeepsOrder", func(t *testing.T) {
		f := NewField()
		require.NoError(t, f.AddGrid(geom.V(1381, 788), 1500, 35, 1.983775))
		require.NoError(t, f.AddRadial(geom.V(800, 888), 750, 55))

		fields := f.Fields()
		require.Len(t, fields, 2)
		assert.Equal(t, KindGrid, fields[0].Kind())
		assert.Equal(t, KindRadial, fields[1].Kind())
	})
}
