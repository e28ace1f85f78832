package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/roadnet-go/internal/geom"
)

func TestTrimEdge(t *testing.T) {
	t.Parallel()

	straight := &Edge{From: 0, To: 1, Points: pts(0, 0, 10, 0, 30, 0)}

	t.Run("BothJunctions", func(t *testing.T) {
		got := TrimEdge(straight, 5, 3, 4)
		require.Len(t, got, 3)
		assert.InDelta(t, 5.0, got[0].X, 1e-9)
		assert.Equal(t, geom.V(10, 0), got[1])
		assert.InDelta(t, 25.0, got[2].X, 1e-9)
	})

	t.Run("DeadEndsKeepTheirEnds", func(t *testing.T) {
		got := TrimEdge(straight, 5, 1, 3)
		assert.Equal(t, geom.V(0, 0), got[0])
		assert.InDelta(t, 25.0, got[len(got)-1].X, 1e-9)
	})

	t.Run("ClearanceSkipsShortSegments", func(t *testing.T) {
		got := TrimEdge(straight, 12, 3, 1)
		require.Len(t, got, 2)
		assert.InDelta(t, 12.0, got[0].X, 1e-9)
		assert.Equal(t, geom.V(30, 0), got[1])
	})

	t.Run("OverlappingTrimsRemoveTheEdge", func(t *testing.T) {
		assert.Nil(t, TrimEdge(straight, 16, 3, 3))
	})

	t.Run("ZeroClearance", func(t *testing.T) {
		got := TrimEdge(straight, 0, 3, 3)
		assert.Equal(t, straight.Points, got)
	})

	t.Run("DoesNotModifyEdge", func(t *testing.T) {
		TrimEdge(straight, 5, 3, 3)
		assert.Equal(t, pts(0, 0, 10, 0, 30, 0), straight.Points)
	})

	t.Run("CurvedEnd", func(t *testing.T) {
		e := &Edge{Points: pts(0, 0, 3, 4, 3, 20)}
		got := TrimEdge(e, 5, 2, 1)
		// (3,4) lies exactly on the circle
		assert.Equal(t, pts(3, 4, 3, 20), got)
	})
}
