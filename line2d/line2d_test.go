package line2d

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

func TestTwoPointRoundTrip(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	points := [][4]float64{
		{0, 0, 10, 5},
		{-3.5, 2, 7.25, -11},
		{100, 40, 101, 40},
		{1e3, -1e3, -2e3, 3e3},
	}
	for _, p := range points {
		l := FromPoints(p[0], p[1], p[2], p[3])
		assert.True(t, l.IsValid())
		assert.False(t, l.IsVertical())
		assert.InDelta(t, p[1], l.Y(p[0]), 1e-9, "%v", l)
		assert.InDelta(t, p[3], l.Y(p[2]), 1e-9, "%v", l)
	}
}

func TestPerpendicularDistance(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	l := New(0, 5)
	d, x := l.CalcDistance(3, 8)
	assert.InDelta(t, 3.0, d, 1e-12)
	assert.InDelta(t, 3.0, x, 1e-12)
	px, py := l.LastProjection()
	assert.InDelta(t, 3.0, px, 1e-12)
	assert.InDelta(t, 5.0, py, 1e-12)

	diag := New(1, 0) // y = x
	d, x = diag.CalcDistance(0, 2)
	assert.InDelta(t, math.Sqrt2, d, 1e-12)
	assert.InDelta(t, 1.0, x, 1e-12)

	vert := FromPoints(4, 0, 4, 10)
	d, x = vert.CalcDistance(1, 3)
	assert.InDelta(t, 3.0, d, 1e-12)
	assert.InDelta(t, 4.0, x, 1e-12)
}

func TestVerticalDegeneracy(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	v := FromPoints(2, 1, 2, 9)
	assert.True(t, v.IsVertical())
	assert.True(t, v.IsValid())
	assert.Equal(t, 2.0, v.YIntercept())
	assert.Equal(t, BigSlope, v.Slope())
	assert.Equal(t, 0.0, v.Y(2))
	assert.Equal(t, KindVertical, v.At(2).Kind())

	z := FromPoints(2, 1, 2, 1)
	assert.False(t, z.IsValid())
	assert.Equal(t, 0.0, z.Y(5))
	assert.Equal(t, KindInvalid, z.At(5).Kind())
	d, x := z.CalcDistance(1, 1)
	assert.Equal(t, 0.0, d)
	assert.Equal(t, 0.0, x)
}

func TestOrthoSlope(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	assert.Equal(t, BigSlope, New(0, 3).OrthoSlope())
	assert.InDelta(t, -0.5, New(2, 0).OrthoSlope(), 1e-12)
	assert.Equal(t, 0.0, FromPoints(1, 0, 1, 1).OrthoSlope())
	assert.Equal(t, 0.0, FromPoints(1, 1, 1, 1).OrthoSlope())
	v := New(0, 3).OrthoSlopeValue()
	assert.False(t, v.Ok())
	assert.Equal(t, KindVertical, v.Kind())
}

func TestIntersection(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	a := New(1, 0)
	b := New(-1, 4)
	assert.InDelta(t, 2.0, a.IntersectionX(b), 1e-12)
	assert.True(t, a.IntersectionValue(b).Ok())

	// near parallel: ambiguous, reported as 0
	c := New(1+1e-8, 7)
	assert.Equal(t, 0.0, a.IntersectionX(c))
	assert.Equal(t, KindParallel, a.IntersectionValue(c).Kind())

	v := FromPoints(3, 0, 3, 1)
	assert.Equal(t, 3.0, a.IntersectionX(v))
	assert.Equal(t, 3.0, v.IntersectionX(a))

	bad := FromPoints(0, 0, 0, 0)
	assert.Equal(t, 0.0, a.IntersectionX(bad))
	assert.Equal(t, KindInvalid, bad.IntersectionValue(a).Kind())
}

func TestPointSlope(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	l := FromPointSlope(2, 3, 0.5)
	assert.InDelta(t, 2.0, l.YIntercept(), 1e-12)
	assert.InDelta(t, 4.0, l.Y(4), 1e-12)
	assert.Equal(t, "line<y=0.5·x+2>", l.String())
}
