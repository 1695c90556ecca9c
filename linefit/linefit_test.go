package linefit

import (
	"errors"
	"testing"

	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/line2d"
	"github.com/IEcheandia/scanmaster-sub004/overlay"
	"github.com/IEcheandia/scanmaster-sub004/pipe"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampProfile(n int, m, b float64) scanmaster.Doublearray {
	a := scanmaster.NewDoublearray(n, 0, scanmaster.RankMax)
	for x := 0; x < n; x++ {
		a.Data[x] = m*float64(x) + b
	}
	return a
}

func TestFitterExact(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	var f Fitter
	for x := 0; x < 10; x++ {
		f.Add(float64(x), 2*float64(x)+3)
	}
	m, b, err := f.MB()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m, 1e-9)
	assert.InDelta(t, 3.0, b, 1e-9)
	m, b, err = f.MeanY()
	require.NoError(t, err)
	assert.Equal(t, 0.0, m)
	assert.InDelta(t, 12.0, b, 1e-9)
}

func TestFitterDegenerate(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	var f Fitter
	_, _, err := f.MB()
	assert.True(t, errors.Is(err, ErrTooFewPoints))
	f.Add(3, 1)
	f.Add(3, 5)
	m, b, err := f.MB()
	assert.True(t, errors.Is(err, ErrTooFewPoints))
	assert.Equal(t, 0.0, m)
	assert.Equal(t, 0.0, b)
	f.Reset()
	assert.Equal(t, 0, f.Len())
}

func TestWindow(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	w := PercentWindow(200, 10, 20)
	assert.Equal(t, Window{20, 40}, w)
	assert.Equal(t, Window{20, 39}, InnerPercentWindow(200, 10, 20))
	assert.True(t, w.Possible())
	assert.False(t, Window{3, 7}.Possible())
	c, corrected := Window{-4, 30}.Clamp(20)
	assert.True(t, corrected)
	assert.Equal(t, Window{0, 19}, c)
	c, corrected = Window{2, 8}.Clamp(20)
	assert.False(t, corrected)
	assert.Equal(t, Window{2, 8}, c)
}

func TestFitProfileSkipsInvalid(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	p := rampProfile(50, 0, 20)
	p.Rank[12] = 0
	p.Data[12] = 500 // unranked outlier
	p.Data[14] = 0.7 // truncates to zero height
	l, err := FitProfile(p, Window{10, 20}, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, l.Slope(), 1e-9)
	assert.InDelta(t, 20.0, l.YIntercept(), 1e-9)
	assert.InDelta(t, 0.0, RMSError(p, Window{15, 20}, l), 1e-9)
	assert.Equal(t, -1.0, RMSError(p, Window{40, 60}, l))
}

func TestRMSError(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	p := scanmaster.NewDoublearray(4, 10, scanmaster.RankMax)
	p.Data[1], p.Data[3] = 12, 8
	assert.InDelta(t, 1.4142135623730951, RMSError(p, Window{0, 4}, line2d.New(0, 10)), 1e-12)
}

func TestLineFitFilter(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	src := pipe.NewPipe[scanmaster.GeoVecDoublearray]("LaserLine")
	f := NewLineFit("fit")
	f.LaserLine.Connect(src)
	f.SetParameter(&config.LineFitParams{})
	var slope, icpt, fitErr scanmaster.GeoDoublearray
	f.Slope.Subscribe(func(g scanmaster.GeoDoublearray) { slope = g })
	f.YIntercept.Subscribe(func(g scanmaster.GeoDoublearray) { icpt = g })
	f.Error.Subscribe(func(g scanmaster.GeoDoublearray) { fitErr = g })

	ctx := scanmaster.ImageContext{Trafo: scanmaster.NewTrafo(5, 5)}
	src.Signal(scanmaster.GeoVecDoublearray{
		Context: ctx,
		Lines:   []scanmaster.Doublearray{rampProfile(100, 1, 10), rampProfile(100, 0, 30)},
		Rank:    scanmaster.Valid,
	})
	f.Proceed()
	require.Equal(t, 2, slope.Array.Len())
	assert.InDelta(t, 1.0, slope.Array.Data[0], 1e-9)
	assert.InDelta(t, 10.0, icpt.Array.Data[0], 1e-9)
	assert.InDelta(t, 0.0, slope.Array.Data[1], 1e-9)
	assert.InDelta(t, 30.0, icpt.Array.Data[1], 1e-9)
	assert.Equal(t, scanmaster.RankMax, slope.Array.Rank[0])
	assert.InDelta(t, 0.0, fitErr.Array.Data[0], 1e-9)
	assert.Equal(t, scanmaster.Valid, slope.Rank)

	c := overlay.NewCanvas(200, 200)
	f.Paint(c)
	assert.Len(t, c.Primitives(overlay.LayerContour), 3)

	src.Signal(scanmaster.GeoVecDoublearray{Context: ctx})
	f.Proceed()
	assert.Equal(t, 1, slope.Array.Len())
	assert.Equal(t, scanmaster.RankMin, slope.Array.Rank[0])
	assert.Equal(t, scanmaster.NotPresent, icpt.Rank)
	c.Clear()
	f.Paint(c)
	assert.Equal(t, 0, c.Len())
}
