package cavvex

import (
	"errors"
	"testing"

	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/calib"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/linefit"
	"github.com/IEcheandia/scanmaster-sub004/overlay"
	"github.com/IEcheandia/scanmaster-sub004/pipe"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int) *int { return &v }

func flat(n int, h float64) scanmaster.Doublearray {
	return scanmaster.NewDoublearray(n, h, scanmaster.RankMax)
}

// spikeDip is a flat line at 100 with a peak of 10 pixels at x=50 and a
// dip of 4 pixels at x=45.
func spikeDip() scanmaster.Doublearray {
	p := flat(100, 100)
	p.Data[50] = 90
	p.Data[45] = 104
	return p
}

// step has the left sheet at 100 and the right one at 96.
func step() scanmaster.Doublearray {
	p := flat(100, 100)
	for x := 50; x < 100; x++ {
		p.Data[x] = 96
	}
	return p
}

func input(ctx scanmaster.ImageContext, left, right float64, lines ...scanmaster.Doublearray) Input {
	return Input{
		LaserLine: scanmaster.GeoVecDoublearray{Context: ctx, Lines: lines, Rank: scanmaster.Valid},
		SeamLeft:  scanmaster.Scalar(ctx, left, scanmaster.RankMax),
		SeamRight: scanmaster.Scalar(ctx, right, scanmaster.RankMax),
		Angle:     scanmaster.Scalar(ctx, 0, scanmaster.RankMax),
	}
}

func TestFlatLine(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	e := NewEngine(nil, nil)
	r := e.Run(input(scanmaster.ImageContext{}, 40, 60, flat(100, 100)))
	assert.Equal(t, scanmaster.Valid, r.Rank)
	require.Equal(t, 1, r.Convexity.Len())
	assert.InDelta(t, 0.0, r.Convexity.Data[0], 1e-9)
	assert.InDelta(t, 0.0, r.Concavity.Data[0], 1e-9)
	assert.InDelta(t, 0.0, r.HeightDiff.Data[0], 1e-9)
	assert.Equal(t, scanmaster.RankMax, r.Convexity.Rank[0])
	assert.Equal(t, scanmaster.RankMax, r.HeightDiff.Rank[0])
}

func TestSpikeAndDip(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	e := NewEngine(nil, nil)
	r := e.Run(input(scanmaster.ImageContext{}, 40, 60, spikeDip()))
	assert.InDelta(t, 10.0, r.Convexity.Data[0], 1e-9)
	assert.InDelta(t, 4.0, r.Concavity.Data[0], 1e-9)
	assert.InDelta(t, 0.0, r.ConvexityPos.Data[0], 1e-9)
	assert.InDelta(t, -5.0, r.ConcavityPos.Data[0], 1e-9)

	d := r.Diagnostics
	assert.True(t, d.Valid)
	assert.Equal(t, 40, d.SeamLeft)
	assert.Equal(t, 60, d.SeamRight)
	assert.Equal(t, scanmaster.P(50, 90), d.Convex.At)
	assert.Equal(t, scanmaster.P(50, 100), d.Convex.Foot)
	assert.Equal(t, scanmaster.P(45, 104), d.Concave.At)
	assert.Equal(t, linefit.Window{Start: 10, End: 19}, d.LeftWindow)
	assert.Equal(t, linefit.Window{Start: 80, End: 89}, d.RightWindow)
	assert.False(t, d.Corrected)

	// seam edges given in reverse order
	rev := e.Run(input(scanmaster.ImageContext{}, 60, 40, spikeDip()))
	assert.Equal(t, r.Convexity, rev.Convexity)
	assert.Equal(t, r.Concavity, rev.Concavity)
}

func TestCalcTypeSwapped(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	e := NewEngine(&config.CavvexParams{CalcType: ptr(int(config.CalcSwapped))}, nil)
	r := e.Run(input(scanmaster.ImageContext{}, 40, 60, spikeDip()))
	assert.InDelta(t, 4.0, r.Convexity.Data[0], 1e-9)
	assert.InDelta(t, 10.0, r.Concavity.Data[0], 1e-9)
	assert.InDelta(t, -5.0, r.ConvexityPos.Data[0], 1e-9)
	// markers stay where they were measured
	assert.Equal(t, scanmaster.P(50, 90), r.Diagnostics.Convex.At)
	assert.True(t, r.Diagnostics.Swapped)
}

func TestHeightDifference(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	e := NewEngine(nil, nil)
	r := e.Run(input(scanmaster.ImageContext{}, 40, 60, step()))
	assert.InDelta(t, -4.0, r.HeightDiff.Data[0], 1e-9)
	assert.InDelta(t, 0.0, r.Convexity.Data[0], 1e-9)
	assert.InDelta(t, 0.0, r.Concavity.Data[0], 1e-9)
	assert.True(t, r.Diagnostics.HasHeight)

	invert := true
	e.SetParameter(&config.CavvexParams{InvertHeightDiff: &invert})
	r = e.Run(input(scanmaster.ImageContext{}, 40, 60, step()))
	assert.InDelta(t, 4.0, r.HeightDiff.Data[0], 1e-9)
}

func TestRejectedInput(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	e := NewEngine(nil, nil)
	ctx := scanmaster.ImageContext{}
	check := func(name string, in Input) {
		r := e.Run(in)
		assert.Equal(t, scanmaster.NotPresent, r.Rank, name)
		for _, a := range []scanmaster.Doublearray{r.Convexity, r.Concavity, r.HeightDiff} {
			require.Equal(t, 1, a.Len(), name)
			assert.Equal(t, 0.0, a.Data[0], name)
			assert.Equal(t, scanmaster.RankMin, a.Rank[0], name)
		}
		assert.False(t, r.Diagnostics.Valid, name)
	}
	check("narrow seam", input(ctx, 40, 43, spikeDip()))
	check("seam outside", input(ctx, 40, 100, spikeDip()))
	check("no laser line", input(ctx, 40, 60))

	in := input(ctx, 40, 60, spikeDip())
	in.SeamLeft.Rank = scanmaster.NotPresent
	check("seam rank", in)
	in = input(ctx, 40, 60, spikeDip())
	in.Angle.Array = scanmaster.Doublearray{}
	check("no angle", in)
	in = input(ctx, 40, 60, spikeDip())
	in.Lines = &Lines{}
	check("no sheet lines", in)

	narrow := NewEngine(&config.CavvexParams{LeftLineROIStart: ptr(10), LeftLineROIEnd: ptr(12)}, nil)
	r := narrow.Run(input(ctx, 40, 60, spikeDip()))
	assert.Equal(t, scanmaster.NotPresent, r.Rank)
}

func TestNoTrackedPixelInSeam(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	p := spikeDip()
	for x := 41; x < 60; x++ {
		p.Rank[x] = 0
	}
	r := NewEngine(nil, nil).Run(input(scanmaster.ImageContext{}, 40, 60, p))
	assert.Equal(t, scanmaster.Valid, r.Rank)
	assert.Equal(t, scanmaster.RankMin, r.Convexity.Rank[0])
	assert.Equal(t, scanmaster.RankMin, r.HeightDiff.Rank[0])
	assert.Equal(t, 0.0, r.Convexity.Data[0])
	assert.False(t, r.Diagnostics.HasHeight)
}

func TestSubLines(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	r := NewEngine(nil, nil).Run(input(scanmaster.ImageContext{}, 40, 60, spikeDip(), flat(100, 100)))
	require.Equal(t, 2, r.Convexity.Len())
	assert.InDelta(t, 10.0, r.Convexity.Data[0], 1e-9)
	assert.InDelta(t, 0.0, r.Convexity.Data[1], 1e-9)
	assert.Equal(t, []int{scanmaster.RankMax, scanmaster.RankMax}, r.Convexity.Rank)
}

func TestTrafoReconciliation(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	in := input(scanmaster.ImageContext{}, 50, 70, spikeDip())
	in.LaserLine.Context.Trafo = scanmaster.NewTrafo(10, 0)
	r := NewEngine(nil, nil).Run(in)
	assert.InDelta(t, 10.0, r.Convexity.Data[0], 1e-9)
	assert.Equal(t, 40, r.Diagnostics.SeamLeft)
	assert.Equal(t, 60, r.Diagnostics.SeamRight)
}

func TestFixedROI(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	r := NewEngine(&config.CavvexParams{Mode: ptr(10)}, nil).Run(input(scanmaster.ImageContext{}, 40, 60, spikeDip()))
	assert.InDelta(t, 10.0, r.Convexity.Data[0], 1e-9)
	assert.Equal(t, linefit.Window{Start: 0, End: 35}, r.Diagnostics.LeftWindow)
	assert.Equal(t, linefit.Window{Start: 65, End: 99}, r.Diagnostics.RightWindow)
	assert.True(t, r.Diagnostics.Corrected, "fixed ROI reaches past both profile ends")
}

func TestFitWhich(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	p := step()
	for x := 80; x < 90; x++ {
		p.Rank[x] = 0
	}
	both := NewEngine(nil, nil).Run(input(scanmaster.ImageContext{}, 40, 60, p))
	assert.InDelta(t, -100.0, both.HeightDiff.Data[0], 1e-9)

	left := NewEngine(&config.CavvexParams{FitWhich: ptr(int(config.FitLeft))}, nil)
	r := left.Run(input(scanmaster.ImageContext{}, 40, 60, p))
	assert.InDelta(t, -4.0, r.HeightDiff.Data[0], 1e-9)

	c := overlay.NewCanvas(200, 200)
	d := r.Diagnostics
	d.Trafo = scanmaster.NewTrafo(0, 0)
	Paint(c, d)
	dotted := 0
	for _, pr := range c.Primitives(overlay.LayerContour) {
		if pr.Kind == overlay.KindDottedLine {
			dotted++
		}
	}
	assert.Greater(t, dotted, 0)
}

func TestCalibrated(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	e := NewEngine(nil, calib.NewPlaneCalibration(0.1, 0.05))
	r := e.Run(input(scanmaster.ImageContext{}, 40, 60, spikeDip()))
	assert.InDelta(t, 0.5, r.Convexity.Data[0], 1e-9)
	assert.InDelta(t, 0.2, r.Concavity.Data[0], 1e-9)
	assert.InDelta(t, 0.0, r.ConvexityPos.Data[0], 1e-9)
	assert.InDelta(t, -0.5, r.ConcavityPos.Data[0], 1e-9)

	r = e.Run(input(scanmaster.ImageContext{}, 40, 60, step()))
	assert.InDelta(t, -0.2, r.HeightDiff.Data[0], 1e-9)

	in := input(scanmaster.ImageContext{}, 40, 60, spikeDip())
	in.Angle = scanmaster.Scalar(scanmaster.ImageContext{}, 60, scanmaster.RankMax)
	r = e.Run(in)
	assert.InDelta(t, 0.25, r.Convexity.Data[0], 1e-9)

	pixels := NewEngine(&config.CavvexParams{Mode: ptr(1)}, calib.NewPlaneCalibration(0.1, 0.05))
	r = pixels.Run(input(scanmaster.ImageContext{}, 40, 60, spikeDip()))
	assert.InDelta(t, 10.0, r.Convexity.Data[0], 1e-9)
}

func TestPaint(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	in := input(scanmaster.ImageContext{Trafo: scanmaster.NewTrafo(0, 0)}, 40, 60, spikeDip())
	r := NewEngine(nil, nil).Run(in)
	c := overlay.NewCanvas(200, 200)
	Paint(c, r.Diagnostics)
	crosses := map[overlay.Color]int{}
	lines := 0
	for _, pr := range c.Primitives(overlay.LayerContour) {
		switch pr.Kind {
		case overlay.KindCross:
			crosses[pr.Color]++
		case overlay.KindLine:
			lines++
		}
	}
	assert.Equal(t, 4, crosses[overlay.Green]) // window bounds and convexity
	assert.Equal(t, 2, crosses[overlay.Red])
	assert.Equal(t, 8, lines)

	c.Clear()
	Paint(c, Diagnostics{})
	assert.Equal(t, 0, c.Len())
}

// --- Filters ---------------------------------------------------------------

type sources struct {
	laser               *pipe.Pipe[scanmaster.GeoVecDoublearray]
	seamL, seamR, angle *pipe.Pipe[scanmaster.GeoDoublearray]
}

func newSources() sources {
	return sources{
		laser: pipe.NewPipe[scanmaster.GeoVecDoublearray]("LaserLine"),
		seamL: pipe.NewPipe[scanmaster.GeoDoublearray]("SeamLeft"),
		seamR: pipe.NewPipe[scanmaster.GeoDoublearray]("SeamRight"),
		angle: pipe.NewPipe[scanmaster.GeoDoublearray]("Angle"),
	}
}

func (s sources) connect(in seamInputs) {
	in.LaserLine.Connect(s.laser)
	in.SeamLeft.Connect(s.seamL)
	in.SeamRight.Connect(s.seamR)
	in.Angle.Connect(s.angle)
}

func (s sources) signal(in Input) {
	s.laser.Signal(in.LaserLine)
	s.seamL.Signal(in.SeamLeft)
	s.seamR.Signal(in.SeamRight)
	s.angle.Signal(in.Angle)
}

func TestCavvexFilter(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	f := NewCavvex("Cavvex", nil)
	_, err := f.Group()
	assert.True(t, errors.Is(err, pipe.ErrNotConnected))

	f = NewCavvex("Cavvex", nil)
	src := newSources()
	src.connect(f.seamInputs)
	_, err = f.Group()
	require.NoError(t, err)
	var vex, cav, hd scanmaster.GeoDoublearray
	f.Convexity.Subscribe(func(g scanmaster.GeoDoublearray) { vex = g })
	f.Concavity.Subscribe(func(g scanmaster.GeoDoublearray) { cav = g })
	f.HeightDiff.Subscribe(func(g scanmaster.GeoDoublearray) { hd = g })

	pipe.ArmAll(pipe.SeamStart, pipe.ProductData{}, f)
	ctx := scanmaster.ImageContext{Trafo: scanmaster.NewTrafo(0, 0)}
	src.signal(input(ctx, 40, 60, spikeDip()))
	assert.Equal(t, 1, f.Counter())
	assert.InDelta(t, 10.0, vex.Array.Data[0], 1e-9)
	assert.InDelta(t, 4.0, cav.Array.Data[0], 1e-9)
	assert.Equal(t, scanmaster.Valid, hd.Rank)

	c := overlay.NewCanvas(200, 200)
	f.Paint(c)
	assert.Greater(t, c.Len(), 0)

	src.signal(input(ctx, 40, 43, spikeDip()))
	assert.Equal(t, 2, f.Counter())
	assert.Equal(t, scanmaster.NotPresent, vex.Rank)
	c.Clear()
	f.Paint(c)
	assert.Equal(t, 0, c.Len())

	f.Arm(pipe.SeamStart)
	assert.Equal(t, 0, f.Counter())
}

func TestCavvexSimpleWithLineFit(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	fit := linefit.NewLineFit("LineFit")
	f := NewCavvexSimple("CavvexSimple", nil)
	src := newSources()
	src.connect(f.seamInputs)
	fit.LaserLine.Connect(src.laser)
	f.LeftSlope.Connect(fit.Slope)
	f.RightSlope.Connect(fit.Slope)
	f.LeftIntercept.Connect(fit.YIntercept)
	f.RightIntercept.Connect(fit.YIntercept)
	_, err := f.Group()
	require.NoError(t, err)
	var vex, vexPos, hd scanmaster.GeoDoublearray
	f.Convexity.Subscribe(func(g scanmaster.GeoDoublearray) { vex = g })
	f.ConvexityPos.Subscribe(func(g scanmaster.GeoDoublearray) { vexPos = g })
	f.HeightDiff.Subscribe(func(g scanmaster.GeoDoublearray) { hd = g })

	src.signal(input(scanmaster.ImageContext{}, 40, 60, flat(100, 100)))
	fit.Proceed()
	assert.Equal(t, 1, f.Counter())
	assert.InDelta(t, 0.0, vex.Array.Data[0], 1e-9)
	assert.Equal(t, scanmaster.RankMax, vex.Array.Rank[0])
	assert.InDelta(t, 0.0, hd.Array.Data[0], 1e-9)
	assert.Equal(t, 1, vexPos.Array.Len())
}

func TestCavvexSimplePositions(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	f := NewCavvexSimple("CavvexSimple", calib.NewPlaneCalibration(0.1, 0.05))
	f.SetParameter(&config.CavvexParams{Mode: ptr(1)})
	src := newSources()
	src.connect(f.seamInputs)
	lines := map[*pipe.In[scanmaster.GeoDoublearray]]float64{
		f.LeftSlope: 0, f.LeftIntercept: 100, f.RightSlope: 0, f.RightIntercept: 100,
	}
	for in, v := range lines {
		p := pipe.NewPipe[scanmaster.GeoDoublearray](in.Tag)
		in.Connect(p)
		p.Signal(scanmaster.Scalar(scanmaster.ImageContext{}, v, scanmaster.RankMax))
	}
	var vexPos, cavPos scanmaster.GeoDoublearray
	f.ConvexityPos.Subscribe(func(g scanmaster.GeoDoublearray) { vexPos = g })
	f.ConcavityPos.Subscribe(func(g scanmaster.GeoDoublearray) { cavPos = g })

	src.signal(input(scanmaster.ImageContext{}, 40, 60, spikeDip()))
	f.Proceed()
	assert.InDelta(t, 0.0, vexPos.Array.Data[0], 1e-9)
	assert.InDelta(t, -5.0, cavPos.Array.Data[0], 1e-9)

	c := overlay.NewCanvas(200, 200)
	f.Paint(c) // no trafo, nothing to paint
	assert.Equal(t, 0, c.Len())
}
