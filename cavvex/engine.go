/*
Package cavvex measures convexity, concavity and height difference of a weld
seam on a laser line.

The laser line is a height profile over pixel x-positions. Left and right of
the seam a straight line is fitted to the sheet surfaces. Every tracked
pixel between the seam edges is then compared with these lines: a pixel
beyond the lower sheet's line contributes to convexity, a pixel beyond the
upper sheet's line to concavity, each measured as the perpendicular
distance to the respective line. The height difference is the vertical
distance between the two lines at the seam middle.

Distances are given in pixels, or, with a calibration, as real-world
lengths perpendicular to the weld plane.

The Engine holds the algorithm; Cavvex and CavvexSimple are the filters
wrapping it. CavvexSimple takes the two lines as inputs instead of fitting
them, and additionally reports where the extremes lie relative to the seam
middle.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package cavvex

import (
	"math"

	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/calib"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/line2d"
	"github.com/IEcheandia/scanmaster-sub004/linefit"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'scanmaster.cavvex'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.cavvex")
}

const (
	// MinSeamWidth is the smallest distance of the seam edges in pixels.
	MinSeamWidth = 5
	// SeamMargin keeps fixed-ROI fit windows off the seam edges.
	SeamMargin = 5
	// FixedROIHalfWidth is the distance of the outer fixed-ROI window bounds
	// from the seam middle, about 2mm on the sensor it was set up for.
	FixedROIHalfWidth = 180
	// minArrayRank is the array rank below which inputs are ignored.
	minArrayRank = 0.001
)

// Lines are the externally fitted sheet lines of CavvexSimple, one element
// per sub-line (or a single element for all).
type Lines struct {
	LeftSlope, LeftIntercept   scanmaster.GeoDoublearray
	RightSlope, RightIntercept scanmaster.GeoDoublearray
}

func (l *Lines) empty() bool {
	return l.LeftSlope.Array.Len() == 0 || l.LeftIntercept.Array.Len() == 0 ||
		l.RightSlope.Array.Len() == 0 || l.RightIntercept.Array.Len() == 0
}

// Input is what the engine consumes per trigger.
type Input struct {
	LaserLine scanmaster.GeoVecDoublearray
	SeamLeft  scanmaster.GeoDoublearray
	SeamRight scanmaster.GeoDoublearray
	Angle     scanmaster.GeoDoublearray // degrees
	Lines     *Lines                    // nil: fit lines from the laser line
}

// Result holds one element per sub-line in each array. A rejected input
// yields a single rank-0 zero per array and Rank NotPresent.
type Result struct {
	Context      scanmaster.ImageContext
	Analysis     scanmaster.ResultType
	Rank         float64
	Convexity    scanmaster.Doublearray
	Concavity    scanmaster.Doublearray
	HeightDiff   scanmaster.Doublearray
	ConvexityPos scanmaster.Doublearray // offset from the seam middle
	ConcavityPos scanmaster.Doublearray
	Diagnostics  Diagnostics
}

// Engine computes convexity, concavity and height difference.
type Engine struct {
	params *config.CavvexParams
	calib  calib.Calibration
}

// NewEngine creates an engine. A nil calibration restricts the engine to
// pixel units.
func NewEngine(params *config.CavvexParams, c calib.Calibration) *Engine {
	if params == nil {
		params = config.DefaultCavvexParams()
	}
	return &Engine{params: params, calib: c}
}

// SetParameter replaces the parameter set.
func (e *Engine) SetParameter(params *config.CavvexParams) {
	if params == nil {
		params = config.DefaultCavvexParams()
	}
	e.params = params
}

// Params returns the current parameter set.
func (e *Engine) Params() *config.CavvexParams {
	return e.params
}

// usePixels tells whether results stay in pixel units. Modes 1 and 11
// select pixels; CavvexSimple only knows mode 1.
func (e *Engine) usePixels(simple bool) bool {
	if e.calib == nil {
		return true
	}
	m := e.params.GetMode()
	if simple {
		return m == 1
	}
	return m == 1 || m == 11
}

// fixedROI tells whether fit windows are placed relative to the seam
// rather than by percentage of the line.
func (e *Engine) fixedROI(simple bool) bool {
	m := e.params.GetMode()
	return !simple && (m == 10 || m == 11)
}

// Run processes one trigger.
func (e *Engine) Run(in Input) Result {
	simple := in.Lines != nil
	if reason := checkInput(in); reason != "" {
		tracer().Debugf("cavvex: rejecting input, %s", reason)
		return rejected(in)
	}
	ctx := in.LaserLine.Context
	laserDx := ctx.Trafo.Dx()
	diffLeft := float64(in.SeamLeft.Context.Trafo.Dx() - laserDx)
	diffRight := float64(in.SeamRight.Context.Trafo.Dx() - laserDx)
	res := Result{
		Context:  ctx,
		Analysis: in.LaserLine.Analysis,
		Rank:     scanmaster.Valid,
	}
	var first [2]int // seam edges of sub-line 0, rounded
	for n, profile := range in.LaserLine.Lines {
		seamL, _ := in.SeamLeft.Array.AtOrLast(n)
		seamR, _ := in.SeamRight.Array.AtOrLast(n)
		angle, _ := in.Angle.Array.AtOrLast(n)
		seamL += diffLeft
		seamR += diffRight
		angle *= scanmaster.Deg2Rad
		if seamL > seamR {
			seamL, seamR = seamR, seamL
		}
		if n == 0 {
			first = [2]int{round(seamL), round(seamR)}
		}
		width := profile.Len()
		if seamL < 0 || seamR >= float64(width) {
			tracer().Debugf("cavvex: seam [%g,%g] outside line %d of width %d", seamL, seamR, n, width)
			return rejected(in)
		}
		sl := subLine{
			profile: profile,
			ctx:     ctx,
			seamL:   seamL,
			seamR:   seamR,
			middle:  int(0.5 + (seamL+seamR)/2),
			angle:   angle,
		}
		if simple {
			sl.left = externalLine(in.Lines.LeftSlope, in.Lines.LeftIntercept, n)
			sl.right = externalLine(in.Lines.RightSlope, in.Lines.RightIntercept, n)
		} else {
			wl, wr, corrected, ok := e.windows(width, seamL, seamR, sl.middle)
			if !ok {
				tracer().Debugf("cavvex: fit windows %s, %s too narrow", wl, wr)
				return rejected(in)
			}
			if corrected {
				tracer().Debugf("cavvex: fit windows clamped to %s, %s", wl, wr)
			}
			sl.left, sl.right = e.fit(profile, wl, wr, first)
			sl.leftWindow, sl.rightWindow = wl, wr
			sl.windowsCorrected = corrected
		}
		m := e.measure(&sl, simple)
		if n == 0 {
			res.Diagnostics = e.diagnostics(&sl, &m, first, simple)
		}
		res.append(m)
	}
	return res
}

// checkInput returns why an input cannot be processed, or "".
func checkInput(in Input) string {
	switch {
	case in.SeamLeft.Rank < minArrayRank || in.SeamRight.Rank < minArrayRank:
		return "seam rank too low"
	case in.SeamLeft.Array.Len() == 0 || in.SeamRight.Array.Len() == 0:
		return "no seam position"
	case in.Angle.Array.Len() == 0:
		return "no angle"
	case in.LaserLine.IsEmpty() || in.LaserLine.Rank < minArrayRank:
		return "no laser line"
	case in.Lines != nil && in.Lines.empty():
		return "no sheet lines"
	}
	l, _ := in.SeamLeft.Array.First()
	r, _ := in.SeamRight.Array.First()
	if math.Abs(r-l) < MinSeamWidth {
		return "seam too narrow"
	}
	return ""
}

// rejected is the result for input that cannot be processed.
func rejected(in Input) Result {
	zero := func() scanmaster.Doublearray {
		return scanmaster.NewDoublearray(1, 0, scanmaster.RankMin)
	}
	return Result{
		Context:      in.LaserLine.Context,
		Analysis:     in.LaserLine.Analysis,
		Rank:         scanmaster.NotPresent,
		Convexity:    zero(),
		Concavity:    zero(),
		HeightDiff:   zero(),
		ConvexityPos: zero(),
		ConcavityPos: zero(),
	}
}

func externalLine(slope, intercept scanmaster.GeoDoublearray, n int) line2d.Line {
	m, _ := slope.Array.AtOrLast(n)
	b, _ := intercept.Array.AtOrLast(n)
	return line2d.New(m, b)
}

// windows places the fit windows of both sheets, clamped to the profile.
// corrected tells whether clamping moved a bound. ok is false if either
// window is too narrow for a fit.
func (e *Engine) windows(width int, seamL, seamR float64, middle int) (wl, wr linefit.Window, corrected, ok bool) {
	p := e.params
	if e.fixedROI(false) {
		wl = linefit.Window{Start: middle - FixedROIHalfWidth, End: int(0.5 + seamL - SeamMargin)}
		wr = linefit.Window{Start: int(0.5 + seamR + SeamMargin), End: middle + FixedROIHalfWidth}
	} else {
		wl = linefit.InnerPercentWindow(width, p.GetLeftLineROIStart(), p.GetLeftLineROIEnd())
		wr = linefit.InnerPercentWindow(width, p.GetRightLineROIStart(), p.GetRightLineROIEnd())
	}
	wl, cl := wl.Clamp(width)
	wr, cr := wr.Clamp(width)
	return wl, wr, cl || cr, wl.Possible() && wr.Possible()
}

// fit fits both sheet lines and, if only one side is trusted, derives the
// other side from it.
func (e *Engine) fit(profile scanmaster.Doublearray, wl, wr linefit.Window, first [2]int) (left, right line2d.Line) {
	var err error
	if left, err = linefit.FitProfile(profile, wl, false); err != nil {
		tracer().Debugf("cavvex: left fit: %v", err)
	}
	if right, err = linefit.FitProfile(profile, wr, false); err != nil {
		tracer().Debugf("cavvex: right fit: %v", err)
	}
	switch e.params.GetFitWhich() {
	case config.FitLeft:
		if l, ok := parallelAt(profile, left.Slope(), first[1]); ok {
			right = l
		}
	case config.FitRight:
		if l, ok := parallelAt(profile, right.Slope(), first[0]); ok {
			left = l
		}
	}
	return left, right
}

// parallelAt returns the line of the given slope through the mean of the
// valid profile points at seam-1..seam+1. It fails if none of them is
// valid.
func parallelAt(profile scanmaster.Doublearray, slope float64, seam int) (line2d.Line, bool) {
	var sx, sy, cnt float64
	for x := max(seam-1, 0); x <= min(seam+1, profile.Len()-1); x++ {
		h, r := profile.At(x)
		if r <= scanmaster.RankMin {
			continue
		}
		sx += float64(x)
		sy += h
		cnt++
	}
	if cnt == 0 {
		tracer().Debugf("cavvex: no valid point next to seam edge %d", seam)
		return line2d.Line{}, false
	}
	return line2d.New(slope, sy/cnt-slope*sx/cnt), true
}

// --- Measurement of one sub-line -------------------------------------------

type subLine struct {
	profile                 scanmaster.Doublearray
	ctx                     scanmaster.ImageContext
	seamL, seamR            float64
	middle                  int
	angle                   float64 // radians
	left, right             line2d.Line
	leftWindow, rightWindow linefit.Window
	windowsCorrected        bool
}

// extreme is the largest deviation found on one side.
type extreme struct {
	found bool
	value float64
	pos   float64 // offset from the seam middle
	// tracked point and its projection onto the line, both rounded
	at, foot scanmaster.Pair
	middleY  int // the line at the seam middle
}

type measurement struct {
	convex, concave extreme
	heightDiff      float64
	foundOne        bool
	foundMiddle     bool
	hdFrom, hdTo    scanmaster.Pair
}

func (e *Engine) measure(sl *subLine, simple bool) measurement {
	var m measurement
	pixels := e.usePixels(simple)
	lower, upper := sl.right, sl.left
	if sl.left.Y(sl.seamL) < sl.right.Y(sl.seamR) {
		lower, upper = sl.left, sl.right
	}
	for x := int(sl.seamL) + 1; x < int(sl.seamR); x++ {
		h, r := sl.profile.At(x)
		if r <= 0 {
			continue
		}
		m.foundOne = true
		fx := float64(x)
		if x == sl.middle {
			m.foundMiddle = true
			m.heightDiff = e.heightDiff(sl, pixels, &m)
		}
		if lower.Y(fx) > h {
			d, _ := lower.CalcDistance(fx, h)
			m.convex.consider(math.Abs(d), x, h, &lower, sl.middle)
		}
		if h > upper.Y(fx) {
			d, _ := upper.CalcDistance(fx, h)
			m.concave.consider(math.Abs(d), x, h, &upper, sl.middle)
		}
	}
	if !pixels {
		e.toWorld(sl, &m.convex)
		e.toWorld(sl, &m.concave)
	}
	if e.params.GetCalcType() != config.CalcNormal {
		m.convex.value, m.concave.value = m.concave.value, m.convex.value
		m.convex.pos, m.concave.pos = m.concave.pos, m.convex.pos
	}
	return m
}

// consider records the deviation d at pixel x if it is a new maximum. l
// holds the projection of (x,h) from the preceding CalcDistance.
func (ex *extreme) consider(d float64, x int, h float64, l *line2d.Line, middle int) {
	if d <= ex.value {
		return
	}
	fx, fy := l.LastProjection()
	*ex = extreme{
		found:   true,
		value:   d,
		pos:     float64(x - middle),
		at:      scanmaster.P(float64(x), float64(round(h))),
		foot:    scanmaster.P(float64(round(fx)), float64(round(fy))),
		middleY: round(l.Y(float64(middle))),
	}
}

func (e *Engine) heightDiff(sl *subLine, pixels bool, m *measurement) float64 {
	x := float64(sl.middle)
	yl, yr := sl.left.Y(x), sl.right.Y(x)
	m.hdFrom = scanmaster.P(x, float64(round(yl)))
	m.hdTo = scanmaster.P(x, float64(round(yr)))
	hd := yr - yl
	if !pixels {
		sign := 1.0
		if hd < 0 {
			sign = -1
		}
		hd = sign * e.zDistance(sl, scanmaster.P(x, yl), scanmaster.P(x, yr))
	}
	if e.params.GetInvertHeightDiff() {
		hd = -hd
	}
	return hd
}

// toWorld replaces the pixel measurements of a found extreme by real-world
// ones.
func (e *Engine) toWorld(sl *subLine, ex *extreme) {
	if !ex.found {
		return
	}
	ex.value = e.zDistance(sl, ex.at, ex.foot)
	off := sl.ctx.SensorOffset()
	mid := scanmaster.P(float64(sl.middle), float64(ex.middleY)) + off
	foot := ex.foot + off
	ex.pos = e.calib.DistFrom2D(mid.X(), mid.Y(), foot.X(), foot.Y())
	if foot.X() < mid.X() {
		ex.pos = -ex.pos
	}
}

// zDistance unprojects two image points and returns the length of their
// difference perpendicular to the weld plane.
func (e *Engine) zDistance(sl *subLine, p, q scanmaster.Pair) float64 {
	laser := calib.LaserLine(e.params.GetTypeOfLaserLine())
	off := sl.ctx.SensorOffset()
	px, py := (p + off).Truncated()
	qx, qy := (q + off).Truncated()
	d := e.calib.To3D(qx, qy, laser).Sub(e.calib.To3D(px, py, laser))
	return math.Abs(calib.RotateIntoWeldPlane(d, sl.angle).Z())
}

func (r *Result) append(m measurement) {
	rank := scanmaster.RankMin
	if m.foundOne {
		rank = scanmaster.RankMax
	}
	hdRank := scanmaster.RankMin
	if m.foundMiddle {
		hdRank = scanmaster.RankMax
	}
	r.Convexity.Append(m.convex.value, rank)
	r.Concavity.Append(m.concave.value, rank)
	r.ConvexityPos.Append(m.convex.pos, rank)
	r.ConcavityPos.Append(m.concave.pos, rank)
	r.HeightDiff.Append(m.heightDiff, hdRank)
}

func round(x float64) int {
	return int(x + 0.5)
}
