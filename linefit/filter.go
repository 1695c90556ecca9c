package linefit

import (
	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/line2d"
	"github.com/IEcheandia/scanmaster-sub004/overlay"
	"github.com/IEcheandia/scanmaster-sub004/pipe"
)

// LineFit fits one line per sub-line of a laser line and publishes slope,
// y-intercept and the RMS fit error.
type LineFit struct {
	pipe.Base
	LaserLine  *pipe.In[scanmaster.GeoVecDoublearray]
	Slope      *pipe.Pipe[scanmaster.GeoDoublearray]
	YIntercept *pipe.Pipe[scanmaster.GeoDoublearray]
	Error      *pipe.Pipe[scanmaster.GeoDoublearray]
	params     *config.LineFitParams
	paint      paintState
}

// paintState keeps the first sub-line's fit for the overlay.
type paintState struct {
	valid     bool
	trafo     *scanmaster.Trafo
	lineWidth int
	window    Window
	line      line2d.Line
}

// NewLineFit creates a line fit filter with default parameters.
func NewLineFit(name string) *LineFit {
	return &LineFit{
		Base:       pipe.NewBase(name, ""),
		LaserLine:  pipe.NewIn[scanmaster.GeoVecDoublearray]("LaserLine", "", false),
		Slope:      pipe.NewPipe[scanmaster.GeoDoublearray]("Slope"),
		YIntercept: pipe.NewPipe[scanmaster.GeoDoublearray]("YIntercept"),
		Error:      pipe.NewPipe[scanmaster.GeoDoublearray]("Error"),
		params:     &config.LineFitParams{},
	}
}

// SetParameter replaces the parameter set.
func (f *LineFit) SetParameter(p *config.LineFitParams) {
	if p == nil {
		p = &config.LineFitParams{}
	}
	f.params = p
}

// Arm is part of interface pipe.Filter.
func (f *LineFit) Arm(state pipe.ArmState) {
	if state == pipe.SeamStart {
		f.paint = paintState{}
		f.ResetCounter()
	}
}

// Proceed fits the current laser line.
func (f *LineFit) Proceed() {
	in, err := f.LaserLine.Read()
	if err != nil || in.IsEmpty() {
		if err != nil {
			tracer().Errorf("%s: %v", f.Name(), err)
		}
		f.paint.valid = false
		zero := scanmaster.GeoDoublearray{
			Context:  in.Context,
			Array:    scanmaster.NewDoublearray(1, 0, scanmaster.RankMin),
			Analysis: in.Analysis,
			Rank:     scanmaster.NotPresent,
		}
		f.signal(zero, zero, zero)
		return
	}
	roiStart, roiEnd := f.params.GetROIStart(), f.params.GetROIEnd()
	if roiStart == 0 {
		roiStart = 1
	}
	if roiEnd == 100 {
		roiEnd = 99
	}
	var slopes, intercepts, errs scanmaster.Doublearray
	for n, profile := range in.Lines {
		w := PercentWindow(profile.Len(), roiStart, roiEnd)
		line, rank := line2d.New(0, 0), scanmaster.RankMin
		if w.Start < w.End && w.Start >= 0 && w.End <= profile.Len() {
			// an underdetermined fit still yields y=0 with full rank
			line, _ = FitProfile(profile, w, f.params.GetHorizontalMean())
			rank = scanmaster.RankMax
		}
		slopes.Append(line.Slope(), rank)
		intercepts.Append(line.YIntercept(), rank)
		e := -1.0
		if rank > 0 {
			e = RMSError(profile, w, line)
		}
		if e >= 0 {
			errs.Append(e, scanmaster.RankMax)
		} else {
			errs.Append(e, scanmaster.RankMin)
		}
		if n == 0 {
			f.paint = paintState{
				valid:     true,
				trafo:     in.Context.Trafo,
				lineWidth: profile.Len(),
				window:    w,
				line:      line,
			}
		}
	}
	wrap := func(a scanmaster.Doublearray) scanmaster.GeoDoublearray {
		return scanmaster.GeoDoublearray{
			Context:  in.Context,
			Array:    a,
			Analysis: in.Analysis,
			Rank:     scanmaster.Valid,
		}
	}
	f.signal(wrap(slopes), wrap(intercepts), wrap(errs))
}

func (f *LineFit) signal(slope, intercept, fitErr scanmaster.GeoDoublearray) {
	f.PreSignal()
	f.Slope.Signal(slope)
	f.YIntercept.Signal(intercept)
	f.Error.Signal(fitErr)
}

// Paint draws the first sub-line's fit: the line across the profile and
// crosses at the window bounds.
func (f *LineFit) Paint(c *overlay.Canvas) {
	ps := f.paint
	if !ps.valid || ps.trafo == nil {
		return
	}
	at := func(x int) scanmaster.Pair {
		return scanmaster.P(float64(x), float64(scanmaster.RoundHalfUp(ps.line.Y(float64(x)))))
	}
	c.Line(overlay.LayerContour, ps.trafo, at(0), at(ps.lineWidth), overlay.Red)
	c.Cross(overlay.LayerContour, ps.trafo, at(ps.window.Start), 4, overlay.Green)
	c.Cross(overlay.LayerContour, ps.trafo, at(ps.window.End), 4, overlay.Green)
}

var _ pipe.Filter = (*LineFit)(nil)
