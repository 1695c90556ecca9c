package cavvex

import (
	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/calib"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/overlay"
	"github.com/IEcheandia/scanmaster-sub004/pipe"
)

// Well-known filter and connector ids.
const (
	CavvexID       = "2964BA3D-4D30-4EB9-848C-56FF31228837"
	CavvexSimpleID = "792D79B4-E8FD-4BAB-B7E7-B41FA122686E"

	laserLineID      = "04236BBE-E5EA-49D7-9088-3A4E0A0F8D5A"
	seamLeftID       = "86BD7A56-739F-4943-8643-2AFC4683EEA6"
	seamRightID      = "A3C99679-D8C0-488D-B724-371CC8DD6C9F"
	angleID          = "2EE682D4-4455-4D73-B39D-386F365FEC3B"
	simpleLaserID    = "80A4EB8D-F038-47BA-9352-E284EFC03D47"
	simpleSeamLID    = "21FBFED1-D848-4F90-A104-C85ED414EAC1"
	simpleSeamRID    = "30538DAC-65BB-4F85-8CF5-C78262BBAE0F"
	simpleAngleID    = "7B76D4CD-401D-44B9-9B10-73B11AB9FB3F"
	leftSlopeID      = "97A730E2-22F6-4073-B0AB-90BE5336431E"
	leftInterceptID  = "5C196743-0ACA-433C-B89E-6B09E0ADB02D"
	rightSlopeID     = "082AB8C9-B3DE-432F-8290-CB247CFF7DA2"
	rightInterceptID = "8E433EE0-A849-4FF0-8405-AACD61F4E8E1"
)

type geoIn = pipe.In[scanmaster.GeoDoublearray]
type geoOut = pipe.Pipe[scanmaster.GeoDoublearray]

// seamInputs are the inputs shared by both filters.
type seamInputs struct {
	LaserLine *pipe.In[scanmaster.GeoVecDoublearray]
	SeamLeft  *geoIn
	SeamRight *geoIn
	Angle     *geoIn
}

func (s seamInputs) read() (Input, error) {
	var in Input
	var err error
	if in.LaserLine, err = s.LaserLine.Read(); err != nil {
		return in, err
	}
	if in.SeamLeft, err = s.SeamLeft.Read(); err != nil {
		return in, err
	}
	if in.SeamRight, err = s.SeamRight.Read(); err != nil {
		return in, err
	}
	in.Angle, err = s.Angle.Read()
	return in, err
}

func (s seamInputs) join(g *pipe.Group) error {
	if err := pipe.Join(g, s.LaserLine); err != nil {
		return err
	}
	for _, in := range []*geoIn{s.SeamLeft, s.SeamRight, s.Angle} {
		if err := pipe.Join(g, in); err != nil {
			return err
		}
	}
	return nil
}

func wrap(r *Result, a scanmaster.Doublearray) scanmaster.GeoDoublearray {
	return scanmaster.GeoDoublearray{
		Context:  r.Context,
		Array:    a,
		Analysis: r.Analysis,
		Rank:     r.Rank,
	}
}

// --- Cavvex ----------------------------------------------------------------

// Cavvex fits the sheet lines itself and publishes convexity, concavity
// and height difference per sub-line.
type Cavvex struct {
	pipe.Base
	seamInputs
	Convexity  *geoOut
	Concavity  *geoOut
	HeightDiff *geoOut
	engine     *Engine
	paint      Diagnostics
}

// NewCavvex creates a Cavvex filter with default parameters. c may be nil
// if only pixel results are wanted.
func NewCavvex(name string, c calib.Calibration) *Cavvex {
	return &Cavvex{
		Base: pipe.NewBase(name, CavvexID),
		seamInputs: seamInputs{
			LaserLine: pipe.NewIn[scanmaster.GeoVecDoublearray]("LaserLine", laserLineID, false),
			SeamLeft:  pipe.NewIn[scanmaster.GeoDoublearray]("SeamLeft", seamLeftID, false),
			SeamRight: pipe.NewIn[scanmaster.GeoDoublearray]("SeamRight", seamRightID, false),
			Angle:     pipe.NewIn[scanmaster.GeoDoublearray]("Angle", angleID, false),
		},
		Convexity:  pipe.NewPipe[scanmaster.GeoDoublearray]("ConvexityOut"),
		Concavity:  pipe.NewPipe[scanmaster.GeoDoublearray]("ConcavityOut"),
		HeightDiff: pipe.NewPipe[scanmaster.GeoDoublearray]("HeightDifferenceOut"),
		engine:     NewEngine(nil, c),
	}
}

// SetParameter replaces the parameter set.
func (f *Cavvex) SetParameter(p *config.CavvexParams) {
	f.engine.SetParameter(p)
}

// Group joins all inputs into a group proceeding the filter. The inputs
// have to be connected.
func (f *Cavvex) Group() (*pipe.Group, error) {
	g := pipe.NewGroup(f.Proceed)
	return g, f.join(g)
}

// Arm is part of interface pipe.Filter.
func (f *Cavvex) Arm(state pipe.ArmState) {
	if state == pipe.SeamStart {
		f.paint = Diagnostics{}
		f.ResetCounter()
	}
}

// Proceed measures the current trigger.
func (f *Cavvex) Proceed() {
	in, err := f.read()
	if err != nil {
		tracer().Errorf("%s: %v", f.Name(), err)
	}
	r := f.engine.Run(in)
	f.paint = r.Diagnostics
	f.PreSignal()
	f.Convexity.Signal(wrap(&r, r.Convexity))
	f.Concavity.Signal(wrap(&r, r.Concavity))
	f.HeightDiff.Signal(wrap(&r, r.HeightDiff))
}

// Paint draws the fit and the extremes of the last trigger.
func (f *Cavvex) Paint(c *overlay.Canvas) {
	Paint(c, f.paint)
}

var _ pipe.Filter = (*Cavvex)(nil)

// --- CavvexSimple ----------------------------------------------------------

// CavvexSimple measures against sheet lines fitted elsewhere and also
// publishes the positions of the extremes relative to the seam middle.
type CavvexSimple struct {
	pipe.Base
	seamInputs
	LeftSlope      *geoIn
	LeftIntercept  *geoIn
	RightSlope     *geoIn
	RightIntercept *geoIn
	Convexity      *geoOut
	ConvexityPos   *geoOut
	Concavity      *geoOut
	ConcavityPos   *geoOut
	HeightDiff     *geoOut
	engine         *Engine
	paint          Diagnostics
}

// NewCavvexSimple creates a CavvexSimple filter with default parameters.
func NewCavvexSimple(name string, c calib.Calibration) *CavvexSimple {
	return &CavvexSimple{
		Base: pipe.NewBase(name, CavvexSimpleID),
		seamInputs: seamInputs{
			LaserLine: pipe.NewIn[scanmaster.GeoVecDoublearray]("LaserLine", simpleLaserID, false),
			SeamLeft:  pipe.NewIn[scanmaster.GeoDoublearray]("SeamLeft", simpleSeamLID, false),
			SeamRight: pipe.NewIn[scanmaster.GeoDoublearray]("SeamRight", simpleSeamRID, false),
			Angle:     pipe.NewIn[scanmaster.GeoDoublearray]("Angle", simpleAngleID, false),
		},
		LeftSlope:      pipe.NewIn[scanmaster.GeoDoublearray]("LeftSlope", leftSlopeID, false),
		LeftIntercept:  pipe.NewIn[scanmaster.GeoDoublearray]("LeftYIntercept", leftInterceptID, false),
		RightSlope:     pipe.NewIn[scanmaster.GeoDoublearray]("RightSlope", rightSlopeID, false),
		RightIntercept: pipe.NewIn[scanmaster.GeoDoublearray]("RightYIntercept", rightInterceptID, false),
		Convexity:      pipe.NewPipe[scanmaster.GeoDoublearray]("ConvexityOut"),
		ConvexityPos:   pipe.NewPipe[scanmaster.GeoDoublearray]("ConvexityPosX_Out"),
		Concavity:      pipe.NewPipe[scanmaster.GeoDoublearray]("ConcavityOut"),
		ConcavityPos:   pipe.NewPipe[scanmaster.GeoDoublearray]("ConcavityPosX_Out"),
		HeightDiff:     pipe.NewPipe[scanmaster.GeoDoublearray]("HeightDifferenceOut"),
		engine:         NewEngine(nil, c),
	}
}

// SetParameter replaces the parameter set. Only Mode (pixels if 1),
// CalcType, InvertHeightDiff and TypeOfLaserLine are used.
func (f *CavvexSimple) SetParameter(p *config.CavvexParams) {
	f.engine.SetParameter(p)
}

// Group joins all inputs into a group proceeding the filter.
func (f *CavvexSimple) Group() (*pipe.Group, error) {
	g := pipe.NewGroup(f.Proceed)
	if err := f.join(g); err != nil {
		return g, err
	}
	for _, in := range []*geoIn{f.LeftSlope, f.LeftIntercept, f.RightSlope, f.RightIntercept} {
		if err := pipe.Join(g, in); err != nil {
			return g, err
		}
	}
	return g, nil
}

// Arm is part of interface pipe.Filter.
func (f *CavvexSimple) Arm(state pipe.ArmState) {
	if state == pipe.SeamStart {
		f.paint = Diagnostics{}
		f.ResetCounter()
	}
}

// Proceed measures the current trigger.
func (f *CavvexSimple) Proceed() {
	in, err := f.read()
	if err == nil {
		in.Lines, err = f.readLines()
	}
	if err != nil {
		tracer().Errorf("%s: %v", f.Name(), err)
		in.Lines = &Lines{}
	}
	r := f.engine.Run(in)
	f.paint = r.Diagnostics
	f.PreSignal()
	f.Convexity.Signal(wrap(&r, r.Convexity))
	f.ConvexityPos.Signal(wrap(&r, r.ConvexityPos))
	f.Concavity.Signal(wrap(&r, r.Concavity))
	f.ConcavityPos.Signal(wrap(&r, r.ConcavityPos))
	f.HeightDiff.Signal(wrap(&r, r.HeightDiff))
}

func (f *CavvexSimple) readLines() (*Lines, error) {
	var l Lines
	var err error
	if l.LeftSlope, err = f.LeftSlope.Read(); err != nil {
		return nil, err
	}
	if l.LeftIntercept, err = f.LeftIntercept.Read(); err != nil {
		return nil, err
	}
	if l.RightSlope, err = f.RightSlope.Read(); err != nil {
		return nil, err
	}
	if l.RightIntercept, err = f.RightIntercept.Read(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Paint draws the seam edges, the height difference and the extremes of
// the last trigger.
func (f *CavvexSimple) Paint(c *overlay.Canvas) {
	Paint(c, f.paint)
}

var _ pipe.Filter = (*CavvexSimple)(nil)
