// Package config holds the parameter sets of the filters.
//
// Every parameter is optional. A nil field means "use the default", and the
// Get* accessors resolve defaults, so a partial JSON object configures a
// filter safely. JSON keys are the parameter names the host uses.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter flags a parameter value outside its domain.
var ErrInvalidParameter = errors.New("invalid parameter")

func ptrInt(v int) *int    { return &v }
func ptrBool(v bool) *bool { return &v }

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func invalid(name string, v int, domain string) error {
	return fmt.Errorf("%w: %s=%d, must be %s", ErrInvalidParameter, name, v, domain)
}

func checkRange(name string, p *int, lo, hi int) error {
	if p != nil && (*p < lo || *p > hi) {
		return invalid(name, *p, fmt.Sprintf("in [%d,%d]", lo, hi))
	}
	return nil
}

// --- Cavvex ----------------------------------------------------------------

// CalcType selects whether convexity and concavity are reported as
// measured or swapped.
type CalcType int

// Calculation types.
const (
	CalcNormal CalcType = iota
	CalcSwapped
)

// FitWhich selects which side's line fit is trusted.
type FitWhich int

// Fit selection. With FitLeft the right line reuses the left slope and is
// anchored at the right seam edge, FitRight mirrors this.
const (
	FitBoth FitWhich = iota
	FitLeft
	FitRight
)

func (f FitWhich) String() string {
	switch f {
	case FitBoth:
		return "both"
	case FitLeft:
		return "left"
	case FitRight:
		return "right"
	}
	return fmt.Sprintf("FitWhich(%d)", int(f))
}

// CavvexParams configures the convexity/concavity filters.
//
// Mode 1 and 11 report pixels instead of millimetres, mode 10 and 11 place
// the fit windows at a fixed distance from the seam instead of at
// percentages of the line width. The simple variant only knows mode 1.
type CavvexParams struct {
	Mode              *int  `json:"Mode,omitempty"`
	CalcType          *int  `json:"CalcType,omitempty"`
	LeftLineROIStart  *int  `json:"LeftLineROIStart,omitempty"`
	LeftLineROIEnd    *int  `json:"LeftLineROIEnd,omitempty"`
	RightLineROIStart *int  `json:"RightLineROIStart,omitempty"`
	RightLineROIEnd   *int  `json:"RightLineROIEnd,omitempty"`
	FitWhich          *int  `json:"FitWhich,omitempty"`
	InvertHeightDiff  *bool `json:"InvertHeightDiff,omitempty"`
	TypeOfLaserLine   *int  `json:"TypeOfLaserLine,omitempty"`
}

// DefaultCavvexParams returns a parameter set with every default filled in.
func DefaultCavvexParams() *CavvexParams {
	return &CavvexParams{
		Mode:              ptrInt(0),
		CalcType:          ptrInt(int(CalcNormal)),
		LeftLineROIStart:  ptrInt(10),
		LeftLineROIEnd:    ptrInt(20),
		RightLineROIStart: ptrInt(80),
		RightLineROIEnd:   ptrInt(90),
		FitWhich:          ptrInt(int(FitBoth)),
		InvertHeightDiff:  ptrBool(false),
		TypeOfLaserLine:   ptrInt(1),
	}
}

func (c *CavvexParams) GetMode() int { return getInt(c.Mode, 0) }
func (c *CavvexParams) GetCalcType() CalcType { return CalcType(getInt(c.CalcType, 0)) }
func (c *CavvexParams) GetLeftLineROIStart() int { return getInt(c.LeftLineROIStart, 10) }
func (c *CavvexParams) GetLeftLineROIEnd() int { return getInt(c.LeftLineROIEnd, 20) }
func (c *CavvexParams) GetRightLineROIStart() int { return getInt(c.RightLineROIStart, 80) }
func (c *CavvexParams) GetRightLineROIEnd() int { return getInt(c.RightLineROIEnd, 90) }
func (c *CavvexParams) GetFitWhich() FitWhich { return FitWhich(getInt(c.FitWhich, 0)) }
func (c *CavvexParams) GetInvertHeightDiff() bool { return getBool(c.InvertHeightDiff, false) }
func (c *CavvexParams) GetTypeOfLaserLine() int { return getInt(c.TypeOfLaserLine, 1) }

// Validate checks that the configured values are in range.
func (c *CavvexParams) Validate() error {
	for _, r := range []struct {
		name   string
		p      *int
		lo, hi int
	}{
		{"CalcType", c.CalcType, 0, 1},
		{"LeftLineROIStart", c.LeftLineROIStart, 0, 100},
		{"LeftLineROIEnd", c.LeftLineROIEnd, 0, 100},
		{"RightLineROIStart", c.RightLineROIStart, 0, 100},
		{"RightLineROIEnd", c.RightLineROIEnd, 0, 100},
		{"FitWhich", c.FitWhich, 0, 2},
		{"TypeOfLaserLine", c.TypeOfLaserLine, 0, 2},
	} {
		if err := checkRange(r.name, r.p, r.lo, r.hi); err != nil {
			return err
		}
	}
	if c.Mode != nil && *c.Mode < 0 {
		return invalid("Mode", *c.Mode, "non-negative")
	}
	if c.GetLeftLineROIStart() >= c.GetLeftLineROIEnd() {
		return fmt.Errorf("%w: left ROI [%d,%d] is empty", ErrInvalidParameter,
			c.GetLeftLineROIStart(), c.GetLeftLineROIEnd())
	}
	if c.GetRightLineROIStart() >= c.GetRightLineROIEnd() {
		return fmt.Errorf("%w: right ROI [%d,%d] is empty", ErrInvalidParameter,
			c.GetRightLineROIStart(), c.GetRightLineROIEnd())
	}
	return nil
}

// --- Buffer recorder and player --------------------------------------------

// BufferParams configures buffer recorders and players. Recorders only use
// Slot.
type BufferParams struct {
	Slot             *int `json:"Slot,omitempty"`
	DataOffset       *int `json:"DataOffset,omitempty"` // µm added to the query position
	SeamOffset       *int `json:"SeamOffset,omitempty"`
	SeamSeriesOffset *int `json:"SeamSeriesOffset,omitempty"`
}

func (b *BufferParams) GetSlot() int { return getInt(b.Slot, 1) }
func (b *BufferParams) GetDataOffset() int { return getInt(b.DataOffset, 0) }
func (b *BufferParams) GetSeamOffset() int { return getInt(b.SeamOffset, 0) }
func (b *BufferParams) GetSeamSeriesOffset() int { return getInt(b.SeamSeriesOffset, 0) }

// Validate checks that the configured values are in range.
func (b *BufferParams) Validate() error {
	if b.Slot != nil && *b.Slot < 0 {
		return invalid("Slot", *b.Slot, "non-negative")
	}
	return nil
}

// --- Ring buffer recorder --------------------------------------------------

// RingBufferParams configures the ring buffer recorder.
//
// Mode selects the final low-pass: 0 mean, 1 median, 2 median then mean.
// Modes 10, 11 and 12 do the same after first trimming and bridging pockets
// of invalid samples. Width and WidthMedian are window widths in degrees of
// one revolution of Ticks encoder ticks.
type RingBufferParams struct {
	Slot        *int `json:"Slot,omitempty"`
	Mode        *int `json:"Mode,omitempty"`
	Ticks       *int `json:"Ticks,omitempty"`
	Width       *int `json:"Width,omitempty"`
	WidthMedian *int `json:"WidthMedian,omitempty"`
}

func (r *RingBufferParams) GetSlot() int { return getInt(r.Slot, 1) }
func (r *RingBufferParams) GetMode() int { return getInt(r.Mode, 0) }
func (r *RingBufferParams) GetTicks() int { return getInt(r.Ticks, 360) }
func (r *RingBufferParams) GetWidth() int { return getInt(r.Width, 5) }
func (r *RingBufferParams) GetWidthMedian() int { return getInt(r.WidthMedian, 5) }

// Validate checks that the configured values are in range.
func (r *RingBufferParams) Validate() error {
	switch r.GetMode() {
	case 0, 1, 2, 10, 11, 12:
	default:
		return invalid("Mode", r.GetMode(), "one of 0,1,2,10,11,12")
	}
	if r.GetTicks() <= 0 {
		return invalid("Ticks", r.GetTicks(), "positive")
	}
	if err := checkRange("Width", r.Width, 0, 360); err != nil {
		return err
	}
	if err := checkRange("WidthMedian", r.WidthMedian, 0, 360); err != nil {
		return err
	}
	if r.Slot != nil && *r.Slot < 0 {
		return invalid("Slot", *r.Slot, "non-negative")
	}
	return nil
}

// --- Line fit --------------------------------------------------------------

// LineFitParams configures the line fit filter. The ROI is given in
// percent of the line width.
type LineFitParams struct {
	ROIStart       *int  `json:"ROIStart,omitempty"`
	ROIEnd         *int  `json:"ROIEnd,omitempty"`
	HorizontalMean *bool `json:"HorizontalMean,omitempty"`
}

func (l *LineFitParams) GetROIStart() int { return getInt(l.ROIStart, 10) }
func (l *LineFitParams) GetROIEnd() int { return getInt(l.ROIEnd, 90) }
func (l *LineFitParams) GetHorizontalMean() bool { return getBool(l.HorizontalMean, false) }

// Validate checks that the configured values are in range.
func (l *LineFitParams) Validate() error {
	if err := checkRange("ROIStart", l.ROIStart, 0, 100); err != nil {
		return err
	}
	if err := checkRange("ROIEnd", l.ROIEnd, 0, 100); err != nil {
		return err
	}
	if l.GetROIStart() >= l.GetROIEnd() {
		return fmt.Errorf("%w: ROI [%d,%d] is empty", ErrInvalidParameter,
			l.GetROIStart(), l.GetROIEnd())
	}
	return nil
}
