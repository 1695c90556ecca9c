// Package line2d is a minimal straight-line type for laser-line geometry:
// slope/intercept lines, perpendicular distances and intersections.
//
// Degenerate situations never produce an error. Lines through two identical
// points are invalid, lines through two points with the same x are vertical,
// and queries on such lines return documented sentinel values. Callers that
// need to tell a sentinel from a real result use the Value-returning
// variants (At, OrthoSlopeValue, IntersectionValue).
package line2d

import (
	"fmt"
	"math"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'scanmaster.line2d'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.line2d")
}

// Epsilon is the tolerance below which coordinate deltas and slope
// differences count as zero.
const Epsilon = 1e-6

// BigSlope is the sentinel slope of vertical lines and the ortho slope of
// horizontal ones.
const BigSlope = 1000000.0

// Line is a 2D line y = slope·x + yIntercept.
// Vertical lines carry their x-value in yIntercept and BigSlope as slope.
type Line struct {
	slope      float64
	yIntercept float64
	vertical   bool
	valid      bool
	// intersection of the last CalcDistance call
	lastX, lastY float64
}

// New creates a line from slope and y-intercept.
func New(slope, yIntercept float64) Line {
	return Line{slope: slope, yIntercept: yIntercept, valid: true}
}

// FromPointSlope creates the line through (x,y) with the given slope.
func FromPointSlope(x, y, slope float64) Line {
	return Line{slope: slope, yIntercept: y - slope*x, valid: true}
}

// FromPoints creates the line through (x1,y1) and (x2,y2).
func FromPoints(x1, y1, x2, y2 float64) Line {
	dx, dy := x2-x1, y2-y1
	if math.Abs(dx) < Epsilon && math.Abs(dy) < Epsilon {
		tracer().Debugf("zero length segment at (%g,%g)", x1, y1)
		return Line{slope: BigSlope, yIntercept: x1, vertical: true, valid: false}
	}
	if math.Abs(dx) < Epsilon {
		return Line{slope: BigSlope, yIntercept: x1, vertical: true, valid: true}
	}
	m := dy / dx
	return Line{slope: m, yIntercept: y1 - m*x1, valid: true}
}

// Slope of the line (BigSlope for vertical lines).
func (l Line) Slope() float64 { return l.slope }

// YIntercept of the line, or the x-value for vertical lines.
func (l Line) YIntercept() float64 { return l.yIntercept }

// IsVertical is true for lines parallel to the y-axis.
func (l Line) IsVertical() bool { return l.vertical }

// IsValid is false for lines built from a zero-length segment.
func (l Line) IsValid() bool { return l.valid }

func (l Line) String() string {
	switch {
	case !l.valid:
		return "line<invalid>"
	case l.vertical:
		return fmt.Sprintf("line<x=%g>", l.yIntercept)
	}
	return fmt.Sprintf("line<y=%g·x%+g>", l.slope, l.yIntercept)
}

// Y evaluates the line at x. It returns 0 for invalid or vertical lines.
func (l Line) Y(x float64) float64 {
	v, _ := l.At(x).Float()
	return v
}

// At evaluates the line at x as a tagged value.
func (l Line) At(x float64) Value {
	switch {
	case !l.valid:
		return invalid
	case l.vertical:
		return vertical
	}
	return Measured(l.slope*x + l.yIntercept)
}

// OrthoSlope is the slope of lines perpendicular to l. It returns BigSlope
// for horizontal lines and 0 for invalid or vertical ones.
func (l Line) OrthoSlope() float64 {
	v, _ := l.OrthoSlopeValue().Float()
	return v
}

// OrthoSlopeValue is OrthoSlope as a tagged value. The perpendicular of a
// horizontal line is reported as Vertical.
func (l Line) OrthoSlopeValue() Value {
	switch {
	case !l.valid:
		return invalid
	case l.vertical:
		return Measured(0)
	case l.slope == 0:
		return steep
	}
	return Measured(-1.0 / l.slope)
}

func (l Line) ortho(x, y float64) Line {
	if !l.valid {
		return Line{}
	}
	if l.vertical {
		return New(0, y)
	}
	if l.slope == 0 {
		return Line{slope: BigSlope, yIntercept: x, vertical: true, valid: true}
	}
	return FromPointSlope(x, y, -1.0/l.slope)
}

// CalcDistance drops a perpendicular from (x,y) onto l and returns the
// distance to its foot together with the foot's x-position. The foot is also
// remembered, see LastProjection. Invalid lines yield (0, 0).
func (l *Line) CalcDistance(x, y float64) (dist float64, xOnLine float64) {
	if !l.valid {
		return 0, 0
	}
	perp := l.ortho(x, y)
	var fx, fy float64
	switch {
	case l.vertical:
		fx, fy = l.yIntercept, y
	case perp.vertical:
		fx, fy = x, l.Y(x)
	default:
		fx = l.IntersectionX(perp)
		fy = l.Y(fx)
	}
	l.lastX, l.lastY = fx, fy
	return math.Hypot(x-fx, y-fy), fx
}

// LastProjection returns the foot of the perpendicular computed by the last
// CalcDistance call.
func (l Line) LastProjection() (x, y float64) {
	return l.lastX, l.lastY
}

// IntersectionX returns the x-position where l meets o. It returns 0 if
// either line is invalid or the lines are (nearly) parallel; a vertical
// line contributes its x-value.
func (l Line) IntersectionX(o Line) float64 {
	v, _ := l.IntersectionValue(o).Float()
	return v
}

// IntersectionValue is IntersectionX as a tagged value. Parallel lines
// report Parallel.
func (l Line) IntersectionValue(o Line) Value {
	switch {
	case !l.valid || !o.valid:
		return invalid
	case l.vertical && o.vertical:
		return parallel
	case l.vertical:
		return Measured(l.yIntercept)
	case o.vertical:
		return Measured(o.yIntercept)
	case math.Abs(l.slope-o.slope) < Epsilon:
		return parallel
	}
	return Measured((o.yIntercept - l.yIntercept) / (l.slope - o.slope))
}
