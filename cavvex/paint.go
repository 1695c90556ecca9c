package cavvex

import (
	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/line2d"
	"github.com/IEcheandia/scanmaster-sub004/linefit"
	"github.com/IEcheandia/scanmaster-sub004/overlay"
)

// Marker locates an extreme in image coordinates: the tracked point and its
// foot on the sheet line.
type Marker struct {
	Found    bool
	At, Foot scanmaster.Pair
}

// Diagnostics is what the overlay shows of the first sub-line of a trigger.
// A zero Diagnostics paints nothing.
type Diagnostics struct {
	Valid     bool
	Trafo     *scanmaster.Trafo
	LineWidth int
	Left      line2d.Line
	Right     line2d.Line
	FitWhich  config.FitWhich
	// fitted lines and windows are only shown if the engine fitted them
	HasWindows  bool
	LeftWindow  linefit.Window
	RightWindow linefit.Window
	Corrected   bool // windows had to be clamped to the profile
	SeamLeft    int
	SeamRight   int
	HasHeight   bool
	HeightFrom  scanmaster.Pair
	HeightTo    scanmaster.Pair
	Convex      Marker
	Concave     Marker
	Swapped     bool
}

func (e *Engine) diagnostics(sl *subLine, m *measurement, first [2]int, simple bool) Diagnostics {
	d := Diagnostics{
		Valid:     true,
		Trafo:     sl.ctx.Trafo,
		LineWidth: sl.profile.Len(),
		Left:      sl.left,
		Right:     sl.right,
		FitWhich:  e.params.GetFitWhich(),
		SeamLeft:  first[0],
		SeamRight: first[1],
		Convex:    Marker{Found: m.convex.found, At: m.convex.at, Foot: m.convex.foot},
		Concave:   Marker{Found: m.concave.found, At: m.concave.at, Foot: m.concave.foot},
		Swapped:   e.params.GetCalcType() != config.CalcNormal,
	}
	if !simple {
		d.HasWindows = true
		d.LeftWindow, d.RightWindow = sl.leftWindow, sl.rightWindow
		d.Corrected = sl.windowsCorrected
	}
	if m.foundMiddle {
		d.HasHeight = true
		d.HeightFrom, d.HeightTo = m.hdFrom, m.hdTo
	}
	return d
}

// dashLength is the length of the gaps and dashes of a synthesized line.
const dashLength = 8

// Paint draws diagnostics onto the contour layer of a canvas.
func Paint(c *overlay.Canvas, d Diagnostics) {
	if !d.Valid || d.Trafo == nil {
		return
	}
	t := d.Trafo
	on := func(l line2d.Line, x int) scanmaster.Pair {
		return scanmaster.P(float64(x), float64(round(l.Y(float64(x)))))
	}
	if d.HasWindows {
		paintSheet(c, d, d.Left, d.FitWhich != config.FitRight)
		paintSheet(c, d, d.Right, d.FitWhich != config.FitLeft)
		c.Cross(overlay.LayerContour, t, on(d.Left, d.LeftWindow.Start), 4, overlay.Green)
		c.Cross(overlay.LayerContour, t, on(d.Right, d.RightWindow.End), 4, overlay.Green)
	}
	// chevrons opening towards the seam
	sl, sr := on(d.Left, d.SeamLeft), on(d.Right, d.SeamRight)
	for _, dy := range []float64{-1, 1} {
		c.Line(overlay.LayerContour, t, sl+scanmaster.P(-1, dy), sl+scanmaster.P(-5, 5*dy), overlay.Red)
		c.Line(overlay.LayerContour, t, sr+scanmaster.P(1, dy), sr+scanmaster.P(5, 5*dy), overlay.Red)
	}
	if d.HasHeight && d.HeightFrom.X()*d.HeightFrom.Y()*d.HeightTo.X()*d.HeightTo.Y() != 0 {
		c.Arrow(overlay.LayerContour, t, d.HeightFrom, d.HeightTo, overlay.Blue)
		c.Arrow(overlay.LayerContour, t, d.HeightTo, d.HeightFrom, overlay.Blue)
	}
	vex, cav := overlay.Green, overlay.Red
	if d.Swapped {
		vex, cav = cav, vex
	}
	paintMarker(c, t, d.Convex, vex)
	paintMarker(c, t, d.Concave, cav)
}

// paintSheet draws a sheet line across the profile, solid if it was fitted
// and dashed if it was derived from the other side.
func paintSheet(c *overlay.Canvas, d Diagnostics, l line2d.Line, fitted bool) {
	at := func(x int) scanmaster.Pair {
		return scanmaster.P(float64(x), float64(round(l.Y(float64(x)))))
	}
	if fitted {
		c.Line(overlay.LayerContour, d.Trafo, at(0), at(d.LineWidth), overlay.Red)
		return
	}
	for x := dashLength; x < d.LineWidth; x += 2 * dashLength {
		end := min(x+dashLength-1, d.LineWidth-1)
		c.DottedLine(overlay.LayerContour, d.Trafo, at(x), at(end), overlay.Red)
	}
}

func paintMarker(c *overlay.Canvas, t *scanmaster.Trafo, m Marker, col overlay.Color) {
	if !m.Found {
		return
	}
	c.Cross(overlay.LayerContour, t, m.At, 4, col)
	c.Cross(overlay.LayerContour, t, m.Foot, 4, col)
	c.Line(overlay.LayerContour, t, m.At, m.Foot, col)
}
