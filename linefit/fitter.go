/*
Package linefit fits straight lines to laser-line profiles.

A Fitter accumulates points and solves the ordinary least-squares problem.
Window describes the x-range of a profile a fit runs over. LineFit is a
filter fitting one line per sub-line of a laser line.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package linefit

import (
	"errors"
	"fmt"
	"math"

	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/line2d"
	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// tracer writes to trace with key 'scanmaster.linefit'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.linefit")
}

// ErrTooFewPoints is returned when a fit is underdetermined.
var ErrTooFewPoints = errors.New("too few points for a line fit")

// Fitter accumulates points for a least-squares line fit.
type Fitter struct {
	xs, ys []float64
}

// Add a point.
func (f *Fitter) Add(x, y float64) {
	f.xs = append(f.xs, x)
	f.ys = append(f.ys, y)
}

// Len is the number of points added.
func (f *Fitter) Len() int {
	return len(f.xs)
}

// Reset drops all points.
func (f *Fitter) Reset() {
	f.xs = f.xs[:0]
	f.ys = f.ys[:0]
}

// MB returns slope m and intercept b of the least-squares line through the
// points. With fewer than two points, or all points at the same x, it
// returns (0, 0) and ErrTooFewPoints.
func (f *Fitter) MB() (m, b float64, err error) {
	if len(f.xs) < 2 {
		return 0, 0, fmt.Errorf("%w: %d points", ErrTooFewPoints, len(f.xs))
	}
	if floats.Max(f.xs)-floats.Min(f.xs) == 0 {
		return 0, 0, fmt.Errorf("%w: no spread in x", ErrTooFewPoints)
	}
	b, m = stat.LinearRegression(f.xs, f.ys, nil, false)
	return m, b, nil
}

// MeanY returns the horizontal line through the mean height of the points.
func (f *Fitter) MeanY() (m, b float64, err error) {
	if len(f.ys) == 0 {
		return 0, 0, fmt.Errorf("%w: no points", ErrTooFewPoints)
	}
	return 0, stat.Mean(f.ys, nil), nil
}

// FitProfile fits a line to the samples of a profile inside window w.
// Samples take part if their rank is positive and their height, truncated
// to whole pixels, is positive; the truncated height is used. A failed fit
// yields the line y=0 together with the error.
func FitProfile(profile scanmaster.Doublearray, w Window, horizontal bool) (line2d.Line, error) {
	var f Fitter
	for x := max(w.Start, 0); x < w.End && x < profile.Len(); x++ {
		h, r := profile.At(x)
		y := int(h)
		if y <= 0 || r <= 0 {
			continue
		}
		f.Add(float64(x), float64(y))
	}
	var m, b float64
	var err error
	if horizontal {
		m, b, err = f.MeanY()
	} else {
		m, b, err = f.MB()
	}
	if err != nil {
		tracer().Debugf("fit over %s failed: %v", w, err)
	}
	return line2d.New(m, b), err
}

// RMSError is the root mean square perpendicular distance of the ranked
// samples in window w from line l. It returns -1 if the window is outside
// the profile or holds no ranked sample.
func RMSError(profile scanmaster.Doublearray, w Window, l line2d.Line) float64 {
	if w.Start >= w.End || w.Start < 0 || w.End > profile.Len() {
		return -1
	}
	var d2 []float64
	for x := w.Start; x < w.End; x++ {
		h, r := profile.At(x)
		if r == 0 {
			continue
		}
		d, _ := l.CalcDistance(float64(x), h)
		d2 = append(d2, d*d)
	}
	if len(d2) == 0 {
		return -1
	}
	return math.Sqrt(stat.Mean(d2, nil))
}
