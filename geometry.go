/*
Package scanmaster implements points, frame transformations and ranked
measurement arrays shared by the laser-line filters.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package scanmaster

import (
	"fmt"
	"math"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'scanmaster'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster")
}

// === Numeric Data Type =====================================================

// Deg2Rad is a constant for converting from DEG to RAD or vice versa
var Deg2Rad float64 = math.Pi / 180.0

// RoundHalfUp rounds the way pixel positions are rounded throughout the
// filters: add 0.5 and truncate towards zero.
func RoundHalfUp(x float64) int {
	return int(x + 0.5)
}

// === Pair Data Type ========================================================

// Pair is a 2D point in pixel coordinates.
type Pair complex128

// Pretty Stringer for simple pairs.
func (p Pair) String() string {
	return fmt.Sprintf("(%g,%g)", real(p), imag(p))
}

// P is a quick notation for contructing a pair from floats.
func P(x, y float64) Pair {
	return Pair(complex(x, y))
}

// X is the x-part of a pair.
func (p Pair) X() float64 {
	return real(p)
}

// Y is the y-part of a pair.
func (p Pair) Y() float64 {
	return imag(p)
}

// Truncated drops the fractional parts, the way sensor coordinates are
// handed to the calibration.
func (p Pair) Truncated() (int, int) {
	return int(p.X()), int(p.Y())
}

// === Frame Transformations =================================================

// Trafo converts ROI-local pixel coordinates into image coordinates by
// translating them with the origin of the ROI.
type Trafo struct {
	dx int
	dy int
}

// NewTrafo creates a frame transform with origin (dx,dy).
func NewTrafo(dx, dy int) *Trafo {
	return &Trafo{dx: dx, dy: dy}
}

// Dx is the x-offset of the frame origin.
func (t *Trafo) Dx() int {
	if t == nil {
		return 0
	}
	return t.dx
}

// Dy is the y-offset of the frame origin.
func (t *Trafo) Dy() int {
	if t == nil {
		return 0
	}
	return t.dy
}

// Offset returns the frame origin as a pair.
func (t *Trafo) Offset() Pair {
	return P(float64(t.Dx()), float64(t.Dy()))
}

// Apply maps a ROI-local point into image coordinates.
// A nil transform is the identity.
func (t *Trafo) Apply(p Pair) Pair {
	return p + t.Offset()
}

func (t *Trafo) String() string {
	if t == nil {
		return "trafo<nil>"
	}
	return fmt.Sprintf("trafo(%d,%d)", t.dx, t.dy)
}
