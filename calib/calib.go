/*
Package calib maps sensor pixels onto laser-plane coordinates in millimetres.

The filters only need two services of a calibration: unprojecting a sensor
pixel into a 3D point on one of the laser planes, and the real-world length
between two pixels. PlaneCalibration is a linear implementation of both,
sufficient for scheimpflug-free set-ups and for tests. Hosts with a full
camera model supply their own Calibration.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package calib

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'scanmaster.calib'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.calib")
}

// LaserLine selects one of the laser planes of a sensor.
type LaserLine int

// Laser planes of a three-line sensor. Behind is the trailing line, which
// is where the weld bead is inspected.
const (
	FrontLaserLine LaserLine = iota
	BehindLaserLine
	CenterLaserLine
)

func (l LaserLine) String() string {
	switch l {
	case FrontLaserLine:
		return "front"
	case BehindLaserLine:
		return "behind"
	case CenterLaserLine:
		return "center"
	}
	return fmt.Sprintf("laserline(%d)", int(l))
}

// Calibration unprojects sensor pixels. Implementations must be pure: the
// same input yields the same output and nothing is mutated.
type Calibration interface {
	// To3D returns the point on the selected laser plane seen at sensor
	// pixel (x,y).
	To3D(x, y int, laser LaserLine) mgl64.Vec3
	// DistFrom2D is the real-world distance between two sensor pixels.
	DistFrom2D(x1, y1, x2, y2 float64) float64
}

// RotateIntoWeldPlane turns a calibrated vector by angle (radians) around
// the x-axis, so that Z afterwards is perpendicular to the weld plane.
func RotateIntoWeldPlane(v mgl64.Vec3, angle float64) mgl64.Vec3 {
	return mgl64.Rotate3DX(angle).Mul3x1(v)
}

// PlaneCalibration maps homogeneous pixels (x,y,1) through one 3x3 matrix
// per laser plane.
type PlaneCalibration struct {
	planes   map[LaserLine]mgl64.Mat3
	fallback LaserLine
}

// NewPlaneCalibration creates a calibration where every laser plane scales
// sensor x to world X by mmPerPixelX and sensor y to world Z by
// mmPerPixelZ. World Y is 0 on the plane.
func NewPlaneCalibration(mmPerPixelX, mmPerPixelZ float64) *PlaneCalibration {
	m := mgl64.Mat3FromRows(
		mgl64.Vec3{mmPerPixelX, 0, 0},
		mgl64.Vec3{0, 0, 0},
		mgl64.Vec3{0, mmPerPixelZ, 0},
	)
	pc := &PlaneCalibration{
		planes:   make(map[LaserLine]mgl64.Mat3),
		fallback: BehindLaserLine,
	}
	for _, l := range []LaserLine{FrontLaserLine, BehindLaserLine, CenterLaserLine} {
		pc.planes[l] = m
	}
	return pc
}

// SetPlane replaces the matrix of one laser plane.
func (pc *PlaneCalibration) SetPlane(laser LaserLine, m mgl64.Mat3) {
	pc.planes[laser] = m
}

// To3D is part of interface Calibration. Unknown laser lines use the
// behind plane.
func (pc *PlaneCalibration) To3D(x, y int, laser LaserLine) mgl64.Vec3 {
	m, ok := pc.planes[laser]
	if !ok {
		tracer().Debugf("no plane for laser line %s, using %s", laser, pc.fallback)
		m = pc.planes[pc.fallback]
	}
	return m.Mul3x1(mgl64.Vec3{float64(x), float64(y), 1})
}

// DistFrom2D is part of interface Calibration. It measures on the behind
// plane.
func (pc *PlaneCalibration) DistFrom2D(x1, y1, x2, y2 float64) float64 {
	m := pc.planes[pc.fallback]
	p1 := m.Mul3x1(mgl64.Vec3{x1, y1, 1})
	p2 := m.Mul3x1(mgl64.Vec3{x2, y2, 1})
	return p2.Sub(p1).Len()
}

var _ Calibration = (*PlaneCalibration)(nil)
