/*
Package overlay collects diagnostic drawing primitives for an image.

Filters paint what they computed for the most recent image onto a Canvas:
fitted lines, window bounds, extremal points. Coordinates are given in a
filter's ROI frame together with the frame's transform; the canvas stores
them in image coordinates, clipped to the image. Rasterising the canvas is
the host's business.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package overlay

import (
	"fmt"

	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	polyclip "github.com/akavel/polyclip-go"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'scanmaster.overlay'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.overlay")
}

// Color is an RGB color.
type Color struct {
	R, G, B uint8
}

// Colors used by the filters.
var (
	Red     = Color{255, 0, 0}
	Green   = Color{0, 255, 0}
	Blue    = Color{0, 0, 255}
	Yellow  = Color{255, 255, 0}
	Orange  = Color{255, 165, 0}
	Cyan    = Color{0, 255, 255}
	Magenta = Color{255, 0, 255}
)

// Layer groups primitives for display.
type Layer int

// Layers of a canvas.
const (
	LayerContour Layer = iota
	LayerLine
	LayerPosition
)

// Kind tells what a primitive draws.
type Kind int

// Primitive kinds.
const (
	KindLine Kind = iota
	KindDottedLine
	KindArrow
	KindCross
	KindPoint
	KindBox
)

// Primitive is one drawing instruction in image coordinates. Lines, arrows
// and boxes use both From and To, the others only From. Size is the arm
// length of a cross.
type Primitive struct {
	Kind  Kind
	From  scanmaster.Pair
	To    scanmaster.Pair
	Size  int
	Color Color
}

func (p Primitive) String() string {
	return fmt.Sprintf("prim<%d %s-%s>", p.Kind, p.From, p.To)
}

// Canvas collects primitives for one image.
type Canvas struct {
	frame  polyclip.Polygon
	box    polyclip.Rectangle
	layers map[Layer][]Primitive
}

// NewCanvas creates a canvas for an image of width x height pixels.
func NewCanvas(width, height int) *Canvas {
	w, h := float64(width-1), float64(height-1)
	frame := polyclip.Polygon{{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}}
	return &Canvas{
		frame:  frame,
		box:    frame.BoundingBox(),
		layers: make(map[Layer][]Primitive),
	}
}

// Clear removes all primitives.
func (c *Canvas) Clear() {
	clear(c.layers)
}

// Primitives returns the primitives of one layer in drawing order.
func (c *Canvas) Primitives(layer Layer) []Primitive {
	return c.layers[layer]
}

// Len is the total number of primitives on the canvas.
func (c *Canvas) Len() int {
	n := 0
	for _, l := range c.layers {
		n += len(l)
	}
	return n
}

func (c *Canvas) add(layer Layer, p Primitive) {
	c.layers[layer] = append(c.layers[layer], p)
}

func (c *Canvas) contains(p scanmaster.Pair) bool {
	return c.frame[0].Contains(polyclip.Point{X: p.X(), Y: p.Y()}) ||
		onBorder(c.box, p)
}

func onBorder(r polyclip.Rectangle, p scanmaster.Pair) bool {
	x, y := p.X(), p.Y()
	if x < r.Min.X || x > r.Max.X || y < r.Min.Y || y > r.Max.Y {
		return false
	}
	return x == r.Min.X || x == r.Max.X || y == r.Min.Y || y == r.Max.Y
}

// Line adds a solid line. The line is clipped to the canvas and dropped if
// it lies outside.
func (c *Canvas) Line(layer Layer, t *scanmaster.Trafo, from, to scanmaster.Pair, col Color) {
	c.segment(layer, KindLine, t, from, to, col)
}

// DottedLine adds a dotted line, used for synthesized rather than measured
// geometry.
func (c *Canvas) DottedLine(layer Layer, t *scanmaster.Trafo, from, to scanmaster.Pair, col Color) {
	c.segment(layer, KindDottedLine, t, from, to, col)
}

// Arrow adds an arrow pointing from 'from' to 'to'.
func (c *Canvas) Arrow(layer Layer, t *scanmaster.Trafo, from, to scanmaster.Pair, col Color) {
	c.segment(layer, KindArrow, t, from, to, col)
}

func (c *Canvas) segment(layer Layer, kind Kind, t *scanmaster.Trafo, from, to scanmaster.Pair, col Color) {
	a, b, ok := clipSegment(c.box, t.Apply(from), t.Apply(to))
	if !ok {
		tracer().Debugf("segment %s-%s outside canvas", from, to)
		return
	}
	c.add(layer, Primitive{Kind: kind, From: a, To: b, Color: col})
}

// Cross adds a cross marker of arm length size. Markers outside the canvas
// are dropped.
func (c *Canvas) Cross(layer Layer, t *scanmaster.Trafo, at scanmaster.Pair, size int, col Color) {
	p := t.Apply(at)
	if !c.contains(p) {
		return
	}
	c.add(layer, Primitive{Kind: KindCross, From: p, Size: size, Color: col})
}

// Point adds a single pixel marker.
func (c *Canvas) Point(layer Layer, t *scanmaster.Trafo, at scanmaster.Pair, col Color) {
	p := t.Apply(at)
	if !c.contains(p) {
		return
	}
	c.add(layer, Primitive{Kind: KindPoint, From: p, Color: col})
}

// Box adds an axis-parallel rectangle spanned by two corners. The part of
// the box outside the canvas is cut off.
func (c *Canvas) Box(layer Layer, t *scanmaster.Trafo, corner1, corner2 scanmaster.Pair, col Color) {
	p, q := t.Apply(corner1), t.Apply(corner2)
	x0, x1 := min(p.X(), q.X()), max(p.X(), q.X())
	y0, y1 := min(p.Y(), q.Y()), max(p.Y(), q.Y())
	box := polyclip.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}}
	clipped := box.Construct(polyclip.INTERSECTION, c.frame)
	if len(clipped) == 0 {
		tracer().Debugf("box %s-%s outside canvas", p, q)
		return
	}
	bb := clipped.BoundingBox()
	c.add(layer, Primitive{
		Kind:  KindBox,
		From:  scanmaster.P(bb.Min.X, bb.Min.Y),
		To:    scanmaster.P(bb.Max.X, bb.Max.Y),
		Color: col,
	})
}

// clipSegment cuts a segment to rectangle r (Liang-Barsky).
func clipSegment(r polyclip.Rectangle, a, b scanmaster.Pair) (scanmaster.Pair, scanmaster.Pair, bool) {
	dx, dy := b.X()-a.X(), b.Y()-a.Y()
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, a.X() - r.Min.X},
		{dx, r.Max.X - a.X()},
		{-dy, a.Y() - r.Min.Y},
		{dy, r.Max.Y - a.Y()},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return a, b, false
			}
			t1 = min(t1, t)
		}
	}
	from := scanmaster.P(a.X()+t0*dx, a.Y()+t0*dy)
	to := scanmaster.P(a.X()+t1*dx, a.Y()+t1*dy)
	return from, to, true
}
