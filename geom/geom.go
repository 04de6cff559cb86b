// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package geom holds the pure coordinate math behind mark placement.
//
// Three spaces are involved:
//
//   - display space: pointer coordinates as captured by the viewer, in the
//     pixels of the element showing the surface
//   - surface space: pixels of the rendered output raster; mark anchors live here
//   - mark space: origin at the anchor, axes aligned with the rotated mark
//
// Rendering maps mark space to surface space with Translate(anchor) followed
// by Rotate(rotation). Hit-testing runs the inverse: translate by -anchor,
// then rotate by -rotation, and finally an axis-aligned box test.
package geom

import (
	"errors"
	"math"

	"github.com/gogpu/gg"
)

// ErrDegenerateRect is returned when the display rectangle has no area, so
// display pixels cannot be scaled into surface pixels.
var ErrDegenerateRect = errors.New("geom: degenerate display rect")

const (
	// LineExtension is how far each strike line reaches past the label on
	// either side, in surface pixels.
	LineExtension = 50.0

	// LineSpacingFactor scales the label height into the distance between the
	// label's center line and each strike line.
	LineSpacingFactor = 1.2
)

// Point is a position in any of the three spaces.
type Point = gg.Point

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return gg.Pt(x, y) }

// Rect is the on-screen rectangle a surface is displayed in.
// X and Y are the offset of its top-left corner in the pointer's coordinates.
type Rect struct {
	X, Y float64
	W, H float64
}

// Degenerate reports whether r cannot be used for coordinate scaling.
func (r Rect) Degenerate() bool {
	return !(r.W > 0) || !(r.H > 0) || math.IsInf(r.W, 0) || math.IsInf(r.H, 0)
}

// Size is the pixel size of a surface.
type Size struct {
	W, H float64
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToSurfaceSpace scales a pointer position captured in display pixels into
// surface pixels. X and Y use independent ratios so a non-uniformly stretched
// display still maps correctly.
func ToSurfaceSpace(p Point, display Rect, surface Size) (Point, error) {
	if display.Degenerate() {
		return Point{}, ErrDegenerateRect
	}
	sx := surface.W / display.W
	sy := surface.H / display.H
	out := Pt((p.X-display.X)*sx, (p.Y-display.Y)*sy)
	if !finite(out.X) || !finite(out.Y) {
		return Point{}, ErrDegenerateRect
	}
	return out, nil
}

// MarkTransform returns the matrix that maps mark space into surface space:
// translate to the anchor, then rotate clockwise by rotation degrees.
func MarkTransform(anchor Point, rotation float64) gg.Matrix {
	return gg.Translate(anchor.X, anchor.Y).Multiply(gg.Rotate(Radians(rotation)))
}

// InverseMarkTransform maps surface space into mark space. It is the exact
// inverse of MarkTransform: translate by -anchor, then rotate by -rotation.
func InverseMarkTransform(anchor Point, rotation float64) gg.Matrix {
	return gg.Rotate(-Radians(rotation)).Multiply(gg.Translate(-anchor.X, -anchor.Y))
}

// ToMarkSpace converts a surface-space point into mark space.
// The translation is applied before the rotation matrix so the anchor itself
// always lands exactly on the origin.
func ToMarkSpace(p Point, anchor Point, rotation float64) Point {
	return gg.Rotate(-Radians(rotation)).TransformPoint(Pt(p.X-anchor.X, p.Y-anchor.Y))
}

// FromMarkSpace converts a mark-space point into surface space.
func FromMarkSpace(p Point, anchor Point, rotation float64) Point {
	return MarkTransform(anchor, rotation).TransformPoint(p)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
