// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

// Measurer measures a label rendered at a font size.
// Width is the advance width; height is the ink height of the glyphs,
// from the highest point above the baseline to the lowest point below it.
type Measurer interface {
	Measure(text string, fontSize float64) (width, height float64)
}

// Box is the mark's hit region in mark space, centered on the anchor.
type Box struct {
	HalfWidth  float64
	HalfHeight float64
}

// Contains reports whether p (in mark space) lies inside the box.
// Edges are inclusive.
func (b Box) Contains(p Point) bool {
	return PointInBox(p.X, p.Y, b.HalfWidth, b.HalfHeight)
}

// PointInBox is the axis-aligned containment test in mark space.
func PointInBox(u, v, halfWidth, halfHeight float64) bool {
	return -halfWidth <= u && u <= halfWidth && -halfHeight <= v && v <= halfHeight
}

// LineSpacing is the distance from the label's center line to each strike line.
func LineSpacing(textHeight float64) float64 {
	return textHeight * LineSpacingFactor
}

// LineHalfLength is half the length of each strike line.
func LineHalfLength(textWidth float64) float64 {
	return textWidth/2 + LineExtension
}

// HitBox derives the hit region from the label's metrics so it always
// matches what was drawn: the strike lines' extent horizontally and the outer
// edge of the label band vertically.
func HitBox(m Measurer, text string, fontSize float64) Box {
	w, h := m.Measure(text, fontSize)
	return Box{
		HalfWidth:  LineHalfLength(w),
		HalfHeight: LineSpacing(h) + h/2,
	}
}

// Hit is the outcome of testing one surface-space point against a mark.
type Hit struct {
	// Local is the point in mark space.
	Local Point

	// Box is the hit box the point was tested against.
	Box Box

	// Inside reports whether Local falls within Box.
	Inside bool
}

// HitTest transforms p into the mark's space and tests it against a freshly
// derived hit box. Every hit decision in the engine goes through here.
func HitTest(m Measurer, text string, fontSize float64, anchor Point, rotation float64, p Point) Hit {
	box := HitBox(m, text, fontSize)
	local := ToMarkSpace(p, anchor, rotation)
	return Hit{
		Local:  local,
		Box:    box,
		Inside: box.Contains(local),
	}
}
