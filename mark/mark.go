// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package mark defines the strike-and-label mark record and the discrete
// controls that edit it.
//
// The engine itself never clamps a State; clamping to the control ranges is
// the job of Controls, which stands in for the user-facing sliders.
package mark

import (
	"github.com/gogpu/icmark/geom"
)

// DefaultText is the label used when no seed text is supplied.
const DefaultText = "FOR PRIVATE USE ONLY"

// Default values applied when an image is loaded.
const (
	DefaultLineThickness = 5.0
	DefaultFontSize      = 48.0
	DefaultRotation      = -45.0
	DefaultAnchorX       = 400.0
	DefaultAnchorY       = 300.0
	DefaultImageScale    = 1.0
)

// State describes one mark. Exactly one State exists per loaded image and it
// is never shared between sides.
type State struct {
	// Text is the label. Empty is legal and draws only the strike lines.
	Text string `json:"text"`

	// LineThickness is the stroke width of both strike lines in pixels.
	LineThickness float64 `json:"lineThickness"`

	// FontSize is the label size in pixels.
	FontSize float64 `json:"fontSize"`

	// Rotation is in degrees; 0 is horizontal, positive is clockwise.
	Rotation float64 `json:"rotation"`

	// AnchorX and AnchorY are the mark's pivot in surface pixels.
	AnchorX float64 `json:"anchorX"`
	AnchorY float64 `json:"anchorY"`

	// ImageScale scales the base image's drawn width; the image stays centered.
	ImageScale float64 `json:"imageScale"`
}

// Default returns the initial State for a freshly loaded image.
// A non-empty seed replaces the default label.
func Default(seed string) State {
	text := seed
	if text == "" {
		text = DefaultText
	}
	return State{
		Text:          text,
		LineThickness: DefaultLineThickness,
		FontSize:      DefaultFontSize,
		Rotation:      DefaultRotation,
		AnchorX:       DefaultAnchorX,
		AnchorY:       DefaultAnchorY,
		ImageScale:    DefaultImageScale,
	}
}

// Anchor returns the anchor as a point.
func (s State) Anchor() geom.Point {
	return geom.Pt(s.AnchorX, s.AnchorY)
}

// MoveBy translates the anchor by a surface-space delta.
func (s *State) MoveBy(dx, dy float64) {
	s.AnchorX += dx
	s.AnchorY += dy
}

// Hit tests a surface-space point against the mark's current hit box.
func (s State) Hit(m geom.Measurer, p geom.Point) geom.Hit {
	return geom.HitTest(m, s.Text, s.FontSize, s.Anchor(), s.Rotation, p)
}
