// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mark

import "math"

// Range is a slider's domain: values are clamped to [Min, Max] and snapped to
// multiples of Step counted from Min.
type Range struct {
	Min, Max, Step float64
}

// Control ranges of the discrete control surface.
var (
	ImageScaleRange    = Range{Min: 0.5, Max: 1.0, Step: 0.05}
	FontSizeRange      = Range{Min: 12, Max: 200, Step: 1}
	RotationRange      = Range{Min: -180, Max: 180, Step: 1}
	LineThicknessRange = Range{Min: 1, Max: 50, Step: 1}
)

// Clamp clamps v into the range and snaps it to the step grid.
// NaN snaps to Min.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	if r.Step > 0 {
		v = r.Min + math.Round((v-r.Min)/r.Step)*r.Step
		// Strip float noise from the step multiplication (0.05 * 5).
		v = math.Round(v*1e9) / 1e9
		if v > r.Max {
			v = r.Max
		}
	}
	return v
}

// Controls is the discrete control surface over one State. Every setter
// clamps its input and reports whether the State changed, in which case the
// caller re-renders.
type Controls struct {
	s *State
}

// NewControls returns controls editing s in place.
func NewControls(s *State) Controls {
	return Controls{s: s}
}

// SetText sets the label. Any string is accepted.
func (c Controls) SetText(text string) bool {
	if c.s.Text == text {
		return false
	}
	c.s.Text = text
	return true
}

// SetImageScale sets the base image scale within [0.5, 1.0], step 0.05.
func (c Controls) SetImageScale(v float64) bool {
	return set(&c.s.ImageScale, ImageScaleRange.Clamp(v))
}

// SetFontSize sets the label size within [12, 200], step 1.
func (c Controls) SetFontSize(v float64) bool {
	return set(&c.s.FontSize, FontSizeRange.Clamp(v))
}

// SetRotation sets the rotation within [-180, 180] degrees, step 1.
func (c Controls) SetRotation(v float64) bool {
	return set(&c.s.Rotation, RotationRange.Clamp(v))
}

// SetLineThickness sets the strike line width within [1, 50], step 1.
func (c Controls) SetLineThickness(v float64) bool {
	return set(&c.s.LineThickness, LineThicknessRange.Clamp(v))
}

// SetAnchor places the anchor directly, in surface pixels. Non-finite
// coordinates are ignored.
func (c Controls) SetAnchor(x, y float64) bool {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return false
	}
	changed := set(&c.s.AnchorX, x)
	return set(&c.s.AnchorY, y) || changed
}

func set(dst *float64, v float64) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

// Update is a partial change to a State; nil fields are left alone.
type Update struct {
	Text          *string  `json:"text,omitempty"`
	ImageScale    *float64 `json:"imageScale,omitempty"`
	FontSize      *float64 `json:"fontSize,omitempty"`
	Rotation      *float64 `json:"rotation,omitempty"`
	LineThickness *float64 `json:"lineThickness,omitempty"`
	AnchorX       *float64 `json:"anchorX,omitempty"`
	AnchorY       *float64 `json:"anchorY,omitempty"`
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.Text == nil && u.ImageScale == nil && u.FontSize == nil &&
		u.Rotation == nil && u.LineThickness == nil && u.AnchorX == nil && u.AnchorY == nil
}

// Apply routes every set field of u through the matching control and
// reports whether anything changed.
func (c Controls) Apply(u Update) bool {
	changed := false
	if u.Text != nil {
		changed = c.SetText(*u.Text) || changed
	}
	if u.ImageScale != nil {
		changed = c.SetImageScale(*u.ImageScale) || changed
	}
	if u.FontSize != nil {
		changed = c.SetFontSize(*u.FontSize) || changed
	}
	if u.Rotation != nil {
		changed = c.SetRotation(*u.Rotation) || changed
	}
	if u.LineThickness != nil {
		changed = c.SetLineThickness(*u.LineThickness) || changed
	}
	if u.AnchorX != nil || u.AnchorY != nil {
		x, y := c.s.AnchorX, c.s.AnchorY
		if u.AnchorX != nil {
			x = *u.AnchorX
		}
		if u.AnchorY != nil {
			y = *u.AnchorY
		}
		changed = c.SetAnchor(x, y) || changed
	}
	return changed
}
