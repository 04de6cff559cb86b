// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package canvas renders a base image and its mark into a Surface.
//
// Render is a pure function of its inputs: it fixes the surface size from the
// base image, fills white, draws the scaled and centered image, then draws
// the mark under Translate(anchor) and Rotate(rotation) and restores the
// transform. Calling it twice with the same inputs yields identical pixels.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/icmark"
	"github.com/gogpu/icmark/geom"
	"github.com/gogpu/icmark/mark"
	"github.com/gogpu/icmark/typeset"
	xdraw "golang.org/x/image/draw"
)

// Width is the fixed width of every output surface in pixels.
const Width = 1500

// MaxHeight bounds the surface height, which grows with the base image's
// aspect ratio. At Width it caps one surface at 72 MB of RGBA.
const MaxHeight = 8 * Width

// Errors returned by Render.
var (
	ErrNoImage  = errors.New("canvas: no base image")
	ErrTooLarge = errors.New("canvas: surface too large")
)

// Option configures a Render call.
type Option func(*options)

type options struct {
	guides     bool
	typesetter *typeset.Typesetter
}

func defaultOptions() options {
	return options{typesetter: typeset.Default()}
}

// WithGuides draws the mark's hit box as a dashed outline, for edit previews.
func WithGuides() Option {
	return func(o *options) {
		o.guides = true
	}
}

// WithTypesetter sets the font used for the label and its metrics.
// A nil Typesetter keeps the default.
func WithTypesetter(t *typeset.Typesetter) Option {
	return func(o *options) {
		if t != nil {
			o.typesetter = t
		}
	}
}

// SurfaceSize returns the output size for a base image of the given size:
// fixed width, aspect ratio preserved.
func SurfaceSize(baseW, baseH int) (w, h int) {
	h = int(math.Round(Width * float64(baseH) / float64(baseW)))
	return Width, max(h, 1)
}

// CheckSize reports ErrTooLarge when a base image of the given size would
// need a surface taller than MaxHeight.
func CheckSize(baseW, baseH int) error {
	if baseW <= 0 || baseH <= 0 {
		return ErrNoImage
	}
	if _, h := SurfaceSize(baseW, baseH); h > MaxHeight {
		return fmt.Errorf("%w: %dx%d base needs %dx%d", ErrTooLarge, baseW, baseH, Width, h)
	}
	return nil
}

// Render composites base and the mark described by st into s.
// A surface without a rendering context makes Render a no-op.
func Render(s *Surface, base image.Image, st mark.State, opts ...Option) error {
	if !s.ok() {
		icmark.Logger().Warn("canvas: render skipped, no rendering context")
		return nil
	}
	if base == nil || base.Bounds().Empty() {
		return ErrNoImage
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := base.Bounds()
	if err := CheckSize(b.Dx(), b.Dy()); err != nil {
		return err
	}
	w, h := SurfaceSize(b.Dx(), b.Dy())
	if err := s.dc.Resize(w, h); err != nil {
		return fmt.Errorf("canvas: resize surface: %w", err)
	}
	s.rendered = false

	dc := s.dc
	dc.Identity()
	dc.ClearPath()
	dc.ClearDash()
	dc.ClearWithColor(gg.White)

	drawBase(dc, base, st.ImageScale)
	if err := drawMark(dc, st, o); err != nil {
		return err
	}
	s.rendered = true

	icmark.Logger().Debug("canvas: rendered",
		slog.Int("width", w), slog.Int("height", h),
		slog.Float64("anchorX", st.AnchorX), slog.Float64("anchorY", st.AnchorY),
		slog.Float64("rotation", st.Rotation))
	return nil
}

// drawBase draws base scaled to scale times the surface width and centered
// on both axes.
func drawBase(dc *gg.Context, base image.Image, scale float64) {
	b := base.Bounds()
	sw := float64(dc.Width())
	sh := float64(dc.Height())
	aspect := float64(b.Dy()) / float64(b.Dx())

	dw := sw * scale
	dh := sw * aspect * scale
	x := (sw - dw) / 2
	y := (sh - dh) / 2

	pw, ph := int(math.Round(dw)), int(math.Round(dh))
	if pw <= 0 || ph <= 0 {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, pw, ph))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), base, b, xdraw.Src, nil)
	dc.DrawImage(gg.ImageBufFromImage(scaled), math.Round(x), math.Round(y))
}

// drawMark draws the strike lines and the label in mark space.
func drawMark(dc *gg.Context, st mark.State, o options) error {
	dc.Push()
	defer dc.Pop()

	dc.Translate(st.AnchorX, st.AnchorY)
	dc.Rotate(geom.Radians(st.Rotation))

	tw, th := o.typesetter.Measure(st.Text, st.FontSize)
	spacing := geom.LineSpacing(th)
	half := geom.LineHalfLength(tw)

	if o.guides {
		if err := drawGuides(dc, geom.HitBox(o.typesetter, st.Text, st.FontSize)); err != nil {
			return fmt.Errorf("canvas: draw guides: %w", err)
		}
	}

	dc.SetRGB(0, 0, 0)
	if st.LineThickness > 0 {
		dc.SetLineWidth(st.LineThickness)
		for _, y := range []float64{-spacing, spacing} {
			dc.MoveTo(-half, y)
			dc.LineTo(half, y)
			if err := dc.Stroke(); err != nil {
				return fmt.Errorf("canvas: stroke line: %w", err)
			}
		}
	}

	if err := o.typesetter.FillCentered(dc, st.Text, st.FontSize); err != nil {
		return fmt.Errorf("canvas: fill label: %w", err)
	}
	return nil
}

// drawGuides outlines the hit box in semi-transparent blue.
func drawGuides(dc *gg.Context, box geom.Box) error {
	dc.SetRGBA(33.0/255, 150.0/255, 243.0/255, 0.5)
	dc.SetLineWidth(2)
	dc.SetDash(5, 5)
	defer dc.ClearDash()
	dc.DrawRectangle(-box.HalfWidth, -box.HalfHeight, 2*box.HalfWidth, 2*box.HalfHeight)
	return dc.Stroke()
}
