// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package canvas

import (
	"image"
	"image/draw"
	"io"

	"github.com/gogpu/gg"
)

// Surface is the raster a composite is rendered into. It wraps a gg.Context
// that it owns exclusively; nothing else keeps a reference to the context.
//
// A nil *Surface, or a zero Surface, has no rendering context. Every
// operation on it is a no-op.
type Surface struct {
	dc       *gg.Context
	rendered bool
}

// NewSurface returns a surface with a rendering context. Its size is set by
// the first Render.
func NewSurface() *Surface {
	return &Surface{dc: gg.NewContext(Width, 1)}
}

func (s *Surface) ok() bool {
	return s != nil && s.dc != nil
}

// Ready reports whether the surface holds a rendered composite.
func (s *Surface) Ready() bool {
	return s.ok() && s.rendered
}

// Width returns the surface width in pixels, or 0 without a context.
func (s *Surface) Width() int {
	if !s.ok() {
		return 0
	}
	return s.dc.Width()
}

// Height returns the surface height in pixels, or 0 without a context.
func (s *Surface) Height() int {
	if !s.ok() {
		return 0
	}
	return s.dc.Height()
}

// Size returns the surface size in the units pointer math works in.
func (s *Surface) Size() (w, h float64) {
	return float64(s.Width()), float64(s.Height())
}

// Image returns a copy of the surface pixels, or nil without a context.
func (s *Surface) Image() *image.RGBA {
	if !s.ok() {
		return nil
	}
	img := s.dc.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// EncodeJPEG writes the surface as JPEG at the given quality (1-100).
func (s *Surface) EncodeJPEG(w io.Writer, quality int) error {
	if !s.ok() {
		return nil
	}
	return s.dc.EncodeJPEG(w, quality)
}

// Reset discards the rendered composite; the context is kept for reuse.
func (s *Surface) Reset() {
	if !s.ok() {
		return
	}
	s.rendered = false
}

// Close releases the rendering context. A closed surface behaves like one
// without a context.
func (s *Surface) Close() error {
	if !s.ok() {
		return nil
	}
	err := s.dc.Close()
	s.dc = nil
	s.rendered = false
	return err
}
