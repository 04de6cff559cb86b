// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package typeset measures and draws the single-line label of a mark.
//
// Labels are drawn as filled glyph outlines through a gg.Context so they
// follow the context's current transform, including rotation. Metrics come
// from the same face, which keeps the hit box and the drawn label in step.
package typeset

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrNoFont is returned when a Typesetter is used without a font source.
var ErrNoFont = errors.New("typeset: no font source")

// Typesetter measures and outlines text with one font.
//
// A Typesetter is safe for concurrent use.
type Typesetter struct {
	source *text.FontSource

	// mu guards extractor; its sfnt buffer is reused between glyphs.
	mu        sync.Mutex
	extractor *text.OutlineExtractor
}

// New creates a Typesetter from TTF or OTF font data.
func New(data []byte) (*Typesetter, error) {
	src, err := text.NewFontSource(data)
	if err != nil {
		return nil, fmt.Errorf("typeset: parse font: %w", err)
	}
	return &Typesetter{source: src, extractor: text.NewOutlineExtractor()}, nil
}

// FromFile creates a Typesetter from a font file.
func FromFile(path string) (*Typesetter, error) {
	src, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("typeset: load font %s: %w", path, err)
	}
	return &Typesetter{source: src, extractor: text.NewOutlineExtractor()}, nil
}

var (
	defaultOnce sync.Once
	defaultTS   *Typesetter
)

// Default returns a shared Typesetter using the Go Regular font bundled with
// golang.org/x/image.
func Default() *Typesetter {
	defaultOnce.Do(func() {
		ts, err := New(goregular.TTF)
		if err != nil {
			panic("typeset: bundled Go Regular font failed to parse: " + err.Error())
		}
		defaultTS = ts
	})
	return defaultTS
}

// Name returns the font family name.
func (t *Typesetter) Name() string {
	if t == nil || t.source == nil {
		return ""
	}
	return t.source.Name()
}

// Close releases the font source.
func (t *Typesetter) Close() error {
	if t == nil || t.source == nil {
		return nil
	}
	return t.source.Close()
}

func (t *Typesetter) face(size float64) text.Face {
	return t.source.Face(size)
}

// Measure returns the advance width of s at size pixels and the height of
// its ink: the union of the glyph outline bounds, from the topmost point
// above the baseline to the lowest point below it. Capitals alone measure
// shorter than text with descenders. Empty text, text without ink or a
// non-positive size measures height 0.
func (t *Typesetter) Measure(s string, size float64) (width, height float64) {
	if t == nil || t.source == nil || s == "" || !(size > 0) {
		return 0, 0
	}
	f := t.face(size)
	minY, maxY, ok := t.inkSpan(f, s, size)
	if !ok {
		return f.Advance(s), 0
	}
	return f.Advance(s), maxY - minY
}

// inkSpan returns the vertical extent of the outlines of s relative to the
// baseline, Y down. ok is false when no glyph has an outline.
func (t *Typesetter) inkSpan(f text.Face, s string, size float64) (minY, maxY float64, ok bool) {
	parsed := t.source.Parsed()

	t.mu.Lock()
	defer t.mu.Unlock()
	for g := range f.Glyphs(s) {
		outline, err := t.extractor.ExtractOutline(parsed, g.GID, size)
		if err != nil || outline == nil || outline.IsEmpty() {
			continue
		}
		top, bottom := outline.Bounds.MinY+g.Y, outline.Bounds.MaxY+g.Y
		if !ok {
			minY, maxY, ok = top, bottom, true
			continue
		}
		minY = min(minY, top)
		maxY = max(maxY, bottom)
	}
	return minY, maxY, ok
}

// FillCentered fills s at size pixels into dc, centered on the origin of the
// context's current transform both horizontally and vertically.
// The current path is replaced.
func (t *Typesetter) FillCentered(dc *gg.Context, s string, size float64) error {
	if t == nil || t.source == nil {
		return ErrNoFont
	}
	if s == "" || !(size > 0) {
		return nil
	}

	f := t.face(size)
	m := f.Metrics()
	// Baseline origin that puts the ascent/descent band's middle at y=0.
	x0 := -f.Advance(s) / 2
	y0 := (m.Ascent - m.Descent) / 2

	dc.ClearPath()
	parsed := t.source.Parsed()

	t.mu.Lock()
	defer t.mu.Unlock()
	for g := range f.Glyphs(s) {
		outline, err := t.extractor.ExtractOutline(parsed, g.GID, size)
		if err != nil || outline == nil || outline.IsEmpty() {
			// Spaces and unsupported glyphs only advance.
			continue
		}
		appendOutline(dc, outline, x0+g.X, y0+g.Y)
	}
	return dc.Fill()
}

// appendOutline adds a glyph outline to dc's path at (x, y).
// sfnt outlines are already Y-down, matching the surface.
func appendOutline(dc *gg.Context, o *text.GlyphOutline, x, y float64) {
	open := false
	for _, seg := range o.Segments {
		p := seg.Points
		switch seg.Op {
		case text.OutlineOpMoveTo:
			if open {
				dc.ClosePath()
			}
			open = true
			dc.MoveTo(x+float64(p[0].X), y+float64(p[0].Y))
		case text.OutlineOpLineTo:
			dc.LineTo(x+float64(p[0].X), y+float64(p[0].Y))
		case text.OutlineOpQuadTo:
			dc.QuadraticTo(
				x+float64(p[0].X), y+float64(p[0].Y),
				x+float64(p[1].X), y+float64(p[1].Y),
			)
		case text.OutlineOpCubicTo:
			dc.CubicTo(
				x+float64(p[0].X), y+float64(p[0].Y),
				x+float64(p[1].X), y+float64(p[1].Y),
				x+float64(p[2].X), y+float64(p[2].Y),
			)
		}
	}
	if open {
		dc.ClosePath()
	}
}
