// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package export encodes rendered surfaces and delivers the results.
//
// Encoding is always JPEG at the maximum quality setting. Combining stacks
// two surfaces vertically exactly as they were last rendered; nothing is
// re-rendered.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/gogpu/icmark/canvas"
	xdraw "golang.org/x/image/draw"
)

// JPEGQuality is the encoder quality used for every artifact.
const JPEGQuality = 100

// CombinedFileName is the name of the stacked front and back artifact.
const CombinedFileName = "ic-combined-crossed.jpg"

// ErrNoSurface is returned when a surface has no rendered composite.
var ErrNoSurface = errors.New("export: no rendered surface")

// FileName returns the artifact name for one side, e.g. "ic-front-crossed.jpg".
func FileName(side string) string {
	return "ic-" + side + "-crossed.jpg"
}

// Encode returns the surface content as JPEG.
func Encode(s *canvas.Surface) ([]byte, error) {
	if !s.Ready() {
		return nil, ErrNoSurface
	}
	var buf bytes.Buffer
	if err := s.EncodeJPEG(&buf, JPEGQuality); err != nil {
		return nil, fmt.Errorf("export: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Compose stacks a above b on a white background. The result is as wide as
// the wider surface and as tall as both together.
func Compose(a, b *canvas.Surface) (*image.RGBA, error) {
	if !a.Ready() || !b.Ready() {
		return nil, ErrNoSurface
	}
	return Stack(a.Image(), b.Image()), nil
}

// Stack places top at the origin and bottom directly beneath it. Pixels are
// copied, not blended, so both inputs appear unchanged in the output.
func Stack(top, bottom image.Image) *image.RGBA {
	tb, bb := top.Bounds(), bottom.Bounds()
	w := max(tb.Dx(), bb.Dx())
	h := tb.Dy() + bb.Dy()

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.Draw(out, image.Rect(0, 0, tb.Dx(), tb.Dy()), top, tb.Min, xdraw.Src)
	xdraw.Draw(out, image.Rect(0, tb.Dy(), bb.Dx(), h), bottom, bb.Min, xdraw.Src)
	return out
}

// Combine composes a over b and encodes the result as JPEG.
func Combine(a, b *canvas.Surface) ([]byte, error) {
	img, err := Compose(a, b)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("export: encode combined: %w", err)
	}
	return buf.Bytes(), nil
}
