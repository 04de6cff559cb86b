// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ingest turns uploaded files into decoded images.
//
// Standard raster formats are decoded directly. HEIC and HEIF photos are
// first handed to a Converter that produces JPEG; if that step fails no
// image is returned. Load only returns once decoding is complete.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gogpu/icmark"
	"github.com/gogpu/icmark/canvas"
)

// Default limits used when the Adapter fields are zero.
const (
	DefaultMaxBytes     = 32 << 20
	DefaultMaxPixels    = 50_000_000
	DefaultMaxDimension = 16384
)

// Errors returned by Load.
var (
	ErrConversion  = errors.New("ingest: photo container conversion failed")
	ErrTooLarge    = errors.New("ingest: file too large")
	ErrUnsupported = errors.New("ingest: unsupported file type")
	ErrDecode      = errors.New("ingest: cannot decode image")
)

var convertible = map[string]bool{
	"image/heic":          true,
	"image/heif":          true,
	"image/heic-sequence": true,
	"image/heif-sequence": true,
}

var decodable = map[string]bool{
	"image/jpeg":     true,
	"image/jpg":      true,
	"image/pjpeg":    true,
	"image/png":      true,
	"image/gif":      true,
	"image/webp":     true,
	"image/bmp":      true,
	"image/x-ms-bmp": true,
	"image/tiff":     true,
}

// NeedsConversion reports whether mimeType names a container that must go
// through a Converter.
func NeedsConversion(mimeType string) bool {
	return convertible[normalize(mimeType)]
}

// Adapter loads images from uploads.
type Adapter struct {
	// Converter handles HEIC/HEIF input. Without one such files fail with
	// ErrConversion.
	Converter Converter

	// MaxBytes bounds the upload size; zero means DefaultMaxBytes.
	MaxBytes int64

	// MaxPixels bounds width times height of the decoded image; zero means
	// DefaultMaxPixels.
	MaxPixels int64

	// MaxDimension bounds each side of the decoded image; zero means
	// DefaultMaxDimension.
	MaxDimension int

	// OnConvert, when set, is called after every conversion attempt.
	OnConvert func(ctx context.Context, err error)
}

// NewAdapter returns an Adapter that converts with c.
func NewAdapter(c Converter) *Adapter {
	return &Adapter{Converter: c}
}

func (a *Adapter) maxBytes() int64 {
	if a.MaxBytes > 0 {
		return a.MaxBytes
	}
	return DefaultMaxBytes
}

// checkDimensions rejects images whose header promises more pixels than the
// adapter or the render surface allows. It runs before any pixel is decoded.
func (a *Adapter) checkDimensions(w, h int) error {
	maxDim := a.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	maxPixels := a.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	switch {
	case w <= 0 || h <= 0:
		return fmt.Errorf("%w: empty image", ErrDecode)
	case w > maxDim || h > maxDim:
		return fmt.Errorf("%w: %dx%d image exceeds %d pixels per side", ErrTooLarge, w, h, maxDim)
	case int64(w)*int64(h) > maxPixels:
		return fmt.Errorf("%w: %dx%d image exceeds %d pixels", ErrTooLarge, w, h, maxPixels)
	}
	if err := canvas.CheckSize(w, h); err != nil {
		return fmt.Errorf("%w: %v", ErrTooLarge, err)
	}
	return nil
}

// Load reads r fully and decodes it. mimeType is the declared type; when it
// is empty or generic the content is sniffed instead.
func (a *Adapter) Load(ctx context.Context, r io.Reader, mimeType string) (image.Image, error) {
	limit := a.maxBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("ingest: read: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}

	mt := normalize(mimeType)
	if mt == "" || mt == "application/octet-stream" {
		mt = normalize(mimetype.Detect(data).String())
	}

	log := icmark.Logger()
	switch {
	case convertible[mt]:
		log.Debug("ingest: converting", slog.String("type", mt), slog.Int("bytes", len(data)))
		data, err = a.convert(ctx, data)
		if err != nil {
			return nil, err
		}
	case decodable[mt]:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mt)
	}

	decodeErr := func(err error) error {
		if convertible[mt] {
			return fmt.Errorf("%w: converted output: %v", ErrConversion, err)
		}
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr(err)
	}
	if err := a.checkDimensions(cfg.Width, cfg.Height); err != nil {
		log.Warn("ingest: image rejected", slog.String("err", err.Error()))
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr(err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	log.Debug("ingest: decoded",
		slog.String("type", mt), slog.String("format", format),
		slog.Int("width", img.Bounds().Dx()), slog.Int("height", img.Bounds().Dy()))
	return img, nil
}

func (a *Adapter) convert(ctx context.Context, data []byte) ([]byte, error) {
	var err error
	var out []byte
	if a.Converter == nil {
		err = errors.New("no converter configured")
	} else {
		out, err = a.Converter.Convert(ctx, data)
	}
	if a.OnConvert != nil {
		a.OnConvert(ctx, err)
	}
	if err != nil {
		icmark.Logger().Warn("ingest: conversion failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return out, nil
}

func normalize(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if mt == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return mt
}
