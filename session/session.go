// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package session holds the two-sided editing workspace.
//
// A Workspace owns a front and a back Pane. Each pane has its own image,
// mark, surface and pointer machine behind its own mutex, so gestures on one
// side never wait for the other. Every mutation re-renders the pane before
// the call returns.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/icmark"
	"github.com/gogpu/icmark/canvas"
	"github.com/gogpu/icmark/export"
	"github.com/gogpu/icmark/geom"
	"github.com/gogpu/icmark/ingest"
	"github.com/gogpu/icmark/mark"
	"github.com/gogpu/icmark/pointer"
	"github.com/gogpu/icmark/typeset"
)

// Side names one of the two images.
type Side string

const (
	// Front is the first image, on top in the combined output.
	Front Side = "front"
	// Back is the second image, below the front when combined.
	Back Side = "back"
)

// Sides lists both sides in combine order.
var Sides = [...]Side{Front, Back}

// Errors returned by Workspace methods.
var (
	ErrNoImage     = errors.New("session: no image loaded")
	ErrIncomplete  = errors.New("session: both sides must be loaded")
	ErrUnknownSide = errors.New("session: unknown side")
	ErrClosed      = errors.New("session: workspace closed")
)

// ParseSide validates a side name.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Front, Back:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

// Observer is notified of completed work. The metrics recorder implements it.
type Observer interface {
	Rendered(ctx context.Context, side string)
	Exported(ctx context.Context, artifact string)
	Converted(ctx context.Context, err error)
}

type nopObserver struct{}

func (nopObserver) Rendered(context.Context, string) {}
func (nopObserver) Exported(context.Context, string) {}
func (nopObserver) Converted(context.Context, error) {}

// Option configures a Workspace.
type Option func(*Workspace)

// WithAdapter sets the upload adapter. The adapter reports its own
// conversions; the workspace observer is not attached to it.
func WithAdapter(a *ingest.Adapter) Option {
	return func(w *Workspace) {
		if a != nil {
			w.adapter = a
		}
	}
}

// WithTypesetter sets the label font for both sides.
func WithTypesetter(t *typeset.Typesetter) Option {
	return func(w *Workspace) {
		if t != nil {
			w.typesetter = t
		}
	}
}

// WithObserver sets the observer for renders, exports and conversions.
func WithObserver(o Observer) Option {
	return func(w *Workspace) {
		if o != nil {
			w.observer = o
		}
	}
}

// Pane is one side of the workspace.
type Pane struct {
	mu      sync.Mutex
	side    Side
	base    image.Image
	state   mark.State
	surface *canvas.Surface
	machine *pointer.Machine
}

// Workspace is a front and back pair sharing one seed label.
type Workspace struct {
	seed       string
	adapter    *ingest.Adapter
	typesetter *typeset.Typesetter
	observer   Observer
	closed     atomic.Bool

	front *Pane
	back  *Pane
}

// New returns an empty workspace. A non-empty seed replaces the default
// label on both sides.
func New(seed string, opts ...Option) *Workspace {
	w := &Workspace{
		seed:     seed,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.typesetter == nil {
		w.typesetter = typeset.Default()
	}
	if w.adapter == nil {
		obs := w.observer
		w.adapter = ingest.NewAdapter(nil)
		w.adapter.OnConvert = func(ctx context.Context, err error) { obs.Converted(ctx, err) }
	}
	w.front = w.newPane(Front)
	w.back = w.newPane(Back)
	return w
}

func (w *Workspace) newPane(side Side) *Pane {
	return &Pane{
		side:    side,
		state:   mark.Default(w.seed),
		surface: canvas.NewSurface(),
		machine: pointer.NewMachine(w.typesetter),
	}
}

// Seed returns the label both sides start with.
func (w *Workspace) Seed() string {
	return mark.Default(w.seed).Text
}

func (w *Workspace) pane(side Side) (*Pane, error) {
	switch side {
	case Front:
		return w.front, nil
	case Back:
		return w.back, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSide, side)
}

// acquire locks side's pane. The caller unlocks it when err is nil.
func (w *Workspace) acquire(side Side) (*Pane, error) {
	p, err := w.pane(side)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	if w.closed.Load() {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	return p, nil
}

// render draws base and st onto p's surface. The caller holds p.mu and
// commits base and st to p only when render succeeds.
func (w *Workspace) render(ctx context.Context, p *Pane, base image.Image, st mark.State) error {
	if err := canvas.Render(p.surface, base, st, canvas.WithTypesetter(w.typesetter)); err != nil {
		if errors.Is(err, canvas.ErrNoImage) {
			return ErrNoImage
		}
		return fmt.Errorf("session: render %s: %w", p.side, err)
	}
	w.observer.Rendered(ctx, string(p.side))
	return nil
}

// Load decodes an upload into side, resets its mark to the defaults and
// renders it. On failure the side keeps whatever it had before.
func (w *Workspace) Load(ctx context.Context, side Side, r io.Reader, mimeType string) (mark.State, error) {
	if _, err := w.pane(side); err != nil {
		return mark.State{}, err
	}
	if w.closed.Load() {
		return mark.State{}, ErrClosed
	}
	img, err := w.adapter.Load(ctx, r, mimeType)
	if err != nil {
		icmark.Logger().Warn("session: image not loaded",
			slog.String("side", string(side)), slog.String("err", err.Error()))
		return mark.State{}, err
	}
	return w.LoadImage(ctx, side, img)
}

// LoadImage installs an already decoded image into side. On failure the
// side keeps its previous image and mark.
func (w *Workspace) LoadImage(ctx context.Context, side Side, img image.Image) (mark.State, error) {
	if img == nil || img.Bounds().Empty() {
		if _, err := w.pane(side); err != nil {
			return mark.State{}, err
		}
		return mark.State{}, ErrNoImage
	}
	p, err := w.acquire(side)
	if err != nil {
		return mark.State{}, err
	}
	defer p.mu.Unlock()

	st := mark.Default(w.seed)
	if err := w.render(ctx, p, img, st); err != nil {
		w.restore(ctx, p)
		return mark.State{}, err
	}
	p.base = img
	p.state = st
	p.machine.Reset()
	icmark.Logger().Info("session: image loaded",
		slog.String("side", string(side)),
		slog.Int("width", p.surface.Width()), slog.Int("height", p.surface.Height()))
	return p.state, nil
}

// restore redraws p's committed image after a failed render touched the
// surface. The caller holds p.mu.
func (w *Workspace) restore(ctx context.Context, p *Pane) {
	if p.base == nil {
		p.surface.Reset()
		return
	}
	if err := w.render(ctx, p, p.base, p.state); err != nil {
		icmark.Logger().Error("session: restore failed",
			slog.String("side", string(p.side)), slog.String("err", err.Error()))
	}
}

// Clear removes side's image and mark.
func (w *Workspace) Clear(side Side) error {
	p, err := w.acquire(side)
	if err != nil {
		return err
	}
	defer p.mu.Unlock()

	p.base = nil
	p.state = mark.Default(w.seed)
	p.machine.Reset()
	p.surface.Reset()
	return nil
}

// Loaded reports whether side has an image.
func (w *Workspace) Loaded(side Side) bool {
	p, err := w.acquire(side)
	if err != nil {
		return false
	}
	defer p.mu.Unlock()
	return p.base != nil
}

// Mark returns side's current mark.
func (w *Workspace) Mark(side Side) (mark.State, error) {
	p, err := w.acquire(side)
	if err != nil {
		return mark.State{}, err
	}
	defer p.mu.Unlock()
	if p.base == nil {
		return mark.State{}, ErrNoImage
	}
	return p.state, nil
}

// Apply runs control changes against side's mark and re-renders when
// anything changed.
func (w *Workspace) Apply(ctx context.Context, side Side, u mark.Update) (mark.State, error) {
	p, err := w.acquire(side)
	if err != nil {
		return mark.State{}, err
	}
	defer p.mu.Unlock()
	if p.base == nil {
		return mark.State{}, ErrNoImage
	}

	st := p.state
	if mark.NewControls(&st).Apply(u) {
		if err := w.render(ctx, p, p.base, st); err != nil {
			w.restore(ctx, p)
			return p.state, err
		}
		p.state = st
	}
	return p.state, nil
}

// Pointer feeds one input event to side's pointer machine. The mark is
// re-rendered before returning when the event moved it.
func (w *Workspace) Pointer(ctx context.Context, side Side, src pointer.Source) (pointer.Result, mark.State, error) {
	p, err := w.acquire(side)
	if err != nil {
		return pointer.Result{}, mark.State{}, err
	}
	defer p.mu.Unlock()
	if p.base == nil {
		return pointer.Result{}, mark.State{}, ErrNoImage
	}

	st := p.state
	sw, sh := p.surface.Size()
	res := p.machine.Feed(src, &st, geom.Size{W: sw, H: sh})
	if res.Changed {
		if err := w.render(ctx, p, p.base, st); err != nil {
			w.restore(ctx, p)
			return res, p.state, err
		}
		p.state = st
	}
	return res, p.state, nil
}

// Preview returns side's composite as JPEG. With guides the hit box outline
// is drawn on a scratch surface; the pane's own surface stays guide-free.
func (w *Workspace) Preview(ctx context.Context, side Side, guides bool) ([]byte, error) {
	p, err := w.acquire(side)
	if err != nil {
		return nil, err
	}
	defer p.mu.Unlock()
	if p.base == nil {
		return nil, ErrNoImage
	}
	if !guides {
		return export.Encode(p.surface)
	}

	scratch := canvas.NewSurface()
	defer scratch.Close()
	err = canvas.Render(scratch, p.base, p.state,
		canvas.WithTypesetter(w.typesetter), canvas.WithGuides())
	if err != nil {
		return nil, fmt.Errorf("session: preview %s: %w", side, err)
	}
	return export.Encode(scratch)
}

// Export encodes side for download and returns the bytes with the artifact
// file name.
func (w *Workspace) Export(ctx context.Context, side Side) ([]byte, string, error) {
	p, err := w.acquire(side)
	if err != nil {
		return nil, "", err
	}
	defer p.mu.Unlock()
	if p.base == nil {
		return nil, "", ErrNoImage
	}

	data, err := export.Encode(p.surface)
	if err != nil {
		return nil, "", err
	}
	name := export.FileName(string(side))
	w.observer.Exported(ctx, name)
	return data, name, nil
}

// Combine stacks the front over the back as last rendered.
func (w *Workspace) Combine(ctx context.Context) ([]byte, string, error) {
	// Lock in a fixed order.
	w.front.mu.Lock()
	defer w.front.mu.Unlock()
	w.back.mu.Lock()
	defer w.back.mu.Unlock()

	if w.closed.Load() {
		return nil, "", ErrClosed
	}
	if w.front.base == nil || w.back.base == nil {
		return nil, "", ErrIncomplete
	}
	data, err := export.Combine(w.front.surface, w.back.surface)
	if err != nil {
		return nil, "", err
	}
	w.observer.Exported(ctx, export.CombinedFileName)
	return data, export.CombinedFileName, nil
}

// Close releases both surfaces. Calls that wait on a pane while it closes,
// and every later call, fail with ErrClosed.
func (w *Workspace) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	var errs []error
	for _, side := range Sides {
		p, _ := w.pane(side)
		p.mu.Lock()
		errs = append(errs, p.surface.Close())
		p.base = nil
		p.mu.Unlock()
	}
	return errors.Join(errs...)
}
