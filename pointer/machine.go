// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pointer turns mouse and touch input into mark translation.
//
// A Machine has two states. In Idle, a press that lands inside the mark's
// hit box starts a drag; a mouse move only updates the hover cursor. In
// Dragging, each move adds the surface-space delta since the previous event
// to the anchor; release or leave ends the drag.
//
// A Machine is not safe for concurrent use. Each image side owns its own
// Machine and feeds it one event at a time.
package pointer

import (
	"log/slog"

	"github.com/gogpu/icmark"
	"github.com/gogpu/icmark/geom"
	"github.com/gogpu/icmark/mark"
)

// State is the drag state.
type State uint8

const (
	// Idle means no gesture is moving the mark.
	Idle State = iota
	// Dragging means a press hit the mark and moves translate it.
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Cursor is the pointer affordance shown over the surface.
type Cursor string

const (
	// CursorNone means the event carries no cursor decision (touch input).
	CursorNone Cursor = ""
	// CursorDefault is shown away from the mark.
	CursorDefault Cursor = "default"
	// CursorMove is shown over the mark and while dragging.
	CursorMove Cursor = "move"
)

// Readout is the hover diagnostics for one pointer position.
type Readout struct {
	Pointer  geom.Point `json:"pointer"`
	Anchor   geom.Point `json:"anchor"`
	Relative geom.Point `json:"relative"`
	Local    geom.Point `json:"local"`
	Inside   bool       `json:"inside"`
	Box      geom.Box   `json:"box"`
}

// Result reports what one event did.
type Result struct {
	// Changed is true when the mark moved and must be re-rendered.
	Changed bool

	// Cursor is the affordance to show; CursorNone leaves it unchanged.
	Cursor Cursor

	// Readout is set for mouse hover events.
	Readout *Readout
}

// Machine is the drag state machine for one image side.
type Machine struct {
	measurer geom.Measurer
	state    State
	last     geom.Point
}

// NewMachine returns an idle Machine that sizes hit boxes with m.
func NewMachine(m geom.Measurer) *Machine {
	return &Machine{measurer: m}
}

// State returns the current drag state.
func (m *Machine) State() State {
	return m.state
}

// Reset drops any gesture in progress.
func (m *Machine) Reset() {
	m.state = Idle
	m.last = geom.Point{}
}

// Feed normalises src and handles the resulting event.
func (m *Machine) Feed(src Source, st *mark.State, surface geom.Size) Result {
	ev, ok := src.Event()
	if !ok {
		return Result{}
	}
	return m.Handle(ev, st, surface)
}

// Handle advances the machine with one event. st is mutated only while
// dragging; surface is the pixel size of the rendered surface.
func (m *Machine) Handle(ev Event, st *mark.State, surface geom.Size) Result {
	switch ev.Kind {
	case Release, Leave:
		if m.state == Dragging {
			icmark.Logger().Debug("pointer: drag ended", slog.String("event", ev.Kind.String()))
		}
		m.Reset()
		return Result{Cursor: hoverCursor(ev, CursorDefault)}
	case Press:
		return m.press(ev, st, surface)
	case Move:
		if m.state == Dragging {
			return m.drag(ev, st, surface)
		}
		return m.hover(ev, st, surface)
	}
	return Result{}
}

func (m *Machine) press(ev Event, st *mark.State, surface geom.Size) Result {
	// A press always starts a fresh gesture.
	m.Reset()

	p, ok := m.locate(ev, surface)
	if !ok {
		return Result{}
	}
	hit := st.Hit(m.measurer, p)
	if !hit.Inside {
		return Result{Cursor: hoverCursor(ev, CursorDefault)}
	}
	m.state = Dragging
	m.last = p
	icmark.Logger().Debug("pointer: drag started",
		slog.String("device", ev.Device.String()),
		slog.Float64("x", p.X), slog.Float64("y", p.Y))
	return Result{Cursor: hoverCursor(ev, CursorMove)}
}

func (m *Machine) drag(ev Event, st *mark.State, surface geom.Size) Result {
	p, ok := m.locate(ev, surface)
	if !ok {
		return Result{}
	}
	dx, dy := p.X-m.last.X, p.Y-m.last.Y
	m.last = p
	if dx == 0 && dy == 0 {
		return Result{Cursor: hoverCursor(ev, CursorMove)}
	}
	st.MoveBy(dx, dy)
	return Result{Changed: true, Cursor: hoverCursor(ev, CursorMove)}
}

// hover picks the cursor for an idle mouse. It never mutates st.
func (m *Machine) hover(ev Event, st *mark.State, surface geom.Size) Result {
	if ev.Device != Mouse {
		return Result{}
	}
	p, ok := m.locate(ev, surface)
	if !ok {
		return Result{}
	}
	hit := st.Hit(m.measurer, p)
	anchor := st.Anchor()
	res := Result{
		Cursor:  CursorDefault,
		Readout: &Readout{
			Pointer:  p,
			Anchor:   anchor,
			Relative: geom.Pt(p.X-anchor.X, p.Y-anchor.Y),
			Local:    hit.Local,
			Inside:   hit.Inside,
			Box:      hit.Box,
		},
	}
	if hit.Inside {
		res.Cursor = CursorMove
	}
	return res
}

// locate converts the event position into surface pixels. Events without a
// position or with a degenerate display rect are skipped.
func (m *Machine) locate(ev Event, surface geom.Size) (geom.Point, bool) {
	if !ev.HasPosition {
		return geom.Point{}, false
	}
	p, err := geom.ToSurfaceSpace(ev.Position, ev.Display, surface)
	if err != nil {
		icmark.Logger().Debug("pointer: event skipped", slog.String("reason", err.Error()))
		return geom.Point{}, false
	}
	return p, true
}

// hoverCursor returns c for mouse events; touch has no cursor.
func hoverCursor(ev Event, c Cursor) Cursor {
	if ev.Device != Mouse {
		return CursorNone
	}
	return c
}
