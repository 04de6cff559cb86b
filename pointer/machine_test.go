// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pointer

import (
	"testing"

	"github.com/gogpu/icmark/geom"
	"github.com/gogpu/icmark/mark"
)

// boxMeasurer gives every non-empty label a 200x40 footprint.
type boxMeasurer struct{}

func (boxMeasurer) Measure(text string, _ float64) (float64, float64) {
	if text == "" {
		return 0, 0
	}
	return 200, 40
}

var (
	surface = geom.Size{W: 1500, H: 1000}
	// Display at 1:1 so display pixels equal surface pixels.
	full = geom.Rect{W: 1500, H: 1000}
)

func mouse(k Kind, x, y float64) MouseInput {
	return MouseInput{Kind: k, ClientX: x, ClientY: y, Display: full}
}

func TestPressInsideStartsDrag(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")

	res := m.Feed(mouse(Press, 400, 300), &st, surface)
	if m.State() != Dragging {
		t.Fatalf("state = %v, want dragging", m.State())
	}
	if res.Changed {
		t.Error("press must not move the mark")
	}
	if res.Cursor != CursorMove {
		t.Errorf("cursor = %q, want move", res.Cursor)
	}
}

func TestPressOutsideStaysIdle(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")
	before := st

	m.Feed(mouse(Press, 1400, 900), &st, surface)
	if m.State() != Idle {
		t.Fatalf("state = %v, want idle", m.State())
	}
	m.Feed(mouse(Move, 1450, 950), &st, surface)
	if st != before {
		t.Errorf("move after a missed press changed state: %+v", st)
	}
}

func TestDragMovesAnchor(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")

	m.Feed(mouse(Press, 410, 310), &st, surface)
	res := m.Feed(mouse(Move, 460, 290), &st, surface)
	if !res.Changed {
		t.Error("drag move should report a change")
	}
	if st.AnchorX != 450 || st.AnchorY != 280 {
		t.Errorf("anchor = (%v, %v), want (450, 280)", st.AnchorX, st.AnchorY)
	}
}

func TestDragNoDrift(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")

	x, y := 400.0, 300.0
	m.Feed(mouse(Press, x, y), &st, surface)
	for i := 0; i < 100; i++ {
		x++
		y--
		m.Feed(mouse(Move, x, y), &st, surface)
	}
	m.Feed(mouse(Release, x, y), &st, surface)

	if st.AnchorX != 500 || st.AnchorY != 200 {
		t.Errorf("anchor = (%v, %v), want (500, 200)", st.AnchorX, st.AnchorY)
	}
	if m.State() != Idle {
		t.Errorf("state after release = %v", m.State())
	}
}

func TestDragIgnoresRotation(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")
	st.Rotation = 90

	m.Feed(mouse(Press, 400, 300), &st, surface)
	m.Feed(mouse(Move, 430, 300), &st, surface)
	if st.AnchorX != 430 || st.AnchorY != 300 {
		t.Errorf("anchor = (%v, %v), want translation in surface space (430, 300)", st.AnchorX, st.AnchorY)
	}
}

func TestDragScalesDisplayDelta(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")
	half := geom.Rect{X: 20, Y: 40, W: 750, H: 500}

	// Anchor (400,300) is displayed at (220,190).
	m.Feed(MouseInput{Kind: Press, ClientX: 220, ClientY: 190, Display: half}, &st, surface)
	m.Feed(MouseInput{Kind: Move, ClientX: 245, ClientY: 180, Display: half}, &st, surface)
	if st.AnchorX != 450 || st.AnchorY != 280 {
		t.Errorf("anchor = (%v, %v), want (450, 280)", st.AnchorX, st.AnchorY)
	}
}

func TestReleaseAndLeaveEndDrag(t *testing.T) {
	for _, k := range []Kind{Release, Leave} {
		t.Run(k.String(), func(t *testing.T) {
			m := NewMachine(boxMeasurer{})
			st := mark.Default("")
			m.Feed(mouse(Press, 400, 300), &st, surface)
			m.Feed(mouse(k, 0, 0), &st, surface)
			if m.State() != Idle {
				t.Fatalf("state = %v, want idle", m.State())
			}
			before := st
			m.Feed(mouse(Move, 10, 10), &st, surface)
			if st != before {
				t.Error("move after the drag ended changed the mark")
			}
		})
	}
}

func TestHoverDoesNotMutate(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")
	before := st

	over := m.Feed(mouse(Move, 400, 300), &st, surface)
	away := m.Feed(mouse(Move, 1400, 900), &st, surface)
	if st != before {
		t.Errorf("hover mutated state: %+v", st)
	}
	if over.Cursor != CursorMove || away.Cursor != CursorDefault {
		t.Errorf("cursors = %q / %q, want move / default", over.Cursor, away.Cursor)
	}
	if over.Readout == nil || !over.Readout.Inside {
		t.Fatalf("readout over the mark = %+v", over.Readout)
	}
	if over.Readout.Box.HalfWidth != 150 || over.Readout.Box.HalfHeight != 68 {
		t.Errorf("readout box = %+v, want {150 68}", over.Readout.Box)
	}
}

func TestTouchUsesFirstContact(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")

	press := TouchInput{Kind: Press, Touches: []geom.Point{geom.Pt(400, 300), geom.Pt(1400, 900)}, Display: full}
	res := m.Feed(press, &st, surface)
	if m.State() != Dragging {
		t.Fatalf("state = %v, want dragging", m.State())
	}
	if res.Cursor != CursorNone {
		t.Errorf("touch cursor = %q, want none", res.Cursor)
	}
	move := TouchInput{Kind: Move, Touches: []geom.Point{geom.Pt(410, 305), geom.Pt(0, 0)}, Display: full}
	m.Feed(move, &st, surface)
	if st.AnchorX != 410 || st.AnchorY != 305 {
		t.Errorf("anchor = (%v, %v), want (410, 305)", st.AnchorX, st.AnchorY)
	}
	// Touch end lists no remaining contacts.
	m.Feed(TouchInput{Kind: Release, Display: full}, &st, surface)
	if m.State() != Idle {
		t.Errorf("state after touch end = %v", m.State())
	}
}

func TestTouchHoverSkipped(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")
	res := m.Feed(TouchInput{Kind: Move, Touches: []geom.Point{geom.Pt(400, 300)}, Display: full}, &st, surface)
	if res.Readout != nil || res.Cursor != CursorNone || res.Changed {
		t.Errorf("touch hover result = %+v, want empty", res)
	}
	if res := m.Feed(TouchInput{Kind: Move, Display: full}, &st, surface); res.Changed {
		t.Error("contactless touch move reported a change")
	}
}

func TestDegenerateDisplaySkipped(t *testing.T) {
	m := NewMachine(boxMeasurer{})
	st := mark.Default("")
	zero := geom.Rect{}

	m.Feed(MouseInput{Kind: Press, ClientX: 400, ClientY: 300, Display: zero}, &st, surface)
	if m.State() != Idle {
		t.Fatalf("press on a degenerate rect started a drag")
	}

	m.Feed(mouse(Press, 400, 300), &st, surface)
	before := st
	res := m.Feed(MouseInput{Kind: Move, ClientX: 500, ClientY: 300, Display: zero}, &st, surface)
	if res.Changed || st != before {
		t.Errorf("degenerate move changed the mark: %+v", st)
	}
	if m.State() != Dragging {
		t.Error("degenerate move should not end the drag")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"press": Press, "start": Press, "move": Move, "end": Release, "cancel": Leave} {
		if got, ok := ParseKind(in); !ok || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseKind("wheel"); ok {
		t.Error("ParseKind(wheel) should fail")
	}
}
