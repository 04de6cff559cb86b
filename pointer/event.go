// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pointer

import "github.com/gogpu/icmark/geom"

// Kind is the phase of a pointer event.
type Kind uint8

const (
	// Press is a mouse button down or a touch start.
	Press Kind = iota
	// Move is a mouse move or a touch move.
	Move
	// Release is a mouse button up or a touch end.
	Release
	// Leave is the pointer leaving the surface (or a touch cancel).
	Leave
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Move:
		return "move"
	case Release:
		return "release"
	case Leave:
		return "leave"
	default:
		return "unknown"
	}
}

// ParseKind maps a wire name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "press", "down", "start":
		return Press, true
	case "move":
		return Move, true
	case "release", "up", "end":
		return Release, true
	case "leave", "cancel":
		return Leave, true
	}
	return 0, false
}

// Device is the kind of input hardware behind an event.
type Device uint8

const (
	// Mouse events carry one pointer and support hover.
	Mouse Device = iota
	// Touch events may carry several contacts and have no hover.
	Touch
)

func (d Device) String() string {
	if d == Touch {
		return "touch"
	}
	return "mouse"
}

// Event is one normalised pointer event. Position is in display pixels
// relative to the same origin as Display.
type Event struct {
	Kind     Kind
	Device   Device
	Position geom.Point

	// HasPosition is false for events without a contact point, such as a
	// touch end that lists no remaining touches.
	HasPosition bool

	// Display is where the surface is shown, in the pointer's coordinates.
	Display geom.Rect
}

// Source is an input adapter that reduces a device-specific event to the
// single-pointer Event the Machine understands.
type Source interface {
	Event() (Event, bool)
}

// MouseInput is a raw mouse event.
type MouseInput struct {
	Kind    Kind
	ClientX float64
	ClientY float64
	Display geom.Rect
}

// Event implements Source.
func (m MouseInput) Event() (Event, bool) {
	return Event{
		Kind:        m.Kind,
		Device:      Mouse,
		Position:    geom.Pt(m.ClientX, m.ClientY),
		HasPosition: true,
		Display:     m.Display,
	}, true
}

// TouchInput is a raw touch event with every active contact.
type TouchInput struct {
	Kind    Kind
	Touches []geom.Point
	Display geom.Rect
}

// Event implements Source. Only the first contact is used; a press or move
// without any contact is dropped.
func (t TouchInput) Event() (Event, bool) {
	ev := Event{Kind: t.Kind, Device: Touch, Display: t.Display}
	if len(t.Touches) > 0 {
		ev.Position = t.Touches[0]
		ev.HasPosition = true
	}
	if !ev.HasPosition && (t.Kind == Press || t.Kind == Move) {
		return Event{}, false
	}
	return ev, true
}
