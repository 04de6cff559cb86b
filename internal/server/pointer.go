// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gogpu/icmark"
	"github.com/gogpu/icmark/geom"
	"github.com/gogpu/icmark/mark"
	"github.com/gogpu/icmark/pointer"
	"github.com/gogpu/icmark/session"
	"github.com/gorilla/mux"
)

const (
	pointerWriteWait  = 10 * time.Second
	pointerMaxMessage = 16 * 1024
)

// WirePoint is a position in display pixels.
type WirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WireRect is where the surface is displayed, in the pointer's coordinates.
type WireRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PointerMessage is one client pointer event.
type PointerMessage struct {
	// Type is "mouse" or "touch".
	Type string `json:"type"`

	// Kind is press, move, release or leave; DOM names such as down, up,
	// start, end and cancel are accepted too.
	Kind string `json:"kind"`

	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Touches []WirePoint `json:"touches,omitempty"`
	Rect    WireRect    `json:"rect"`
}

// Source converts m into the input adapter for its device.
func (m PointerMessage) Source() (pointer.Source, error) {
	kind, ok := pointer.ParseKind(m.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown pointer kind %q", m.Kind)
	}
	display := geom.Rect{X: m.Rect.X, Y: m.Rect.Y, W: m.Rect.Width, H: m.Rect.Height}
	switch m.Type {
	case "", "mouse":
		return pointer.MouseInput{Kind: kind, ClientX: m.X, ClientY: m.Y, Display: display}, nil
	case "touch":
		touches := make([]geom.Point, len(m.Touches))
		for i, t := range m.Touches {
			touches[i] = geom.Pt(t.X, t.Y)
		}
		return pointer.TouchInput{Kind: kind, Touches: touches, Display: display}, nil
	}
	return nil, fmt.Errorf("unknown pointer type %q", m.Type)
}

// PointerReply answers one PointerMessage.
type PointerReply struct {
	Cursor  string           `json:"cursor,omitempty"`
	Changed bool             `json:"changed"`
	Mark    *mark.State      `json:"mark,omitempty"`
	Readout *pointer.Readout `json:"readout,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (s *Server) pointer(w http.ResponseWriter, r *http.Request) {
	side, err := session.ParseSide(mux.Vars(r)["side"])
	if err != nil {
		writeError(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	if _, ok := s.workspace(w, r); !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		icmark.Logger().Warn("server: websocket accept", slog.String("err", err.Error()))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(pointerMaxMessage)

	log := icmark.Logger().With(slog.String("session", id), slog.String("side", string(side)))
	log.Debug("server: pointer stream opened")

	ctx := r.Context()
	for {
		var msg PointerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.Debug("server: pointer read", slog.String("err", err.Error()))
			}
			return
		}

		// Every message counts as activity for the session TTL.
		ws, ok := s.store.Get(id)
		if !ok {
			conn.Close(websocket.StatusPolicyViolation, "session expired")
			return
		}

		reply := s.handlePointer(ctx, ws, side, msg)
		writeCtx, cancel := context.WithTimeout(ctx, pointerWriteWait)
		err := wsjson.Write(writeCtx, conn, reply)
		cancel()
		if err != nil {
			log.Debug("server: pointer write", slog.String("err", err.Error()))
			return
		}
	}
}

func (s *Server) handlePointer(ctx context.Context, ws *session.Workspace, side session.Side, msg PointerMessage) PointerReply {
	src, err := msg.Source()
	if err != nil {
		return PointerReply{Error: err.Error()}
	}
	res, st, err := ws.Pointer(ctx, side, src)
	if err != nil {
		if !errors.Is(err, session.ErrNoImage) {
			icmark.Logger().Warn("server: pointer event failed", slog.String("err", err.Error()))
		}
		return PointerReply{Error: err.Error()}
	}
	return PointerReply{
		Cursor:  string(res.Cursor),
		Changed: res.Changed,
		Mark:    &st,
		Readout: res.Readout,
	}
}
