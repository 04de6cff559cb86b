// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package icmark places a strike-and-label mark on document images and
// exports the composites as JPEG files.
//
// # Overview
//
// A mark is two parallel strike lines flanking a centered label. It is
// positioned by an anchor point in surface pixels, rotated in degrees
// (positive is clockwise) and sized by its font size. Each loaded image owns
// exactly one mark; a workspace holds a front and a back side.
//
// # Quick Start
//
//	ws := session.New("FOR PRIVATE USE ONLY")
//	defer ws.Close()
//
//	if _, err := ws.Load(ctx, session.Front, file, "image/jpeg"); err != nil {
//	    return err
//	}
//	rot := -30.0
//	if _, err := ws.Apply(ctx, session.Front, mark.Update{Rotation: &rot}); err != nil {
//	    return err
//	}
//	data, name, err := ws.Export(ctx, session.Front)
//
// # Packages
//
//   - geom: pointer to surface to mark space transforms and the hit box
//   - typeset: label metrics and glyph outlines
//   - mark: the mark record and its discrete controls
//   - pointer: the drag state machine for mouse and touch input
//   - canvas: the rendering pipeline onto a gg surface
//   - export: JPEG encoding, vertical combination and delivery
//   - ingest: upload decoding, including external HEIC conversion
//   - session: two independent sides wired together
//
// # Coordinate System
//
// Surface coordinates follow gg: origin at top-left, X right, Y down. Pointer
// input arrives in display pixels and is scaled into surface pixels before it
// touches any mark state.
package icmark

// Version is the current version of icmark.
const Version = "0.3.0"
