// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gogpu/icmark/canvas"
	"github.com/gogpu/icmark/ingest"
	"github.com/gogpu/icmark/mark"
	"github.com/gogpu/icmark/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Options{SessionTTL: time.Minute, MaxUpload: 4 << 20})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func createSession(t *testing.T, ts *httptest.Server, text string) CreateResponse {
	t.Helper()
	url := ts.URL + "/sessions"
	if text != "" {
		url += "?text=" + text
	}
	resp, err := http.Post(url, "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out CreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func pngFile(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func upload(t *testing.T, ts *httptest.Server, id, side string, data []byte, contentType string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="photo"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/sessions/"+id+"/"+side+"/image", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decodeMark(t *testing.T, resp *http.Response) mark.State {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st mark.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp := get(t, ts.URL+"/health")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestCreateSessionSeed(t *testing.T) {
	_, ts := newTestServer(t)

	seeded := createSession(t, ts, "VOID")
	assert.NotEmpty(t, seeded.ID)
	assert.Equal(t, "VOID", seeded.Text)

	plain := createSession(t, ts, "")
	assert.Equal(t, mark.DefaultText, plain.Text)
	assert.NotEqual(t, seeded.ID, plain.ID)
}

func TestUploadAndEditMark(t *testing.T) {
	_, ts := newTestServer(t)
	sess := createSession(t, ts, "VOID")

	st := decodeMark(t, upload(t, ts, sess.ID, "front", pngFile(t, 1000, 1500), "image/png"))
	assert.Equal(t, mark.Default("VOID"), st)

	body := strings.NewReader(`{"rotation": 12.4, "fontSize": 500}`)
	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/sessions/"+sess.ID+"/front/mark", body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	st = decodeMark(t, resp)
	assert.Equal(t, 12.0, st.Rotation)
	assert.Equal(t, 200.0, st.FontSize)

	got := decodeMark(t, get(t, ts.URL+"/sessions/"+sess.ID+"/front/mark"))
	assert.Equal(t, st, got)
}

func TestPatchRejectsUnknownFields(t *testing.T) {
	_, ts := newTestServer(t)
	sess := createSession(t, ts, "")
	upload(t, ts, sess.ID, "front", pngFile(t, 100, 100), "image/png").Body.Close()

	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/sessions/"+sess.ID+"/front/mark", strings.NewReader(`{"colour":"red"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadErrors(t *testing.T) {
	_, ts := newTestServer(t)
	sess := createSession(t, ts, "")

	tests := []struct {
		name        string
		side        string
		data        []byte
		contentType string
		want        int
	}{
		{"unknown side", "left", pngFile(t, 10, 10), "image/png", http.StatusBadRequest},
		{"not an image", "front", []byte("plain text"), "text/plain", http.StatusUnsupportedMediaType},
		{"corrupt png", "front", []byte("nope"), "image/png", http.StatusUnprocessableEntity},
		{"heic without converter", "back", []byte("heic"), "image/heic", http.StatusUnprocessableEntity},
		{"tall strip", "front", pngFile(t, 1, 100000), "image/png", http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, ts, sess.ID, tt.side, tt.data, tt.contentType)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	resp := get(t, ts.URL+"/sessions/"+sess.ID+"/back/mark")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "failed conversion must not load an image")
}

func TestUnknownSession(t *testing.T) {
	_, ts := newTestServer(t)
	resp := get(t, ts.URL+"/sessions/nope/front/mark")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreviewAndExport(t *testing.T) {
	_, ts := newTestServer(t)
	sess := createSession(t, ts, "")
	upload(t, ts, sess.ID, "back", pngFile(t, 1000, 1500), "image/png").Body.Close()

	for _, path := range []string{"/back/preview.jpg", "/back/preview.jpg?guides=1"} {
		resp := get(t, ts.URL+"/sessions/"+sess.ID+path)
		cfg, err := jpeg.DecodeConfig(resp.Body)
		resp.Body.Close()
		require.NoError(t, err, path)
		assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
		assert.Equal(t, 1500, cfg.Width)
		assert.Equal(t, 2250, cfg.Height)
	}

	resp := get(t, ts.URL+"/sessions/"+sess.ID+"/back/export")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="ic-back-crossed.jpg"`, resp.Header.Get("Content-Disposition"))
}

func TestCombined(t *testing.T) {
	_, ts := newTestServer(t)
	sess := createSession(t, ts, "")
	upload(t, ts, sess.ID, "front", pngFile(t, 1500, 1000), "image/png").Body.Close()

	resp := get(t, ts.URL+"/sessions/"+sess.ID+"/combined")
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	upload(t, ts, sess.ID, "back", pngFile(t, 1500, 800), "image/png").Body.Close()
	resp = get(t, ts.URL+"/sessions/"+sess.ID+"/combined")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="ic-combined-crossed.jpg"`, resp.Header.Get("Content-Disposition"))

	cfg, err := jpeg.DecodeConfig(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 1500, cfg.Width)
	assert.Equal(t, 1800, cfg.Height)
}

func TestClearImage(t *testing.T) {
	_, ts := newTestServer(t)
	sess := createSession(t, ts, "")
	upload(t, ts, sess.ID, "front", pngFile(t, 100, 100), "image/png").Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/"+sess.ID+"/front/image", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = get(t, ts.URL+"/sessions/"+sess.ID+"/front/export")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteSession(t *testing.T) {
	s, ts := newTestServer(t)
	sess := createSession(t, ts, "")
	require.Equal(t, 1, s.Store().Len())

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/"+sess.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, s.Store().Len())
}

func TestPointerWebsocketDrag(t *testing.T) {
	_, ts := newTestServer(t)
	sess := createSession(t, ts, "")
	upload(t, ts, sess.ID, "front", pngFile(t, 1500, 1000), "image/png").Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + sess.ID + "/front/pointer"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	rect := WireRect{Width: 750, Height: 500}
	send := func(msg PointerMessage) PointerReply {
		require.NoError(t, wsjson.Write(ctx, conn, msg))
		var reply PointerReply
		require.NoError(t, wsjson.Read(ctx, conn, &reply))
		return reply
	}

	// Surface is displayed at half size; anchor (400,300) is at (200,150).
	hover := send(PointerMessage{Type: "mouse", Kind: "move", X: 200, Y: 150, Rect: rect})
	assert.Equal(t, "move", hover.Cursor)
	require.NotNil(t, hover.Readout)
	assert.True(t, hover.Readout.Inside)
	assert.False(t, hover.Changed)

	press := send(PointerMessage{Type: "mouse", Kind: "down", X: 200, Y: 150, Rect: rect})
	assert.Empty(t, press.Error)

	moved := send(PointerMessage{Type: "mouse", Kind: "move", X: 225, Y: 140, Rect: rect})
	assert.True(t, moved.Changed)
	require.NotNil(t, moved.Mark)
	assert.Equal(t, 450.0, moved.Mark.AnchorX)
	assert.Equal(t, 280.0, moved.Mark.AnchorY)

	send(PointerMessage{Type: "mouse", Kind: "up", Rect: rect})

	bad := send(PointerMessage{Type: "pen", Kind: "move", Rect: rect})
	assert.NotEmpty(t, bad.Error)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestPointerTouch(t *testing.T) {
	_, ts := newTestServer(t)
	sess := createSession(t, ts, "")
	upload(t, ts, sess.ID, "back", pngFile(t, 1500, 1000), "image/png").Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + sess.ID + "/back/pointer"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	rect := WireRect{Width: 1500, Height: 1000}
	msgs := []PointerMessage{
		{Type: "touch", Kind: "start", Touches: []WirePoint{{400, 300}, {10, 10}}, Rect: rect},
		{Type: "touch", Kind: "move", Touches: []WirePoint{{410, 320}}, Rect: rect},
		{Type: "touch", Kind: "end", Rect: rect},
	}
	var last PointerReply
	for _, m := range msgs {
		require.NoError(t, wsjson.Write(ctx, conn, m))
		require.NoError(t, wsjson.Read(ctx, conn, &last))
		assert.Empty(t, last.Cursor, "touch has no cursor")
	}
	require.NotNil(t, last.Mark)
	assert.Equal(t, 410.0, last.Mark.AnchorX)
	assert.Equal(t, 320.0, last.Mark.AnchorY)
}

func TestStoreSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewStore(time.Minute, nil)
	st.now = func() time.Time { return now }

	idle, _ := st.Create("")
	busy, _ := st.Create("")

	now = now.Add(45 * time.Second)
	_, ok := st.Get(busy)
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, st.Sweep())
	_, ok = st.Get(idle)
	assert.False(t, ok)
	_, ok = st.Get(busy)
	assert.True(t, ok)
}

func TestStoreRunClosesOnCancel(t *testing.T) {
	st := NewStore(time.Hour, func(seed string) *session.Workspace { return session.New(seed) })
	st.Create("a")
	st.Create("b")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, st.Len())
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "internal server error")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrUnknownSide, http.StatusBadRequest},
		{session.ErrNoImage, http.StatusNotFound},
		{session.ErrIncomplete, http.StatusConflict},
		{session.ErrClosed, http.StatusGone},
		{fmt.Errorf("ingest: %w", ingest.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("session: render front: %w", canvas.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{ingest.ErrUnsupported, http.StatusUnsupportedMediaType},
		{ingest.ErrConversion, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
