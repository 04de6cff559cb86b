// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package server exposes editing sessions over HTTP.
//
// Each session is a front and back workspace kept in memory. Images are
// uploaded as multipart forms, the mark is edited with PATCH or over a
// pointer websocket, and rendered artifacts are downloaded as attachments.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gogpu/icmark"
	"github.com/gogpu/icmark/canvas"
	"github.com/gogpu/icmark/ingest"
	"github.com/gogpu/icmark/mark"
	"github.com/gogpu/icmark/session"
	"github.com/gorilla/mux"
)

// multipartOverhead is allowed on top of the image size for form framing.
const multipartOverhead = 1 << 20

// Options configures a Server.
type Options struct {
	// SessionTTL is the idle time after which a session is dropped.
	SessionTTL time.Duration

	// MaxUpload bounds one image upload in bytes.
	MaxUpload int64

	// NewWorkspace builds the workspace for a session; nil uses session.New.
	NewWorkspace func(seed string) *session.Workspace
}

// Server routes HTTP requests to session workspaces.
type Server struct {
	store     *Store
	maxUpload int64
	router    *mux.Router
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = ingest.DefaultMaxBytes
	}
	s := &Server{
		store:     NewStore(opts.SessionTTL, opts.NewWorkspace),
		maxUpload: opts.MaxUpload,
	}
	s.routes()
	return s
}

// Store returns the session store, for the expiry loop.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(recovery)
	r.Use(requestLogger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": icmark.Version})
	}).Methods("GET")

	r.HandleFunc("/sessions", s.createSession).Methods("POST")
	r.HandleFunc("/sessions/{id}", s.deleteSession).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/combined", s.combined).Methods("GET")
	r.HandleFunc("/sessions/{id}/{side}/image", s.uploadImage).Methods("POST")
	r.HandleFunc("/sessions/{id}/{side}/image", s.clearImage).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/{side}/mark", s.getMark).Methods("GET")
	r.HandleFunc("/sessions/{id}/{side}/mark", s.patchMark).Methods("PATCH")
	r.HandleFunc("/sessions/{id}/{side}/preview.jpg", s.preview).Methods("GET")
	r.HandleFunc("/sessions/{id}/{side}/export", s.export).Methods("GET")
	r.HandleFunc("/sessions/{id}/{side}/pointer", s.pointer).Methods("GET")

	s.router = r
}

// CreateResponse is returned when a session starts.
type CreateResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, ws := s.store.Create(r.URL.Query().Get("text"))
	writeJSON(w, http.StatusCreated, CreateResponse{ID: id, Text: ws.Seed()})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(mux.Vars(r)["id"]) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// workspace resolves the session in the path. It writes the error response
// and returns false when the session is unknown.
func (s *Server) workspace(w http.ResponseWriter, r *http.Request) (*session.Workspace, bool) {
	ws, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
	}
	return ws, ok
}

// side resolves the session and side in the path.
func (s *Server) side(w http.ResponseWriter, r *http.Request) (*session.Workspace, session.Side, bool) {
	side, err := session.ParseSide(mux.Vars(r)["side"])
	if err != nil {
		writeError(w, err)
		return nil, "", false
	}
	ws, ok := s.workspace(w, r)
	return ws, side, ok
}

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	ws, side, ok := s.side(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("file too large (max %d bytes)", s.maxUpload), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	st, err := ws.Load(r.Context(), side, file, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) clearImage(w http.ResponseWriter, r *http.Request) {
	ws, side, ok := s.side(w, r)
	if !ok {
		return
	}
	if err := ws.Clear(side); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getMark(w http.ResponseWriter, r *http.Request) {
	ws, side, ok := s.side(w, r)
	if !ok {
		return
	}
	st, err := ws.Mark(side)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) patchMark(w http.ResponseWriter, r *http.Request) {
	ws, side, ok := s.side(w, r)
	if !ok {
		return
	}
	var u mark.Update
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		http.Error(w, "invalid mark update: "+err.Error(), http.StatusBadRequest)
		return
	}
	st, err := ws.Apply(r.Context(), side, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	ws, side, ok := s.side(w, r)
	if !ok {
		return
	}
	guides := r.URL.Query().Get("guides")
	data, err := ws.Preview(r.Context(), side, guides == "1" || guides == "true")
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJPEG(w, data, "")
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	ws, side, ok := s.side(w, r)
	if !ok {
		return
	}
	data, name, err := ws.Export(r.Context(), side)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJPEG(w, data, name)
}

func (s *Server) combined(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	data, name, err := ws.Combine(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJPEG(w, data, name)
}

// writeJPEG sends data as a JPEG; a non-empty name makes it a download.
func writeJPEG(w http.ResponseWriter, data []byte, name string) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	if name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		icmark.Logger().Debug("server: write response", slog.String("err", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownSide):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoImage):
		return http.StatusNotFound
	case errors.Is(err, session.ErrIncomplete):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, ingest.ErrTooLarge), errors.Is(err, canvas.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingest.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ingest.ErrDecode), errors.Is(err, ingest.ErrConversion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		icmark.Logger().Error("server: request failed", slog.String("err", err.Error()))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
