// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/icmark"
	"github.com/gogpu/icmark/session"
	"github.com/google/uuid"
)

// Store keeps workspaces in memory and drops the ones left idle for longer
// than the TTL.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	factory func(seed string) *session.Workspace
	now     func() time.Time
}

type entry struct {
	ws       *session.Workspace
	lastSeen time.Time
}

// NewStore returns an empty store. factory builds the workspace for a new
// session from its seed text.
func NewStore(ttl time.Duration, factory func(seed string) *session.Workspace) *Store {
	if factory == nil {
		factory = func(seed string) *session.Workspace { return session.New(seed) }
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		factory: factory,
		now:     time.Now,
	}
}

// Create starts a session and returns its id.
func (s *Store) Create(seed string) (string, *session.Workspace) {
	id := uuid.NewString()
	ws := s.factory(seed)

	s.mu.Lock()
	s.entries[id] = &entry{ws: ws, lastSeen: s.now()}
	s.mu.Unlock()

	icmark.Logger().Info("server: session created", slog.String("session", id))
	return id, ws
}

// Get returns the session's workspace and marks it as recently used.
func (s *Store) Get(id string) (*session.Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.ws, true
}

// Delete ends a session.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if ok {
		_ = e.ws.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*session.Workspace
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.ws)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, ws := range expired {
		_ = ws.Close()
	}
	if len(expired) > 0 {
		icmark.Logger().Info("server: sessions expired", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes every session.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			s.closeAll()
			return
		}
	}
}

func (s *Store) closeAll() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
	for _, e := range entries {
		_ = e.ws.Close()
	}
}
