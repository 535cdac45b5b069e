// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the bearer credential used to authorise backend
// calls. The store is the single owner of the token: it is replaced on
// login, cleared on logout or on the first 401 from any call, and read by
// every request the client makes.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"

	"github.com/lankaguide/lankaguide-tui/internal/model"
	"github.com/lankaguide/lankaguide-tui/internal/util"
)

// =============================================================================
// SESSION STORE
// =============================================================================

// Store holds the current session credential and user identity.
//
// Mutation happens from a single UI-driven action at a time (login, logout,
// 401 handling), but reads come from concurrent request goroutines, so all
// access is guarded. A 401-triggered Clear racing an in-flight request is
// tolerated: the stale token simply fails with another 401 and Clear is
// idempotent.
type Store struct {
	mu       sync.RWMutex
	token    string
	user     *model.User
	path     string
	listener func()
}

// persistedSession is the on-disk shape of a saved session.
type persistedSession struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// NewStore creates a session store. If path is non-empty, a previously
// saved session is loaded from it and later changes are persisted there
// with owner-only permissions. A missing or unreadable file means
// "logged out", never an error.
func NewStore(path string) *Store {
	s := &Store{path: path}
	s.load()
	return s
}

// SetListener registers a callback invoked after every state change, so
// dependent views re-render. Only one listener is supported; the app model
// fans out from there.
func (s *Store) SetListener(fn func()) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// Set replaces the session after a successful login or registration.
func (s *Store) Set(token string, user *model.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.save()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener()
	}
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the authenticated user, or nil when logged out.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated reports whether a token is present. The token may still
// be expired server-side; the first 401 will clear it.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// IsAdmin reports whether the current user may access the admin dashboard.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin
}

// Clear removes the session. It returns true only for the call that
// actually cleared a token, so 401 handling runs its side effects exactly
// once even when several in-flight requests fail together.
func (s *Store) Clear() bool {
	s.mu.Lock()
	cleared := s.token != ""
	s.token = ""
	s.user = nil
	if cleared {
		s.save()
	}
	listener := s.listener
	s.mu.Unlock()

	if cleared && listener != nil {
		listener()
	}
	return cleared
}

// TokenFingerprint returns a short hash of the token for logging.
// The raw credential is never written to logs.
func (s *Store) TokenFingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(s.token))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// load restores a saved session. Called once from NewStore, before any
// concurrent access exists.
func (s *Store) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var saved persistedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		// Corrupt session file: treat as logged out and drop it.
		os.Remove(s.path)
		return
	}
	s.token = saved.Token
	s.user = saved.User
}

// save persists the current state. Must be called with s.mu held.
func (s *Store) save() {
	if s.path == "" {
		return
	}
	if s.token == "" {
		os.Remove(s.path)
		return
	}
	data, err := json.Marshal(persistedSession{Token: s.token, User: s.user})
	if err != nil {
		return
	}
	// Owner-only: the file contains a live credential.
	_ = util.AtomicWriteFile(s.path, data, 0600)
}
