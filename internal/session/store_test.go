// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: 1, Username: "amara", Email: "amara@example.com", IsAdmin: true}
}

func TestStoreSetGetClear(t *testing.T) {
	s := NewStore("")

	if s.IsAuthenticated() {
		t.Error("Fresh store should not be authenticated")
	}

	s.Set("tok-abc", testUser())
	if s.Token() != "tok-abc" {
		t.Errorf("Expected token 'tok-abc', got %q", s.Token())
	}
	if !s.IsAdmin() {
		t.Error("Expected admin user")
	}

	if !s.Clear() {
		t.Error("First Clear should report true")
	}
	if s.Clear() {
		t.Error("Second Clear should be a no-op")
	}
	if s.Token() != "" || s.User() != nil {
		t.Error("Store should be empty after Clear")
	}
}

func TestStoreListener(t *testing.T) {
	s := NewStore("")
	calls := 0
	s.SetListener(func() { calls++ })

	s.Set("tok", testUser())
	s.Clear()
	s.Clear() // idempotent, no notification

	if calls != 2 {
		t.Errorf("Expected 2 listener calls, got %d", calls)
	}
}

func TestStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := NewStore(path)
	s.Set("tok-persist", testUser())

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Session file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Session file should be 0600, got %v", info.Mode().Perm())
	}

	// A new store at the same path resumes the session.
	restored := NewStore(path)
	if restored.Token() != "tok-persist" {
		t.Errorf("Expected restored token, got %q", restored.Token())
	}
	if u := restored.User(); u == nil || u.Username != "amara" {
		t.Errorf("Expected restored user, got %+v", u)
	}

	// Clearing removes the file.
	restored.Clear()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Session file should be removed on Clear")
	}
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path)
	if s.IsAuthenticated() {
		t.Error("Corrupt session file should mean logged out")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Corrupt session file should be dropped")
	}
}

func TestTokenFingerprint(t *testing.T) {
	s := NewStore("")
	if s.TokenFingerprint() != "none" {
		t.Errorf("Expected 'none', got %q", s.TokenFingerprint())
	}

	s.Set("tok-abc", nil)
	fp := s.TokenFingerprint()
	if fp == "none" || fp == "tok-abc" || len(fp) != 8 {
		t.Errorf("Fingerprint must be an 8-char hash, got %q", fp)
	}
}
