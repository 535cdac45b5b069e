// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package login

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lankaguide/lankaguide-tui/internal/api"
	"github.com/lankaguide/lankaguide-tui/internal/session"
	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

func newTestModel(t *testing.T, handler http.Handler) (Model, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := api.NewClient(api.DefaultClientConfig(server.URL), session.NewStore(""))
	return New(styles.NewTheme(), client), server
}

func typeInto(m Model, text string) Model {
	for _, r := range text {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func key(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+r":
		msg = tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return m.Update(msg)
}

func TestFocusSkipsUsernameInLoginMode(t *testing.T) {
	m, _ := newTestModel(t, http.NotFoundHandler())

	if m.focus != fieldEmail {
		t.Fatalf("initial focus = %d, want email", m.focus)
	}
	m, _ = key(m, "tab")
	if m.focus != fieldPassword {
		t.Fatalf("focus after tab = %d, want password", m.focus)
	}
	m, _ = key(m, "tab")
	if m.focus != fieldSubmit {
		t.Fatalf("focus after tab = %d, want submit", m.focus)
	}
	// Wraps past submit straight to email; username is hidden in login mode.
	m, _ = key(m, "tab")
	if m.focus != fieldEmail {
		t.Fatalf("focus after wrap = %d, want email", m.focus)
	}
}

func TestRegisterModeExposesUsernameField(t *testing.T) {
	m, _ := newTestModel(t, http.NotFoundHandler())

	m, _ = key(m, "ctrl+r")
	if m.mode != ModeRegister {
		t.Fatal("ctrl+r should switch to register mode")
	}
	if m.focus != fieldUsername {
		t.Fatalf("focus = %d, want username", m.focus)
	}
	if !strings.Contains(m.View(), "Username") {
		t.Error("register view should show the username field")
	}

	m, _ = key(m, "ctrl+r")
	if m.mode != ModeLogin {
		t.Fatal("ctrl+r should switch back to login mode")
	}
}

func TestSubmitRequiresAllFields(t *testing.T) {
	m, _ := newTestModel(t, http.NotFoundHandler())

	m.setFocus(fieldSubmit)
	m, cmd := key(m, "enter")
	if cmd != nil {
		t.Fatal("empty form should not reach the network")
	}
	if m.errText == "" {
		t.Error("empty form should set an error")
	}
}

func TestSuccessfulLoginEmitsAuthenticatedMsg(t *testing.T) {
	m, _ := newTestModel(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"user":         map[string]any{"id": 1, "username": "amara", "email": "amara@example.lk", "is_admin": true},
		})
	}))

	m = typeInto(m, "amara@example.lk")
	m, _ = key(m, "tab")
	m = typeInto(m, "hunter2")
	m, cmd := key(m, "enter")
	if cmd == nil {
		t.Fatal("submit should produce a command")
	}

	msg := cmd()
	auth, ok := msg.(AuthenticatedMsg)
	if !ok {
		t.Fatalf("msg = %T, want AuthenticatedMsg", msg)
	}
	if auth.User.Username != "amara" || !auth.User.IsAdmin {
		t.Errorf("unexpected user: %+v", auth.User)
	}
}

func TestRejectedLoginShowsBackendMessage(t *testing.T) {
	m, _ := newTestModel(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid email or password"})
	}))

	m = typeInto(m, "amara@example.lk")
	m, _ = key(m, "tab")
	m = typeInto(m, "wrong")
	m, cmd := key(m, "enter")
	if cmd == nil {
		t.Fatal("submit should produce a command")
	}

	m, _ = m.Update(cmd())
	if m.errText != "Invalid email or password" {
		t.Errorf("errText = %q, want backend message verbatim", m.errText)
	}
	if m.submitting {
		t.Error("submitting should reset after failure")
	}
	if !strings.Contains(m.View(), "Invalid email or password") {
		t.Error("view should show the error")
	}
}
