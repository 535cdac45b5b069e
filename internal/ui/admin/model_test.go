// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lankaguide/lankaguide-tui/internal/api"
	"github.com/lankaguide/lankaguide-tui/internal/model"
	"github.com/lankaguide/lankaguide-tui/internal/push"
	"github.com/lankaguide/lankaguide-tui/internal/session"
	"github.com/lankaguide/lankaguide-tui/internal/tracker"
	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

func newTestModel(t *testing.T, handler http.Handler) Model {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := api.DefaultClientConfig(server.URL)
	cfg.RetryDelay = time.Millisecond
	client := api.NewClient(cfg, session.NewStore(""))

	tr := tracker.NewTracker(client, tracker.Config{GracePeriod: time.Hour})
	t.Cleanup(tr.Close)

	m := New(styles.NewTheme(), client, tr)
	m.SetSize(100, 30)
	return m
}

// run executes commands synchronously, feeding results back. Timer
// commands (the fallback reconciliation tick) are abandoned rather than
// waited out.
func run(m Model, cmd tea.Cmd) Model {
	for cmd != nil {
		msg := await(cmd)
		if msg == nil {
			return m
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, sub := range batch {
				m = run(m, sub)
			}
			return m
		}
		if _, ok := msg.(fallbackTickMsg); ok {
			return m
		}
		m, cmd = m.Update(msg)
	}
	return m
}

// await runs a command, giving up on anything that behaves like a
// long timer.
func await(cmd tea.Cmd) tea.Msg {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(2 * time.Second):
		return nil
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func typePath(m Model, path string) Model {
	for _, r := range path {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestUploadRejectsNonPDFWithoutNetwork(t *testing.T) {
	var uploads atomic.Int64
	m := newTestModel(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin/upload" {
			uploads.Add(1)
		}
		json.NewEncoder(w).Encode(map[string]any{"documents": []any{}})
	}))

	path := writeTempFile(t, "notes.txt", "not a pdf")
	m = typePath(m, path)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = run(m, cmd)

	if uploads.Load() != 0 {
		t.Error("invalid file type must never reach the network")
	}
	if len(m.tracker.ListTracked()) != 0 {
		t.Error("rejected upload must leave nothing tracked")
	}
	if m.errText == "" {
		t.Error("rejection should surface an error")
	}
}

func TestUploadTracksAcceptedPDF(t *testing.T) {
	m := newTestModel(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/upload":
			json.NewEncoder(w).Encode(map[string]any{
				"document": map[string]any{"id": "doc-1", "status": "processing"},
			})
		case "/admin/documents":
			json.NewEncoder(w).Encode(map[string]any{"documents": []map[string]any{
				{"id": "doc-1", "filename": "arrivals.pdf", "status": "processing"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))

	path := writeTempFile(t, "arrivals.pdf", "%PDF-1.4")
	m = typePath(m, path)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = run(m, cmd)

	tracked := m.tracker.ListTracked()
	if len(tracked) != 1 {
		t.Fatalf("tracked = %d, want 1", len(tracked))
	}
	if tracked[0].ID != "doc-1" {
		t.Errorf("tracked id = %q, want server-assigned doc-1", tracked[0].ID)
	}
	if !strings.Contains(m.View(), "arrivals.pdf") {
		t.Error("view should show the upload")
	}
}

func TestProgressEventUpdatesTrackedItem(t *testing.T) {
	m := newTestModel(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"documents": []map[string]any{
			{"id": "doc-2", "filename": "temples.pdf", "status": "uploading"},
		}})
	}))
	m = run(m, m.resync())

	m, _ = m.Update(ProgressMsg{Event: push.Event{
		Type:       push.EventProgress,
		DocumentID: "doc-2",
		Status:     model.StatusProcessing,
		Percentage: 55,
		Message:    "Embedding pages",
	}})

	tracked := m.tracker.ListTracked()
	if len(tracked) != 1 || tracked[0].Percentage != 55 {
		t.Fatalf("tracked = %+v, want doc-2 at 55%%", tracked)
	}
}

func TestUnknownProgressEventTriggersResync(t *testing.T) {
	var lists atomic.Int64
	m := newTestModel(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/documents" {
			http.NotFound(w, r)
			return
		}
		lists.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"documents": []map[string]any{
			{"id": "doc-9", "filename": "ferries.pdf", "status": "processing"},
		}})
	}))

	m, cmd := m.Update(ProgressMsg{Event: push.Event{
		Type:       push.EventProgress,
		DocumentID: "doc-9",
		Status:     model.StatusProcessing,
		Percentage: 30,
	}})
	if cmd == nil {
		t.Fatal("unknown document should trigger a resync command")
	}
	m = run(m, cmd)

	if lists.Load() == 0 {
		t.Fatal("resync should hit the document listing")
	}
	tracked := m.tracker.ListTracked()
	if len(tracked) != 1 || tracked[0].ID != "doc-9" {
		t.Fatalf("tracked = %+v, want adopted doc-9", tracked)
	}
}

func TestReconnectReconciles(t *testing.T) {
	var lists atomic.Int64
	m := newTestModel(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lists.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"documents": []any{}})
	}))

	m, cmd := m.Update(ProgressMsg{Event: push.Event{Type: push.EventConnected}})
	if cmd == nil {
		t.Fatal("reconnect should trigger reconciliation")
	}
	run(m, cmd)

	if lists.Load() == 0 {
		t.Error("reconnect should refresh from the authoritative listing")
	}
}

func TestDeleteDocumentFromList(t *testing.T) {
	m := newTestModel(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.NotFound(w, r)
	}))
	m.docs = []model.Document{
		{ID: "doc-1", Filename: "a.pdf", Status: model.StatusCompleted},
		{ID: "doc-2", Filename: "b.pdf", Status: model.StatusCompleted},
	}
	m.listFocus = true
	m.selected = 1

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	m = run(m, cmd)

	if len(m.docs) != 1 || m.docs[0].ID != "doc-1" {
		t.Fatalf("docs = %+v, want only doc-1", m.docs)
	}
}
