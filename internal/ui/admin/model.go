// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package admin provides the document management dashboard: the ingested
// document list, the upload prompt, and live progress for in-flight
// uploads.
package admin

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lankaguide/lankaguide-tui/internal/api"
	"github.com/lankaguide/lankaguide-tui/internal/model"
	"github.com/lankaguide/lankaguide-tui/internal/push"
	"github.com/lankaguide/lankaguide-tui/internal/tracker"
	"github.com/lankaguide/lankaguide-tui/internal/ui/components"
	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ProgressMsg delivers a push-channel event to the dashboard. The root
// model forwards these from the subscription goroutine.
type ProgressMsg struct {
	Event push.Event
}

// TrackerChangedMsg is sent when the upload tracker mutates outside the
// update loop (grace-period removals fire from a timer goroutine).
type TrackerChangedMsg struct{}

type docsLoadedMsg struct {
	docs []model.Document
}

type docDeletedMsg struct {
	id model.DocumentID
}

type uploadDoneMsg struct {
	id model.DocumentID
}

type adminErrMsg struct {
	err error
}

type resyncedMsg struct{}

// fallbackTickMsg drives the periodic reconciliation that covers a
// terminal event never arriving at all.
type fallbackTickMsg struct{}

// =============================================================================
// KEY MAP
// =============================================================================

// KeyMap defines the dashboard bindings.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Submit  key.Binding
	Delete  key.Binding
	Refresh key.Binding
	Focus   key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "previous document"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "next document"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "upload"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete document"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "refresh"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "switch focus"),
		),
	}
}

// =============================================================================
// ADMIN MODEL
// =============================================================================

// Model is the Bubble Tea model for the admin dashboard.
type Model struct {
	theme   *styles.Theme
	client  *api.Client
	tracker *tracker.Tracker
	uploads *components.UploadList
	keys    KeyMap

	pathInput textinput.Model
	docs      []model.Document
	selected  int
	listFocus bool
	errText   string

	fallbackActive bool

	width  int
	height int
}

// New creates the dashboard. The tracker is owned by the caller, which
// also wires its OnChange callback to the running program.
func New(theme *styles.Theme, client *api.Client, tr *tracker.Tracker) Model {
	input := textinput.New()
	input.Placeholder = "/path/to/document.pdf"
	input.CharLimit = 512
	input.Focus()

	return Model{
		theme:     theme,
		client:    client,
		tracker:   tr,
		uploads:   components.NewUploadList(theme, 80),
		keys:      DefaultKeyMap(),
		pathInput: input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadDocuments())
}

// SetSize updates layout dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.pathInput.Width = width - 12
	m.uploads = components.NewUploadList(m.theme, width-4)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadDocuments() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		docs, err := client.ListDocuments(context.Background())
		if err != nil {
			return adminErrMsg{err: err}
		}
		return docsLoadedMsg{docs: docs}
	}
}

// beginUpload validates the file type locally, then streams the file to
// the backend off the UI thread. A type rejection never reaches the
// network and leaves nothing tracked.
func (m Model) beginUpload(path string) tea.Cmd {
	tr := m.tracker
	mediaType := mediaTypeForPath(path)
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return adminErrMsg{err: err}
		}
		defer f.Close()

		id, err := tr.BeginUpload(context.Background(), path, mediaType, f)
		if err != nil {
			return adminErrMsg{err: err}
		}
		return uploadDoneMsg{id: id}
	}
}

func (m Model) deleteDocument(id model.DocumentID) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if err := client.DeleteDocument(context.Background(), id); err != nil {
			return adminErrMsg{err: err}
		}
		return docDeletedMsg{id: id}
	}
}

// resync reconciles tracked uploads against the authoritative document
// list. Used after reconnects and for events about unknown documents.
func (m Model) resync() tea.Cmd {
	tr := m.tracker
	return func() tea.Msg {
		if err := tr.Resync(context.Background()); err != nil {
			return adminErrMsg{err: err}
		}
		return resyncedMsg{}
	}
}

const fallbackResyncInterval = 30 * time.Second

func fallbackTick() tea.Cmd {
	return tea.Tick(fallbackResyncInterval, func(time.Time) tea.Msg {
		return fallbackTickMsg{}
	})
}

// anyInFlight reports whether any tracked upload is still non-terminal.
func (m Model) anyInFlight() bool {
	for _, item := range m.tracker.ListTracked() {
		if !item.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// mediaTypeForPath derives the declared media type from the file
// extension, the same way a browser file picker would.
func mediaTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		return m.handlePush(msg.Event)

	case TrackerChangedMsg:
		// State already changed inside the tracker; receiving the message
		// is enough to trigger a redraw.
		return m, nil

	case docsLoadedMsg:
		m.docs = msg.docs
		if m.selected >= len(m.docs) {
			m.selected = 0
		}
		return m, nil

	case docDeletedMsg:
		m.docs = removeDoc(m.docs, msg.id)
		if m.selected >= len(m.docs) && m.selected > 0 {
			m.selected = len(m.docs) - 1
		}
		return m, nil

	case uploadDoneMsg:
		// The tracker now carries the item; refresh the document list so
		// the new entry shows up once processing finishes.
		cmds := []tea.Cmd{m.loadDocuments()}
		if !m.fallbackActive {
			m.fallbackActive = true
			cmds = append(cmds, fallbackTick())
		}
		return m, tea.Batch(cmds...)

	case fallbackTickMsg:
		// Progress events are best-effort; while anything is still in
		// flight, reconcile on a slow cadence in case the final event
		// was lost.
		if !m.anyInFlight() {
			m.fallbackActive = false
			return m, nil
		}
		return m, tea.Batch(m.resync(), fallbackTick())

	case resyncedMsg:
		return m, nil

	case adminErrMsg:
		m.errText = api.UserMessage(msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handlePush applies a subscription event. Progress for unknown
// documents triggers a debounced resync; reconnects always reconcile,
// because events may have been missed while disconnected.
func (m Model) handlePush(event push.Event) (Model, tea.Cmd) {
	switch event.Type {
	case push.EventConnected:
		return m, tea.Batch(m.resync(), m.loadDocuments())

	case push.EventDisconnected:
		return m, nil

	case push.EventProgress:
		needResync := m.tracker.OnStatusEvent(event.DocumentID, event.Status, event.Percentage, event.Message)
		var cmds []tea.Cmd
		if needResync {
			cmds = append(cmds, m.resync())
		}
		if event.Status.IsTerminal() {
			cmds = append(cmds, m.loadDocuments())
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Focus):
		m.listFocus = !m.listFocus
		if m.listFocus {
			m.pathInput.Blur()
		} else {
			m.pathInput.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.loadDocuments(), m.resync())
	}

	if m.listFocus {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.docs)-1 {
				m.selected++
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if m.selected < len(m.docs) {
				return m, m.deleteDocument(m.docs[m.selected].ID)
			}
			return m, nil
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Submit) {
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			return m, nil
		}
		m.errText = ""
		m.pathInput.Reset()
		return m, m.beginUpload(path)
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func removeDoc(docs []model.Document, id model.DocumentID) []model.Document {
	out := docs[:0]
	for _, d := range docs {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, m.theme.HeaderTitle.Render("Document library"))
	sections = append(sections, m.renderDocs())

	if tracked := m.tracker.ListTracked(); len(tracked) > 0 {
		sections = append(sections, "", m.theme.HeaderSubtitle.Render("Uploads"))
		sections = append(sections, m.uploads.Render(tracked))
	}

	sections = append(sections, "", m.theme.FormLabel.Render("Upload PDF")+m.theme.InputContainer.Render(m.pathInput.View()))

	if m.errText != "" {
		sections = append(sections, m.theme.FormError.Render(m.errText))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderDocs() string {
	if len(m.docs) == 0 {
		return m.theme.SidebarMeta.Render("no documents ingested yet")
	}

	nameWidth := m.width - 24
	if nameWidth < 16 {
		nameWidth = 16
	}

	var rows []string
	for i, doc := range m.docs {
		indicator := lipgloss.NewStyle().
			Foreground(styles.StatusColor(doc.Status)).
			Render(styles.StatusIndicator(doc.Status))
		name := runewidth.Truncate(doc.Filename, nameWidth, "…")

		style := m.theme.SidebarItem
		if m.listFocus && i == m.selected {
			style = m.theme.SidebarSelected
		}
		row := style.Render(indicator + " " + name)
		if doc.Status == model.StatusError && doc.ErrorMessage != "" {
			row += "\n" + m.theme.UploadError.Render("    "+doc.ErrorMessage)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}
