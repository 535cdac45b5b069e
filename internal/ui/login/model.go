// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login provides the sign-in and registration view.
package login

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lankaguide/lankaguide-tui/internal/api"
	"github.com/lankaguide/lankaguide-tui/internal/model"
	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// AuthenticatedMsg is emitted when login or registration succeeds. The
// root model switches to the chat view on receipt.
type AuthenticatedMsg struct {
	User *model.User
}

// authFailedMsg carries the backend's rejection text into the form.
type authFailedMsg struct {
	message string
}

// =============================================================================
// LOGIN MODEL
// =============================================================================

// Mode selects between the sign-in and registration forms.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldSubmit
)

// Model is the Bubble Tea model for the authentication view.
type Model struct {
	theme  *styles.Theme
	client *api.Client

	mode       Mode
	username   textinput.Model
	email      textinput.Model
	password   textinput.Model
	focus      int
	submitting bool
	errText    string

	width  int
	height int
}

// New creates the authentication view.
func New(theme *styles.Theme, client *api.Client) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return Model{
		theme:    theme,
		client:   client,
		mode:     ModeLogin,
		username: username,
		email:    email,
		password: password,
		focus:    fieldEmail,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetSize updates layout dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authFailedMsg:
		m.submitting = false
		m.errText = msg.message
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.setFocus(m.nextField(1))
			return m, nil
		case "shift+tab", "up":
			m.setFocus(m.nextField(-1))
			return m, nil
		case "ctrl+r":
			m.toggleMode()
			return m, nil
		case "enter":
			if m.focus == fieldSubmit || m.focus == fieldPassword {
				return m.submit()
			}
			m.setFocus(m.nextField(1))
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldUsername:
		m.username, cmd = m.username.Update(msg)
	case fieldEmail:
		m.email, cmd = m.email.Update(msg)
	case fieldPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

// toggleMode switches between login and registration, keeping typed
// values.
func (m *Model) toggleMode() {
	if m.mode == ModeLogin {
		m.mode = ModeRegister
		m.setFocus(fieldUsername)
	} else {
		m.mode = ModeLogin
		m.setFocus(fieldEmail)
	}
	m.errText = ""
}

// nextField cycles focus, skipping the username field in login mode.
func (m *Model) nextField(direction int) int {
	next := m.focus
	for {
		next += direction
		if next > fieldSubmit {
			next = fieldUsername
		}
		if next < fieldUsername {
			next = fieldSubmit
		}
		if next == fieldUsername && m.mode == ModeLogin {
			continue
		}
		return next
	}
}

func (m *Model) setFocus(field int) {
	m.focus = field
	m.username.Blur()
	m.email.Blur()
	m.password.Blur()
	switch field {
	case fieldUsername:
		m.username.Focus()
	case fieldEmail:
		m.email.Focus()
	case fieldPassword:
		m.password.Focus()
	}
}

// submit validates locally, then calls the backend off the UI thread.
func (m Model) submit() (Model, tea.Cmd) {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	username := strings.TrimSpace(m.username.Value())

	if email == "" || password == "" || (m.mode == ModeRegister && username == "") {
		m.errText = "all fields are required"
		return m, nil
	}

	m.submitting = true
	m.errText = ""

	mode := m.mode
	client := m.client
	return m, func() tea.Msg {
		var user *model.User
		var err error
		if mode == ModeRegister {
			user, err = client.Register(context.Background(), username, email, password)
		} else {
			user, err = client.Login(context.Background(), email, password)
		}
		if err != nil {
			return authFailedMsg{message: api.UserMessage(err)}
		}
		return AuthenticatedMsg{User: user}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	title := "Sign in to LankaGuide"
	action := "Sign in"
	hint := "ctrl+r to register"
	if m.mode == ModeRegister {
		title = "Create a LankaGuide account"
		action = "Register"
		hint = "ctrl+r to sign in"
	}

	var rows []string
	rows = append(rows, m.theme.FormTitle.Render(title))
	if m.mode == ModeRegister {
		rows = append(rows, m.renderField("Username", m.username.View(), m.focus == fieldUsername))
	}
	rows = append(rows, m.renderField("Email", m.email.View(), m.focus == fieldEmail))
	rows = append(rows, m.renderField("Password", m.password.View(), m.focus == fieldPassword))

	button := m.theme.FormButton
	if m.focus == fieldSubmit {
		button = m.theme.FormButtonFocus
	}
	label := action
	if m.submitting {
		label = "Signing in..."
	}
	rows = append(rows, "", button.Render(label))

	if m.errText != "" {
		rows = append(rows, "", m.theme.FormError.Render(m.errText))
	}
	rows = append(rows, "", m.theme.FormHint.Render(hint))

	box := m.theme.FormBox.Render(strings.Join(rows, "\n"))
	if m.width == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderField(label, input string, focused bool) string {
	style := m.theme.FormField
	if focused {
		style = m.theme.FormFieldFocus
	}
	return m.theme.FormLabel.Render(label) + style.Render(input)
}
