// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Non-blocking toasts in the corner of the screen. Unlike modal error
// dialogs, toasts auto-dismiss and never steal input focus.

package components

import (
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast (cyan color)
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast (rose/red color)
	ToastKindError
	// ToastKindWarning is a warning toast (amber color)
	ToastKindWarning
	// ToastKindSuccess is a success toast (emerald color)
	ToastKindSuccess
)

// DefaultToastDuration is the auto-dismiss duration for status toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is the auto-dismiss duration for error toasts
// (longer, so backend error text can be read in full).
const ErrorToastDuration = 8 * time.Second

var toastCounter int64

// Toast is one notification.
type Toast struct {
	ID        int64
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// NewToast creates a toast of the given kind.
func NewToast(kind ToastKind, message string) Toast {
	duration := DefaultToastDuration
	if kind == ToastKindError {
		duration = ErrorToastDuration
	}
	return Toast{
		ID:        atomic.AddInt64(&toastCounter, 1),
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
		Duration:  duration,
	}
}

// IsExpired returns true if the toast should be dismissed.
func (t *Toast) IsExpired() bool {
	return time.Since(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// toastTickMsg drives expiry; one tick is in flight while any toast
// is visible.
type toastTickMsg struct{}

// ToastManager owns the visible toast stack. It is part of the UI
// model and is only touched from the update loop.
type ToastManager struct {
	theme  *styles.Theme
	toasts []Toast
}

// NewToastManager creates an empty toast manager.
func NewToastManager(theme *styles.Theme) *ToastManager {
	return &ToastManager{theme: theme}
}

// Push adds a toast and returns the command keeping expiry ticking.
func (m *ToastManager) Push(toast Toast) tea.Cmd {
	m.toasts = append(m.toasts, toast)
	return m.tick()
}

// Error is shorthand for pushing an error toast.
func (m *ToastManager) Error(message string) tea.Cmd {
	return m.Push(NewToast(ToastKindError, message))
}

// Success is shorthand for pushing a success toast.
func (m *ToastManager) Success(message string) tea.Cmd {
	return m.Push(NewToast(ToastKindSuccess, message))
}

// Info is shorthand for pushing a status toast.
func (m *ToastManager) Info(message string) tea.Cmd {
	return m.Push(NewToast(ToastKindStatus, message))
}

// Update expires finished toasts. Returns a follow-up tick while any
// remain.
func (m *ToastManager) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(toastTickMsg); !ok {
		return nil
	}

	kept := m.toasts[:0]
	for _, toast := range m.toasts {
		if !toast.IsExpired() {
			kept = append(kept, toast)
		}
	}
	m.toasts = kept

	if len(m.toasts) == 0 {
		return nil
	}
	return m.tick()
}

func (m *ToastManager) tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return toastTickMsg{}
	})
}

// HasToasts reports whether anything is visible.
func (m *ToastManager) HasToasts() bool {
	return len(m.toasts) > 0
}

// View renders the toast stack, newest last.
func (m *ToastManager) View(maxWidth int) string {
	if len(m.toasts) == 0 {
		return ""
	}

	var rendered []string
	for _, toast := range m.toasts {
		rendered = append(rendered, m.renderToast(toast, maxWidth))
	}
	return strings.Join(rendered, "\n")
}

func (m *ToastManager) renderToast(toast Toast, maxWidth int) string {
	var border lipgloss.AdaptiveColor
	var prefix string
	switch toast.Kind {
	case ToastKindError:
		border = styles.Rose
		prefix = styles.StatusIndicators.Error
	case ToastKindWarning:
		border = styles.Amber
		prefix = styles.StatusIndicators.Warning
	case ToastKindSuccess:
		border = styles.Emerald
		prefix = styles.StatusIndicators.Success
	default:
		border = styles.Cyan
		prefix = styles.StatusIndicators.Info
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Foreground(styles.TextPrimary).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(prefix + " " + toast.Message)
}
