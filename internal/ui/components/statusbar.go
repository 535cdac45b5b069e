// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar renders the bottom bar: signed-in user, push connection
// state, and the key hints for the active view.
type StatusBar struct {
	theme *styles.Theme

	Username  string
	IsAdmin   bool
	Connected bool
	Shortcuts []Shortcut
}

// Shortcut is one key hint in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// View renders the bar at the given width.
func (s *StatusBar) View(width int) string {
	var left strings.Builder
	if s.Username != "" {
		left.WriteString(s.Username)
		if s.IsAdmin {
			left.WriteString(" " + s.theme.ShortcutDesc.Render("(admin)"))
		}
		left.WriteString("  ")
	}
	if s.Connected {
		left.WriteString(s.theme.StatusOnline.Render("● live"))
	} else {
		left.WriteString(s.theme.StatusOffline.Render("○ offline"))
	}

	var hints []string
	for _, shortcut := range s.Shortcuts {
		hints = append(hints,
			s.theme.ShortcutKey.Render(shortcut.Key)+" "+s.theme.ShortcutDesc.Render(shortcut.Desc))
	}
	right := strings.Join(hints, "  ")

	leftStr := left.String()
	gap := width - lipgloss.Width(leftStr) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
		right = runewidth.Truncate(right, width-lipgloss.Width(leftStr)-3, "…")
	}

	return s.theme.StatusBar.Width(width).Render(leftStr + strings.Repeat(" ", gap) + right)
}
