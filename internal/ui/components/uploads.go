// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lankaguide/lankaguide-tui/internal/model"
	"github.com/lankaguide/lankaguide-tui/internal/tracker"
	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

// =============================================================================
// UPLOAD LIST COMPONENT
// =============================================================================

// UploadList renders the tracked upload/processing jobs as rows with a
// status indicator, progress bar, and the backend's progress message.
type UploadList struct {
	theme *styles.Theme
	Width int
}

// NewUploadList creates an upload list for the given theme.
func NewUploadList(theme *styles.Theme, width int) *UploadList {
	return &UploadList{theme: theme, Width: width}
}

// Render renders all tracked items in display order. An empty list
// renders an empty string so the caller can collapse the panel.
func (u *UploadList) Render(items []tracker.Item) string {
	if len(items) == 0 {
		return ""
	}

	var rows []string
	for _, item := range items {
		rows = append(rows, u.renderItem(item))
	}
	return u.theme.UploadList.Width(u.Width - 2).Render(strings.Join(rows, "\n"))
}

// renderItem renders one job row, with the error detail on a second
// line when processing failed.
func (u *UploadList) renderItem(item tracker.Item) string {
	barWidth := 20
	nameWidth := u.Width - barWidth - 20
	if nameWidth < 12 {
		nameWidth = 12
	}

	indicator := lipgloss.NewStyle().
		Foreground(styles.StatusColor(item.Status)).
		Bold(true).
		Render(styles.StatusIndicator(item.Status))

	name := u.theme.UploadName.Render(
		runewidth.Truncate(item.DisplayName, nameWidth, "…"))

	var tail string
	switch {
	case item.Status == model.StatusError:
		tail = u.theme.UploadError.Render("failed")
	case item.Status == model.StatusCompleted:
		tail = u.theme.ProgressFilled.Render("done")
	default:
		tail = u.theme.RenderProgressBar(barWidth, item.Percentage)
	}

	row := indicator + " " + name + " " + tail
	if item.Message != "" && item.Status != model.StatusError {
		row += "  " + u.theme.UploadMessage.Render(item.Message)
	}
	if item.Status == model.StatusError && item.ErrorDetail != "" {
		row += "\n    " + u.theme.UploadError.Render(item.ErrorDetail)
	}
	return row
}
