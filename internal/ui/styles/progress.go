// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/lankaguide/lankaguide-tui/internal/util"
)

// RenderProgressBar renders a fixed-width bar for a 0-100 percentage.
// Width is the total bar width excluding the brackets.
func (t *Theme) RenderProgressBar(width, percentage int) string {
	if width < 1 {
		width = 1
	}
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	filled := width * percentage / 100
	bar := t.ProgressFilled.Render(strings.Repeat("█", filled)) +
		t.ProgressEmpty.Render(strings.Repeat("░", width-filled))
	return "[" + bar + "] " + util.IntToString(percentage) + "%"
}
