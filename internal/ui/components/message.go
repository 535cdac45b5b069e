// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/lankaguide/lankaguide-tui/internal/model"
	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer renders chat messages as styled bubbles. Assistant
// replies are split into their structured sections (Summary, Details,
// Statistics, Commentary) when the reply carries them; anything else
// renders as plain markdown.
type MessageRenderer struct {
	theme    *styles.Theme
	width    int
	markdown *glamour.TermRenderer
}

// NewMessageRenderer creates a renderer for the given width. Call
// SetWidth on terminal resize; the markdown renderer re-wraps to fit.
func NewMessageRenderer(theme *styles.Theme, width int) *MessageRenderer {
	r := &MessageRenderer{theme: theme}
	r.SetWidth(width)
	return r
}

// SetWidth updates the wrap width.
func (r *MessageRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.width = width

	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.contentWidth()),
	)
	if err == nil {
		r.markdown = md
	}
}

// contentWidth is the width available inside a bubble.
func (r *MessageRenderer) contentWidth() int {
	w := r.width - 10 // bubble padding, border, margin
	if w < 16 {
		w = 16
	}
	return w
}

// Render renders one message as a bubble.
func (r *MessageRenderer) Render(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		content := msg.Content
		if msg.Pending {
			content += " " + r.theme.ThinkingText.Render("(sending)")
		}
		bubble := r.theme.UserBubble.MaxWidth(r.width).Render(content)
		return lipgloss.PlaceHorizontal(r.width, lipgloss.Right, bubble)

	case model.RoleAssistant:
		return r.theme.AssistantBubble.MaxWidth(r.width).Render(r.renderAssistant(msg.Content))

	default:
		return r.theme.SystemBubble.MaxWidth(r.width).Render(msg.Content)
	}
}

// renderAssistant lays out a sectioned reply, or falls back to plain
// markdown when the reply has no recognizable structure.
func (r *MessageRenderer) renderAssistant(content string) string {
	sections := model.ParseSections(content)
	if sections.Kind == model.Unstructured {
		return r.renderMarkdown(content)
	}

	var parts []string
	appendSection := func(heading, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		parts = append(parts,
			r.theme.SectionHeading.Render(heading),
			r.renderSectionBody(heading, body))
	}

	appendSection("Summary", sections.Summary)
	appendSection("Details", sections.Details)
	appendSection("Statistics", sections.Statistics)
	appendSection("Commentary", sections.Commentary)

	return strings.Join(parts, "\n")
}

// renderSectionBody renders one section. Statistics get tabular
// label/value alignment when their lines parse as stats; everything
// else is markdown.
func (r *MessageRenderer) renderSectionBody(heading, body string) string {
	if heading == "Statistics" {
		if stats := model.ParseStatLines(body); len(stats) > 0 {
			return r.renderStats(stats)
		}
	}
	return r.renderMarkdown(body)
}

// renderStats aligns stat labels and values in two columns.
func (r *MessageRenderer) renderStats(stats []model.StatLine) string {
	labelWidth := 0
	for _, stat := range stats {
		if len(stat.Label) > labelWidth {
			labelWidth = len(stat.Label)
		}
	}

	labelStyle := r.theme.StatLabel.Width(labelWidth + 2)
	var lines []string
	for _, stat := range stats {
		lines = append(lines, "  "+labelStyle.Render(stat.Label)+r.theme.StatValue.Render(stat.Value))
	}
	return strings.Join(lines, "\n")
}

// renderMarkdown renders markdown text, routing fenced code blocks
// through the chroma-based renderer for line numbers and a language
// badge.
func (r *MessageRenderer) renderMarkdown(text string) string {
	var out []string
	for _, segment := range splitFences(text) {
		if segment.code {
			block := NewCodeBlock(segment.language, segment.text)
			block.MaxWidth = r.contentWidth()
			out = append(out, block.Render())
			continue
		}
		out = append(out, r.glamourRender(segment.text))
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

func (r *MessageRenderer) glamourRender(text string) string {
	if r.markdown == nil {
		return text
	}
	rendered, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

// =============================================================================
// FENCE SPLITTING
// =============================================================================

type fenceSegment struct {
	text     string
	language string
	code     bool
}

// splitFences splits markdown into prose and fenced-code segments. An
// unclosed fence runs to the end of the text.
func splitFences(text string) []fenceSegment {
	var segments []fenceSegment
	var current []string
	var language string
	inCode := false

	flush := func(code bool) {
		if len(current) == 0 {
			return
		}
		segments = append(segments, fenceSegment{
			text:     strings.Join(current, "\n"),
			language: language,
			code:     code,
		})
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inCode {
				flush(true)
				language = ""
				inCode = false
			} else {
				flush(false)
				language = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
				inCode = true
			}
			continue
		}
		current = append(current, line)
	}
	flush(inCode)
	return segments
}
