// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view: the conversation viewport, the
// message input, and the sidebar listing past chats.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lankaguide/lankaguide-tui/internal/api"
	"github.com/lankaguide/lankaguide-tui/internal/model"
	"github.com/lankaguide/lankaguide-tui/internal/storage"
	"github.com/lankaguide/lankaguide-tui/internal/ui/components"
	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// chatsLoadedMsg carries the chat list, from the backend or the local
// cache when the backend is unreachable.
type chatsLoadedMsg struct {
	chats     []model.ChatSummary
	fromCache bool
}

type chatOpenedMsg struct {
	chat      *model.Chat
	fromCache bool
}

type chatCreatedMsg struct {
	summary *model.ChatSummary
}

type chatDeletedMsg struct {
	id int64
}

// replyMsg is the assistant's response to a sent message.
type replyMsg struct {
	chatID int64
	reply  *model.Message
}

type sendFailedMsg struct {
	chatID int64
	err    error
}

type chatErrMsg struct {
	err error
}

const sidebarWidth = 28

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme    *styles.Theme
	client   *api.Client
	cache    *storage.ChatCache
	renderer *components.MessageRenderer
	keys     KeyMap

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	chats        []model.ChatSummary
	selected     int
	sidebarFocus bool

	active  *model.Chat
	sending bool
	offline bool
	errText string

	width  int
	height int
}

// New creates the chat view. The cache may be nil, in which case chats
// are only available while the backend is reachable.
func New(theme *styles.Theme, client *api.Client, cache *storage.ChatCache) Model {
	input := textinput.New()
	input.Placeholder = "Ask about visas, trains, beaches..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		theme:    theme,
		client:   client,
		cache:    cache,
		renderer: components.NewMessageRenderer(theme, 80),
		keys:     DefaultKeyMap(),
		viewport: viewport.New(80, 20),
		input:    input,
		spinner:  sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadChats())
}

// Offline reports whether the last chat list came from the local cache.
func (m Model) Offline() bool {
	return m.offline
}

// SetSize updates layout dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	contentWidth := width - sidebarWidth - 1
	if contentWidth < 20 {
		contentWidth = 20
	}
	m.renderer.SetWidth(contentWidth)
	m.viewport.Width = contentWidth
	m.viewport.Height = height - 3
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.input.Width = contentWidth - 4
	m.refreshViewport()
}

// =============================================================================
// COMMANDS
// =============================================================================

// loadChats fetches the chat list, falling back to the local cache when
// the backend is unreachable.
func (m Model) loadChats() tea.Cmd {
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		chats, err := client.ListChats(context.Background())
		if err == nil {
			return chatsLoadedMsg{chats: chats}
		}
		if api.IsNetwork(err) && cache != nil {
			cached, cacheErr := cache.ListChats(context.Background())
			if cacheErr == nil {
				return chatsLoadedMsg{chats: cached, fromCache: true}
			}
		}
		return chatErrMsg{err: err}
	}
}

func (m Model) openChat(id int64) tea.Cmd {
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		chat, err := client.GetChat(context.Background(), id)
		if err == nil {
			if cache != nil {
				// Cache failures must not block reading; drop them.
				_ = cache.PutChat(context.Background(), chat)
			}
			return chatOpenedMsg{chat: chat}
		}
		if api.IsNetwork(err) && cache != nil {
			cached, cacheErr := cache.GetChat(context.Background(), id)
			if cacheErr == nil {
				return chatOpenedMsg{chat: cached, fromCache: true}
			}
		}
		return chatErrMsg{err: err}
	}
}

func (m Model) createChat(title string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		summary, err := client.CreateChat(context.Background(), title)
		if err != nil {
			return chatErrMsg{err: err}
		}
		return chatCreatedMsg{summary: summary}
	}
}

func (m Model) deleteChat(id int64) tea.Cmd {
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		if err := client.DeleteChat(context.Background(), id); err != nil {
			return chatErrMsg{err: err}
		}
		if cache != nil {
			_ = cache.DeleteChat(context.Background(), id)
		}
		return chatDeletedMsg{id: id}
	}
}

func (m Model) sendMessage(chatID int64, content string) tea.Cmd {
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		reply, err := client.SendMessage(context.Background(), chatID, content)
		if err != nil {
			return sendFailedMsg{chatID: chatID, err: err}
		}
		if cache != nil {
			_ = cache.AppendMessage(context.Background(), chatID, *reply)
		}
		return replyMsg{chatID: chatID, reply: reply}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chatsLoadedMsg:
		m.chats = msg.chats
		m.offline = msg.fromCache
		if m.selected >= len(m.chats) {
			m.selected = 0
		}
		if m.active == nil && len(m.chats) > 0 {
			return m, m.openChat(m.chats[m.selected].ID)
		}
		return m, nil

	case chatOpenedMsg:
		m.active = msg.chat
		m.offline = msg.fromCache
		m.errText = ""
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case chatCreatedMsg:
		m.chats = append([]model.ChatSummary{*msg.summary}, m.chats...)
		m.selected = 0
		m.active = &model.Chat{
			ID:        msg.summary.ID,
			Title:     msg.summary.Title,
			CreatedAt: msg.summary.CreatedAt,
			UpdatedAt: msg.summary.UpdatedAt,
		}
		m.refreshViewport()
		return m, nil

	case chatDeletedMsg:
		m.chats = removeSummary(m.chats, msg.id)
		if m.active != nil && m.active.ID == msg.id {
			m.active = nil
			m.viewport.SetContent("")
		}
		if m.selected >= len(m.chats) {
			m.selected = len(m.chats) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		if m.active == nil && len(m.chats) > 0 {
			return m, m.openChat(m.chats[m.selected].ID)
		}
		return m, nil

	case replyMsg:
		m.sending = false
		if m.active == nil || m.active.ID != msg.chatID {
			return m, nil
		}
		m.clearPending()
		m.active.Messages = append(m.active.Messages, msg.reply)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case sendFailedMsg:
		m.sending = false
		if m.active != nil && m.active.ID == msg.chatID {
			// The optimistic echo stays visible and marked pending so the
			// user can see what did not go through.
			m.errText = api.UserMessage(msg.err)
			m.refreshViewport()
		}
		return m, nil

	case chatErrMsg:
		m.sending = false
		m.errText = api.UserMessage(msg.err)
		return m, nil

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Sidebar):
		m.sidebarFocus = !m.sidebarFocus
		if m.sidebarFocus {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, m.createChat("New chat")

	case key.Matches(msg, m.keys.DeleteChat):
		if m.sidebarFocus && m.selected < len(m.chats) {
			return m, m.deleteChat(m.chats[m.selected].ID)
		}
		return m, nil
	}

	if m.sidebarFocus {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.chats)-1 {
				m.selected++
			}
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			if m.selected < len(m.chats) {
				return m, m.openChat(m.chats[m.selected].ID)
			}
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the typed message. The user's text is echoed into the
// conversation immediately and marked pending until the reply arrives.
func (m Model) submit() (Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" || m.sending {
		return m, nil
	}

	m.errText = ""
	m.input.Reset()
	m.sending = true

	if m.active == nil {
		// First message with no chat yet: create one titled from the
		// message, then send once the chat exists.
		title := model.TitleFromMessage(content)
		client := m.client
		cache := m.cache
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			summary, err := client.CreateChat(context.Background(), title)
			if err != nil {
				return chatErrMsg{err: err}
			}
			reply, err := client.SendMessage(context.Background(), summary.ID, content)
			if err != nil {
				return sendFailedMsg{chatID: summary.ID, err: err}
			}
			chat := &model.Chat{
				ID:        summary.ID,
				Title:     summary.Title,
				CreatedAt: summary.CreatedAt,
				UpdatedAt: summary.UpdatedAt,
				Messages: []*model.Message{
					{Role: model.RoleUser, Content: content, CreatedAt: reply.CreatedAt},
					reply,
				},
			}
			if cache != nil {
				_ = cache.PutChat(context.Background(), chat)
			}
			return chatOpenedMsg{chat: chat}
		})
	}

	echo := model.NewUserMessage(content)
	m.active.Messages = append(m.active.Messages, echo)
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, m.sendMessage(m.active.ID, content))
}

// clearPending marks the optimistic echo as delivered.
func (m *Model) clearPending() {
	if m.active == nil {
		return
	}
	for _, msg := range m.active.Messages {
		msg.Pending = false
	}
}

func removeSummary(chats []model.ChatSummary, id int64) []model.ChatSummary {
	out := chats[:0]
	for _, c := range chats {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// VIEW
// =============================================================================

func (m *Model) refreshViewport() {
	if m.active == nil {
		m.viewport.SetContent(m.theme.ThinkingText.Render("Start a conversation with C-n or just type."))
		return
	}
	var parts []string
	for _, msg := range m.active.Messages {
		parts = append(parts, m.renderer.Render(msg))
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
}

// View implements tea.Model.
func (m Model) View() string {
	sidebar := m.renderSidebar()

	var bottom string
	switch {
	case m.sending:
		bottom = m.spinner.View() + m.theme.ThinkingText.Render(" thinking...")
	case m.errText != "":
		bottom = m.theme.FormError.Render(m.errText)
	default:
		bottom = m.theme.InputContainer.Render(m.input.View())
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), bottom)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
}

func (m Model) renderSidebar() string {
	var rows []string
	rows = append(rows, m.theme.HeaderSubtitle.Render("Chats"))
	for i, chat := range m.chats {
		title := runewidth.Truncate(chat.Title, sidebarWidth-4, "…")
		style := m.theme.SidebarItem
		if i == m.selected {
			style = m.theme.SidebarSelected
		}
		rows = append(rows, style.Render(title))
	}
	if len(m.chats) == 0 {
		rows = append(rows, m.theme.SidebarMeta.Render("no chats yet"))
	}
	if m.offline {
		rows = append(rows, "", m.theme.StatusOffline.Render("cached copy"))
	}

	height := m.viewport.Height + 1
	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(height).
		Render(strings.Join(rows, "\n"))
}
