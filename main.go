// LankaGuide TUI - A terminal client for the LankaGuide tourism assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lankaguide/lankaguide-tui/internal/api"
	"github.com/lankaguide/lankaguide-tui/internal/config"
	"github.com/lankaguide/lankaguide-tui/internal/push"
	"github.com/lankaguide/lankaguide-tui/internal/session"
	"github.com/lankaguide/lankaguide-tui/internal/storage"
	"github.com/lankaguide/lankaguide-tui/internal/tracker"
	"github.com/lankaguide/lankaguide-tui/internal/ui/admin"
	"github.com/lankaguide/lankaguide-tui/internal/ui/chat"
	"github.com/lankaguide/lankaguide-tui/internal/ui/components"
	"github.com/lankaguide/lankaguide-tui/internal/ui/login"
	"github.com/lankaguide/lankaguide-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async event delivery
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func programSend(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.lankaguide/config.toml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	debugLog := flag.String("debug-log", "", "write connection logs to this file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lankaguide %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Stray writes would corrupt the alternate screen, so logs go to a
	// file or nowhere.
	logger := log.New(io.Discard, "", log.LstdFlags)
	if *debugLog != "" {
		f, err := os.OpenFile(*debugLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot open debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = log.New(f, "", log.LstdFlags)
	}

	if err := config.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	configDir, _ := config.Dir()

	sessions := session.NewStore(filepath.Join(configDir, "session.json"))

	clientConfig := api.DefaultClientConfig(cfg.Server.BaseURL)
	clientConfig.Timeout = cfg.RequestTimeout()
	clientConfig.UploadTimeout = cfg.UploadTimeout()
	client := api.NewClient(clientConfig, sessions)
	client.SetUnauthorizedHook(func() {
		programSend(sessionExpiredMsg{})
	})

	cache, err := storage.Open(filepath.Join(configDir, "chats.db"))
	if err != nil {
		// The cache only serves offline reads; the app works without it.
		logger.Printf("CACHE_OPEN_FAILED | err=%v", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	tr := tracker.NewTracker(client, tracker.Config{
		GracePeriod:    cfg.GracePeriod(),
		ResyncDebounce: cfg.ResyncDebounce(),
		OnChange: func() {
			programSend(admin.TrackerChangedMsg{})
		},
	})
	defer tr.Close()

	channel := push.NewChannel(push.Config{
		URL:       cfg.ResolvedPushURL(),
		TokenFunc: sessions.Token,
		Logger:    logger,
	})

	m := newAppModel(cfg, styles.NewTheme(), client, sessions, cache, tr)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	// Push subscription lifecycle. The channel only dials while a
	// session exists; pumpPush forwards every event into the program.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go channel.Run(ctx)
	go pumpPush(channel)
	defer channel.Close()

	// Config edits apply live; a broken file keeps the previous config.
	if *configPath == "" {
		if path, err := config.PathTOML(); err == nil {
			if watcher, err := config.NewWatcher(path, func(next *config.Config) {
				programSend(configReloadedMsg{config: next})
			}); err == nil && watcher.Watch() == nil {
				defer watcher.Close()
			}
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running lankaguide: %v\n", err)
		os.Exit(1)
	}
}

// pumpPush forwards subscription events to the UI until the stream
// closes.
func pumpPush(channel *push.Channel) {
	for event := range channel.Events() {
		programSend(pushEventMsg{event: event})
	}
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// State represents the current application view.
type State int

const (
	StateLogin State = iota
	StateChat
	StateAdmin
)

// Messages delivered from outside the update loop.
type (
	sessionExpiredMsg  struct{}
	pushEventMsg       struct{ event push.Event }
	configReloadedMsg  struct{ config *config.Config }
	startupVerifiedMsg struct{ ok bool }
)

// appModel is the root Bubble Tea model. It routes between the login,
// chat, and admin views and owns the cross-cutting chrome: status bar
// and toasts.
type appModel struct {
	state  State
	config *config.Config
	theme  *styles.Theme

	client   *api.Client
	sessions *session.Store
	cache    *storage.ChatCache
	tracker  *tracker.Tracker

	loginModel login.Model
	chatModel  chat.Model
	adminModel admin.Model

	statusBar *components.StatusBar
	toasts    *components.ToastManager

	pushConnected bool

	width  int
	height int
}

func newAppModel(cfg *config.Config, theme *styles.Theme, client *api.Client, sessions *session.Store, cache *storage.ChatCache, tr *tracker.Tracker) *appModel {
	state := StateLogin
	if sessions.IsAuthenticated() {
		state = StateChat
	}

	return &appModel{
		state:      state,
		config:     cfg,
		theme:      theme,
		client:     client,
		sessions:   sessions,
		cache:      cache,
		tracker:    tr,
		loginModel: login.New(theme, client),
		chatModel:  chat.New(theme, client, cache),
		adminModel: admin.New(theme, client, tr),
		statusBar:  components.NewStatusBar(theme),
		toasts:     components.NewToastManager(theme),
	}
}

// Init implements tea.Model.
func (m *appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loginModel.Init()}
	if m.state == StateChat {
		// A persisted token may have expired; verify it before trusting
		// the restored session.
		cmds = append(cmds, m.verifySession(), m.chatModel.Init())
	}
	return tea.Batch(cmds...)
}

func (m *appModel) verifySession() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		_, err := client.Me(context.Background())
		if api.IsUnauthorized(err) {
			return startupVerifiedMsg{ok: false}
		}
		// Network trouble is not a reason to log out; offline mode
		// still serves cached chats.
		return startupVerifiedMsg{ok: true}
	}
}

// Update implements tea.Model.
func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.loginModel.SetSize(msg.Width, msg.Height-1)
		m.chatModel.SetSize(msg.Width, msg.Height-1)
		m.adminModel.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case sessionExpiredMsg:
		// The client already cleared the token; drop to the login view.
		m.state = StateLogin
		return m, m.toasts.Error("Session expired, please sign in again")

	case startupVerifiedMsg:
		if !msg.ok {
			m.state = StateLogin
		}
		return m, nil

	case login.AuthenticatedMsg:
		m.state = StateChat
		m.chatModel = chat.New(m.theme, m.client, m.cache)
		m.chatModel.SetSize(m.width, m.height-1)
		return m, tea.Batch(
			m.chatModel.Init(),
			m.toasts.Success("Welcome, "+msg.User.Username),
		)

	case pushEventMsg:
		switch msg.event.Type {
		case push.EventConnected:
			m.pushConnected = true
		case push.EventDisconnected:
			m.pushConnected = false
		}
		// The admin model owns upload tracking, so it sees every event
		// even while another view is on screen.
		var cmd tea.Cmd
		m.adminModel, cmd = m.adminModel.Update(admin.ProgressMsg{Event: msg.event})
		return m, cmd

	case admin.TrackerChangedMsg:
		var cmd tea.Cmd
		m.adminModel, cmd = m.adminModel.Update(msg)
		return m, cmd

	case configReloadedMsg:
		m.config = msg.config
		return m, m.toasts.Info("Configuration reloaded")

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			return m, tea.Quit
		case "f2":
			if m.state != StateLogin {
				m.state = StateChat
			}
			return m, nil
		case "f3":
			// SECURITY: The dashboard is gated client-side for UX only;
			// the backend enforces admin on every endpoint.
			if m.state != StateLogin && m.sessions.IsAdmin() {
				m.state = StateAdmin
				return m, m.adminModel.Init()
			}
			return m, nil
		case "f10":
			if m.state == StateLogin {
				return m, nil
			}
			m.client.Logout()
			if m.cache != nil {
				// Cached conversations belong to the account that fetched
				// them; drop them with the session.
				_ = m.cache.Clear(context.Background())
			}
			m.state = StateLogin
			m.loginModel = login.New(m.theme, m.client)
			m.loginModel.SetSize(m.width, m.height-1)
			return m, m.loginModel.Init()
		}
	}

	if cmd := m.toasts.Update(msg); cmd != nil {
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.state {
	case StateLogin:
		m.loginModel, cmd = m.loginModel.Update(msg)
	case StateChat:
		m.chatModel, cmd = m.chatModel.Update(msg)
	case StateAdmin:
		m.adminModel, cmd = m.adminModel.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m *appModel) View() string {
	var body string
	switch m.state {
	case StateLogin:
		body = m.loginModel.View()
	case StateChat:
		body = m.chatModel.View()
	case StateAdmin:
		body = m.adminModel.View()
	}

	if m.toasts.HasToasts() {
		body = lipgloss.JoinVertical(lipgloss.Left, m.toasts.View(m.width), body)
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

func (m *appModel) renderStatusBar() string {
	bar := m.statusBar
	bar.Connected = m.pushConnected
	bar.Username = ""
	bar.IsAdmin = false
	if user := m.sessions.User(); user != nil {
		bar.Username = user.Username
		bar.IsAdmin = user.IsAdmin
	}

	switch m.state {
	case StateLogin:
		bar.Shortcuts = []components.Shortcut{
			{Key: "C-r", Desc: "login/register"},
			{Key: "C-q", Desc: "quit"},
		}
	case StateChat:
		bar.Shortcuts = []components.Shortcut{
			{Key: "C-n", Desc: "new chat"},
			{Key: "Tab", Desc: "sidebar"},
			{Key: "F10", Desc: "logout"},
		}
		if bar.IsAdmin {
			bar.Shortcuts = append(bar.Shortcuts, components.Shortcut{Key: "F3", Desc: "admin"})
		}
	case StateAdmin:
		bar.Shortcuts = []components.Shortcut{
			{Key: "Enter", Desc: "upload"},
			{Key: "C-x", Desc: "delete"},
			{Key: "F2", Desc: "chat"},
		}
	}
	return bar.View(m.width)
}
