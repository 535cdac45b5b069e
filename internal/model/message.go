// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/lankaguide/lankaguide-tui/internal/util"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// =============================================================================
// MESSAGE
// =============================================================================

// Message is a single chat message as reported by the backend.
type Message struct {
	ID        int64     `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Pending marks a locally-echoed user message that the backend has not
	// acknowledged yet. Not persisted, not part of the wire format.
	Pending bool `json:"-"`
}

// NewUserMessage creates a locally-echoed user message awaiting backend
// acknowledgement.
func NewUserMessage(content string) *Message {
	return &Message{
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
		Pending:   true,
	}
}

// =============================================================================
// CHAT
// =============================================================================

// MaxTitleRunes is the maximum length of a chat title derived from the
// first message, matching the backend's truncation rule.
const MaxTitleRunes = 50

// Chat is a conversation with its full message history.
type Chat struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`
}

// ChatSummary is a conversation as listed in the sidebar, without messages.
type ChatSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TitleFromMessage derives a chat title from the first user message the way
// the backend does, so the sidebar shows the same title before and after a
// refresh.
func TitleFromMessage(content string) string {
	return util.TruncateRunes(content, MaxTitleRunes)
}

// =============================================================================
// USER
// =============================================================================

// User is the authenticated account as returned by the auth endpoints.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}
