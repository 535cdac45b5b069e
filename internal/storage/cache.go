// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotCached     = errors.New("chat not cached")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	id         INTEGER PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY,
	chat_id    INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, id);
`

// =============================================================================
// CHAT CACHE
// =============================================================================

// ChatCache is a read-through cache of server-side chats.
type ChatCache struct {
	db *sql.DB
}

// DefaultPath returns the cache database location under the user's
// config directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lankaguide", "chats.db"), nil
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*ChatCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// The cache is accessed from UI command goroutines; a single
	// connection sidesteps SQLite write contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return &ChatCache{db: db}, nil
}

// Close closes the underlying database.
func (c *ChatCache) Close() error {
	return c.db.Close()
}

// PutChat stores or refreshes one chat and its messages.
func (c *ChatCache) PutChat(ctx context.Context, chat *model.Chat) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	updated := chat.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		chat.ID, chat.Title, chat.CreatedAt, updated)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// The server response is the complete message list; replace rather
	// than merge.
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chat.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	for _, msg := range chat.Messages {
		if msg.Pending {
			continue // unacknowledged local echo, not part of history yet
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, chat_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			msg.ID, chat.ID, string(msg.Role), msg.Content, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// AppendMessage adds one message to a cached chat without refetching
// the whole conversation.
func (c *ChatCache) AppendMessage(ctx context.Context, chatID int64, msg model.Message) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content`,
		msg.ID, chatID, string(msg.Role), msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	_, err = c.db.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), chatID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// GetChat loads one cached chat with its messages in order.
func (c *ChatCache) GetChat(ctx context.Context, chatID int64) (*model.Chat, error) {
	chat := &model.Chat{}
	err := c.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, updated_at FROM chats WHERE id = ?`, chatID).
		Scan(&chat.ID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, role, content, created_at FROM messages
		WHERE chat_id = ? ORDER BY id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		msg := &model.Message{}
		var role string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		msg.Role = model.Role(role)
		chat.Messages = append(chat.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return chat, nil
}

// ListChats returns cached chat summaries, most recently updated first.
func (c *ChatCache) ListChats(ctx context.Context) ([]model.ChatSummary, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at
		FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var chats []model.ChatSummary
	for rows.Next() {
		var summary model.ChatSummary
		if err := rows.Scan(&summary.ID, &summary.Title, &summary.CreatedAt, &summary.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		chats = append(chats, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return chats, nil
}

// DeleteChat removes one chat and its messages. Deleting a chat that
// is not cached is a no-op.
func (c *ChatCache) DeleteChat(ctx context.Context, chatID int64) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Clear drops all cached content, used on logout so the next user of
// the terminal cannot read the previous user's conversations.
func (c *ChatCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM chats`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}
