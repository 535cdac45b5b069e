// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

func openTestCache(t *testing.T) *ChatCache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "chats.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func sampleChat() *model.Chat {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Chat{
		ID:        1,
		Title:     "Visa requirements",
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []*model.Message{
			{ID: 10, Role: model.RoleUser, Content: "Do I need a visa for Sri Lanka?", CreatedAt: now},
			{ID: 11, Role: model.RoleAssistant, Content: "Summary: Most visitors need an ETA.", CreatedAt: now},
		},
	}
}

func TestPutAndGetChat(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.PutChat(ctx, sampleChat()); err != nil {
		t.Fatalf("PutChat() error = %v", err)
	}

	got, err := cache.GetChat(ctx, 1)
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if got.Title != "Visa requirements" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != model.RoleUser || got.Messages[1].Role != model.RoleAssistant {
		t.Error("message roles not preserved in order")
	}
}

func TestGetChatNotCached(t *testing.T) {
	cache := openTestCache(t)

	_, err := cache.GetChat(context.Background(), 999)
	if !errors.Is(err, ErrNotCached) {
		t.Errorf("GetChat() error = %v, want ErrNotCached", err)
	}
}

func TestPutChatReplacesMessages(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	chat := sampleChat()
	if err := cache.PutChat(ctx, chat); err != nil {
		t.Fatal(err)
	}

	// Refresh with a longer server-side history.
	chat.Messages = append(chat.Messages, &model.Message{
		ID: 12, Role: model.RoleUser, Content: "What does it cost?", CreatedAt: time.Now().UTC(),
	})
	if err := cache.PutChat(ctx, chat); err != nil {
		t.Fatal(err)
	}

	got, err := cache.GetChat(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 3 {
		t.Errorf("len(Messages) = %d, want 3", len(got.Messages))
	}
}

func TestPutChatSkipsPendingMessages(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	chat := sampleChat()
	chat.Messages = append(chat.Messages, model.NewUserMessage("unsent"))
	if err := cache.PutChat(ctx, chat); err != nil {
		t.Fatal(err)
	}

	got, err := cache.GetChat(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2 (pending echo not cached)", len(got.Messages))
	}
}

func TestAppendMessage(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.PutChat(ctx, sampleChat()); err != nil {
		t.Fatal(err)
	}
	err := cache.AppendMessage(ctx, 1, model.Message{
		ID: 12, Role: model.RoleAssistant, Content: "Details: ...", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	got, _ := cache.GetChat(ctx, 1)
	if len(got.Messages) != 3 {
		t.Errorf("len(Messages) = %d, want 3", len(got.Messages))
	}
}

func TestListChatsOrdersByRecency(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	older := sampleChat()
	older.ID = 1
	older.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	newer := sampleChat()
	newer.ID = 2
	newer.Title = "Train to Kandy"
	newer.UpdatedAt = time.Now().UTC()

	if err := cache.PutChat(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := cache.PutChat(ctx, newer); err != nil {
		t.Fatal(err)
	}

	chats, err := cache.ListChats(ctx)
	if err != nil {
		t.Fatalf("ListChats() error = %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("len(chats) = %d, want 2", len(chats))
	}
	if chats[0].ID != 2 {
		t.Errorf("most recently updated chat should list first, got id %d", chats[0].ID)
	}
}

func TestDeleteChatCascades(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.PutChat(ctx, sampleChat()); err != nil {
		t.Fatal(err)
	}
	if err := cache.DeleteChat(ctx, 1); err != nil {
		t.Fatalf("DeleteChat() error = %v", err)
	}
	if _, err := cache.GetChat(ctx, 1); !errors.Is(err, ErrNotCached) {
		t.Errorf("GetChat() after delete = %v, want ErrNotCached", err)
	}

	// Deleting again is a no-op.
	if err := cache.DeleteChat(ctx, 1); err != nil {
		t.Errorf("second DeleteChat() error = %v", err)
	}
}

func TestClearEmptiesCache(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.PutChat(ctx, sampleChat()); err != nil {
		t.Fatal(err)
	}
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	chats, err := cache.ListChats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 0 {
		t.Errorf("len(chats) = %d after Clear, want 0", len(chats))
	}
}
