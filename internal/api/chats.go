// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// createChatRequest is the wire shape for POST /chat.
type createChatRequest struct {
	Title string `json:"title,omitempty"`
}

// createChatResponse wraps the created chat.
type createChatResponse struct {
	Chat *model.ChatSummary `json:"chat"`
}

// listChatsResponse wraps the sidebar listing.
type listChatsResponse struct {
	Chats []model.ChatSummary `json:"chats"`
}

// getChatResponse wraps a full conversation.
type getChatResponse struct {
	Chat *model.Chat `json:"chat"`
}

// sendMessageRequest is the wire shape for POST /chat/{id}/messages.
type sendMessageRequest struct {
	Message string `json:"message"`
}

// sendMessageResponse wraps the assistant's reply.
type sendMessageResponse struct {
	Response *model.Message `json:"response"`
}

// CreateChat starts a new conversation. An empty title lets the backend
// derive one from the first message.
func (c *Client) CreateChat(ctx context.Context, title string) (*model.ChatSummary, error) {
	var resp createChatResponse
	if err := c.postJSON(ctx, "/chat", createChatRequest{Title: title}, &resp); err != nil {
		return nil, err
	}
	if resp.Chat == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "create chat response missing chat"}
	}
	return resp.Chat, nil
}

// ListChats returns the user's conversations, most recently updated first.
func (c *Client) ListChats(ctx context.Context) ([]model.ChatSummary, error) {
	var resp listChatsResponse
	if err := c.getJSON(ctx, "/chats", &resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// GetChat returns one conversation with its full message history.
func (c *Client) GetChat(ctx context.Context, id int64) (*model.Chat, error) {
	var resp getChatResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/chat/%d", id), &resp); err != nil {
		return nil, err
	}
	if resp.Chat == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "get chat response missing chat"}
	}
	return resp.Chat, nil
}

// SendMessage posts a user message and returns the assistant's reply.
// The backend persists both sides of the exchange.
func (c *Client) SendMessage(ctx context.Context, chatID int64, content string) (*model.Message, error) {
	var resp sendMessageResponse
	err := c.postJSON(ctx, fmt.Sprintf("/chat/%d/messages", chatID), sendMessageRequest{Message: content}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Response == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "send message response missing reply"}
	}
	resp.Response.Role = model.RoleAssistant
	return resp.Response, nil
}

// DeleteChat removes a conversation. Deleting an already-deleted chat is
// treated as success.
func (c *Client) DeleteChat(ctx context.Context, id int64) error {
	err := c.delete(ctx, fmt.Sprintf("/chat/%d", id))
	if IsNotFound(err) {
		return nil
	}
	return err
}
